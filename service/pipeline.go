package service

import (
	"context"
	"log"
	"net/http"
	"time"

	"SeriesVideo-server/config"
	"SeriesVideo-server/models"
	"SeriesVideo-server/pipeline"
	"SeriesVideo-server/progress"
)

var (
	// Progress is shared by the worker (writer) and the HTTP API (readers).
	Progress *progress.Tracker
	// Runs holds cancel funcs of in-flight generations in this process.
	Runs = pipeline.NewRegistry()
)

// InitProgress picks the progress store named by progress.backend.
func InitProgress(ctx context.Context) {
	cfg := config.AppConfig
	switch cfg.Progress.Backend {
	case "redis":
		store, err := progress.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Fatalf("progress redis store failed: %v", err)
		}
		Progress = progress.NewTracker(store)
	default:
		Progress = progress.NewTracker(progress.NewMemoryStore())
	}
	log.Printf("[progress] using %s store", cfg.Progress.Backend)
}

// BuildGenerator wires the pipeline from configuration. Keys are resolved
// per call, so editing the secrets file takes effect on the next video.
func BuildGenerator(cfg *config.Config, tracker *progress.Tracker) *pipeline.Generator {
	keys := config.NewKeyProvider(cfg.AI.SecretsFile)
	k := keys.ResolveKeys()
	log.Printf("[pipeline] keys: openai=%s elevenlabs=%s pixabay=%s",
		config.MaskKey(k.Script), config.MaskKey(k.Voice), config.MaskKey(k.ImageSearch))
	client := &http.Client{Timeout: 2 * time.Minute}

	encoder := pipeline.NewEncoder(cfg.Media.FFmpeg, cfg.Media.FFprobe, nil)
	images := pipeline.NewSourcer(
		pipeline.NewOpenAIImageProvider(cfg.AI.ImageAPI, cfg.AI.ImageModel, keys.For(config.ServiceOpenAI), client),
		pipeline.NewPixabayProvider(cfg.AI.SearchAPI, keys.For(config.ServicePixabay), client),
		pipeline.NewPlaceholderProvider(encoder),
	)

	var reporter pipeline.Reporter
	if tracker != nil {
		reporter = tracker
	}
	return pipeline.NewGenerator(pipeline.Options{
		Script:   pipeline.NewScriptGenerator(cfg.AI.ScriptAPI, cfg.AI.ScriptModel, keys.For(config.ServiceOpenAI), client),
		Images:   images,
		Voice:    pipeline.NewVoiceSynthesizer(cfg.AI.VoiceAPI, cfg.AI.VoiceModel, keys.For(config.ServiceElevenLabs), client),
		Encoder:  encoder,
		Progress: reporter,
		Registry: Runs,
		WorkDir:  cfg.Media.WorkDir,
		MusicDir: cfg.Media.MusicDir,
	})
}

// GenerationConfigFromSeries maps a stored series onto the pipeline input.
func GenerationConfigFromSeries(s models.Series) pipeline.GenerationConfig {
	format := pipeline.FormatPreset
	if s.Format == pipeline.FormatCustom {
		format = pipeline.FormatCustom
	}
	duration := pipeline.DurationShort
	if s.Duration == string(pipeline.DurationLong) {
		duration = pipeline.DurationLong
	}
	return pipeline.GenerationConfig{
		SeriesID:     s.ID,
		Format:       format,
		PresetType:   s.PresetType,
		CustomFormat: s.CustomFormat,
		Niche:        s.Niche,
		Language:     s.Language,
		Voice:        s.Voice,
		VoiceStyle:   s.VoiceStyle,
		Music:        s.Music,
		ArtStyle:     s.ArtStyle,
		CaptionStyle: s.CaptionStyle,
		Duration:     duration,
	}
}
