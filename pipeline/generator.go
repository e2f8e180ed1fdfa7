package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"SeriesVideo-server/progress"
)

const maxTitleLength = 100

// ScriptWriter produces narration for one video of a series.
type ScriptWriter interface {
	Generate(ctx context.Context, cfg GenerationConfig, videoIndex int) (string, error)
}

// Narrator renders narration text to an audio file.
type Narrator interface {
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

// Reporter receives progress snapshots. *progress.Tracker satisfies it.
type Reporter interface {
	Update(ctx context.Context, s progress.Status) error
}

// Options wires a Generator.
type Options struct {
	Script   ScriptWriter
	Images   *Sourcer
	Voice    Narrator
	Encoder  *Encoder
	Progress Reporter
	Registry *Registry
	// WorkDir holds one directory per series; final outputs land there.
	WorkDir string
	// MusicDir holds background tracks as <id>.mp3.
	MusicDir string
}

// Generator runs the whole video pipeline for one video.
type Generator struct {
	script   ScriptWriter
	images   *Sourcer
	voice    Narrator
	encoder  *Encoder
	progress Reporter
	registry *Registry
	workDir  string
	musicDir string
}

func NewGenerator(opts Options) *Generator {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	return &Generator{
		script:   opts.Script,
		images:   opts.Images,
		voice:    opts.Voice,
		encoder:  opts.Encoder,
		progress: opts.Progress,
		registry: opts.Registry,
		workDir:  opts.WorkDir,
		musicDir: opts.MusicDir,
	}
}

// Registry exposes the run registry for cancellation.
func (g *Generator) Registry() *Registry {
	return g.registry
}

// run carries the per-invocation state of Generate.
type run struct {
	g           *Generator
	ctx         context.Context
	cfg         GenerationConfig
	videoIndex  int
	totalVideos int
}

func (r *run) report(step string, pct int, msg string) {
	if r.g.progress == nil {
		return
	}
	// Progress must still land after the run context is canceled.
	_ = r.g.progress.Update(context.WithoutCancel(r.ctx), progress.Status{
		SeriesID:     r.cfg.SeriesID,
		CurrentStep:  step,
		CurrentVideo: r.videoIndex + 1,
		TotalVideos:  r.totalVideos,
		Percentage:   pct,
		Message:      msg,
	})
}

// Generate produces video_<index>.mp4 and thumbnail_<index>.jpg under
// WorkDir/<seriesID>. Intermediate files live in a scratch directory that is
// removed on every exit path; on failure the final outputs are removed too.
func (g *Generator) Generate(ctx context.Context, cfg GenerationConfig, videoIndex, totalVideos int) (*Result, error) {
	if strings.TrimSpace(cfg.SeriesID) == "" {
		return nil, &StageError{Stage: StageScript, Message: "series id is required"}
	}
	if totalVideos < videoIndex+1 {
		totalVideos = videoIndex + 1
	}

	runCtx, release, err := g.registry.Acquire(ctx, cfg.SeriesID)
	if err != nil {
		return nil, err
	}
	defer release()

	outDir := filepath.Join(g.workDir, cfg.SeriesID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &StageError{Stage: StageScript, Message: "cannot create output directory", Err: err}
	}
	scratch, err := os.MkdirTemp(outDir, fmt.Sprintf("run-%d-*", videoIndex))
	if err != nil {
		return nil, &StageError{Stage: StageScript, Message: "cannot create scratch directory", Err: err}
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Printf("[pipeline] remove scratch %s: %v", scratch, err)
		}
	}()

	videoPath := filepath.Join(outDir, fmt.Sprintf("video_%d.mp4", videoIndex))
	thumbPath := filepath.Join(outDir, fmt.Sprintf("thumbnail_%d.jpg", videoIndex))
	succeeded := false
	defer func() {
		if !succeeded {
			removeQuietly(videoPath, thumbPath)
		}
	}()

	r := &run{g: g, ctx: runCtx, cfg: cfg, videoIndex: videoIndex, totalVideos: totalVideos}
	log.Printf("[pipeline] series %s: generating video %d/%d", cfg.SeriesID, videoIndex+1, totalVideos)

	res, err := r.execute(scratch, videoPath, thumbPath)
	if err != nil {
		log.Printf("[pipeline] series %s video %d failed: %v", cfg.SeriesID, videoIndex+1, err)
		return nil, err
	}
	succeeded = true
	log.Printf("[pipeline] series %s: video %d done (%s)", cfg.SeriesID, videoIndex+1, res.DurationLabel)
	return res, nil
}

func (r *run) execute(scratch, videoPath, thumbPath string) (*Result, error) {
	g, ctx, cfg := r.g, r.ctx, r.cfg

	r.report(StageScript, 10, "Writing script...")
	script, err := g.script.Generate(ctx, cfg, r.videoIndex)
	if err != nil {
		return nil, &StageError{Stage: StageScript, Message: "script generation failed", Err: err}
	}
	title := TitleFromScript(script)

	r.report(StageScenes, 15, "Preparing scenes...")
	scenes := SplitIntoScenes(script, cfg.Duration, cfg.ArtStyle)
	log.Printf("[pipeline] created %d scenes", len(scenes))

	clips := make([]string, 0, len(scenes))
	for i, scene := range scenes {
		pct := 15 + int(math.Round(float64(i)/float64(len(scenes))*50))
		r.report(StageVisuals, pct, fmt.Sprintf("Generating scene %d/%d...", i+1, len(scenes)))

		provider, err := g.images.Source(ctx, ImageRequest{
			Scene:      scene,
			Index:      i,
			ArtStyle:   cfg.ArtStyle,
			Niche:      cfg.Niche,
			OutputPath: sceneImagePath(scratch, i),
		})
		if err != nil {
			return nil, &StageError{Stage: StageVisuals, Message: fmt.Sprintf("no image for scene %d", i), Err: err}
		}
		log.Printf("[pipeline] scene %d image from %s", i+1, provider)

		clip, err := g.encoder.RenderClip(ctx, scene, i, scratch)
		if err != nil {
			return nil, &StageError{Stage: StageVisuals, Message: fmt.Sprintf("render scene %d", i), Err: err}
		}
		clips = append(clips, clip)
	}

	r.report(StageVoice, 70, "Generating voice-over...")
	audioPath := filepath.Join(scratch, fmt.Sprintf("audio_%d.mp3", r.videoIndex))
	if err := g.voice.Synthesize(ctx, script, cfg.Voice, audioPath); err != nil {
		return nil, &StageError{Stage: StageVoice, Message: "voice synthesis failed", Err: err}
	}

	r.report(StageAssemble, 85, "Assembling video...")
	if err := g.encoder.Assemble(ctx, scratch, clips, audioPath, videoPath, g.musicPath(cfg.Music)); err != nil {
		return nil, &StageError{Stage: StageAssemble, Message: "assembly failed", Err: err}
	}

	r.report(StageThumbnail, 95, "Creating thumbnail...")
	if err := g.encoder.Thumbnail(ctx, videoPath, thumbPath); err != nil {
		return nil, &StageError{Stage: StageThumbnail, Message: "thumbnail extraction failed", Err: err}
	}

	r.report(StageCleanup, 98, "Cleaning up files...")
	for i := range scenes {
		removeQuietly(sceneClipPath(scratch, i), sceneImagePath(scratch, i))
	}
	removeQuietly(audioPath)

	seconds, err := g.encoder.Probe(ctx, videoPath)
	if err != nil {
		return nil, &StageError{Stage: StageCleanup, Message: "probe duration failed", Err: err}
	}
	rounded := int(math.Round(seconds))

	r.report(StageDone, 100, "Video complete!")
	return &Result{
		VideoPath:       videoPath,
		ThumbnailPath:   thumbPath,
		Title:           title,
		DurationSeconds: rounded,
		DurationLabel:   FormatDuration(rounded),
	}, nil
}

func (g *Generator) musicPath(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || g.musicDir == "" {
		return ""
	}
	return filepath.Join(g.musicDir, filepath.Base(id)+".mp3")
}

// TitleFromScript takes the text before the first period, capped in length.
func TitleFromScript(script string) string {
	first, _, _ := strings.Cut(script, ".")
	first = strings.TrimSpace(first)
	if r := []rune(first); len(r) > maxTitleLength {
		first = string(r[:maxTitleLength])
	}
	return first
}

// FormatDuration renders whole seconds as "45s" or "3m 5s".
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// IsConfigError reports failures that retrying cannot fix.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingKey)
}
