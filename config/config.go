package config

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	AI struct {
		ScriptAPI   string `yaml:"script_api"`
		ScriptModel string `yaml:"script_model"`
		ImageAPI    string `yaml:"image_api"`
		ImageModel  string `yaml:"image_model"`
		SearchAPI   string `yaml:"search_api"`
		VoiceAPI    string `yaml:"voice_api"`
		VoiceModel  string `yaml:"voice_model"`
		SecretsFile string `yaml:"secrets_file"`
	} `yaml:"ai"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Worker struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`
	Media struct {
		FFmpeg   string `yaml:"ffmpeg"`
		FFprobe  string `yaml:"ffprobe"`
		WorkDir  string `yaml:"work_dir"`
		MusicDir string `yaml:"music_dir"`
	} `yaml:"media"`
	Progress struct {
		// memory or redis
		Backend string `yaml:"backend"`
	} `yaml:"progress"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		Domain    string `yaml:"domain"`
	} `yaml:"minio"`
}

var AppConfig *Config

// InitConfig loads config/config.yaml into AppConfig and exits on failure.
func InitConfig() {
	cfg, err := Load("config/config.yaml")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	AppConfig = cfg
}

// Load decodes the YAML file at path and fills in defaults for unset fields.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.AI.ScriptAPI == "" {
		c.AI.ScriptAPI = "https://api.openai.com/v1/chat/completions"
	}
	if c.AI.ScriptModel == "" {
		c.AI.ScriptModel = "gpt-4"
	}
	if c.AI.ImageAPI == "" {
		c.AI.ImageAPI = "https://api.openai.com/v1/images/generations"
	}
	if c.AI.ImageModel == "" {
		c.AI.ImageModel = "dall-e-3"
	}
	if c.AI.SearchAPI == "" {
		c.AI.SearchAPI = "https://pixabay.com/api/"
	}
	if c.AI.VoiceAPI == "" {
		c.AI.VoiceAPI = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if c.AI.VoiceModel == "" {
		c.AI.VoiceModel = "eleven_multilingual_v2"
	}
	if c.AI.SecretsFile == "" {
		c.AI.SecretsFile = DefaultSecretsPath()
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 2
	}
	if c.Media.FFmpeg == "" {
		c.Media.FFmpeg = "ffmpeg"
	}
	if c.Media.FFprobe == "" {
		c.Media.FFprobe = "ffprobe"
	}
	if c.Media.WorkDir == "" {
		c.Media.WorkDir = filepath.Join(os.TempDir(), "series-videos")
	}
	if c.Media.MusicDir == "" {
		c.Media.MusicDir = filepath.Join("public", "music")
	}
	if c.Progress.Backend == "" {
		c.Progress.Backend = "memory"
	}
}
