package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: \":9090\"\nredis:\n  addr: \"redis:6379\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != ":9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Media.FFmpeg != "ffmpeg" || cfg.Media.FFprobe != "ffprobe" {
		t.Fatalf("media defaults = %+v", cfg.Media)
	}
	if cfg.AI.ScriptModel != "gpt-4" {
		t.Fatalf("script model = %q", cfg.AI.ScriptModel)
	}
	if cfg.Progress.Backend != "memory" {
		t.Fatalf("progress backend = %q", cfg.Progress.Backend)
	}
	if cfg.Worker.Concurrency != 2 {
		t.Fatalf("concurrency = %d", cfg.Worker.Concurrency)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected yaml parse error")
	}
}
