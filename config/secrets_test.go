package config

import (
	"os"
	"path/filepath"
	"testing"
)

func fakeEnv(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

// TestKeyProviderPrefersSecretsFile checks file values win over env.
func TestKeyProviderPrefersSecretsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_secrets.json")
	content := `{
  "openai": {"secrets": {"api_key": {"value": "sk-file"}}},
  "elevenlabs": {"secrets": {"api_key": {"value": ""}}}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewKeyProvider(path)
	p.getenv = fakeEnv(map[string]string{
		"OPENAI_API_KEY":     "sk-env",
		"ELEVENLABS_API_KEY": "xi-env",
	})

	keys := p.ResolveKeys()
	if keys.Script != "sk-file" {
		t.Fatalf("script key = %q, want sk-file", keys.Script)
	}
	if keys.Voice != "xi-env" {
		t.Fatalf("voice key = %q, want env fallback xi-env", keys.Voice)
	}
	if keys.ImageSearch != "" {
		t.Fatalf("image search key = %q, want empty", keys.ImageSearch)
	}
}

// TestKeyProviderMissingFileFallsBackToEnv covers first-run setups.
func TestKeyProviderMissingFileFallsBackToEnv(t *testing.T) {
	p := NewKeyProvider(filepath.Join(t.TempDir(), "missing.json"))
	p.getenv = fakeEnv(map[string]string{"PIXABAY_API_KEY": " px-env "})

	if got := p.Resolve(ServicePixabay); got != "px-env" {
		t.Fatalf("pixabay key = %q, want px-env", got)
	}
}

// TestKeyProviderInvalidJSONFallsBackToEnv checks parse errors never surface.
func TestKeyProviderInvalidJSONFallsBackToEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_secrets.json")
	if err := os.WriteFile(path, []byte("{not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := NewKeyProvider(path)
	p.getenv = fakeEnv(map[string]string{"OPENAI_API_KEY": "sk-env"})

	if got := p.Resolve(ServiceOpenAI); got != "sk-env" {
		t.Fatalf("openai key = %q, want sk-env", got)
	}
}

// TestKeyProviderResolvesLazily checks a key written after construction is seen.
func TestKeyProviderResolvesLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_secrets.json")
	p := NewKeyProvider(path)
	p.getenv = fakeEnv(nil)
	resolve := p.For(ServiceElevenLabs)

	if got := resolve(); got != "" {
		t.Fatalf("key before write = %q, want empty", got)
	}
	content := `{"elevenlabs": {"secrets": {"api_key": {"value": "xi-late"}}}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := resolve(); got != "xi-late" {
		t.Fatalf("key after write = %q, want xi-late", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("sk-1234567890"); got != "sk-123..." {
		t.Fatalf("MaskKey = %q", got)
	}
	if got := MaskKey("abc"); got != "***" {
		t.Fatalf("MaskKey short = %q", got)
	}
}
