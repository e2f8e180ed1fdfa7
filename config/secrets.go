package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Provider names as they appear in the secrets file.
const (
	ServiceOpenAI     = "openai"
	ServiceElevenLabs = "elevenlabs"
	ServicePixabay    = "pixabay"
)

var serviceEnv = map[string]string{
	ServiceOpenAI:     "OPENAI_API_KEY",
	ServiceElevenLabs: "ELEVENLABS_API_KEY",
	ServicePixabay:    "PIXABAY_API_KEY",
}

// DefaultSecretsPath returns the per-user secrets file location.
func DefaultSecretsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "series-video", "auth_secrets.json")
}

// APIKeys is one resolution result. Empty fields mean "not configured".
type APIKeys struct {
	Script      string
	Voice       string
	ImageSearch string
}

// secretsFile mirrors {"openai": {"secrets": {"api_key": {"value": "..."}}}, ...}.
type secretsFile map[string]struct {
	Secrets struct {
		APIKey struct {
			Value string `json:"value"`
		} `json:"api_key"`
	} `json:"secrets"`
}

// KeyProvider resolves provider keys from the secrets file, then the environment.
// Every call re-reads the sources so each caller resolves lazily and a broken
// entry for one service never blocks another.
type KeyProvider struct {
	path   string
	getenv func(string) string
}

func NewKeyProvider(path string) *KeyProvider {
	return &KeyProvider{path: path, getenv: os.Getenv}
}

// Resolve returns the key for one service, or "" when none is configured.
func (p *KeyProvider) Resolve(service string) string {
	if v := p.fromFile(service); v != "" {
		return v
	}
	if env, ok := serviceEnv[service]; ok {
		return strings.TrimSpace(p.getenv(env))
	}
	return ""
}

// ResolveKeys resolves all known service keys at once.
func (p *KeyProvider) ResolveKeys() APIKeys {
	return APIKeys{
		Script:      p.Resolve(ServiceOpenAI),
		Voice:       p.Resolve(ServiceElevenLabs),
		ImageSearch: p.Resolve(ServicePixabay),
	}
}

// For returns a lazy resolver bound to one service.
func (p *KeyProvider) For(service string) func() string {
	return func() string { return p.Resolve(service) }
}

func (p *KeyProvider) fromFile(service string) string {
	if p.path == "" {
		return ""
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[keys] read secrets file %s: %v", p.path, err)
		}
		return ""
	}

	var secrets secretsFile
	if err := json.Unmarshal(data, &secrets); err != nil {
		log.Printf("[keys] parse secrets file %s: %v", p.path, err)
		return ""
	}
	return strings.TrimSpace(secrets[service].Secrets.APIKey.Value)
}

// MaskKey keeps a short prefix of a key for log lines.
func MaskKey(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:6] + "..."
}
