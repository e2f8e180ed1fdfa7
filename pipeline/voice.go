package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
)

const defaultVoice = "Adam"

var voiceIDs = map[string]string{
	"Adam": "21m00Tcm4TlvDq8ikWAM",
	"John": "pNInz6obpgDQGcFmaJgB",
}

// VoiceID maps a display name to the provider voice id, falling back to Adam.
func VoiceID(name string) string {
	if id, ok := voiceIDs[strings.TrimSpace(name)]; ok {
		return id
	}
	return voiceIDs[defaultVoice]
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// VoiceSynthesizer calls a text-to-speech endpoint scoped by voice id.
type VoiceSynthesizer struct {
	baseURL string
	model   string
	key     KeyFunc
	client  *http.Client
}

func NewVoiceSynthesizer(baseURL, model string, key KeyFunc, client *http.Client) *VoiceSynthesizer {
	if client == nil {
		client = http.DefaultClient
	}
	return &VoiceSynthesizer{baseURL: strings.TrimRight(baseURL, "/"), model: model, key: key, client: client}
}

// Synthesize writes the narration audio to outPath.
func (v *VoiceSynthesizer) Synthesize(ctx context.Context, text, voice, outPath string) error {
	apiKey := v.key()
	if apiKey == "" {
		return fmt.Errorf("voice service: %w", ErrMissingKey)
	}

	payload, err := json.Marshal(speechRequest{
		Text:          text,
		ModelID:       v.model,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return fmt.Errorf("marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/"+VoiceID(voice), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Service: "ElevenLabs", Status: resp.StatusCode, Body: string(audio)}
	}
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	log.Printf("[voice] wrote %d bytes to %s", len(audio), outPath)
	return nil
}
