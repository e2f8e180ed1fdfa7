package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// KeyFunc resolves a provider key on demand. An empty string means unset.
type KeyFunc func() string

const (
	scriptTemperature  = 0.9
	scriptSystemPrompt = "You are a viral storyteller who writes addictive, binge-worthy short video narration. " +
		"Your scripts sound like a friend telling something surprising over coffee: natural, dramatic, conversational. " +
		"No corporate speak and no textbook language."
)

type styleGuide struct {
	name     string
	keywords []string
	guide    string
}

// styleGuides is checked in order; the first guide with a keyword found in
// the lowercased niche wins. defaultStyleGuide applies when none match.
var styleGuides = []styleGuide{
	{
		name:     "dark",
		keywords: []string{"crime", "mystery", "horror", "dark", "scary", "creepy"},
		guide: `STYLE FOR THIS NICHE:
- Open on something shocking or unexplained
- Build tension line by line with reveals like "But then..."
- Moody tone that still sounds like normal speech`,
	},
	{
		name:     "motivational",
		keywords: []string{"motivat", "inspir", "success", "mindset", "entrepreneur"},
		guide: `STYLE FOR THIS NICHE:
- Open with a bold statement or a direct question
- Tell a struggle-to-breakthrough story
- Uplifting and honest, never cheesy`,
	},
	{
		name:     "educational",
		keywords: []string{"history", "science", "fact", "educat", "learn"},
		guide: `STYLE FOR THIS NICHE:
- Open with a surprising fact
- Explain the hard part with an everyday comparison
- Informative but entertaining`,
	},
	{
		name:     "lifestyle",
		keywords: []string{"lifestyle", "travel", "food", "fashion", "entertainment"},
		guide: `STYLE FOR THIS NICHE:
- Open with something vivid and appealing
- Keep it personal and relatable
- Paint pictures with concrete description`,
	},
	{
		name:     "business",
		keywords: []string{"business", "money", "finance", "invest", "marketing"},
		guide: `STYLE FOR THIS NICHE:
- Open with a valuable insight or a surprising number
- Give something the viewer can act on
- Use a real example, professional but conversational`,
	},
}

var defaultStyleGuide = styleGuide{
	name: "universal",
	guide: `STYLE FOR THIS NICHE:
- Lead with the most interesting point
- Clear beginning, middle and end
- Specific examples, conversational tone`,
}

var presetDescriptions = map[string]string{
	"scary-stories": "scary story that gives goosebumps",
	"history":       "historical story from ancient or modern times",
	"true-crime":    "true crime story",
}

var customFormatDescriptions = map[string]string{
	"storytelling": "engaging story with surprising twists",
	"what-if":      "fascinating hypothetical scenario",
	"5-things":     "mind-blowing facts and hidden secrets",
	"random-fact":  "interesting random fact",
}

// selectStyleGuide picks the guide for a niche.
func selectStyleGuide(niche string) styleGuide {
	lower := strings.ToLower(niche)
	for _, g := range styleGuides {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g
			}
		}
	}
	return defaultStyleGuide
}

func formatDescription(cfg GenerationConfig) string {
	if cfg.Format == FormatPreset {
		if d, ok := presetDescriptions[cfg.PresetType]; ok {
			return d
		}
		return "engaging story"
	}
	if d, ok := customFormatDescriptions[cfg.CustomFormat]; ok {
		return d
	}
	return "engaging content"
}

func buildScriptPrompt(cfg GenerationConfig, videoIndex int) string {
	profile := profileFor(cfg.Duration)
	guide := selectStyleGuide(cfg.Niche)

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s video script about %q.\n\n", formatDescription(cfg), cfg.Niche)
	b.WriteString("Write like a person talking naturally, not like a textbook.\n\n")
	b.WriteString(guide.guide)
	b.WriteString("\n\nRULES:\n")
	b.WriteString("- Hook the viewer in the first three seconds\n")
	b.WriteString("- Short, punchy sentences\n")
	b.WriteString("- Specific names, numbers, places and dates\n")
	b.WriteString("\nFORMAT:\n")
	fmt.Fprintf(&b, "- Duration: %s\n", profile.targetLabel)
	fmt.Fprintf(&b, "- Language: %s\n", cfg.Language)
	fmt.Fprintf(&b, "- Voice tone: %s\n", cfg.VoiceStyle)
	fmt.Fprintf(&b, "- Video %d in series (make it UNIQUE and FRESH)\n", videoIndex+1)
	fmt.Fprintf(&b, "- Word count: %s words\n", profile.wordBand)
	b.WriteString("\nWRITE ONLY THE NARRATION: no [brackets], no stage directions, no scene numbers.")
	return b.String()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ScriptGenerator asks a chat-completion service for narration.
type ScriptGenerator struct {
	endpoint string
	model    string
	key      KeyFunc
	client   *http.Client
}

func NewScriptGenerator(endpoint, model string, key KeyFunc, client *http.Client) *ScriptGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &ScriptGenerator{endpoint: endpoint, model: model, key: key, client: client}
}

// Generate returns trimmed narration for the video at videoIndex.
func (g *ScriptGenerator) Generate(ctx context.Context, cfg GenerationConfig, videoIndex int) (string, error) {
	apiKey := g.key()
	if apiKey == "" {
		return "", fmt.Errorf("script service: %w", ErrMissingKey)
	}

	profile := profileFor(cfg.Duration)
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: scriptSystemPrompt},
			{Role: "user", Content: buildScriptPrompt(cfg, videoIndex)},
		},
		Temperature: scriptTemperature,
		MaxTokens:   profile.maxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal script request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create script request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	log.Printf("[script] requesting narration for series %s video %d (niche=%q)", cfg.SeriesID, videoIndex+1, cfg.Niche)
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("script request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read script response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Service: "OpenAI", Status: resp.StatusCode, Body: string(body)}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode script response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("script response has no choices")
	}
	script := strings.TrimSpace(out.Choices[0].Message.Content)
	if script == "" {
		return "", fmt.Errorf("script response is empty")
	}
	return script, nil
}
