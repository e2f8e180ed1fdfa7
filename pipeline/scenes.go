package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// safeConcepts are people-free scene descriptions. The narration itself is
// never sent to the image service.
var safeConcepts = []string{
	"a dimly lit room with atmospheric fog and moody blue tones",
	"an empty hallway with dramatic shadows and warm lighting",
	"a mysterious forest path with fog and evening light",
	"an old building interior with vintage furniture and soft lighting",
	"a dramatic sky with storm clouds and cinematic composition",
	"an abandoned location with overgrown plants and ethereal lighting",
	"a quiet street at dusk with street lamps and atmospheric haze",
	"an antique room with vintage objects and dramatic side lighting",
	"a foggy landscape with silhouettes and moody atmosphere",
	"an old library with books and warm candlelight",
}

var artStyles = map[string]string{
	"realism":      "photorealistic, cinematic lighting, dramatic composition, high quality, 4K detail",
	"fantastic":    "fantasy art, epic scale, magical atmosphere, dramatic lighting, cinematic",
	"polaroid":     "vintage polaroid aesthetic, nostalgic, moody lighting, cinematic composition",
	"disney":       "3D animated film style, expressive scenery, dramatic lighting, emotional scene",
	"comic":        "comic book illustration, bold lines, dramatic colors, dynamic composition, cinematic angle",
	"creepy-comic": "dark illustrated comic style, noir aesthetic, moody atmospheric lighting, dramatic shadows, muted palette",
	"painting":     "cinematic digital painting, dramatic lighting, rich colors, dynamic composition",
}

const (
	defaultArtStyle = "cinematic, dramatic, professional"
	promptSuffix    = "highly detailed, no text overlay, no watermarks, professional quality, cinematic composition, " +
		"appropriate for all audiences, no people, no violence"
)

// splitSentences returns punctuation-terminated units, or the whole script
// as one unit when it has no terminator at all.
func splitSentences(script string) []string {
	sentences := sentencePattern.FindAllString(script, -1)
	if len(sentences) == 0 {
		return []string{script}
	}
	return sentences
}

// SplitIntoScenes groups the narration into at most the class's scene count.
// Groups left empty near the end are dropped, not padded.
func SplitIntoScenes(script string, duration DurationClass, artStyle string) []Scene {
	profile := profileFor(duration)
	sentences := splitSentences(script)
	perGroup := (len(sentences) + profile.sceneCount - 1) / profile.sceneCount

	scenes := make([]Scene, 0, profile.sceneCount)
	for i := 0; i < profile.sceneCount; i++ {
		start := i * perGroup
		if start >= len(sentences) {
			break
		}
		end := start + perGroup
		if end > len(sentences) {
			end = len(sentences)
		}
		text := strings.TrimSpace(strings.Join(sentences[start:end], " "))
		if text == "" {
			continue
		}
		scenes = append(scenes, Scene{
			Text:         text,
			VisualPrompt: VisualPrompt(text, artStyle),
			Duration:     profile.sceneSeconds,
		})
	}
	return scenes
}

// VisualPrompt derives an image prompt from the scene text length only.
func VisualPrompt(text, artStyle string) string {
	concept := safeConcepts[utf8.RuneCountInString(text)%len(safeConcepts)]
	style, ok := artStyles[artStyle]
	if !ok {
		style = defaultArtStyle
	}
	return concept + ", " + style + ", " + promptSuffix
}
