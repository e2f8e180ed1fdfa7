package pipeline

import "strings"

// DurationClass is the coarse target length of a video.
type DurationClass string

const (
	DurationShort DurationClass = "short"
	DurationLong  DurationClass = "long"
)

// Format kinds.
const (
	FormatPreset = "preset"
	FormatCustom = "custom"
)

// Output geometry shared by every encoder invocation.
const (
	FrameWidth  = 1080
	FrameHeight = 1920
	FrameRate   = 24
)

// GenerationConfig is the immutable input of one run.
type GenerationConfig struct {
	SeriesID     string
	Format       string // preset | custom
	PresetType   string
	CustomFormat string
	Niche        string
	Language     string
	Voice        string
	VoiceStyle   string
	Music        string // optional background track id
	ArtStyle     string
	CaptionStyle string
	Duration     DurationClass
}

// Scene is one timed narration segment with its image prompt.
type Scene struct {
	Text         string
	VisualPrompt string
	Duration     int // seconds
}

// Result describes a finished video.
type Result struct {
	VideoPath       string
	ThumbnailPath   string
	Title           string
	DurationSeconds int
	DurationLabel   string
}

type durationProfile struct {
	targetLabel  string
	wordBand     string
	maxTokens    int
	sceneCount   int
	sceneSeconds int
}

var durationProfiles = map[DurationClass]durationProfile{
	DurationShort: {targetLabel: "30-60 seconds", wordBand: "80-150", maxTokens: 300, sceneCount: 6, sceneSeconds: 8},
	DurationLong:  {targetLabel: "3-5 minutes", wordBand: "400-700", maxTokens: 1000, sceneCount: 18, sceneSeconds: 10},
}

// profileFor treats anything that is not "short" as long.
func profileFor(d DurationClass) durationProfile {
	if DurationClass(strings.ToLower(string(d))) == DurationShort {
		return durationProfiles[DurationShort]
	}
	return durationProfiles[DurationLong]
}
