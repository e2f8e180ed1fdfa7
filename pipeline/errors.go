package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingKey marks a required provider credential that is not configured.
	ErrMissingKey = errors.New("api key not configured")
	// ErrGenerationInProgress is returned when the series already has a live run.
	ErrGenerationInProgress = errors.New("generation already in progress for series")
	// ErrNoImage means every image provider failed for a scene.
	ErrNoImage = errors.New("no image provider produced an image")
)

// Stage names, also written to progress as the current step.
const (
	StageScript    = "script"
	StageScenes    = "scenes"
	StageVisuals   = "visuals"
	StageVoice     = "voice"
	StageAssemble  = "assemble"
	StageThumbnail = "thumbnail"
	StageCleanup   = "cleanup"
	StageDone      = "done"
)

// StageError ties a failure to the pipeline stage that produced it.
type StageError struct {
	Stage   string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError is a non-success response from an upstream HTTP service.
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Service, e.Status, e.Body)
}

// TimeoutError is an encoder invocation killed after its time limit.
// Scene is -1 when the operation is not tied to a scene.
type TimeoutError struct {
	Op    string
	Scene int
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Scene >= 0 {
		return fmt.Sprintf("ffmpeg %s timed out after %s for scene %d", e.Op, e.After, e.Scene)
	}
	return fmt.Sprintf("ffmpeg %s timed out after %s", e.Op, e.After)
}

// ExitError is an encoder invocation that ran to completion and failed.
type ExitError struct {
	Op       string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s %s failed (exit=%d): %s", e.Command, e.Op, e.ExitCode, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
