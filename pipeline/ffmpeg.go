package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Time limits per encoder invocation.
const (
	ClipTimeout      = 60 * time.Second
	AssembleTimeout  = 180 * time.Second
	ThumbnailTimeout = 30 * time.Second
	ProbeTimeout     = 30 * time.Second
)

// noScene marks operations that are not tied to a scene index.
const noScene = -1

// CommandResult is the captured outcome of one process run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts process execution so tests can fake ffmpeg.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

type execRunner struct{}

// NewExecRunner returns a runner backed by os/exec.
func NewExecRunner() CommandRunner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Encoder wraps the ffmpeg and ffprobe binaries.
type Encoder struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner

	clipTimeout      time.Duration
	assembleTimeout  time.Duration
	thumbnailTimeout time.Duration
	probeTimeout     time.Duration
}

func NewEncoder(ffmpegPath, ffprobePath string, runner CommandRunner) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Encoder{
		ffmpegPath:       ffmpegPath,
		ffprobePath:      ffprobePath,
		runner:           runner,
		clipTimeout:      ClipTimeout,
		assembleTimeout:  AssembleTimeout,
		thumbnailTimeout: ThumbnailTimeout,
		probeTimeout:     ProbeTimeout,
	}
}

// runFFmpeg runs ffmpeg under a deadline and separates a timeout from a failed exit.
func (e *Encoder) runFFmpeg(ctx context.Context, op string, scene int, limit time.Duration, args ...string) error {
	_, err := e.runWithLimit(ctx, e.ffmpegPath, op, scene, limit, args...)
	return err
}

func (e *Encoder) runWithLimit(ctx context.Context, bin, op string, scene int, limit time.Duration, args ...string) (CommandResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	res, err := e.runner.Run(runCtx, bin, args...)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s canceled: %w", op, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, &TimeoutError{Op: op, Scene: scene, After: limit}
	}
	return res, &ExitError{
		Op:       op,
		Command:  bin,
		ExitCode: res.ExitCode,
		Stderr:   tail(res.Stderr, 500),
		Err:      err,
	}
}

// Probe returns the container duration of a media file in seconds.
func (e *Encoder) Probe(ctx context.Context, path string) (float64, error) {
	res, err := e.runWithLimit(ctx, e.ffprobePath, "probe", noScene, e.probeTimeout,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(res.Stdout), err)
	}
	return seconds, nil
}

// Thumbnail grabs one frame one second into the video.
func (e *Encoder) Thumbnail(ctx context.Context, videoPath, outPath string) error {
	return e.runFFmpeg(ctx, "thumbnail", noScene, e.thumbnailTimeout,
		"-y",
		"-i", videoPath,
		"-ss", "00:00:01",
		"-vframes", "1",
		outPath,
	)
}

// SolidFrame renders a single solid-color frame at the output resolution.
func (e *Encoder) SolidFrame(ctx context.Context, color, outPath string) error {
	return e.runFFmpeg(ctx, "placeholder", noScene, e.clipTimeout,
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=1", color, FrameWidth, FrameHeight),
		"-frames:v", "1",
		outPath,
	)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
