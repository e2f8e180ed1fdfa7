package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssembleWithoutMusic(t *testing.T) {
	dir := t.TempDir()
	clips := []string{filepath.Join(dir, "scene_0.mp4"), filepath.Join(dir, "scene_1.mp4")}
	out := filepath.Join(dir, "video_0.mp4")

	var listContent string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			if argValue(args, "-f") == "concat" {
				data, _ := os.ReadFile(argValue(args, "-i"))
				listContent = string(data)
			}
			mustWriteFile(t, args[len(args)-1], "media")
			return CommandResult{}, nil
		},
	}
	enc := NewEncoder("ffmpeg", "ffprobe", runner)
	if err := enc.Assemble(context.Background(), dir, clips, filepath.Join(dir, "audio.mp3"), out, ""); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if !strings.Contains(listContent, "file '"+clips[0]+"'\nfile '"+clips[1]+"'") {
		t.Fatalf("concat list = %q", listContent)
	}

	calls := runner.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	concat := calls[0][1:]
	for _, kv := range [][2]string{{"-c:v", "libx264"}, {"-profile:v", "high"}, {"-level", "4.0"}, {"-pix_fmt", "yuv420p"}, {"-r", "24"}, {"-movflags", "+faststart"}} {
		if argValue(concat, kv[0]) != kv[1] {
			t.Fatalf("concat %s = %q, want %q", kv[0], argValue(concat, kv[0]), kv[1])
		}
	}

	mux := calls[1][1:]
	if hasArg(mux, "-filter_complex") {
		t.Fatal("no-music mux should not mix")
	}
	if argValue(mux, "-c:v") != "copy" || argValue(mux, "-c:a") != "aac" || argValue(mux, "-b:a") != "128k" || argValue(mux, "-ar") != "44100" {
		t.Fatalf("mux args = %v", mux)
	}

	if fileExists(filepath.Join(dir, concatListName)) || fileExists(filepath.Join(dir, tempVideoName)) {
		t.Fatal("intermediate files were not removed")
	}
	if !fileExists(out) {
		t.Fatal("final video missing")
	}
}

func TestAssembleMixesExistingMusic(t *testing.T) {
	dir := t.TempDir()
	music := filepath.Join(dir, "calm.mp3")
	mustWriteFile(t, music, "music")

	runner := mediaRunner(t)
	enc := NewEncoder("ffmpeg", "ffprobe", runner)
	err := enc.Assemble(context.Background(), dir, []string{"a.mp4"}, "voice.mp3", filepath.Join(dir, "out.mp4"), music)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	mux := runner.Calls()[1][1:]
	fc := argValue(mux, "-filter_complex")
	if !strings.Contains(fc, "[2:a]volume=0.2") || !strings.Contains(fc, "amix=inputs=2:duration=first") {
		t.Fatalf("filter_complex = %q", fc)
	}
	if argValue(mux, "-map") != "0:v" {
		t.Fatalf("mux args = %v", mux)
	}
}

func TestAssembleIgnoresMissingMusic(t *testing.T) {
	dir := t.TempDir()
	runner := mediaRunner(t)
	enc := NewEncoder("ffmpeg", "ffprobe", runner)
	err := enc.Assemble(context.Background(), dir, []string{"a.mp4"}, "voice.mp3", filepath.Join(dir, "out.mp4"), filepath.Join(dir, "nope.mp3"))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if hasArg(runner.Calls()[1][1:], "-filter_complex") {
		t.Fatal("missing music file should mux voice only")
	}
}

func TestAssembleCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	call := 0
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			call++
			if call == 1 {
				mustWriteFile(t, args[len(args)-1], "temp")
				return CommandResult{}, nil
			}
			return CommandResult{ExitCode: 1, Stderr: "mux failed"}, errors.New("exit status 1")
		},
	}
	enc := NewEncoder("ffmpeg", "ffprobe", runner)
	err := enc.Assemble(context.Background(), dir, []string{"a.mp4"}, "voice.mp3", filepath.Join(dir, "out.mp4"), "")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if fileExists(filepath.Join(dir, concatListName)) || fileExists(filepath.Join(dir, tempVideoName)) {
		t.Fatal("intermediate files survived a failed assembly")
	}
}

func TestAssembleNoClips(t *testing.T) {
	if err := NewEncoder("", "", &fakeRunner{}).Assemble(context.Background(), t.TempDir(), nil, "v.mp3", "out.mp4", ""); err == nil {
		t.Fatal("expected error for empty clip list")
	}
}

func TestAssembleKeepsIntermediatesInWorkDir(t *testing.T) {
	outDir := t.TempDir()
	workDir := t.TempDir()
	out := filepath.Join(outDir, "video_0.mp4")

	var listPath, tempPath string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			if argValue(args, "-f") == "concat" {
				listPath = argValue(args, "-i")
				tempPath = args[len(args)-1]
			}
			mustWriteFile(t, args[len(args)-1], "media")
			return CommandResult{}, nil
		},
	}
	enc := NewEncoder("ffmpeg", "ffprobe", runner)
	if err := enc.Assemble(context.Background(), workDir, []string{"a.mp4"}, "voice.mp3", out, ""); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if filepath.Dir(listPath) != workDir || filepath.Dir(tempPath) != workDir {
		t.Fatalf("intermediates in %q and %q, want %q", listPath, tempPath, workDir)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 1 || entries[0].Name() != "video_0.mp4" {
		t.Fatalf("output dir holds %v, want only the final video", entries)
	}
	if err := enc.Assemble(context.Background(), "", []string{"a.mp4"}, "voice.mp3", out, ""); err == nil {
		t.Fatal("expected error without a work directory")
	}
}
