package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
)

// fakeRunner simulates command execution and records every call.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	run   func(ctx context.Context, name string, args ...string) (CommandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.run == nil {
		return CommandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string{}, f.calls...)
}

// mediaRunner behaves like ffmpeg/ffprobe: ffmpeg writes its last argument,
// ffprobe reports the summed -t of every rendered clip.
func mediaRunner(t *testing.T) *fakeRunner {
	t.Helper()
	var mu sync.Mutex
	total := 0
	return &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			if name == "ffprobe" {
				mu.Lock()
				defer mu.Unlock()
				return CommandResult{Stdout: strconv.Itoa(total) + ".020000\n"}, nil
			}
			if d := argValue(args, "-t"); d != "" {
				n, _ := strconv.Atoi(d)
				mu.Lock()
				total += n
				mu.Unlock()
			}
			mustWriteFile(t, args[len(args)-1], "media")
			return CommandResult{}, nil
		},
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

func hasArg(args []string, key string) bool {
	for _, a := range args {
		if a == key {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func staticKey(v string) KeyFunc {
	return func() string { return v }
}
