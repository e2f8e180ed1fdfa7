package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	concatListName = "concat.txt"
	tempVideoName  = "temp_video.mp4"
	musicVolume    = "0.2"
)

func writeConcatList(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// Assemble concatenates clips, then muxes the voice track, mixing in music at
// reduced volume when musicPath names an existing file. The concat list and
// intermediate video live in workDir, which must belong to a single run, and
// are removed on every path.
func (e *Encoder) Assemble(ctx context.Context, workDir string, clips []string, voicePath, outPath, musicPath string) error {
	if len(clips) == 0 {
		return errors.New("no clips to assemble")
	}
	if workDir == "" {
		return errors.New("assemble needs a work directory")
	}
	listPath := filepath.Join(workDir, concatListName)
	tempPath := filepath.Join(workDir, tempVideoName)
	defer removeQuietly(listPath, tempPath)

	if err := writeConcatList(listPath, clips); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	log.Printf("[assemble] concatenating %d clips", len(clips))
	if err := e.runFFmpeg(ctx, "concat", noScene, e.assembleTimeout,
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "high",
		"-level", "4.0",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprint(FrameRate),
		"-movflags", "+faststart",
		tempPath,
	); err != nil {
		return err
	}

	log.Printf("[assemble] adding audio (music=%t)", hasMusic(musicPath))
	return e.runFFmpeg(ctx, "mux", noScene, e.assembleTimeout, muxArgs(tempPath, voicePath, musicPath, outPath)...)
}

func hasMusic(musicPath string) bool {
	if musicPath == "" {
		return false
	}
	info, err := os.Stat(musicPath)
	return err == nil && !info.IsDir()
}

func muxArgs(videoPath, voicePath, musicPath, outPath string) []string {
	audioOut := []string{"-c:a", "aac", "-b:a", "128k", "-ar", "44100", "-movflags", "+faststart", outPath}
	if !hasMusic(musicPath) {
		args := []string{"-y", "-i", videoPath, "-i", voicePath, "-c:v", "copy"}
		return append(args, audioOut...)
	}
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", voicePath,
		"-i", musicPath,
		"-filter_complex", "[1:a]volume=1.0[a1];[2:a]volume=" + musicVolume + "[a2];[a1][a2]amix=inputs=2:duration=first[aout]",
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
	}
	return append(args, audioOut...)
}

// removeQuietly deletes files and logs anything other than "not found".
func removeQuietly(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[cleanup] remove %s: %v", p, err)
		}
	}
}
