package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
)

// Motion is a camera effect applied to a still image.
type Motion string

const (
	MotionZoomIn   Motion = "zoom-in"
	MotionZoomOut  Motion = "zoom-out"
	MotionPanRight Motion = "pan-right"
	MotionPanLeft  Motion = "pan-left"
	MotionStatic   Motion = "static"
)

var motionCycle = []Motion{MotionZoomIn, MotionZoomOut, MotionPanRight, MotionPanLeft, MotionStatic}

// MotionFor assigns effects cyclically by scene index.
func MotionFor(index int) Motion {
	if index < 0 {
		index = -index
	}
	return motionCycle[index%len(motionCycle)]
}

// motionFilter builds the -vf expression for a clip of the given length.
func motionFilter(m Motion, seconds int) string {
	frames := seconds * FrameRate
	size := fmt.Sprintf("s=%dx%d:fps=%d", FrameWidth, FrameHeight, FrameRate)
	center := "y='ih/2-(ih/zoom/2)'"

	switch m {
	case MotionZoomIn:
		return fmt.Sprintf("zoompan=z='min(zoom+0.002,1.3)':d=%d:x='iw/2-(iw/zoom/2)':%s:%s", frames, center, size)
	case MotionZoomOut:
		return fmt.Sprintf("zoompan=z='if(lte(zoom,1.0),1.3,max(1.0,zoom-0.002))':d=%d:x='iw/2-(iw/zoom/2)':%s:%s", frames, center, size)
	case MotionPanRight:
		return fmt.Sprintf("zoompan=z=1.2:d=%d:x='if(gte(on,1),x+3,x)':%s:%s", frames, center, size)
	case MotionPanLeft:
		return fmt.Sprintf("zoompan=z=1.2:d=%d:x='if(gte(on,1),x-3,x)':%s:%s", frames, center, size)
	default:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
			FrameWidth, FrameHeight, FrameWidth, FrameHeight, FrameRate)
	}
}

func sceneImagePath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("scene_%d.jpg", index))
}

func sceneClipPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("scene_%d.mp4", index))
}

// RenderClip turns the scene image at dir/scene_<index>.jpg into
// dir/scene_<index>.mp4. A hung encoder returns *TimeoutError naming the scene.
func (e *Encoder) RenderClip(ctx context.Context, scene Scene, index int, dir string) (string, error) {
	motion := MotionFor(index)
	out := sceneClipPath(dir, index)
	log.Printf("[motion] scene %d: applying %s for %ds", index+1, motion, scene.Duration)

	err := e.runFFmpeg(ctx, "render", index, e.clipTimeout,
		"-y",
		"-loop", "1",
		"-i", sceneImagePath(dir, index),
		"-vf", motionFilter(motion, scene.Duration),
		"-t", strconv.Itoa(scene.Duration),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}
