package api

import (
	"net/http"
	"os"
	"os/exec"

	"SeriesVideo-server/config"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type toolStatus struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
}

type hostStatus struct {
	CPUPercent  float64 `json:"cpuPercent"`
	MemPercent  float64 `json:"memPercent"`
	DiskFreeMB  uint64  `json:"diskFreeMb"`
	DiskPercent float64 `json:"diskPercent"`
}

var lookPath = exec.LookPath

func checkTool(name string) toolStatus {
	path, err := lookPath(name)
	if err != nil {
		return toolStatus{}
	}
	return toolStatus{Available: true, Path: path}
}

func hostLoad(workDir string) hostStatus {
	var h hostStatus
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		h.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.MemPercent = vm.UsedPercent
	}
	if du, err := disk.Usage(workDir); err == nil {
		h.DiskFreeMB = du.Free / (1024 * 1024)
		h.DiskPercent = du.UsedPercent
	}
	return h
}

// Health GET /healthz. 503 when the encoder binaries are missing.
func Health(c *gin.Context) {
	media := config.AppConfig.Media
	ffmpeg := checkTool(media.FFmpeg)
	ffprobe := checkTool(media.FFprobe)

	code := http.StatusOK
	status := "ok"
	if !ffmpeg.Available || !ffprobe.Available {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}
	diskPath := media.WorkDir
	if _, err := os.Stat(diskPath); err != nil {
		diskPath = "."
	}
	c.JSON(code, gin.H{
		"status":  status,
		"ffmpeg":  ffmpeg,
		"ffprobe": ffprobe,
		"host":    hostLoad(diskPath),
	})
}
