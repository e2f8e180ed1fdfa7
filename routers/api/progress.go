package api

import (
	"context"
	"net/http"
	"time"

	"SeriesVideo-server/progress"
	"SeriesVideo-server/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// pushInterval is how often the websocket re-reads the tracker.
var pushInterval = time.Second

// GetProgress GET /v1/api/series/:id/progress
func GetProgress(c *gin.Context) {
	p, err := service.Progress.Poll(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// ClearProgress DELETE /v1/api/series/:id/progress
func ClearProgress(c *gin.Context) {
	if err := service.Progress.Clear(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// runFinished reports whether nothing more will be pushed for the series.
// Percentage is per video, so 100 only ends the run on its last video.
func runFinished(p progress.Poll) bool {
	if !p.Generating {
		return true
	}
	return p.Percentage >= 100 && p.CurrentVideo >= p.TotalVideos
}

// ProgressWebSocket pushes the progress poll of a series whenever it
// changes, and closes once the last video is done or the series is no
// longer generating.
func ProgressWebSocket(c *gin.Context) {
	seriesID := c.Param("id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// A read error means the client went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	var prev progress.Poll
	first := true
	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		cur, err := service.Progress.Poll(ctx, seriesID)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"error": err.Error()})
			return
		}
		if first || cur != prev {
			if err := conn.WriteJSON(cur); err != nil {
				return
			}
			prev, first = cur, false
		}
		if runFinished(cur) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
