package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SeriesVideo-server/config"
	"SeriesVideo-server/models"
	"SeriesVideo-server/progress"
	"SeriesVideo-server/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProgressRouter(t *testing.T) (*gin.Engine, *progress.Tracker) {
	t.Helper()
	tracker := progress.NewTracker(progress.NewMemoryStore())
	prev := service.Progress
	service.Progress = tracker
	t.Cleanup(func() { service.Progress = prev })

	r := gin.New()
	r.GET("/series/:id/progress", GetProgress)
	r.DELETE("/series/:id/progress", ClearProgress)
	r.GET("/series/:id/progress/wss", ProgressWebSocket)
	return r, tracker
}

func getPoll(t *testing.T, r *gin.Engine, id string) progress.Poll {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/series/"+id+"/progress", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var p progress.Poll
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

func TestGetProgressIdle(t *testing.T) {
	r, _ := newProgressRouter(t)
	p := getPoll(t, r, "unknown")
	if p.Generating || p.Message != progress.MessageIdle {
		t.Fatalf("poll = %+v", p)
	}
}

func TestGetProgressActiveThenCleared(t *testing.T) {
	r, tracker := newProgressRouter(t)
	ctx := context.Background()
	err := tracker.Update(ctx, progress.Status{
		SeriesID: "s1", CurrentStep: "voice", CurrentVideo: 1, TotalVideos: 3, Percentage: 70, Message: "Recording voiceover...",
	})
	if err != nil {
		t.Fatal(err)
	}

	p := getPoll(t, r, "s1")
	if !p.Generating || p.Percentage != 70 || p.CurrentStep != "voice" || p.TotalVideos != 3 {
		t.Fatalf("poll = %+v", p)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/series/s1/progress", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if p := getPoll(t, r, "s1"); p.Generating {
		t.Fatalf("after clear poll = %+v", p)
	}
}

func TestProgressWebSocketPushesUntilDone(t *testing.T) {
	prevInterval := pushInterval
	pushInterval = 10 * time.Millisecond
	t.Cleanup(func() { pushInterval = prevInterval })

	r, tracker := newProgressRouter(t)
	ctx := context.Background()
	_ = tracker.Update(ctx, progress.Status{SeriesID: "s1", CurrentStep: "script", CurrentVideo: 1, TotalVideos: 1, Percentage: 10})

	srv := httptest.NewServer(r)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/series/s1/progress/wss"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var first progress.Poll
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Percentage != 10 {
		t.Fatalf("first push = %+v", first)
	}

	_ = tracker.Update(ctx, progress.Status{SeriesID: "s1", CurrentStep: "done", CurrentVideo: 1, TotalVideos: 1, Percentage: 100})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var p progress.Poll
		if err := conn.ReadJSON(&p); err != nil {
			t.Fatalf("read: %v", err)
		}
		if p.Percentage == 100 {
			break
		}
	}
	// Server closes after the final push.
	var extra progress.Poll
	if err := conn.ReadJSON(&extra); err == nil {
		t.Fatalf("expected close, got %+v", extra)
	}
}

func TestHealthReportsMissingEncoder(t *testing.T) {
	prevCfg := config.AppConfig
	cfg := &config.Config{}
	cfg.Media.FFmpeg = "ffmpeg"
	cfg.Media.FFprobe = "ffprobe"
	cfg.Media.WorkDir = t.TempDir()
	config.AppConfig = cfg
	t.Cleanup(func() { config.AppConfig = prevCfg })

	prevLook := lookPath
	t.Cleanup(func() { lookPath = prevLook })

	r := gin.New()
	r.GET("/healthz", Health)

	lookPath = func(name string) (string, error) {
		if name == "ffprobe" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status string     `json:"status"`
		FFmpeg toolStatus `json:"ffmpeg"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" || !body.FFmpeg.Available || body.FFmpeg.Path != "/usr/bin/ffmpeg" {
		t.Fatalf("body = %+v", body)
	}

	lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestMergeSeriesKeepsUnsetFields(t *testing.T) {
	current := models.Series{ID: "s1", Name: "old", Niche: "history", Voice: "Adam", VideoCount: 3}
	got := mergeSeries(current, models.Series{Name: "new", Voice: "John"})
	if got.Name != "new" || got.Voice != "John" || got.Niche != "history" || got.VideoCount != 3 || got.ID != "s1" {
		t.Fatalf("merged = %+v", got)
	}
}

func TestProgressWebSocketSpansVideosOfSeries(t *testing.T) {
	prevInterval := pushInterval
	pushInterval = 10 * time.Millisecond
	t.Cleanup(func() { pushInterval = prevInterval })

	r, tracker := newProgressRouter(t)
	ctx := context.Background()
	_ = tracker.Update(ctx, progress.Status{SeriesID: "s3", CurrentStep: "done", CurrentVideo: 1, TotalVideos: 3, Percentage: 100})

	srv := httptest.NewServer(r)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/series/s3/progress/wss"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var p progress.Poll
	if err := conn.ReadJSON(&p); err != nil {
		t.Fatalf("read: %v", err)
	}
	if p.CurrentVideo != 1 || p.Percentage != 100 {
		t.Fatalf("first push = %+v", p)
	}

	_ = tracker.Update(ctx, progress.Status{SeriesID: "s3", CurrentStep: "script", CurrentVideo: 2, TotalVideos: 3, Percentage: 10})
	if err := conn.ReadJSON(&p); err != nil {
		t.Fatalf("socket closed after the first video: %v", err)
	}
	if p.CurrentVideo != 2 || p.Percentage != 10 {
		t.Fatalf("second push = %+v", p)
	}

	_ = tracker.Update(ctx, progress.Status{SeriesID: "s3", CurrentStep: "done", CurrentVideo: 3, TotalVideos: 3, Percentage: 100})
	for p.CurrentVideo != 3 || p.Percentage != 100 {
		if err := conn.ReadJSON(&p); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if err := conn.ReadJSON(&p); err == nil {
		t.Fatalf("expected close after the last video, got %+v", p)
	}
}

func TestRunFinished(t *testing.T) {
	cases := []struct {
		name string
		poll progress.Poll
		want bool
	}{
		{"idle", progress.Poll{Generating: false}, true},
		{"mid video", progress.Poll{Generating: true, CurrentVideo: 1, TotalVideos: 3, Percentage: 50}, false},
		{"first of three done", progress.Poll{Generating: true, CurrentVideo: 1, TotalVideos: 3, Percentage: 100}, false},
		{"last done", progress.Poll{Generating: true, CurrentVideo: 3, TotalVideos: 3, Percentage: 100}, true},
	}
	for _, tc := range cases {
		if got := runFinished(tc.poll); got != tc.want {
			t.Errorf("%s: runFinished = %v, want %v", tc.name, got, tc.want)
		}
	}
}
