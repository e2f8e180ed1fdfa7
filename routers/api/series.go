package api

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"SeriesVideo-server/models"
	"SeriesVideo-server/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxVideosPerRequest = 50

// CreateSeries POST /v1/api/series
func CreateSeries(c *gin.Context) {
	var s models.Series
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ID = uuid.NewString()
	s.Status = models.SeriesStatusIdle
	s.Normalize()
	if err := s.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := models.CreateSeries(&s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create series failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"series": s})
}

func ListSeries(c *gin.Context) {
	list, err := models.ListSeries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": list})
}

func loadSeries(c *gin.Context) (models.Series, bool) {
	s, err := models.GetSeriesByID(c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return s, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return s, false
	}
	return s, true
}

func GetSeries(c *gin.Context) {
	s, ok := loadSeries(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": s})
}

// UpdateSeries PUT /v1/api/series/:id, only non-empty fields change.
func UpdateSeries(c *gin.Context) {
	current, ok := loadSeries(c)
	if !ok {
		return
	}
	var patch models.Series
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merged := mergeSeries(current, patch)
	merged.Normalize()
	if err := merged.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch.Format, patch.Duration = merged.Format, merged.Duration
	if err := models.UpdateSeriesByID(current.ID, patch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update series failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": merged})
}

func mergeSeries(s, patch models.Series) models.Series {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.Name, patch.Name)
	set(&s.Format, patch.Format)
	set(&s.PresetType, patch.PresetType)
	set(&s.CustomFormat, patch.CustomFormat)
	set(&s.Niche, patch.Niche)
	set(&s.Language, patch.Language)
	set(&s.Voice, patch.Voice)
	set(&s.VoiceStyle, patch.VoiceStyle)
	set(&s.Music, patch.Music)
	set(&s.ArtStyle, patch.ArtStyle)
	set(&s.CaptionStyle, patch.CaptionStyle)
	set(&s.Duration, patch.Duration)
	if patch.VideoCount > 0 {
		s.VideoCount = patch.VideoCount
	}
	return s
}

func DeleteSeries(c *gin.Context) {
	id := c.Param("id")
	service.Runs.Cancel(id)
	if err := models.DeleteSeriesByID(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete series failed: " + err.Error()})
		return
	}
	if service.Progress != nil {
		_ = service.Progress.Clear(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// GenerateSeries POST /v1/api/series/:id/generate?count=N queues N new
// videos. Without count the series' videoCount is used.
func GenerateSeries(c *gin.Context) {
	s, ok := loadSeries(c)
	if !ok {
		return
	}
	count := s.VideoCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxVideosPerRequest {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and 50"})
			return
		}
		count = n
	}

	open, err := models.CountOpenVideos(models.GormDB, s.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if open > 0 || service.Runs.Active(s.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "generation already in progress for this series"})
		return
	}

	start, err := models.NextVideoIndex(models.GormDB, s.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	videos := make([]models.Video, 0, count)
	for i := 0; i < count; i++ {
		videos = append(videos, models.Video{
			ID:         uuid.NewString(),
			SeriesId:   s.ID,
			VideoIndex: start + i,
			Status:     models.VideoStatusPending,
		})
	}
	if err := models.BatchCreateVideos(models.GormDB, videos); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create videos failed: " + err.Error()})
		return
	}
	if err := models.UpdateSeriesStatus(s.ID, models.SeriesStatusGenerating); err != nil {
		log.Printf("[api] series %s status update failed: %v", s.ID, err)
	}

	err = service.EnqueueGenerate(service.GeneratePayload{
		SeriesID:    s.ID,
		VideoID:     videos[0].ID,
		VideoIndex:  videos[0].VideoIndex,
		TotalVideos: start + count,
	})
	if err != nil {
		_ = models.CancelOpenVideos(models.GormDB, s.ID, err.Error())
		_ = models.UpdateSeriesStatus(s.ID, models.SeriesStatusFailed)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"seriesId": s.ID, "videos": videos})
}

// CancelGeneration DELETE /v1/api/series/:id/generate stops the running
// video and drops the queued ones.
func CancelGeneration(c *gin.Context) {
	id := c.Param("id")
	if err := models.CancelOpenVideos(models.GormDB, id, "canceled"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	canceled := service.Runs.Cancel(id)
	c.JSON(http.StatusOK, gin.H{"seriesId": id, "canceled": canceled})
}
