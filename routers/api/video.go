package api

import (
	"errors"
	"net/http"

	"SeriesVideo-server/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListVideos GET /v1/api/series/:id/videos
func ListVideos(c *gin.Context) {
	videos, err := models.ListVideosBySeries(models.GormDB, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// GetVideo GET /v1/api/videos/:video_id
func GetVideo(c *gin.Context) {
	v, err := models.GetVideoByIDGorm(models.GormDB, c.Param("video_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"video": v})
}
