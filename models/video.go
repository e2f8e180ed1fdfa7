package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	VideoStatusPending    = "pending"
	VideoStatusProcessing = "processing"
	VideoStatusReady      = "ready"
	VideoStatusFailed     = "failed"
)

// Video is one generated (or pending) video of a series.
type Video struct {
	ID         string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SeriesId   string      `gorm:"index;type:varchar(64)" json:"seriesId"`
	VideoIndex int         `json:"videoIndex"`
	Status     string      `gorm:"type:varchar(16)" json:"status"`
	Title      string      `json:"title"`
	Duration   string      `json:"duration"`
	Result     VideoResult `gorm:"type:json" json:"result"`
	Error      string      `gorm:"type:text" json:"error"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// VideoResult holds where the finished artifacts live.
type VideoResult struct {
	VideoURL        string `json:"video_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	VideoPath       string `json:"video_path,omitempty"`
	ThumbnailPath   string `json:"thumbnail_path,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// Value stores the result as JSON.
func (r VideoResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan reads the JSON column back.
func (r *VideoResult) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal JSON value: ", value))
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, r)
}

func (Video) TableName() string {
	return "video"
}

func BatchCreateVideos(db *gorm.DB, videos []Video) error {
	if len(videos) == 0 {
		return nil
	}
	return db.Create(&videos).Error
}

func GetVideoByIDGorm(db *gorm.DB, videoID string) (*Video, error) {
	var v Video
	if err := db.First(&v, "id = ?", videoID).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func ListVideosBySeries(db *gorm.DB, seriesID string) ([]Video, error) {
	var videos []Video
	err := db.Where("series_id = ?", seriesID).Order("video_index ASC").Find(&videos).Error
	return videos, err
}

// NextVideoIndex returns the index after the highest existing one.
func NextVideoIndex(db *gorm.DB, seriesID string) (int, error) {
	var highest sql.NullInt64
	err := db.Model(&Video{}).Where("series_id = ?", seriesID).Select("MAX(video_index)").Row().Scan(&highest)
	if err != nil {
		return 0, err
	}
	if !highest.Valid {
		return 0, nil
	}
	return int(highest.Int64) + 1, nil
}

// CountOpenVideos counts videos still pending or processing for a series.
func CountOpenVideos(db *gorm.DB, seriesID string) (int64, error) {
	var n int64
	err := db.Model(&Video{}).
		Where("series_id = ? AND status IN ?", seriesID, []string{VideoStatusPending, VideoStatusProcessing}).
		Count(&n).Error
	return n, err
}

// UpdateStatus sets the status and, when given, the error message.
func (v *Video) UpdateStatus(db *gorm.DB, status string, errMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	return db.Model(v).Updates(updates).Error
}

// MarkReady stores the finished video's metadata.
func (v *Video) MarkReady(db *gorm.DB, title, duration string, result VideoResult) error {
	return db.Model(v).Updates(map[string]interface{}{
		"status":     VideoStatusReady,
		"title":      title,
		"duration":   duration,
		"result":     result,
		"error":      "",
		"updated_at": time.Now(),
	}).Error
}

// CancelOpenVideos marks pending videos of a series as failed.
func CancelOpenVideos(db *gorm.DB, seriesID, reason string) error {
	return db.Model(&Video{}).
		Where("series_id = ? AND status = ?", seriesID, VideoStatusPending).
		Updates(map[string]interface{}{"status": VideoStatusFailed, "error": reason, "updated_at": time.Now()}).Error
}

// NextPendingVideo returns the lowest-index pending video, or nil when none is left.
func NextPendingVideo(db *gorm.DB, seriesID string) (*Video, error) {
	var videos []Video
	err := db.Where("series_id = ? AND status = ?", seriesID, VideoStatusPending).
		Order("video_index ASC").Limit(1).Find(&videos).Error
	if err != nil || len(videos) == 0 {
		return nil, err
	}
	return &videos[0], nil
}

func CountVideosByStatus(db *gorm.DB, seriesID, status string) (int64, error) {
	var n int64
	err := db.Model(&Video{}).Where("series_id = ? AND status = ?", seriesID, status).Count(&n).Error
	return n, err
}
