package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	SeriesStatusIdle       = "idle"
	SeriesStatusGenerating = "generating"
	SeriesStatusReady      = "ready"
	SeriesStatusFailed     = "failed"
)

// Series is a user template producing a run of videos with shared settings.
type Series struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name         string    `json:"name"`
	Format       string    `gorm:"type:varchar(16)" json:"format"`
	PresetType   string    `json:"presetType"`
	CustomFormat string    `json:"customFormat"`
	Niche        string    `json:"niche"`
	Language     string    `json:"language"`
	Voice        string    `json:"voice"`
	VoiceStyle   string    `json:"voiceStyle"`
	Music        string    `json:"music"`
	ArtStyle     string    `json:"artStyle"`
	CaptionStyle string    `json:"captionStyle"`
	Duration     string    `gorm:"type:varchar(16)" json:"duration"`
	VideoCount   int       `json:"videoCount"`
	Status       string    `gorm:"type:varchar(16)" json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Series) TableName() string {
	return "series"
}

// Normalize lowercases enum fields and fills defaults.
func (s *Series) Normalize() {
	s.Format = strings.ToLower(strings.TrimSpace(s.Format))
	s.Duration = strings.ToLower(strings.TrimSpace(s.Duration))
	if s.Format == "" {
		s.Format = "preset"
	}
	if s.Duration == "" {
		s.Duration = "short"
	}
	if s.Language == "" {
		s.Language = "English"
	}
	if s.Voice == "" {
		s.Voice = "Adam"
	}
	if s.VideoCount <= 0 {
		s.VideoCount = 1
	}
	if s.Status == "" {
		s.Status = SeriesStatusIdle
	}
}

// Validate checks the fields the pipeline cannot default.
func (s *Series) Validate() error {
	var problems []string
	if strings.TrimSpace(s.Niche) == "" {
		problems = append(problems, "niche is required")
	}
	if s.Format != "preset" && s.Format != "custom" {
		problems = append(problems, fmt.Sprintf("format must be preset or custom, got %q", s.Format))
	}
	if s.Duration != "short" && s.Duration != "long" {
		problems = append(problems, fmt.Sprintf("duration must be short or long, got %q", s.Duration))
	}
	if s.VideoCount > 50 {
		problems = append(problems, "videoCount must be at most 50")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

const seriesColumns = `id, name, format, preset_type, custom_format, niche, language, voice, voice_style, music, art_style, caption_style, duration, video_count, status, created_at, updated_at`

// Series CRUD
func CreateSeries(s *Series) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	_, err := DB.Exec(
		`INSERT INTO series (`+seriesColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Format, s.PresetType, s.CustomFormat, s.Niche, s.Language, s.Voice, s.VoiceStyle,
		s.Music, s.ArtStyle, s.CaptionStyle, s.Duration, s.VideoCount, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeries(row rowScanner) (Series, error) {
	var s Series
	err := row.Scan(&s.ID, &s.Name, &s.Format, &s.PresetType, &s.CustomFormat, &s.Niche, &s.Language, &s.Voice,
		&s.VoiceStyle, &s.Music, &s.ArtStyle, &s.CaptionStyle, &s.Duration, &s.VideoCount, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func GetSeriesByID(id string) (Series, error) {
	return scanSeries(DB.QueryRow(`SELECT `+seriesColumns+` FROM series WHERE id = ?`, id))
}

func ListSeries() ([]Series, error) {
	rows, err := DB.Query(`SELECT ` + seriesColumns + ` FROM series ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpdateSeriesByID applies only the non-empty fields of patch.
func UpdateSeriesByID(id string, patch Series) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col, val string) {
		if val != "" {
			sets = append(sets, col+" = ?")
			args = append(args, val)
		}
	}
	add("name", patch.Name)
	add("format", patch.Format)
	add("preset_type", patch.PresetType)
	add("custom_format", patch.CustomFormat)
	add("niche", patch.Niche)
	add("language", patch.Language)
	add("voice", patch.Voice)
	add("voice_style", patch.VoiceStyle)
	add("music", patch.Music)
	add("art_style", patch.ArtStyle)
	add("caption_style", patch.CaptionStyle)
	add("duration", patch.Duration)
	if patch.VideoCount > 0 {
		sets = append(sets, "video_count = ?")
		args = append(args, patch.VideoCount)
	}
	if len(sets) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE series SET %s, updated_at = ? WHERE id = ?", strings.Join(sets, ", "))
	args = append(args, time.Now(), id)
	_, err := DB.Exec(query, args...)
	return err
}

func UpdateSeriesStatus(id, status string) error {
	_, err := DB.Exec(`UPDATE series SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	return err
}

// DeleteSeriesByID removes the series and its video records.
func DeleteSeriesByID(id string) error {
	tx, err := DB.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM video WHERE series_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM series WHERE id = ?`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
