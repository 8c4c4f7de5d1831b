// Package stats persists focus records and answers aggregate queries.
package stats

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"tasktimer/internal/pomodoro"
)

// FocusRecord is one persisted stretch of focus time.
type FocusRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	TaskID      string    `gorm:"index" json:"taskId"`
	Phase       string    `json:"phase"`
	Elapsed     int       `json:"elapsedSeconds"`
	Interrupted bool      `json:"interrupted"`
	Note        string    `json:"note,omitempty"`
	RecordedAt  time.Time `gorm:"index" json:"recordedAt"`
}

// Recorder writes focus records to the database. It satisfies the state
// machine's recorder interface: failures are logged, never propagated back
// into a transition.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder migrates the focus_records table and returns a recorder.
func NewRecorder(db *gorm.DB) (*Recorder, error) {
	if err := db.AutoMigrate(&FocusRecord{}); err != nil {
		return nil, fmt.Errorf("migrate focus records: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Record persists a focus record. Fire-and-forget.
func (r *Recorder) Record(rec pomodoro.FocusRecord) {
	row := FocusRecord{
		TaskID:      rec.TaskID,
		Phase:       string(rec.Phase),
		Elapsed:     rec.Elapsed,
		Interrupted: rec.Interrupted,
		Note:        rec.Note,
		RecordedAt:  rec.At,
	}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	if err := r.db.Create(&row).Error; err != nil {
		log.Printf("stats: record focus time for task %s: %v", rec.TaskID, err)
	}
}

// Summary aggregates focus time over all work records.
type Summary struct {
	TotalSessions  int     `json:"totalSessions"`
	TotalSeconds   int     `json:"totalSeconds"`
	TodaySessions  int     `json:"todaySessions"`
	TodaySeconds   int     `json:"todaySeconds"`
	Interruptions  int     `json:"interruptions"`
	AverageSeconds float64 `json:"averageSeconds"`
}

// Summary returns overall and today's work-phase totals.
func (r *Recorder) Summary() (*Summary, error) {
	var s Summary

	type agg struct {
		Sessions int
		Seconds  int
	}
	var total agg
	err := r.db.Model(&FocusRecord{}).
		Select("COUNT(*) AS sessions, COALESCE(SUM(elapsed), 0) AS seconds").
		Where("phase = ? AND interrupted = ?", string(pomodoro.PhaseWorking), false).
		Scan(&total).Error
	if err != nil {
		return nil, fmt.Errorf("summary totals: %w", err)
	}
	s.TotalSessions = total.Sessions
	s.TotalSeconds = total.Seconds

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var todayAgg agg
	err = r.db.Model(&FocusRecord{}).
		Select("COUNT(*) AS sessions, COALESCE(SUM(elapsed), 0) AS seconds").
		Where("phase = ? AND interrupted = ? AND recorded_at >= ?", string(pomodoro.PhaseWorking), false, today).
		Scan(&todayAgg).Error
	if err != nil {
		return nil, fmt.Errorf("summary today: %w", err)
	}
	s.TodaySessions = todayAgg.Sessions
	s.TodaySeconds = todayAgg.Seconds

	var interruptions int64
	err = r.db.Model(&FocusRecord{}).Where("interrupted = ?", true).Count(&interruptions).Error
	if err != nil {
		return nil, fmt.Errorf("summary interruptions: %w", err)
	}
	s.Interruptions = int(interruptions)

	if s.TotalSessions > 0 {
		s.AverageSeconds = float64(s.TotalSeconds) / float64(s.TotalSessions)
	}
	return &s, nil
}

// DayBucket is one day's aggregated focus time.
type DayBucket struct {
	Day      string `json:"day"`
	Sessions int    `json:"sessions"`
	Seconds  int    `json:"seconds"`
}

// Daily buckets completed work records per day over [from, to].
func (r *Recorder) Daily(from, to time.Time) ([]DayBucket, error) {
	var buckets []DayBucket
	err := r.db.Model(&FocusRecord{}).
		Select("strftime('%Y-%m-%d', recorded_at) AS day, COUNT(*) AS sessions, COALESCE(SUM(elapsed), 0) AS seconds").
		Where("phase = ? AND interrupted = ? AND recorded_at BETWEEN ? AND ?",
			string(pomodoro.PhaseWorking), false, from, to).
		Group("day").
		Order("day").
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("daily buckets: %w", err)
	}
	return buckets, nil
}

// ForTask returns the records for one task, newest first.
func (r *Recorder) ForTask(taskID string) ([]FocusRecord, error) {
	var records []FocusRecord
	err := r.db.Where("task_id = ?", taskID).Order("recorded_at DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("records for task %s: %w", taskID, err)
	}
	return records, nil
}
