package models

import "time"

type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
	QueueStatusCancelled  QueueStatus = "cancelled"
)

type QueueEntry struct {
	ID          string      `db:"id" json:"id"`
	ContentID   string      `db:"content_id" json:"content_id"`
	UserID      int64       `db:"user_id" json:"user_id"`
	Platform    Platform    `db:"platform" json:"platform"`
	Status      QueueStatus `db:"status" json:"status"`
	ScheduledAt time.Time   `db:"scheduled_at" json:"scheduled_at"`
	Priority    int         `db:"priority" json:"priority"`
	RetryCount  int         `db:"retry_count" json:"retry_count"`
	LastError   string      `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

type DrainStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Retried   int `json:"retried"`
}
