package transfer

import (
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type PublishRequest struct {
	Content   models.PostContent `json:"content"`
	Platforms []models.Platform  `json:"platforms"`
}

type ScheduleRequest struct {
	Content   models.PostContent `json:"content"`
	Platforms []models.Platform  `json:"platforms"`
	// ScheduledAt nil means each platform's next optimal time.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

type ScheduleResponse struct {
	EntryIDs []string `json:"entry_ids"`
}

type DrainRequest struct {
	BatchSize int `json:"batch_size"`
}

type RetryRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}
