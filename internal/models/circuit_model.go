package models

import "time"

type CircuitStatus string

const (
	CircuitClosed   CircuitStatus = "closed"
	CircuitOpen     CircuitStatus = "open"
	CircuitHalfOpen CircuitStatus = "half_open"
)

type CircuitState struct {
	Platform            Platform      `json:"platform"`
	Status              CircuitStatus `json:"status"`
	ConsecutiveFailures uint32        `json:"consecutive_failures"`
	OpenedAt            *time.Time    `json:"opened_at,omitempty"`
}
