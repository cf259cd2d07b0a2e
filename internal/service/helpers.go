package service

import (
	"github.com/maheshrc27/crosspost/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	CodeUnavailable    = "integration_unavailable"
	CodeContentMissing = "content_missing"
	defaultConcurrency = 5
	defaultBatchSize   = 50
)

func newID() (string, error) {
	return gonanoid.New()
}

// uniquePlatforms drops empty and repeated ids, keeping first-seen order.
func uniquePlatforms(platforms []models.Platform) []models.Platform {
	seen := make(map[models.Platform]bool, len(platforms))
	out := make([]models.Platform, 0, len(platforms))
	for _, p := range platforms {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
