package integration

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/resilience"
)

// StatusError is a non-2xx answer from a destination API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Category() resilience.ErrorCategory {
	switch {
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return resilience.CategoryAuthentication
	case e.Code == http.StatusTooManyRequests:
		return resilience.CategoryRateLimit
	case e.Code == http.StatusBadRequest || e.Code == http.StatusUnprocessableEntity:
		return resilience.CategoryValidation
	case e.Code == http.StatusRequestTimeout || e.Code == http.StatusGatewayTimeout:
		return resilience.CategoryTimeout
	case e.Code >= 500:
		return resilience.CategoryPlatform
	default:
		return resilience.CategoryUnknown
	}
}

var errNotAuthenticated = resilience.NewError(resilience.CategoryAuthentication, errors.New("not authenticated"))

// failureResult converts a destination error into a failed PostResult,
// keeping the category when the error states one.
func failureResult(platform models.Platform, err error) *models.PostResult {
	res := models.NewFailedResult(platform, "", err.Error())

	var se *StatusError
	var re *resilience.Error
	switch {
	case errors.As(err, &re):
		res.ErrorCode = string(re.Category)
	case errors.As(err, &se):
		res.ErrorCode = string(se.Category())
	}
	if res.ErrorCode == string(resilience.CategoryRateLimit) {
		res.Status = models.PostStatusRateLimited
	}
	return res
}

// Validate reports whether content, once formatted for cfg, can be posted at
// all. It touches nothing outside the process.
func Validate(cfg models.PlatformConfig, content *models.PostContent) error {
	if content == nil {
		return resilience.Validation("validation failed: no content")
	}
	return validateContent(cfg, FormatContent(cfg, content))
}

func validateContent(cfg models.PlatformConfig, content *models.PostContent) error {
	if content.Title == "" && content.Description == "" {
		return resilience.Validation("validation failed: content has no title or description")
	}
	if cfg.RequireImages && len(content.Images) == 0 {
		return resilience.Validation("validation failed: at least one image is required")
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}
