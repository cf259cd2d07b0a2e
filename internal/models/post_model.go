package models

import "time"

type PostContent struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Hashtags    []string       `json:"hashtags"`
	Images      []string       `json:"images"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy; formatting works on clones so the caller's
// content is never mutated.
func (c *PostContent) Clone() *PostContent {
	if c == nil {
		return nil
	}
	out := &PostContent{
		Title:       c.Title,
		Description: c.Description,
	}
	if c.Hashtags != nil {
		out.Hashtags = append([]string{}, c.Hashtags...)
	}
	if c.Images != nil {
		out.Images = append([]string{}, c.Images...)
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

type ContentItem struct {
	ID        string      `db:"id" json:"id"`
	UserID    int64       `db:"user_id" json:"user_id"`
	Content   PostContent `db:"content" json:"content"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

type PostStatus string

const (
	PostStatusSuccess     PostStatus = "success"
	PostStatusFailed      PostStatus = "failed"
	PostStatusPending     PostStatus = "pending"
	PostStatusRateLimited PostStatus = "rate_limited"
)

// PostResult is one attempt outcome for a (content item, platform) pair.
// Results are append-only; the newest one for a pair is authoritative.
type PostResult struct {
	ID            int64      `db:"id" json:"id,omitempty"`
	ContentID     string     `db:"content_id" json:"content_id"`
	QueueEntryID  string     `db:"queue_entry_id" json:"queue_entry_id,omitempty"`
	Platform      Platform   `db:"platform" json:"platform"`
	Status        PostStatus `db:"status" json:"status"`
	DestinationID string     `db:"destination_id" json:"destination_id,omitempty"`
	URL           string     `db:"url" json:"url,omitempty"`
	ErrorMessage  string     `db:"error_message" json:"error_message,omitempty"`
	ErrorCode     string     `db:"error_code" json:"error_code,omitempty"`
	RetryCount    int        `db:"retry_count" json:"retry_count"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

func (r *PostResult) Succeeded() bool {
	return r != nil && r.Status == PostStatusSuccess
}

func NewFailedResult(platform Platform, code, message string) *PostResult {
	return &PostResult{
		Platform:     platform,
		Status:       PostStatusFailed,
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

func NewSuccessResult(platform Platform, destinationID, url string, publishedAt time.Time) *PostResult {
	return &PostResult{
		Platform:      platform,
		Status:        PostStatusSuccess,
		DestinationID: destinationID,
		URL:           url,
		PublishedAt:   &publishedAt,
	}
}

type Metrics struct {
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Shares    int64     `json:"shares"`
	Saves     int64     `json:"saves"`
	FetchedAt time.Time `json:"fetched_at"`
}

type AggregateResult struct {
	ContentID string                   `json:"content_id"`
	Success   bool                     `json:"success"`
	Results   map[Platform]*PostResult `json:"results"`
}

// Failed lists the platforms whose latest result is not a success.
func (a *AggregateResult) Failed() []Platform {
	var out []Platform
	for p, r := range a.Results {
		if !r.Succeeded() {
			out = append(out, p)
		}
	}
	return out
}
