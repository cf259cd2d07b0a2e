package integration

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	ellipsis         = "..."
	captionSeparator = "\n\n"
)

// FormatContent adapts content to the platform's limits. Every clamp is
// saturating so formatting an already formatted copy changes nothing.
func FormatContent(cfg models.PlatformConfig, content *models.PostContent) *models.PostContent {
	out := content.Clone()
	if out == nil {
		return nil
	}

	out.Title = truncate(strings.TrimSpace(out.Title), cfg.MaxTitleLength)
	out.Hashtags = normalizeHashtags(out.Hashtags, cfg.MaxHashtags)
	out.Description, out.Hashtags = fitCaption(strings.TrimSpace(out.Description), out.Hashtags, cfg.MaxDescriptionLength)
	if cfg.MaxImages > 0 && len(out.Images) > cfg.MaxImages {
		out.Images = out.Images[:cfg.MaxImages]
	}
	return out
}

// fitCaption keeps Caption within limit. The hashtag line may take at most
// half of it, dropping trailing tags first, and the description gets the rest.
func fitCaption(description string, tags []string, limit int) (string, []string) {
	if limit <= 0 {
		return description, tags
	}
	for len(tags) > 0 {
		line := utf8.RuneCountInString(HashtagLine(tags))
		if line <= limit/2 && limit-line-len(captionSeparator) >= 1 {
			break
		}
		tags = tags[:len(tags)-1]
	}

	budget := limit
	if len(tags) > 0 {
		budget -= utf8.RuneCountInString(HashtagLine(tags)) + len(captionSeparator)
	}
	return truncate(description, budget), tags
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= len(ellipsis) {
		return strings.TrimRightFunc(string(runes[:limit]), isSpace)
	}
	return strings.TrimRightFunc(string(runes[:limit-len(ellipsis)]), isSpace) + ellipsis
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

// normalizeHashtags strips '#' and whitespace, drops empties and
// case-insensitive duplicates, then keeps the first limit tags.
func normalizeHashtags(tags []string, limit int) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.Join(strings.Fields(strings.TrimLeft(strings.TrimSpace(tag), "#")), "")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Caption joins the description and rendered hashtags the way social
// platforms expect them.
func Caption(content *models.PostContent) string {
	tags := HashtagLine(content.Hashtags)
	switch {
	case content.Description == "":
		return tags
	case tags == "":
		return content.Description
	default:
		return content.Description + captionSeparator + tags
	}
}

func HashtagLine(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	rendered := make([]string, len(tags))
	for i, t := range tags {
		rendered[i] = "#" + t
	}
	return strings.Join(rendered, " ")
}
