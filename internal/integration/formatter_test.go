package integration

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
)

func limitedConfig() models.PlatformConfig {
	return models.PlatformConfig{
		Platform:             models.PlatformEtsy,
		MaxTitleLength:       40,
		MaxDescriptionLength: 120,
		MaxHashtags:          3,
		MaxImages:            2,
	}
}

func TestFormatContentClamps(t *testing.T) {
	content := &models.PostContent{
		Title:       "  Handmade ceramic mug with a long glazed handle and a gift box  ",
		Description: strings.Repeat("lovely ", 40),
		Hashtags:    []string{"#Ceramics", "ceramics", " pottery ", "#", "gift idea", "mug"},
		Images:      []string{"a.png", "b.png", "c.png"},
	}

	out := FormatContent(limitedConfig(), content)

	assert.LessOrEqual(t, utf8.RuneCountInString(out.Title), 40)
	assert.True(t, strings.HasSuffix(out.Title, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(out.Description), 120)
	assert.LessOrEqual(t, utf8.RuneCountInString(Caption(out)), 120)
	assert.Equal(t, []string{"Ceramics", "pottery", "giftidea"}, out.Hashtags)
	assert.Equal(t, []string{"a.png", "b.png"}, out.Images)

	assert.Len(t, content.Images, 3, "input must not be mutated")
	assert.Equal(t, "#Ceramics", content.Hashtags[0])
}

func TestFormatContentIsIdempotent(t *testing.T) {
	gofakeit.Seed(42)
	configs := []models.PlatformConfig{
		limitedConfig(),
		{MaxTitleLength: 3, MaxDescriptionLength: 2, MaxHashtags: 1, MaxImages: 1},
		{},
	}

	for i := 0; i < 200; i++ {
		content := &models.PostContent{
			Title:       gofakeit.Sentence(gofakeit.Number(1, 20)),
			Description: gofakeit.Paragraph(1, gofakeit.Number(1, 6), 12, " "),
			Hashtags:    []string{gofakeit.Word(), "#" + gofakeit.Word(), gofakeit.HipsterWord(), gofakeit.Word()},
			Images:      []string{gofakeit.URL(), gofakeit.URL()},
		}
		for _, cfg := range configs {
			once := FormatContent(cfg, content)
			twice := FormatContent(cfg, once)
			assert.Equal(t, once, twice)
			if cfg.MaxDescriptionLength > 0 {
				assert.LessOrEqual(t, utf8.RuneCountInString(Caption(once)), cfg.MaxDescriptionLength)
			}
		}
	}
}

func TestFormatContentKeepsCaptionWithinLimit(t *testing.T) {
	cfg := models.PlatformConfig{
		Platform:             models.PlatformInstagram,
		MaxDescriptionLength: 2200,
		MaxHashtags:          30,
	}
	tags := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		tags = append(tags, fmt.Sprintf("handmadeceramics%02d", i))
	}
	content := &models.PostContent{
		Title:       "Mug",
		Description: strings.Repeat("x", 2200),
		Hashtags:    tags,
	}

	out := FormatContent(cfg, content)

	caption := Caption(out)
	assert.LessOrEqual(t, utf8.RuneCountInString(caption), 2200)
	assert.NotEmpty(t, out.Hashtags)
	assert.LessOrEqual(t, utf8.RuneCountInString(HashtagLine(out.Hashtags)), 1100)
	assert.True(t, strings.HasSuffix(out.Description, "..."))
	assert.Equal(t, tags[:len(out.Hashtags)], out.Hashtags, "trailing tags go first")
	assert.Equal(t, out, FormatContent(cfg, out))

	short := FormatContent(cfg, &models.PostContent{Description: "Fresh batch", Hashtags: tags[:3]})
	assert.Equal(t, "Fresh batch", short.Description)
	assert.Len(t, short.Hashtags, 3)
}

func TestFormatContentTinyLimitDropsTags(t *testing.T) {
	cfg := models.PlatformConfig{MaxDescriptionLength: 4}

	out := FormatContent(cfg, &models.PostContent{Description: "hello world", Hashtags: []string{"abc"}})

	assert.Empty(t, out.Hashtags)
	assert.LessOrEqual(t, utf8.RuneCountInString(Caption(out)), 4)
}

func TestFormatContentNil(t *testing.T) {
	assert.Nil(t, FormatContent(limitedConfig(), nil))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 0, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"hello world", 9, "hello..."},
		{"héllo wörld", 7, "héll..."},
		{"ab cd", 3, "ab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.limit), "truncate(%q, %d)", tt.in, tt.limit)
	}
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "Sunny day\n\n#beach #summer", Caption(&models.PostContent{
		Description: "Sunny day",
		Hashtags:    []string{"beach", "summer"},
	}))
	assert.Equal(t, "#beach", Caption(&models.PostContent{Hashtags: []string{"beach"}}))
	assert.Equal(t, "Sunny day", Caption(&models.PostContent{Description: "Sunny day"}))
}
