package models

import (
	"errors"
	"fmt"
	"time"
)

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformPinterest Platform = "pinterest"
	PlatformTiktok    Platform = "tiktok"
	PlatformYoutube   Platform = "youtube"
	PlatformLinkedin  Platform = "linkedin"
	PlatformEtsy      Platform = "etsy"
	PlatformEbay      Platform = "ebay"
	PlatformShopify   Platform = "shopify"
	PlatformPoshmark  Platform = "poshmark"
	PlatformMercari   Platform = "mercari"
	PlatformDepop     Platform = "depop"
)

type Category string

const (
	CategorySocial      Category = "social"
	CategoryMarketplace Category = "marketplace"
)

var platformCategories = map[Platform]Category{
	PlatformFacebook:  CategorySocial,
	PlatformInstagram: CategorySocial,
	PlatformTwitter:   CategorySocial,
	PlatformPinterest: CategorySocial,
	PlatformTiktok:    CategorySocial,
	PlatformYoutube:   CategorySocial,
	PlatformLinkedin:  CategorySocial,
	PlatformEtsy:      CategoryMarketplace,
	PlatformEbay:      CategoryMarketplace,
	PlatformShopify:   CategoryMarketplace,
	PlatformPoshmark:  CategoryMarketplace,
	PlatformMercari:   CategoryMarketplace,
	PlatformDepop:     CategoryMarketplace,
}

// Category reports whether the platform is a social network or a marketplace.
// Unknown platforms are treated as marketplaces.
func (p Platform) Category() Category {
	if c, ok := platformCategories[p]; ok {
		return c
	}
	return CategoryMarketplace
}

// Known reports whether the platform is one of the built-in ids.
func (p Platform) Known() bool {
	_, ok := platformCategories[p]
	return ok
}

func (p Platform) String() string {
	return string(p)
}

type IntegrationType string

const (
	IntegrationTypeAPI     IntegrationType = "api"
	IntegrationTypeBrowser IntegrationType = "browser"
)

type APISettings struct {
	BaseURL     string `yaml:"base_url" json:"base_url"`
	ProbePath   string `yaml:"probe_path" json:"probe_path"`
	PublishPath string `yaml:"publish_path" json:"publish_path"`
	MetricsPath string `yaml:"metrics_path" json:"metrics_path"`
	// MediaBaseURL is the public URL prefix of the media bucket.
	MediaBaseURL string `yaml:"media_base_url" json:"media_base_url"`
}

type BrowserSettings struct {
	HomeURL   string            `yaml:"home_url" json:"home_url"`
	LoginURL  string            `yaml:"login_url" json:"login_url"`
	CreateURL string            `yaml:"create_url" json:"create_url"`
	Selectors map[string]string `yaml:"selectors" json:"selectors"`
}

type SchedulePreference struct {
	Hours    []int          `yaml:"hours" json:"hours"`
	Weekdays []time.Weekday `yaml:"weekdays" json:"weekdays"`
}

// PlatformConfig is the static policy of one destination. Configs are replaced
// as a whole; the registry bumps Version on every replacement.
type PlatformConfig struct {
	Platform             Platform           `yaml:"platform" json:"platform"`
	Type                 IntegrationType    `yaml:"type" json:"type"`
	Enabled              bool               `yaml:"enabled" json:"enabled"`
	RateLimitPerMinute   int                `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	MaxTitleLength       int                `yaml:"max_title_length" json:"max_title_length"`
	MaxDescriptionLength int                `yaml:"max_description_length" json:"max_description_length"`
	MaxHashtags          int                `yaml:"max_hashtags" json:"max_hashtags"`
	MaxImages            int                `yaml:"max_images" json:"max_images"`
	RequireImages        bool               `yaml:"require_images" json:"require_images"`
	MaxRetries           int                `yaml:"max_retries" json:"max_retries"`
	RetryBaseDelay       time.Duration      `yaml:"retry_base_delay" json:"retry_base_delay"`
	RetryMaxDelay        time.Duration      `yaml:"retry_max_delay" json:"retry_max_delay"`
	Timeout              time.Duration      `yaml:"timeout" json:"timeout"`
	API                  APISettings        `yaml:"api" json:"api"`
	Browser              BrowserSettings    `yaml:"browser" json:"browser"`
	Schedule             SchedulePreference `yaml:"schedule" json:"schedule"`
	Version              int                `yaml:"-" json:"version"`
}

func (c *PlatformConfig) Validate() error {
	if c.Platform == "" {
		return errors.New("platform is required")
	}
	switch c.Type {
	case IntegrationTypeAPI:
		if c.API.BaseURL == "" {
			return fmt.Errorf("%s: api base_url is required", c.Platform)
		}
	case IntegrationTypeBrowser:
		if c.Browser.HomeURL == "" || c.Browser.CreateURL == "" {
			return fmt.Errorf("%s: browser home_url and create_url are required", c.Platform)
		}
	default:
		return fmt.Errorf("%s: unknown integration type %q", c.Platform, c.Type)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%s: max_retries cannot be negative", c.Platform)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("%s: rate_limit_per_minute cannot be negative", c.Platform)
	}
	for _, h := range c.Schedule.Hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%s: schedule hour %d out of range", c.Platform, h)
		}
	}
	return nil
}

func (c *PlatformConfig) Selector(name string) string {
	if c.Browser.Selectors == nil {
		return ""
	}
	return c.Browser.Selectors[name]
}
