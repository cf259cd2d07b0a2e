package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/maheshrc27/crosspost/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed platforms.yaml
var defaultPlatforms []byte

type platformFile struct {
	Platforms []models.PlatformConfig `yaml:"platforms"`
}

// LoadPlatforms reads the platform table from path, or the built-in table
// when path is empty.
func LoadPlatforms(path string) ([]models.PlatformConfig, error) {
	data := defaultPlatforms
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading platforms file: %w", err)
		}
	}
	return ParsePlatforms(data)
}

func ParsePlatforms(data []byte) ([]models.PlatformConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file platformFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding platforms: %w", err)
	}
	if len(file.Platforms) == 0 {
		return nil, errors.New("no platforms configured")
	}

	seen := make(map[models.Platform]bool, len(file.Platforms))
	for i := range file.Platforms {
		cfg := &file.Platforms[i]
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if seen[cfg.Platform] {
			return nil, fmt.Errorf("%s: configured twice", cfg.Platform)
		}
		seen[cfg.Platform] = true
	}
	return file.Platforms, nil
}

// ParsePlatformConfig decodes a single config. JSON bodies decode too, since
// JSON is valid YAML.
func ParsePlatformConfig(data []byte) (models.PlatformConfig, error) {
	var cfg models.PlatformConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding platform config: %w", err)
	}
	return cfg, cfg.Validate()
}

// WithMediaBaseURL fills the media prefix of API platforms that have none.
func WithMediaBaseURL(cfgs []models.PlatformConfig, baseURL string) []models.PlatformConfig {
	if baseURL == "" {
		return cfgs
	}
	for i := range cfgs {
		if cfgs[i].Type == models.IntegrationTypeAPI && cfgs[i].API.MediaBaseURL == "" {
			cfgs[i].API.MediaBaseURL = baseURL
		}
	}
	return cfgs
}
