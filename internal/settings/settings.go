// Package settings resolves the per-user generation settings handed to the
// Recraft generator: the fal.ai API key plus image size, style and colors.
package settings

import (
	"strings"

	"recraftgen/internal/infra"
)

const (
	DefaultImageSize = "square_hd"
	DefaultStyle     = "realistic_image"
)

// Settings holds the values a single generation runs with. Colors is the raw
// comma-separated channel list.
type Settings struct {
	APIKey    string
	ImageSize string
	Style     string
	Colors    string
}

// Defaults returns the built-in settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{ImageSize: DefaultImageSize, Style: DefaultStyle}
}

// FromConfig builds the deployment-wide defaults from environment config.
func FromConfig(cfg *infra.Config) Settings {
	if cfg == nil {
		return Defaults()
	}
	return Defaults().Merge(Settings{
		APIKey:    cfg.FalAPIKey,
		ImageSize: cfg.DefaultImageSize,
		Style:     cfg.DefaultStyle,
		Colors:    cfg.DefaultColors,
	})
}

// Merge returns s with every non-blank field of override applied on top.
func (s Settings) Merge(override Settings) Settings {
	if v := strings.TrimSpace(override.APIKey); v != "" {
		s.APIKey = v
	}
	if v := strings.TrimSpace(override.ImageSize); v != "" {
		s.ImageSize = v
	}
	if v := strings.TrimSpace(override.Style); v != "" {
		s.Style = v
	}
	if v := strings.TrimSpace(override.Colors); v != "" {
		s.Colors = v
	}
	return s
}
