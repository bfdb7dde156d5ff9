// Package settings reads the user settings file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"vine_monitor/internal/filter"
)

// DefaultAutoTruncateMax is the feed length kept when auto-truncate is on.
const DefaultAutoTruncateMax = 2000

// Settings holds the user-adjustable monitor settings.
type Settings struct {
	HighlightKeywords []filter.Keyword `toml:"highlight_keywords"`
	HideKeywords      []filter.Keyword `toml:"hide_keywords"`
	BlurKeywords      []filter.Keyword `toml:"blur_keywords"`

	// HiddenItemsCacheSize is the hidden list budget in MiB. Any TOML value
	// is accepted; only numbers enable garbage collection.
	HiddenItemsCacheSize any `toml:"hidden_items_cache_size"`

	RemoteSync             bool `toml:"remote_sync"`
	HideDuplicateThumbnail bool `toml:"hide_duplicate_thumbnail"`
	AutoTruncate           bool `toml:"auto_truncate"`
	AutoTruncateMax        int  `toml:"auto_truncate_max"`

	Locale   string `toml:"locale"`
	Currency string `toml:"currency"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		HiddenItemsCacheSize: int64(9),
		AutoTruncate:         true,
		AutoTruncateMax:      DefaultAutoTruncateMax,
		Locale:               "en-US",
		Currency:             "USD",
	}
}

// Read loads settings from path on top of the defaults. A missing file
// yields the defaults.
func Read(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	if _, err := toml.Decode(string(data), &s); err != nil {
		return s, fmt.Errorf("failed to decode settings at %s: %w", path, err)
	}
	if s.AutoTruncateMax <= 0 {
		s.AutoTruncateMax = DefaultAutoTruncateMax
	}
	return s, nil
}

// CacheSizeMiB returns the hidden list budget, or 0 when the configured
// value is not a number.
func (s Settings) CacheSizeMiB() float64 {
	switch v := s.HiddenItemsCacheSize.(type) {
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}
