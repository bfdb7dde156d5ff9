package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vine_monitor/internal/filter"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestReadMissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestRead(t *testing.T) {
	path := writeFile(t, `
hidden_items_cache_size = 4.5
remote_sync = true
hide_duplicate_thumbnail = true
auto_truncate_max = 500
currency = "EUR"
locale = "de-DE"

[[highlight_keywords]]
contains = "kayak"
etv_min = 50.0

[[hide_keywords]]
contains = "ebook"
without = "reader"
`)

	got, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	min := 50.0
	want := Settings{
		HighlightKeywords:      []filter.Keyword{{Contains: "kayak", ETVMin: &min}},
		HideKeywords:           []filter.Keyword{{Contains: "ebook", Without: "reader"}},
		HiddenItemsCacheSize:   4.5,
		RemoteSync:             true,
		HideDuplicateThumbnail: true,
		AutoTruncate:           true,
		AutoTruncateMax:        500,
		Locale:                 "de-DE",
		Currency:               "EUR",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestReadInvalid(t *testing.T) {
	if _, err := Read(writeFile(t, `remote_sync = [`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestCacheSizeMiB(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want float64
	}{
		{name: "integer", toml: `hidden_items_cache_size = 3`, want: 3},
		{name: "float", toml: `hidden_items_cache_size = 2.5`, want: 2.5},
		{name: "string", toml: `hidden_items_cache_size = "big"`, want: 0},
		{name: "default", toml: ``, want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Read(writeFile(t, tt.toml))
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got := s.CacheSizeMiB(); got != tt.want {
				t.Errorf("CacheSizeMiB() = %v, want %v", got, tt.want)
			}
		})
	}
}
