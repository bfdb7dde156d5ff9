// Package source downloads the item notification feed and turns it into
// ingestion events.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"vine_monitor/internal/model"
)

// Namespace prefix of the item notification elements.
const extPrefix = "vh"

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source fetches the notification feed from one URL.
type Source struct {
	client HTTPClient
	url    string
}

// New creates a Source for url using client.
func New(client HTTPClient, url string) *Source {
	return &Source{client: client, url: url}
}

// Fetch downloads the feed and returns one event per identifiable item, in
// feed order.
func (s *Source) Fetch(ctx context.Context) ([]model.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "VineMonitor/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	events := make([]model.Event, 0, len(feed.Items))
	for _, item := range feed.Items {
		if ev, ok := ToEvent(item); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

// ToEvent maps a feed item to an ingestion event. Items without an asin
// element or GUID are not identifiable and are rejected.
func ToEvent(item *gofeed.Item) (model.Event, bool) {
	vh := item.Extensions[extPrefix]

	asin := extValue(vh, "asin")
	if asin == "" {
		asin = strings.TrimSpace(item.GUID)
	}
	if asin == "" {
		return model.Event{}, false
	}

	ev := model.Event{
		ASIN:           asin,
		Queue:          extValue(vh, "queue"),
		Title:          strings.TrimSpace(item.Title),
		ImageURL:       imageURL(item, vh),
		IsParentASIN:   extBool(vh, "is_parent_asin"),
		EnrollmentGUID: extValue(vh, "enrollment_guid"),
		ETVMin:         extFloat(vh, "etv_min"),
		ETVMax:         extFloat(vh, "etv_max"),
		Reason:         extValue(vh, "reason"),
		Unavailable:    extBool(vh, "unavailable"),
	}
	if item.PublishedParsed != nil {
		ev.ReceivedAt = item.PublishedParsed.UTC()
	} else {
		ev.ReceivedAt = time.Now().UTC()
	}
	return ev, true
}

func imageURL(item *gofeed.Item, vh map[string][]ext.Extension) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return extValue(vh, "img_url")
}

func extValue(vh map[string][]ext.Extension, name string) string {
	values := vh[name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func extBool(vh map[string][]ext.Extension, name string) bool {
	switch strings.ToLower(extValue(vh, name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func extFloat(vh map[string][]ext.Extension, name string) *float64 {
	raw := extValue(vh, name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
