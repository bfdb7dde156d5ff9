package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"vine_monitor/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/feed.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func ptr(v float64) *float64 { return &v }

func TestFetch(t *testing.T) {
	xml := loadFixture(t)

	tests := []struct {
		name      string
		transport *mockTransport
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantItems: 4,
		},
		{
			name:      "http error status",
			transport: &mockTransport{statusCode: 503},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: errors.New("connection refused")},
			wantErr:   true,
		},
		{
			name:      "invalid body",
			transport: &mockTransport{body: "not a feed", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := New(tt.transport, "https://feed.example/rss").Fetch(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(events) != tt.wantItems {
				t.Errorf("got %d events, want %d", len(events), tt.wantItems)
			}
		})
	}
}

func TestFetchMapsExtensions(t *testing.T) {
	events, err := New(&mockTransport{body: loadFixture(t), statusCode: 200}, "u").Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []model.Event{
		{
			ASIN:           "B0KAYAK001",
			Queue:          "encore",
			ReceivedAt:     time.Date(2025, 6, 2, 10, 15, 0, 0, time.UTC),
			Title:          "Two Person Inflatable Kayak Set",
			ImageURL:       "https://images.example/kayak.jpg",
			IsParentASIN:   true,
			EnrollmentGUID: "e7a1c3f2-0001",
			ETVMin:         ptr(149.99),
			ETVMax:         ptr(189.99),
			Reason:         "New item",
		},
		{
			ASIN:       "B0CABLE002",
			Queue:      "last_chance",
			ReceivedAt: time.Date(2025, 6, 2, 10, 14, 0, 0, time.UTC),
			Title:      "Braided USB-C Cable 2m",
			ImageURL:   "https://images.example/cable.jpg",
			ETVMin:     ptr(0),
			ETVMax:     ptr(0),
			Reason:     "Zero ETV",
		},
		{
			ASIN:        "B0BOTTLE03",
			Queue:       "potluck",
			ReceivedAt:  time.Date(2025, 6, 2, 10, 13, 0, 0, time.UTC),
			Title:       "Stainless Steel Water Bottle",
			Unavailable: true,
		},
		{
			ASIN:  "B0GUIDONLY",
			Queue: "encore",
			Title: "Item without asin element",
		},
	}

	// The last item has no publish date and is stamped at fetch time.
	if diff := cmp.Diff(want, events, cmpopts.IgnoreFields(model.Event{}, "ReceivedAt")); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	for i := range 3 {
		if !events[i].ReceivedAt.Equal(want[i].ReceivedAt) {
			t.Errorf("event %d received at %v, want %v", i, events[i].ReceivedAt, want[i].ReceivedAt)
		}
	}
	if events[3].ReceivedAt.IsZero() {
		t.Error("expected undated item to be stamped")
	}
}
