package hidden

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"vine_monitor/internal/broadcast"
	"vine_monitor/internal/model"
	"vine_monitor/internal/notify"
	"vine_monitor/internal/storage"
)

// --- mocks ---

type countingStorage struct {
	storage.Storage
	reads  atomic.Int32
	writes atomic.Int32
}

func (c *countingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	c.reads.Add(1)
	return c.Storage.Get(ctx, key)
}

func (c *countingStorage) Set(ctx context.Context, key, value string) error {
	c.writes.Add(1)
	return c.Storage.Set(ctx, key, value)
}

func (c *countingStorage) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	c.reads.Add(1)
	c.writes.Add(1)
	return c.Storage.Update(ctx, key, fn)
}

type failingStorage struct {
	storage.Storage
	err error
}

func (f *failingStorage) Set(context.Context, string, string) error {
	return f.err
}

func (f *failingStorage) Update(context.Context, string, storage.UpdateFunc) error {
	return f.err
}

type mockNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (m *mockNotifier) Notify(_ context.Context, n notify.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, n)
}

func (m *mockNotifier) titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.notes))
	for i, n := range m.notes {
		out[i] = n.Title
	}
	return out
}

type notifyFunc func(title string)

func (f notifyFunc) Notify(_ context.Context, n notify.Notification) {
	f(n.Title)
}

type mockRemote struct {
	mu      sync.Mutex
	batches [][]model.Change
}

func (m *mockRemote) SaveHiddenList(_ context.Context, items []model.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, items)
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T, quota int64) *storage.SQLite {
	t.Helper()
	st, err := storage.NewSQLite(":memory:", quota)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestStore(t *testing.T, st storage.Storage, opts Options) *Store {
	t.Helper()
	s, err := New(context.Background(), st, discardLogger(), opts)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func asins(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ASIN)
	}
	sort.Strings(out)
	return out
}

func mustHidden(t *testing.T, s *Store, asin string) bool {
	t.Helper()
	ok, err := s.IsHidden(asin)
	if err != nil {
		t.Fatalf("is hidden %s: %v", asin, err)
	}
	return ok
}

// --- tests ---

func TestIsHiddenInvalidArgument(t *testing.T) {
	s := newTestStore(t, newTestStorage(t, 0), Options{})

	if _, err := s.IsHidden(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if err := s.AddItem(context.Background(), ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument from AddItem, got %v", err)
	}
}

func TestAddRemovePersist(t *testing.T) {
	type op struct {
		asin string
		hide bool
	}
	tests := []struct {
		name string
		ops  []op
		want []string
	}{
		{
			name: "single hide",
			ops:  []op{{"A1", true}},
			want: []string{"A1"},
		},
		{
			name: "hide then show",
			ops:  []op{{"A1", true}, {"A1", false}},
			want: []string{},
		},
		{
			name: "repeated hides do not duplicate",
			ops:  []op{{"A1", true}, {"A1", true}, {"A2", true}},
			want: []string{"A1", "A2"},
		},
		{
			name: "show of unknown asin is harmless",
			ops:  []op{{"A9", false}, {"A1", true}},
			want: []string{"A1"},
		},
		{
			name: "last operation wins per asin",
			ops:  []op{{"A1", true}, {"A2", true}, {"A1", false}, {"A3", true}, {"A1", true}, {"A3", false}},
			want: []string{"A1", "A2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := newTestStorage(t, 0)
			s := newTestStore(t, st, Options{})

			for _, o := range tt.ops {
				var err error
				if o.hide {
					err = s.AddItem(ctx, o.asin)
				} else {
					err = s.RemoveItem(ctx, o.asin)
				}
				if err != nil {
					t.Fatalf("apply %+v: %v", o, err)
				}
			}

			fresh := newTestStore(t, st, Options{})
			if diff := cmp.Diff(tt.want, asins(fresh.Entries())); diff != "" {
				t.Errorf("reloaded list mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAddItemKeepsFirstTimestamp(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	s := newTestStore(t, newTestStorage(t, 0), Options{Now: func() time.Time { return now }})

	if err := s.AddItem(ctx, "A1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	now = now.Add(time.Hour)
	if err := s.AddItem(ctx, "A1"); err != nil {
		t.Fatalf("add again: %v", err)
	}

	want := []Entry{{ASIN: "A1", HiddenAt: time.Unix(1700000000, 0)}}
	if diff := cmp.Diff(want, s.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestBroadcastAppliesInOtherContext(t *testing.T) {
	ctx := context.Background()
	hub := broadcast.NewHub()
	shared := newTestStorage(t, 0)

	st1 := &countingStorage{Storage: shared}
	st2 := &countingStorage{Storage: shared}
	ctx1 := newTestStore(t, st1, Options{Hub: hub})
	ctx2 := newTestStore(t, st2, Options{Hub: hub})

	var seen []broadcast.Message
	var mu sync.Mutex
	observer := hub.Join(ChannelName, func(m broadcast.Message) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, m)
	})
	defer observer.Close()

	reads, writes := st2.reads.Load(), st2.writes.Load()

	if err := ctx1.AddItem(ctx, "A1"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !mustHidden(t, ctx2, "A1") {
		t.Error("expected A1 hidden in the second context")
	}
	if st2.reads.Load() != reads || st2.writes.Load() != writes {
		t.Errorf("second context touched storage: reads %d->%d writes %d->%d",
			reads, st2.reads.Load(), writes, st2.writes.Load())
	}

	mu.Lock()
	want := []broadcast.Message{{Type: broadcast.HideItem, ASIN: "A1"}}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("broadcast traffic mismatch, remote apply must not echo (-want +got):\n%s", diff)
	}
	mu.Unlock()

	if err := ctx1.RemoveItem(ctx, "A1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if mustHidden(t, ctx2, "A1") {
		t.Error("expected A1 shown again in the second context")
	}
}

func TestBroadcastIgnoresUnknownMessages(t *testing.T) {
	hub := broadcast.NewHub()
	s := newTestStore(t, newTestStorage(t, 0), Options{Hub: hub})

	sender := hub.Join(ChannelName, nil)
	defer sender.Close()
	sender.Publish(broadcast.Message{Type: "pinItem", ASIN: "A1"})
	sender.Publish(broadcast.Message{ASIN: "A2"})
	sender.Publish(broadcast.Message{Type: broadcast.HideItem})

	if s.Len() != 0 {
		t.Errorf("expected no entries, got %v", s.Entries())
	}
	if len(s.PendingChanges()) != 0 {
		t.Errorf("expected no pending changes, got %v", s.PendingChanges())
	}
}

func TestConcurrentContextsKeepBothItems(t *testing.T) {
	ctx := context.Background()
	hub := broadcast.NewHub()
	shared := newTestStorage(t, 0)
	ctx1 := newTestStore(t, shared, Options{Hub: hub})
	ctx2 := newTestStore(t, shared, Options{Hub: hub})

	var wg sync.WaitGroup
	for _, job := range []struct {
		s    *Store
		asin string
	}{{ctx1, "A1"}, {ctx2, "A2"}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := job.s.AddItem(ctx, job.asin); err != nil {
				t.Errorf("add %s: %v", job.asin, err)
			}
		}()
	}
	wg.Wait()

	fresh := newTestStore(t, shared, Options{})
	if diff := cmp.Diff([]string{"A1", "A2"}, asins(fresh.Entries())); diff != "" {
		t.Errorf("persisted list mismatch (-want +got):\n%s", diff)
	}
}

func TestReloadBeforeWrite(t *testing.T) {
	ctx := context.Background()
	shared := newTestStorage(t, 0)
	// No hub: the second context only learns about A1 from storage.
	ctx1 := newTestStore(t, shared, Options{})
	ctx2 := newTestStore(t, shared, Options{})

	if err := ctx1.AddItem(ctx, "A1"); err != nil {
		t.Fatalf("add A1: %v", err)
	}
	if mustHidden(t, ctx2, "A1") {
		t.Fatal("second context should not know A1 before reloading")
	}
	if err := ctx2.AddItem(ctx, "A2"); err != nil {
		t.Fatalf("add A2: %v", err)
	}
	if !mustHidden(t, ctx2, "A1") {
		t.Error("expected A1 merged in by reload-before-write")
	}
}

func TestChangeLogFlush(t *testing.T) {
	ctx := context.Background()
	hub := broadcast.NewHub()
	shared := newTestStorage(t, 0)
	remote := &mockRemote{}

	origin := newTestStore(t, shared, Options{Hub: hub})
	s := newTestStore(t, shared, Options{Hub: hub, Remote: remote})

	if err := origin.AddItem(ctx, "A1"); err != nil {
		t.Fatalf("origin add: %v", err)
	}
	if len(remote.batches) != 0 {
		t.Fatalf("remote apply must not flush, got %v", remote.batches)
	}
	if diff := cmp.Diff([]model.Change{{ASIN: "A1", Hidden: true}}, s.PendingChanges()); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}

	if err := s.AddItem(ctx, "A2"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RemoveItem(ctx, "A2"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := [][]model.Change{
		{{ASIN: "A1", Hidden: true}, {ASIN: "A2", Hidden: true}},
		{{ASIN: "A2", Hidden: false}},
	}
	if diff := cmp.Diff(want, remote.batches); diff != "" {
		t.Errorf("flushed batches mismatch (-want +got):\n%s", diff)
	}
	if len(s.PendingChanges()) != 0 {
		t.Errorf("expected empty change log after flush, got %v", s.PendingChanges())
	}
}

func TestSaveQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	notes := &mockNotifier{}
	remote := &mockRemote{}
	st := newTestStorage(t, 40)
	s := newTestStore(t, st, Options{Notifier: notes, Remote: remote})

	if err := s.AddItem(ctx, "A1"); err != nil {
		t.Fatalf("add within quota: %v", err)
	}
	if err := s.AddItem(ctx, "B0VERYLONGASIN000000000001"); err != nil {
		t.Fatalf("quota exceeded should be recoverable, got %v", err)
	}

	if !mustHidden(t, s, "B0VERYLONGASIN000000000001") {
		t.Error("expected item kept in memory after quota failure")
	}
	if diff := cmp.Diff([]string{"Local storage quota exceeded!"}, notes.titles()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, len(remote.batches)); diff != "" {
		t.Errorf("failed save must not flush (-want +got):\n%s", diff)
	}

	fresh := newTestStore(t, st, Options{})
	if diff := cmp.Diff([]string{"A1"}, asins(fresh.Entries())); diff != "" {
		t.Errorf("persisted list mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveStorageFailure(t *testing.T) {
	ctx := context.Background()
	notes := &mockNotifier{}
	st := &failingStorage{Storage: newTestStorage(t, 0), err: errors.New("disk on fire")}
	s := newTestStore(t, st, Options{Notifier: notes})

	err := s.AddItem(ctx, "A1")
	if !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
	if !mustHidden(t, s, "A1") {
		t.Error("expected item kept in memory after storage failure")
	}
	if diff := cmp.Diff([]string{"Failed to save hidden items"}, notes.titles()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}

	if err := s.Save(ctx); !errors.Is(err, ErrStorageFailure) {
		t.Errorf("expected ErrStorageFailure from Save, got %v", err)
	}
}

func TestLoadLegacyFormat(t *testing.T) {
	ctx := context.Background()
	st := newTestStorage(t, 0)
	if err := st.Set(ctx, storageKey, `[{"asin":"A1","date":"2024-01-02T03:04:05Z"},{"asin":"A2","date":"2024-02-02T03:04:05Z"}]`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestStore(t, st, Options{})
	if diff := cmp.Diff([]string{"A1", "A2"}, asins(s.Entries())); diff != "" {
		t.Errorf("legacy load mismatch (-want +got):\n%s", diff)
	}

	if err := s.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _, _ := st.Get(ctx, storageKey)
	if diff := cmp.Diff(`{"A1":1704164645,"A2":1706843045}`, raw); diff != "" {
		t.Errorf("save must use the current format (-want +got):\n%s", diff)
	}
}

func TestLoadCorruptValue(t *testing.T) {
	ctx := context.Background()
	st := newTestStorage(t, 0)
	if err := st.Set(ctx, storageKey, `%%%`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestStore(t, st, Options{})
	if s.Len() != 0 {
		t.Errorf("expected empty list, got %v", s.Entries())
	}
}
