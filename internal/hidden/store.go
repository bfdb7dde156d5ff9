// Package hidden implements the hidden item store: a persisted set of
// user-hidden asins kept consistent across contexts through a broadcast
// channel, with an outbox of changes for the remote service.
package hidden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"vine_monitor/internal/broadcast"
	"vine_monitor/internal/model"
	"vine_monitor/internal/notify"
	"vine_monitor/internal/storage"
)

const (
	storageKey = "hiddenItems"

	// ChannelName is the broadcast channel shared by every store context.
	ChannelName = "vine_helper"
)

var (
	// ErrInvalidArgument is returned when an operation receives an empty asin.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorageFailure wraps persistence errors other than quota exhaustion.
	ErrStorageFailure = errors.New("storage failure")
)

// Remote receives the change log after each successful save.
type Remote interface {
	SaveHiddenList(ctx context.Context, items []model.Change)
}

// Options configures a Store. Every field is optional.
type Options struct {
	Hub      *broadcast.Hub
	Remote   Remote
	Notifier notify.Notifier
	GC       GCConfig
	Now      func() time.Time
}

// Entry is one hidden asin with the time it was hidden.
type Entry struct {
	ASIN     string
	HiddenAt time.Time
}

// Store is one context's view of the hidden list.
type Store struct {
	mu         sync.Mutex
	storage    storage.Storage
	items      map[string]time.Time
	changes    ChangeLog
	endpoint   *broadcast.Endpoint
	remote     Remote
	notifier   notify.Notifier
	gc         GCConfig
	collecting bool
	evicted    []string
	now        func() time.Time
	log        *slog.Logger
}

// New loads the hidden list from st and, when opts.Hub is set, joins the
// shared broadcast channel.
func New(ctx context.Context, st storage.Storage, log *slog.Logger, opts Options) (*Store, error) {
	s := &Store{
		storage:  st,
		items:    make(map[string]time.Time),
		remote:   opts.Remote,
		notifier: opts.Notifier,
		gc:       opts.GC,
		now:      opts.Now,
		log:      log,
	}
	if s.notifier == nil {
		s.notifier = notify.NewLog(log)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.gc.SettleDelay == 0 {
		s.gc.SettleDelay = DefaultSettleDelay
	}

	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	if opts.Hub != nil {
		s.endpoint = opts.Hub.Join(ChannelName, s.applyRemote)
	}
	return s, nil
}

// Close leaves the broadcast channel.
func (s *Store) Close() {
	if s.endpoint != nil {
		s.endpoint.Close()
	}
}

// Load replaces the in-memory list with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	raw, found, err := s.storage.Get(ctx, storageKey)
	if err != nil {
		return fmt.Errorf("%w: load hidden items: %w", ErrStorageFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = decodeStored(raw, found)
	s.log.Debug("hidden list loaded", "count", len(s.items))
	return nil
}

// IsHidden reports whether asin is hidden.
func (s *Store) IsHidden(asin string) (bool, error) {
	if asin == "" {
		return false, fmt.Errorf("%w: asin not defined", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[asin]
	return ok, nil
}

// AddItem hides asin in this context, persists the merged list and tells
// the other contexts.
func (s *Store) AddItem(ctx context.Context, asin string) error {
	return s.applyLocal(ctx, asin, true)
}

// RemoveItem un-hides asin in this context, persists the merged list and
// tells the other contexts.
func (s *Store) RemoveItem(ctx context.Context, asin string) error {
	return s.applyLocal(ctx, asin, false)
}

// Save persists the in-memory list.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	err := s.saveLocked(ctx)
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	s.publishEvicted(evicted)
	return err
}

// Len returns the number of hidden asins.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Entries returns the hidden asins, oldest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entriesLocked()
}

// PendingChanges returns the changes not yet sent to the remote service.
func (s *Store) PendingChanges() []model.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes.Pending()
}

func (s *Store) applyLocal(ctx context.Context, asin string, hide bool) error {
	if asin == "" {
		return fmt.Errorf("%w: asin not defined", ErrInvalidArgument)
	}

	s.mu.Lock()
	applied := false
	err := s.storage.Update(ctx, storageKey, func(old string, found bool) (string, error) {
		// Another context may have changed the list since our last load.
		s.items = decodeStored(old, found)
		s.mutateLocked(asin, hide)
		applied = true
		return Encode(s.items), nil
	})
	if !applied {
		s.mutateLocked(asin, hide)
	}
	err = s.afterSaveLocked(ctx, err)
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	// Publish outside the lock: peers take their own locks in the handler.
	s.publish(asin, hide)
	s.publishEvicted(evicted)
	return err
}

func (s *Store) applyRemote(msg broadcast.Message) {
	var hide bool
	switch msg.Type {
	case broadcast.HideItem:
		hide = true
	case broadcast.ShowItem:
		hide = false
	case broadcast.EvictItems:
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, asin := range msg.ASINs {
			delete(s.items, asin)
		}
		s.log.Debug("broadcast received", "type", msg.Type, "count", len(msg.ASINs))
		return
	default:
		s.log.Debug("ignoring broadcast", "type", msg.Type)
		return
	}
	if msg.ASIN == "" {
		return
	}

	s.log.Debug("broadcast received", "type", msg.Type, "asin", msg.ASIN)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutateLocked(msg.ASIN, hide)
}

func (s *Store) mutateLocked(asin string, hide bool) {
	if hide {
		if _, ok := s.items[asin]; !ok {
			s.items[asin] = s.now()
		}
	} else {
		delete(s.items, asin)
	}
	// The server may be out of sync with the local list and copes with
	// duplicates.
	s.changes.Record(asin, hide)
}

func (s *Store) publish(asin string, hide bool) {
	if s.endpoint == nil {
		return
	}
	t := broadcast.ShowItem
	if hide {
		t = broadcast.HideItem
	}
	s.endpoint.Publish(broadcast.Message{Type: t, ASIN: asin})
}

func (s *Store) saveLocked(ctx context.Context) error {
	err := s.storage.Set(ctx, storageKey, Encode(s.items))
	return s.afterSaveLocked(ctx, err)
}

func (s *Store) afterSaveLocked(ctx context.Context, err error) error {
	switch {
	case err == nil:
		s.flushLocked(ctx)
		return nil
	case errors.Is(err, storage.ErrQuotaExceeded):
		s.log.Warn("hidden list exceeds storage quota", "error", err)
		s.notifier.Notify(ctx, notify.Notification{
			Level:    notify.LevelWarning,
			Title:    "Local storage quota exceeded!",
			Content:  "Hidden items will be trimmed to make space.",
			Lifespan: 60 * time.Second,
		})
		if gcErr := s.collectLocked(ctx); gcErr != nil {
			s.log.Error("garbage collection", "error", gcErr)
		}
		return nil
	default:
		s.log.Error("save hidden list", "error", err)
		s.notifier.Notify(ctx, notify.Notification{
			Level:   notify.LevelError,
			Title:   "Failed to save hidden items",
			Content: err.Error(),
		})
		return fmt.Errorf("%w: save hidden list: %w", ErrStorageFailure, err)
	}
}

func (s *Store) flushLocked(ctx context.Context) {
	if s.remote == nil || s.changes.Len() == 0 {
		return
	}
	s.remote.SaveHiddenList(ctx, s.changes.Drain())
}

func (s *Store) entriesLocked() []Entry {
	out := make([]Entry, 0, len(s.items))
	for asin, t := range s.items {
		out = append(out, Entry{ASIN: asin, HiddenAt: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].HiddenAt.Equal(out[j].HiddenAt) {
			return out[i].HiddenAt.Before(out[j].HiddenAt)
		}
		return out[i].ASIN < out[j].ASIN
	})
	return out
}

func decodeStored(raw string, found bool) map[string]time.Time {
	if !found || raw == "" {
		return make(map[string]time.Time)
	}
	return Decode(raw)
}
