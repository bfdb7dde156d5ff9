package hidden

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"vine_monitor/internal/broadcast"
	"vine_monitor/internal/notify"
	"vine_monitor/internal/storage"
)

const (
	// Retention is how long a hidden asin is kept before age-based GC drops it.
	Retention = 90 * 24 * time.Hour

	// DefaultSettleDelay separates the quota warning from the first deletion.
	DefaultSettleDelay = 500 * time.Millisecond

	// Valid range of the cache budget, in MiB.
	MinCacheSizeMiB = 2
	MaxCacheSizeMiB = 9

	ageGCInterval = 24 * time.Hour
	batchSize     = 1000
	lastGCKey     = "hiddenTab.lastGC"
	mib           = 1 << 20
)

// errUnchanged aborts a storage update that would rewrite the same list.
var errUnchanged = errors.New("unchanged")

// GCConfig controls garbage collection. A CacheSizeMiB outside
// [MinCacheSizeMiB, MaxCacheSizeMiB] disables GC entirely.
type GCConfig struct {
	CacheSizeMiB float64
	SettleDelay  time.Duration
}

// Enabled reports whether the cache budget is within the valid range.
func (c GCConfig) Enabled() bool {
	return c.CacheSizeMiB >= MinCacheSizeMiB && c.CacheSizeMiB <= MaxCacheSizeMiB
}

// CollectGarbage drops expired entries (at most once a day) and, when the
// store is over budget, deletes the oldest entries until it is at least
// 1 MiB under budget. Evicted asins are dropped by the other contexts too.
func (s *Store) CollectGarbage(ctx context.Context) error {
	s.mu.Lock()
	err := s.collectLocked(ctx)
	evicted := s.takeEvictedLocked()
	s.mu.Unlock()

	s.publishEvicted(evicted)
	return err
}

func (s *Store) collectLocked(ctx context.Context) error {
	if !s.gc.Enabled() || s.collecting {
		return nil
	}
	s.collecting = true
	defer func() { s.collecting = false }()

	// Pick up entries other contexts persisted since our last load.
	raw, found, err := s.storage.Get(ctx, storageKey)
	if err != nil {
		return fmt.Errorf("reload hidden items: %w", err)
	}
	s.mergeLocked(decodeStored(raw, found), nil)

	if err := s.expireLocked(ctx); err != nil {
		return err
	}
	return s.trimLocked(ctx)
}

func (s *Store) expireLocked(ctx context.Context) error {
	now := s.now()

	raw, found, err := s.storage.Get(ctx, lastGCKey)
	if err != nil {
		return fmt.Errorf("read last gc: %w", err)
	}
	last, perr := strconv.ParseInt(raw, 10, 64)
	if !found || perr != nil {
		return s.storage.Set(ctx, lastGCKey, strconv.FormatInt(now.Unix(), 10))
	}
	if !time.Unix(last, 0).Before(now.Add(-ageGCInterval)) {
		return nil
	}

	expired := now.Add(-Retention)
	drop := make(map[string]struct{})
	restamped := 0
	err = s.storage.Update(ctx, storageKey, func(old string, found bool) (string, error) {
		s.mergeLocked(decodeStored(old, found), drop)
		for asin, t := range s.items {
			switch {
			case t.IsZero():
				s.items[asin] = now
				restamped++
			case t.Before(expired):
				delete(s.items, asin)
				drop[asin] = struct{}{}
			}
		}
		if len(drop) == 0 && restamped == 0 {
			return "", errUnchanged
		}
		return Encode(s.items), nil
	})
	s.evictLocked(drop)
	if !errors.Is(err, errUnchanged) {
		if err = s.afterSaveLocked(ctx, err); err != nil {
			return err
		}
	}

	if err := s.storage.Set(ctx, lastGCKey, strconv.FormatInt(now.Unix(), 10)); err != nil {
		return fmt.Errorf("write last gc: %w", err)
	}
	if len(drop) > 0 || restamped > 0 {
		s.log.Info("expired hidden items", "removed", len(drop), "restamped", restamped)
	}
	return nil
}

func (s *Store) trimLocked(ctx context.Context) error {
	used, err := s.storage.BytesInUse(ctx)
	if err != nil {
		return err
	}
	limit := int64(s.gc.CacheSizeMiB * mib)
	threshold := int64((s.gc.CacheSizeMiB - 1) * mib)
	if used <= limit {
		return nil
	}

	s.notifier.Notify(ctx, notify.Notification{
		Level: notify.LevelWarning,
		Title: "Local storage quota exceeded!",
		Content: fmt.Sprintf("You've hidden so many items that your quota in the local storage has exceeded %s. "+
			"To prevent issues, ~1MB of the oldest items are being deleted...", humanize.IBytes(uint64(limit))),
		Lifespan: 60 * time.Second,
	})

	// Peers deliver broadcasts on their own goroutines and need the lock
	// while we wait. s.collecting keeps GC from re-entering meanwhile.
	s.mu.Unlock()
	time.Sleep(s.gc.SettleDelay)
	s.mu.Lock()

	entries := s.entriesLocked()
	drop := make(map[string]struct{})
	deleted := 0
	for used > threshold && deleted < len(entries) {
		stop := min(deleted+batchSize, len(entries))
		for ; deleted < stop; deleted++ {
			delete(s.items, entries[deleted].ASIN)
			drop[entries[deleted].ASIN] = struct{}{}
		}

		err := s.storage.Update(ctx, storageKey, func(old string, found bool) (string, error) {
			s.mergeLocked(decodeStored(old, found), drop)
			return Encode(s.items), nil
		})
		if err != nil && !errors.Is(err, storage.ErrQuotaExceeded) {
			s.evictLocked(drop)
			return fmt.Errorf("persist trimmed list: %w", err)
		}
		if used, err = s.storage.BytesInUse(ctx); err != nil {
			s.evictLocked(drop)
			return err
		}
	}
	s.evictLocked(drop)

	s.log.Info("trimmed hidden items", "deleted", deleted, "bytes_in_use", used)
	s.notifier.Notify(ctx, notify.Notification{
		Level:    notify.LevelInfo,
		Title:    "Local storage quota fixed!",
		Content:  fmt.Sprintf("GC done, %d items have been deleted. Some of these items may re-appear in your listing.", deleted),
		Lifespan: 60 * time.Second,
	})
	return nil
}

// mergeLocked adds the stored entries this context does not know about,
// except those in drop.
func (s *Store) mergeLocked(stored map[string]time.Time, drop map[string]struct{}) {
	for asin, t := range stored {
		if _, ok := drop[asin]; ok {
			continue
		}
		if _, ok := s.items[asin]; !ok {
			s.items[asin] = t
		}
	}
}

func (s *Store) evictLocked(drop map[string]struct{}) {
	for asin := range drop {
		s.evicted = append(s.evicted, asin)
	}
}

func (s *Store) takeEvictedLocked() []string {
	out := s.evicted
	s.evicted = nil
	return out
}

func (s *Store) publishEvicted(asins []string) {
	if s.endpoint == nil || len(asins) == 0 {
		return
	}
	sort.Strings(asins)
	s.endpoint.Publish(broadcast.Message{Type: broadcast.EvictItems, ASINs: asins})
}
