// Package scheduler polls the notification feed and drives the monitor.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"vine_monitor/internal/model"
)

const (
	defaultTick       = time.Minute
	defaultGCInterval = time.Hour
)

// Source fetches the current feed contents.
type Source interface {
	Fetch(ctx context.Context) ([]model.Event, error)
}

// Feed receives ingestion events.
type Feed interface {
	AddItem(ctx context.Context, ev model.Event) bool
	SetETV(ctx context.Context, asin string, value float64) bool
	DisableItem(asin string) bool
}

// Collector runs hidden list garbage collection.
type Collector interface {
	CollectGarbage(ctx context.Context) error
}

// KeywordMatcher matches a keyword list against a title and ETV window.
type KeywordMatcher interface {
	Match(title string, etv model.ETV) (string, bool)
}

// Options configures a Scheduler. Nil matchers never match.
type Options struct {
	Highlight  KeywordMatcher
	Hide       KeywordMatcher
	Blur       KeywordMatcher
	Collector  Collector
	Tick       time.Duration
	GCInterval time.Duration
}

type seenItem struct {
	etv         model.ETV
	unavailable bool
}

// Scheduler periodically polls the feed and forwards new items, price
// observations and availability changes.
type Scheduler struct {
	source Source
	feed   Feed
	opts   Options
	log    *slog.Logger
	seen   map[string]seenItem
	lastGC time.Time
	now    func() time.Time
}

// New creates a Scheduler.
func New(src Source, feed Feed, log *slog.Logger, opts Options) *Scheduler {
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.GCInterval <= 0 {
		opts.GCInterval = defaultGCInterval
	}
	return &Scheduler{
		source: src,
		feed:   feed,
		opts:   opts,
		log:    log,
		seen:   make(map[string]seenItem),
		now:    time.Now,
	}
}

// Run starts the polling loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.Poll(ctx)

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll runs one fetch and dispatch cycle, then garbage collection when due.
func (s *Scheduler) Poll(ctx context.Context) {
	events, err := s.source.Fetch(ctx)
	if err != nil {
		s.log.Error("fetch feed", "error", err)
	} else {
		s.dispatch(ctx, events)
	}
	s.collect(ctx)
}

func (s *Scheduler) dispatch(ctx context.Context, events []model.Event) {
	added := 0
	// The feed lists newest first; ingest oldest first so the newest ends
	// up at the front.
	for i := len(events) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return
		}
		ev := events[i]
		prev, ok := s.seen[ev.ASIN]
		if !ok {
			if s.ingest(ctx, ev) {
				added++
			}
			continue
		}
		s.refresh(ctx, ev, prev)
	}
	s.prune(events)

	if added > 0 {
		s.log.Info("ingested items", "count", added)
	}
}

// prune forgets asins the feed no longer lists. An empty listing is treated
// as a glitch and keeps everything.
func (s *Scheduler) prune(events []model.Event) {
	if len(events) == 0 {
		return
	}
	listed := make(map[string]struct{}, len(events))
	for _, ev := range events {
		listed[ev.ASIN] = struct{}{}
	}
	for asin := range s.seen {
		if _, ok := listed[asin]; !ok {
			delete(s.seen, asin)
		}
	}
}

func (s *Scheduler) ingest(ctx context.Context, ev model.Event) bool {
	etv := eventETV(ev)
	s.seen[ev.ASIN] = seenItem{etv: etv, unavailable: ev.Unavailable}

	if kw, ok := match(s.opts.Hide, ev.Title, etv); ok {
		s.log.Debug("dropping item matching hide keyword", "asin", ev.ASIN, "keyword", kw)
		return false
	}
	if kw, ok := match(s.opts.Highlight, ev.Title, etv); ok {
		ev.KWsMatch = true
		ev.HighlightKW = kw
	}
	if kw, ok := match(s.opts.Blur, ev.Title, etv); ok {
		ev.BlurKWsMatch = true
		ev.BlurKW = kw
	}
	return s.feed.AddItem(ctx, ev)
}

func (s *Scheduler) refresh(ctx context.Context, ev model.Event, prev seenItem) {
	cur := prev
	for _, v := range []*float64{ev.ETVMin, ev.ETVMax} {
		if v == nil {
			continue
		}
		next := cur.etv.Observe(*v)
		if next != cur.etv {
			cur.etv = next
			s.feed.SetETV(ctx, ev.ASIN, *v)
		}
	}
	if ev.Unavailable && !prev.unavailable {
		cur.unavailable = true
		s.feed.DisableItem(ev.ASIN)
	}
	s.seen[ev.ASIN] = cur
}

func (s *Scheduler) collect(ctx context.Context) {
	if s.opts.Collector == nil {
		return
	}
	now := s.now()
	if !s.lastGC.IsZero() && now.Sub(s.lastGC) < s.opts.GCInterval {
		return
	}
	s.lastGC = now
	if err := s.opts.Collector.CollectGarbage(ctx); err != nil {
		s.log.Error("collect garbage", "error", err)
	}
}

func eventETV(ev model.Event) model.ETV {
	var etv model.ETV
	for _, v := range []*float64{ev.ETVMin, ev.ETVMax} {
		if v != nil {
			etv = etv.Observe(*v)
		}
	}
	return etv
}

func match(km KeywordMatcher, title string, etv model.ETV) (string, bool) {
	if km == nil || title == "" {
		return "", false
	}
	return km.Match(title, etv)
}
