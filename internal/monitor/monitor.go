// Package monitor keeps the live notification feed: it classifies incoming
// items, accumulates their ETV windows, orders them and recomputes their
// visibility against the current filter criteria.
package monitor

import (
	"context"
	"log/slog"
	"sync"

	"vine_monitor/internal/filter"
	"vine_monitor/internal/model"
)

// Update is one rendering instruction for an item.
type Update struct {
	Item      model.Item
	Visible   bool
	Price     string
	MoveToTop bool
}

// Renderer presents the feed.
type Renderer interface {
	Render(u Update)
	Remove(asin string)
}

// Cue alerts the user that an item was assigned a class.
type Cue interface {
	Play(ctx context.Context, class model.Class, item model.Item)
}

// KeywordMatcher matches a keyword list against a title and ETV window.
type KeywordMatcher interface {
	Match(title string, etv model.ETV) (string, bool)
}

// PriceFormatter formats an ETV window for display.
type PriceFormatter interface {
	Range(etv model.ETV) string
}

// HiddenList is the user's hidden item list.
type HiddenList interface {
	IsHidden(asin string) (bool, error)
	AddItem(ctx context.Context, asin string) error
}

// Options configures a Monitor. Nil collaborators are skipped.
type Options struct {
	Highlight KeywordMatcher
	Hide      KeywordMatcher
	Renderer  Renderer
	Cue       Cue
	Prices    PriceFormatter
	Hidden    HiddenList

	HideDuplicateThumbnail bool
	AutoTruncate           bool
	AutoTruncateMax        int
}

// Monitor owns the live feed. It is safe for concurrent use; collaborators
// are called after the internal lock is released.
type Monitor struct {
	mu          sync.Mutex
	opts        Options
	items       map[string]*model.Item
	order       feedOrder
	images      map[string]struct{}
	criteria    model.FilterCriteria
	paused      bool
	pausedCount int
	log         *slog.Logger
}

// New returns an empty Monitor.
func New(opts Options, log *slog.Logger) *Monitor {
	return &Monitor{
		opts:   opts,
		items:  make(map[string]*model.Item),
		images: make(map[string]struct{}),
		log:    log,
	}
}

type cue struct {
	class model.Class
	item  model.Item
}

// effects collects collaborator calls made under the lock.
type effects struct {
	updates []Update
	removed []string
	cues    []cue
}

func (m *Monitor) flush(ctx context.Context, fx effects) {
	if r := m.opts.Renderer; r != nil {
		for _, asin := range fx.removed {
			r.Remove(asin)
		}
		for _, u := range fx.updates {
			r.Render(u)
		}
	}
	if c := m.opts.Cue; c != nil {
		for _, q := range fx.cues {
			c.Play(ctx, q.class, q.item)
		}
	}
}

func (m *Monitor) updateLocked(it *model.Item, moved bool) Update {
	u := Update{
		Item:      *it,
		Visible:   filter.Visible(m.criteria, *it),
		MoveToTop: moved,
	}
	if m.opts.Prices != nil {
		u.Price = m.opts.Prices.Range(it.ETV)
	}
	return u
}

// AddItem ingests a new item at the front of the feed. Re-adding a known
// asin replaces it. It reports false when the item was dropped.
func (m *Monitor) AddItem(ctx context.Context, ev model.Event) bool {
	if ev.ASIN == "" {
		return false
	}

	if m.opts.Hidden != nil {
		hidden, err := m.opts.Hidden.IsHidden(ev.ASIN)
		if err != nil {
			m.log.Warn("check hidden", "asin", ev.ASIN, "error", err)
		}
		if hidden {
			m.log.Debug("skipping hidden item", "asin", ev.ASIN)
			return false
		}
	}

	m.mu.Lock()
	var fx effects

	if _, ok := m.items[ev.ASIN]; ok {
		m.removeLocked(ev.ASIN)
		fx.removed = append(fx.removed, ev.ASIN)
	}

	if m.opts.HideDuplicateThumbnail {
		if _, seen := m.images[ev.ImageURL]; seen {
			m.mu.Unlock()
			m.flush(ctx, fx)
			m.log.Debug("skipping duplicate thumbnail", "asin", ev.ASIN)
			return false
		}
		m.images[ev.ImageURL] = struct{}{}
	}

	it := &model.Item{
		ASIN:           ev.ASIN,
		Queue:          ev.Queue,
		ReceivedAt:     ev.ReceivedAt,
		Title:          ev.Title,
		ImageURL:       ev.ImageURL,
		IsParentASIN:   ev.IsParentASIN,
		EnrollmentGUID: ev.EnrollmentGUID,
		Reason:         ev.Reason,
		ETV:            etvFromEvent(ev),
		HighlightKW:    ev.HighlightKW,
		BlurKW:         ev.BlurKW,
		Blurred:        ev.BlurKWsMatch,
		Unavailable:    ev.Unavailable,
		Paused:         m.paused,
	}
	it.Class = initialClass(ev.KWsMatch, it.ETV)
	if m.paused {
		m.pausedCount++
	}

	m.items[it.ASIN] = it
	m.order.pushFront(it.ASIN)
	fx.updates = append(fx.updates, m.updateLocked(it, false))
	fx.cues = append(fx.cues, cue{class: it.Class, item: *it})

	if m.opts.AutoTruncate {
		for _, asin := range m.order.truncate(m.opts.AutoTruncateMax) {
			delete(m.items, asin)
			fx.removed = append(fx.removed, asin)
			m.log.Debug("truncating item beyond max limit", "asin", asin)
		}
	}
	m.mu.Unlock()

	m.flush(ctx, fx)
	return true
}

// SetETV merges a price observation into an item's ETV window and
// re-evaluates its class. An item matching the hide keywords is removed
// from the feed. It reports false when asin is not in the feed.
func (m *Monitor) SetETV(ctx context.Context, asin string, value float64) bool {
	m.mu.Lock()
	it, ok := m.items[asin]
	if !ok {
		m.mu.Unlock()
		return false
	}

	var fx effects
	old := it.ETV
	it.ETV = old.Observe(value)

	moved := false
	if it.Class != model.ClassHighlight {
		if kw, ok := m.match(m.opts.Highlight, it); ok {
			moved = m.classifyLocked(it, model.ClassHighlight, &fx)
			it.HighlightKW = kw
		} else if kw, ok := m.match(m.opts.Hide, it); ok {
			m.log.Info("removing item matching hide keyword", "asin", asin, "keyword", kw)
			m.removeLocked(asin)
			fx.removed = append(fx.removed, asin)
			m.mu.Unlock()
			m.flush(ctx, fx)
			return true
		} else if reachedZero(old, it.ETV) {
			moved = m.classifyLocked(it, model.ClassZeroETV, &fx)
		}
	}

	fx.updates = append(fx.updates, m.updateLocked(it, moved))
	m.mu.Unlock()

	m.flush(ctx, fx)
	return true
}

func (m *Monitor) match(km KeywordMatcher, it *model.Item) (string, bool) {
	if km == nil || it.Title == "" {
		return "", false
	}
	return km.Match(it.Title, it.ETV)
}

// classifyLocked promotes it to class, queues the cue and moves it to the
// front. It reports whether the item changed position.
func (m *Monitor) classifyLocked(it *model.Item, class model.Class, fx *effects) bool {
	next, ok := promote(it.Class, class)
	if !ok {
		return false
	}
	it.Class = next
	fx.cues = append(fx.cues, cue{class: next, item: *it})
	return m.order.moveToFront(it.ASIN)
}

// DisableItem marks an item unavailable.
func (m *Monitor) DisableItem(asin string) bool {
	m.mu.Lock()
	it, ok := m.items[asin]
	if !ok {
		m.mu.Unlock()
		return false
	}
	it.Unavailable = true
	fx := effects{updates: []Update{m.updateLocked(it, false)}}
	m.mu.Unlock()

	m.flush(context.Background(), fx)
	return true
}

// RemoveItem drops an item from the feed.
func (m *Monitor) RemoveItem(asin string) bool {
	m.mu.Lock()
	if _, ok := m.items[asin]; !ok {
		m.mu.Unlock()
		return false
	}
	m.removeLocked(asin)
	m.mu.Unlock()

	m.flush(context.Background(), effects{removed: []string{asin}})
	return true
}

// HideItem drops an item from the feed and adds it to the hidden list.
func (m *Monitor) HideItem(ctx context.Context, asin string) error {
	m.RemoveItem(asin)
	if m.opts.Hidden == nil {
		return nil
	}
	return m.opts.Hidden.AddItem(ctx, asin)
}

func (m *Monitor) removeLocked(asin string) {
	delete(m.items, asin)
	m.order.remove(asin)
}

// SetCriteria replaces the filter criteria and recomputes the visibility
// of every item.
func (m *Monitor) SetCriteria(c model.FilterCriteria) {
	m.mu.Lock()
	m.criteria = c
	fx := m.rerenderLocked()
	m.mu.Unlock()

	m.flush(context.Background(), fx)
}

// Criteria returns the current filter criteria.
func (m *Monitor) Criteria() model.FilterCriteria {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.criteria
}

func (m *Monitor) rerenderLocked() effects {
	var fx effects
	for _, asin := range m.order.asins {
		fx.updates = append(fx.updates, m.updateLocked(m.items[asin], false))
	}
	return fx
}

// Pause buffers new items: they are kept hidden until Resume.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

// Resume releases every buffered item and re-filters the feed.
func (m *Monitor) Resume() {
	m.mu.Lock()
	m.paused = false
	m.pausedCount = 0
	for _, it := range m.items {
		it.Paused = false
	}
	fx := m.rerenderLocked()
	m.mu.Unlock()

	m.flush(context.Background(), fx)
}

// Paused reports whether intake is paused and how many items were buffered.
func (m *Monitor) Paused() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused, m.pausedCount
}

// VisibleCount returns the number of items passing the current criteria.
func (m *Monitor) VisibleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		if filter.Visible(m.criteria, *it) {
			n++
		}
	}
	return n
}

// Items returns a snapshot of the feed, front first.
func (m *Monitor) Items() []model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Item, 0, len(m.order.asins))
	for _, asin := range m.order.asins {
		out = append(out, *m.items[asin])
	}
	return out
}

// Item returns the item for asin.
func (m *Monitor) Item(asin string) (model.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[asin]
	if !ok {
		return model.Item{}, false
	}
	return *it, true
}

// Visible reports whether asin is in the feed and passes the criteria.
func (m *Monitor) Visible(asin string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[asin]
	return ok && filter.Visible(m.criteria, *it)
}

// LogRenderer is a Renderer that writes feed changes to a logger.
type LogRenderer struct {
	Log *slog.Logger
}

func (r LogRenderer) Render(u Update) {
	r.Log.Debug("render item",
		"asin", u.Item.ASIN,
		"class", u.Item.Class.String(),
		"visible", u.Visible,
		"price", u.Price,
		"move_to_top", u.MoveToTop,
	)
}

func (r LogRenderer) Remove(asin string) {
	r.Log.Debug("remove item", "asin", asin)
}
