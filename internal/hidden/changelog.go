package hidden

import "vine_monitor/internal/model"

// ChangeLog is the outbox of hide/show changes awaiting remote sync. It
// keeps at most one record per asin.
type ChangeLog struct {
	changes []model.Change
	index   map[string]int
}

// Record upserts the change for asin.
func (l *ChangeLog) Record(asin string, hidden bool) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	c := model.Change{ASIN: asin, Hidden: hidden}
	if i, ok := l.index[asin]; ok {
		l.changes[i] = c
		return
	}
	l.index[asin] = len(l.changes)
	l.changes = append(l.changes, c)
}

// Len returns the number of pending changes.
func (l *ChangeLog) Len() int {
	return len(l.changes)
}

// Pending returns a copy of the pending changes.
func (l *ChangeLog) Pending() []model.Change {
	return append([]model.Change(nil), l.changes...)
}

// Drain returns the pending changes and empties the log.
func (l *ChangeLog) Drain() []model.Change {
	out := l.changes
	l.changes = nil
	l.index = nil
	return out
}
