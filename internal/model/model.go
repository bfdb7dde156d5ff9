// Package model defines the domain types used across the application.
package model

import "time"

// Class is the importance class of a notification item.
type Class int

// Supported importance classes. The numeric values match the ones used by
// the remote service and the sound settings.
const (
	ClassRegular   Class = 0
	ClassZeroETV   Class = 1
	ClassHighlight Class = 2
)

func (c Class) String() string {
	switch c {
	case ClassZeroETV:
		return "zero_etv"
	case ClassHighlight:
		return "highlight"
	default:
		return "regular"
	}
}

// ETV is the observed estimated-tax-value window of an item.
// Min and Max are meaningful only when Known is true.
type ETV struct {
	Min   float64
	Max   float64
	Known bool
}

// Observe widens the window so that it contains v.
func (e ETV) Observe(v float64) ETV {
	if !e.Known {
		return ETV{Min: v, Max: v, Known: true}
	}
	if v < e.Min {
		e.Min = v
	}
	if v > e.Max {
		e.Max = v
	}
	return e
}

// Item is a live notification in the feed.
type Item struct {
	ASIN           string
	Queue          string
	ReceivedAt     time.Time
	Title          string
	ImageURL       string
	IsParentASIN   bool
	EnrollmentGUID string
	Reason         string
	ETV            ETV
	Class          Class
	HighlightKW    string
	BlurKW         string
	Blurred        bool
	Unavailable    bool
	Paused         bool
}

// TypeFilter selects items by importance class.
type TypeFilter int

// Supported type filters. The zero value shows every item.
const (
	TypeShowAll TypeFilter = iota
	TypeRegular
	TypeZeroETV
	TypeHighlight
	TypeHighlightOrZeroETV
)

// QueueShowAll disables queue filtering.
const QueueShowAll = ""

// FilterCriteria is the user-adjustable feed filter. A nil price bound is
// unset; with both bounds unset price filtering is disabled.
type FilterCriteria struct {
	Type     TypeFilter
	Queue    string
	MinPrice *float64
	MaxPrice *float64
}

// HasPriceFilter reports whether the user supplied at least one price bound.
func (c FilterCriteria) HasPriceFilter() bool {
	return c.MinPrice != nil || c.MaxPrice != nil
}

// Change is a pending hide/show change awaiting remote sync.
type Change struct {
	ASIN   string `json:"asin"`
	Hidden bool   `json:"hidden"`
}

// Event is a new-item notification produced by the ingestion source.
type Event struct {
	ASIN           string
	Queue          string
	ReceivedAt     time.Time
	Title          string
	ImageURL       string
	IsParentASIN   bool
	EnrollmentGUID string
	ETVMin         *float64
	ETVMax         *float64
	Reason         string
	HighlightKW    string
	KWsMatch       bool
	BlurKW         string
	BlurKWsMatch   bool
	Unavailable    bool
}
