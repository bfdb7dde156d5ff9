// Package filter implements the feed visibility predicate and the keyword
// matcher used for highlight, hide and blur lists.
package filter

import "vine_monitor/internal/model"

// Visible reports whether item passes criteria. Rules are evaluated in
// order and the first failing rule hides the item.
func Visible(c model.FilterCriteria, item model.Item) bool {
	if item.Paused {
		return false
	}
	if !matchType(c.Type, item.Class) {
		return false
	}
	if c.Queue != model.QueueShowAll && c.Queue != item.Queue {
		return false
	}
	if !c.HasPriceFilter() {
		return true
	}
	if !item.ETV.Known {
		return false
	}
	// Containment, not overlap: a window reaching outside either bound is
	// hidden.
	if c.MinPrice != nil && item.ETV.Min < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && item.ETV.Max > *c.MaxPrice {
		return false
	}
	return true
}

func matchType(t model.TypeFilter, class model.Class) bool {
	switch t {
	case model.TypeShowAll:
		return true
	case model.TypeHighlightOrZeroETV:
		return class == model.ClassHighlight || class == model.ClassZeroETV
	case model.TypeRegular:
		return class == model.ClassRegular
	case model.TypeZeroETV:
		return class == model.ClassZeroETV
	case model.TypeHighlight:
		return class == model.ClassHighlight
	}
	return false
}
