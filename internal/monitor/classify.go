package monitor

import "vine_monitor/internal/model"

// promote moves an item's class forward along regular -> zero ETV ->
// highlight. Attempts to move backward, or to stay, are ignored and
// reported as false. Highlight is absorbing.
func promote(cur, next model.Class) (model.Class, bool) {
	if next <= cur {
		return cur, false
	}
	return next, true
}

// initialClass decides the class of a newly ingested item: a keyword
// highlight wins over a zero ETV, which wins over regular.
func initialClass(kwMatch bool, etv model.ETV) model.Class {
	switch {
	case kwMatch:
		return model.ClassHighlight
	case etv.Known && etv.Min == 0:
		return model.ClassZeroETV
	default:
		return model.ClassRegular
	}
}

func etvFromEvent(ev model.Event) model.ETV {
	var etv model.ETV
	if ev.ETVMin != nil {
		etv = etv.Observe(*ev.ETVMin)
	}
	if ev.ETVMax != nil {
		etv = etv.Observe(*ev.ETVMax)
	}
	return etv
}

// reachedZero reports whether the lower bound resolved to zero with this
// observation and not before.
func reachedZero(old, cur model.ETV) bool {
	if !cur.Known || cur.Min != 0 {
		return false
	}
	return !old.Known || old.Min != 0
}
