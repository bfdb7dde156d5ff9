package monitor

import "slices"

// feedOrder keeps the feed's asins front-first.
type feedOrder struct {
	asins []string
}

func (o *feedOrder) pushFront(asin string) {
	o.asins = slices.Insert(o.asins, 0, asin)
}

// moveToFront relocates asin to the front. It reports false when asin is
// already frontmost or not in the feed.
func (o *feedOrder) moveToFront(asin string) bool {
	i := slices.Index(o.asins, asin)
	if i <= 0 {
		return false
	}
	copy(o.asins[1:i+1], o.asins[:i])
	o.asins[0] = asin
	return true
}

func (o *feedOrder) remove(asin string) {
	if i := slices.Index(o.asins, asin); i >= 0 {
		o.asins = slices.Delete(o.asins, i, i+1)
	}
}

// truncate drops asins beyond max from the back and returns them.
func (o *feedOrder) truncate(max int) []string {
	if max <= 0 || len(o.asins) <= max {
		return nil
	}
	dropped := slices.Clone(o.asins[max:])
	o.asins = o.asins[:max]
	return dropped
}

func (o *feedOrder) list() []string {
	return slices.Clone(o.asins)
}
