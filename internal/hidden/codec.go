package hidden

import (
	"encoding/json"
	"strconv"
	"time"
)

// Encode serializes the hidden map as a JSON object of asin to unix seconds.
func Encode(m map[string]time.Time) string {
	obj := make(map[string]int64, len(m))
	for asin, t := range m {
		obj[asin] = t.Unix()
	}
	// A map of strings to integers always marshals.
	b, _ := json.Marshal(obj)
	return string(b)
}

// Decode parses a stored hidden map. The legacy array format is accepted
// on read; anything unreadable yields an empty map. Entries whose timestamp
// cannot be interpreted get the zero time.
func Decode(raw string) map[string]time.Time {
	if m, ok := decodeObject(raw); ok {
		return m
	}
	if m, ok := decodeLegacy(raw); ok {
		return m
	}
	return make(map[string]time.Time)
}

func decodeObject(raw string) (map[string]time.Time, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return nil, false
	}
	m := make(map[string]time.Time, len(obj))
	for asin, v := range obj {
		var secs float64
		if err := json.Unmarshal(v, &secs); err != nil {
			m[asin] = time.Time{}
			continue
		}
		m[asin] = time.Unix(int64(secs), 0)
	}
	return m, true
}

type legacyEntry struct {
	ASIN string          `json:"asin"`
	Date json.RawMessage `json:"date"`
}

func decodeLegacy(raw string) (map[string]time.Time, bool) {
	var arr []legacyEntry
	if err := json.Unmarshal([]byte(raw), &arr); err != nil || arr == nil {
		return nil, false
	}
	m := make(map[string]time.Time, len(arr))
	for _, e := range arr {
		m[e.ASIN] = parseLegacyDate(e.Date)
	}
	return m, true
}

// parseLegacyDate accepts an RFC 3339 string, a numeric string, or a number
// of epoch milliseconds.
func parseLegacyDate(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		return time.Time{}
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms))
	}
	return time.Time{}
}
