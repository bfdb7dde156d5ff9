package filter

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"vine_monitor/internal/model"
)

// Keyword is one entry of a highlight, hide or blur list.
type Keyword struct {
	Contains string   `toml:"contains"`
	Without  string   `toml:"without"`
	ETVMin   *float64 `toml:"etv_min"`
	ETVMax   *float64 `toml:"etv_max"`
}

type compiled struct {
	kw      Keyword
	contain *regexp.Regexp
	without *regexp.Regexp
}

// Matcher evaluates a keyword list against item titles.
type Matcher struct {
	keywords []compiled
}

// NewMatcher compiles keywords. Entries with an empty or invalid pattern are
// skipped.
func NewMatcher(keywords []Keyword, log *slog.Logger) *Matcher {
	m := &Matcher{}
	for _, kw := range keywords {
		if strings.TrimSpace(kw.Contains) == "" {
			continue
		}
		c := compiled{kw: kw}
		var err error
		if c.contain, err = compileWord(kw.Contains); err != nil {
			log.Warn("skipping keyword", "keyword", kw.Contains, "error", err)
			continue
		}
		if kw.Without != "" {
			if c.without, err = compileWord(kw.Without); err != nil {
				log.Warn("skipping keyword", "keyword", kw.Contains, "without", kw.Without, "error", err)
				continue
			}
		}
		m.keywords = append(m.keywords, c)
	}
	return m
}

// Len returns the number of usable keywords.
func (m *Matcher) Len() int {
	return len(m.keywords)
}

// Match returns the first keyword matching title and etv. A keyword with an
// ETV bound only matches items whose known window intersects it.
func (m *Matcher) Match(title string, etv model.ETV) (string, bool) {
	for _, c := range m.keywords {
		if !c.contain.MatchString(title) {
			continue
		}
		if c.without != nil && c.without.MatchString(title) {
			continue
		}
		if !etvInRange(c.kw, etv) {
			continue
		}
		return c.kw.Contains, true
	}
	return "", false
}

func etvInRange(kw Keyword, etv model.ETV) bool {
	if kw.ETVMin == nil && kw.ETVMax == nil {
		return true
	}
	if !etv.Known {
		return false
	}
	if kw.ETVMin != nil && etv.Max < *kw.ETVMin {
		return false
	}
	if kw.ETVMax != nil && etv.Min > *kw.ETVMax {
		return false
	}
	return true
}

func compileWord(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?i)\b(` + pattern + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return re, nil
}

// ValidateRegex checks whether a keyword pattern compiles.
func ValidateRegex(pattern string) error {
	_, err := compileWord(pattern)
	return err
}
