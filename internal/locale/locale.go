// Package locale formats prices and sizes for display.
package locale

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"vine_monitor/internal/model"
)

// Formatter formats amounts in one currency for one language.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// New returns a Formatter for the BCP 47 tag lang and the ISO 4217 code cur.
func New(lang, cur string) (*Formatter, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", lang, err)
	}
	unit, err := currency.ParseISO(cur)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", cur, err)
	}
	return &Formatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// Price formats a single amount.
func (f *Formatter) Price(v float64) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(v)))
}

// Range formats an ETV window: a single value when min equals max,
// otherwise "min-max". An unknown window yields an empty string.
func (f *Formatter) Range(etv model.ETV) string {
	if !etv.Known {
		return ""
	}
	if etv.Min == etv.Max {
		return f.Price(etv.Min)
	}
	return f.Price(etv.Min) + "-" + f.Price(etv.Max)
}

// Bytes formats a byte count in binary units.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
