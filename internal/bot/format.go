package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"vine_monitor/internal/hidden"
	"vine_monitor/internal/model"
	"vine_monitor/internal/notify"
)

const listLimit = 20

// FormatNotification formats a store notification as a Telegram message.
func FormatNotification(n notify.Notification) string {
	var b strings.Builder
	switch n.Level {
	case notify.LevelWarning:
		b.WriteString("[warning] ")
	case notify.LevelError:
		b.WriteString("[error] ")
	}
	b.WriteString(n.Title)
	if n.Content != "" {
		b.WriteString("\n\n")
		b.WriteString(n.Content)
	}
	return b.String()
}

// FormatAlert formats a highlighted or zero ETV item.
func FormatAlert(class model.Class, item model.Item, price, country string) string {
	var b strings.Builder
	switch class {
	case model.ClassHighlight:
		b.WriteString("Highlighted item")
		if item.HighlightKW != "" {
			fmt.Fprintf(&b, " (%s)", item.HighlightKW)
		}
	case model.ClassZeroETV:
		b.WriteString("Zero ETV item")
	default:
		b.WriteString("New item")
	}
	if item.Queue != "" {
		fmt.Fprintf(&b, " [%s]", item.Queue)
	}
	b.WriteString("\n\n")
	b.WriteString(itemTitle(item))
	if price != "" {
		fmt.Fprintf(&b, "\nETV: %s", price)
	}
	if item.Unavailable {
		b.WriteString("\nUnavailable")
	}
	fmt.Fprintf(&b, "\n\nhttps://www.amazon.%s/dp/%s", country, item.ASIN)
	return b.String()
}

// FormatFeed formats the visible part of the feed, front first.
func FormatFeed(items []model.Item, visible func(string) bool, prices PriceFormatter) string {
	var b strings.Builder
	shown := 0
	for _, it := range items {
		if !visible(it.ASIN) {
			continue
		}
		if shown == listLimit {
			b.WriteString("...\n")
			break
		}
		shown++
		fmt.Fprintf(&b, "%s %s  %s", classMark(it.Class), it.ASIN, itemTitle(it))
		if prices != nil {
			if p := prices.Range(it.ETV); p != "" {
				fmt.Fprintf(&b, "  (%s)", p)
			}
		}
		b.WriteString("\n")
	}
	if shown == 0 {
		return "No visible items."
	}
	return b.String()
}

// FormatHidden formats the hidden list, most recently hidden first.
func FormatHidden(entries []hidden.Entry, now time.Time) string {
	if len(entries) == 0 {
		return "No hidden items."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d hidden items:\n", len(entries))
	for i := len(entries) - 1; i >= 0 && len(entries)-i <= listLimit; i-- {
		e := entries[i]
		fmt.Fprintf(&b, "\n%s  hidden %s", e.ASIN, humanize.RelTime(e.HiddenAt, now, "ago", "from now"))
	}
	if len(entries) > listLimit {
		fmt.Fprintf(&b, "\n... and %d more", len(entries)-listLimit)
	}
	return b.String()
}

// FormatCriteria describes the active filter.
func FormatCriteria(c model.FilterCriteria) string {
	queue := c.Queue
	if queue == model.QueueShowAll {
		queue = "all"
	}
	price := "off"
	if c.HasPriceFilter() {
		price = bound(c.MinPrice) + " to " + bound(c.MaxPrice)
	}
	return fmt.Sprintf("Type: %s\nQueue: %s\nPrice: %s", typeLabel(c.Type), queue, price)
}

func bound(v *float64) string {
	if v == nil {
		return "any"
	}
	return fmt.Sprintf("%.2f", *v)
}

func typeLabel(t model.TypeFilter) string {
	for name, v := range typeArgs {
		if v == t {
			return name
		}
	}
	return "all"
}

func classMark(c model.Class) string {
	switch c {
	case model.ClassHighlight:
		return "[H]"
	case model.ClassZeroETV:
		return "[0]"
	default:
		return "[ ]"
	}
}

func itemTitle(it model.Item) string {
	if it.Blurred {
		return "(blurred)"
	}
	return it.Title
}
