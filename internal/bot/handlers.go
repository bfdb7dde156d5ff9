package bot

import (
	"context"
	"fmt"
	"time"

	"vine_monitor/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Vine Monitor!

Highlighted and zero ETV items are announced here as they arrive.

Quick start:
1. /feed — show the visible items
2. /hide <asin> — never show an item again
3. /type important — only highlighted and zero ETV items

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Hidden items:
/hide <asin> — hide an item
/show <asin> — un-hide an item
/hidden — list hidden items
/gc — run hidden list garbage collection

Feed filter:
/type all|regular|zero|highlight|important — filter by class
/queue all|<queue> — filter by queue
/price <min|-> <max|-> — ETV range, or /price off
/feed — show visible items

Intake:
/pause — buffer new items
/resume — release buffered items`)
}

func (b *Bot) handleHide(ctx context.Context, chatID int64, args string) {
	asin, err := ParseASIN(args)
	if err != nil {
		b.reply(chatID, "Usage: /hide <asin>")
		return
	}
	// The feed persists the hide in its own context; ours learns about it
	// from the broadcast.
	if err := b.feed.HideItem(ctx, asin); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to hide %s: %v", asin, err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Item %s hidden.", asin))
}

func (b *Bot) handleShow(ctx context.Context, chatID int64, args string) {
	asin, err := ParseASIN(args)
	if err != nil {
		b.reply(chatID, "Usage: /show <asin>")
		return
	}
	if err := b.hidden.RemoveItem(ctx, asin); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to show %s: %v", asin, err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Item %s is no longer hidden.", asin))
}

func (b *Bot) handleHidden(chatID int64) {
	b.reply(chatID, FormatHidden(b.hidden.Entries(), time.Now()))
}

func (b *Bot) handleType(chatID int64, args string) {
	t, err := ParseTypeArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	c := b.feed.Criteria()
	c.Type = t
	b.applyCriteria(chatID, c)
}

func (b *Bot) handleQueue(chatID int64, args string) {
	q, err := ParseQueueArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	c := b.feed.Criteria()
	c.Queue = q
	b.applyCriteria(chatID, c)
}

func (b *Bot) handlePrice(chatID int64, args string) {
	min, max, err := ParsePriceArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	c := b.feed.Criteria()
	c.MinPrice, c.MaxPrice = min, max
	b.applyCriteria(chatID, c)
}

func (b *Bot) applyCriteria(chatID int64, c model.FilterCriteria) {
	b.feed.SetCriteria(c)
	b.reply(chatID, fmt.Sprintf("%s\n\n%d visible items.", FormatCriteria(c), b.feed.VisibleCount()))
}

func (b *Bot) handlePause(chatID int64) {
	b.feed.Pause()
	b.reply(chatID, "Feed paused. New items are buffered until /resume.")
}

func (b *Bot) handleResume(chatID int64) {
	_, buffered := b.feed.Paused()
	b.feed.Resume()
	b.reply(chatID, fmt.Sprintf("Feed resumed, %d buffered items released.", buffered))
}

func (b *Bot) handleFeed(chatID int64) {
	text := FormatFeed(b.feed.Items(), b.feed.Visible, b.prices)
	if paused, buffered := b.feed.Paused(); paused {
		text += fmt.Sprintf("\n\nResume Feed (%d)", buffered)
	}
	b.reply(chatID, fmt.Sprintf("VHNM (%d)\n\n%s", b.feed.VisibleCount(), text))
}

func (b *Bot) handleGC(ctx context.Context, chatID int64) {
	if err := b.hidden.CollectGarbage(ctx); err != nil {
		b.reply(chatID, fmt.Sprintf("Garbage collection failed: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Garbage collection done, %d hidden items.", len(b.hidden.Entries())))
}
