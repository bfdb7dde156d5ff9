// Package bot is the Telegram front-end of the monitor: it alerts on
// important items, relays notifications and accepts hide/show and filter
// commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vine_monitor/internal/config"
	"vine_monitor/internal/hidden"
	"vine_monitor/internal/model"
	"vine_monitor/internal/notify"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Feed is the live feed the bot controls.
type Feed interface {
	Items() []model.Item
	VisibleCount() int
	Visible(asin string) bool
	RemoveItem(asin string) bool
	HideItem(ctx context.Context, asin string) error
	Criteria() model.FilterCriteria
	SetCriteria(c model.FilterCriteria)
	Pause()
	Resume()
	Paused() (bool, int)
}

// HiddenList is the bot's own context of the hidden item store.
type HiddenList interface {
	RemoveItem(ctx context.Context, asin string) error
	Entries() []hidden.Entry
	CollectGarbage(ctx context.Context) error
}

// PriceFormatter formats an ETV window for display.
type PriceFormatter interface {
	Range(etv model.ETV) string
}

// Bot is the Telegram bot that handles user commands and sends alerts.
type Bot struct {
	api    telegramAPI
	cfg    *config.Config
	feed   Feed
	hidden HiddenList
	prices PriceFormatter
	log    *slog.Logger
}

// New creates a Bot with the given Telegram token and config.
func New(token string, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Bot{api: api, cfg: cfg, log: log}, nil
}

// Bind connects the bot to the feed and the hidden list. The monitor is
// built with the bot as its cue, so binding happens after construction.
func (b *Bot) Bind(feed Feed, hl HiddenList, prices PriceFormatter) {
	b.feed = feed
	b.hidden = hl
	b.prices = prices
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

// Notify implements notify.Notifier by messaging the configured chat.
func (b *Bot) Notify(_ context.Context, n notify.Notification) {
	b.SendMessage(b.cfg.TelegramChatID, FormatNotification(n))
}

// Play implements the monitor cue: highlighted and zero ETV items are
// announced with a Hide button. Regular items stay silent.
func (b *Bot) Play(_ context.Context, class model.Class, item model.Item) {
	if class == model.ClassRegular {
		return
	}
	price := ""
	if b.prices != nil {
		price = b.prices.Range(item.ETV)
	}
	msg := tgbotapi.NewMessage(b.cfg.TelegramChatID, FormatAlert(class, item, price, b.cfg.Country))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Hide", cbHide+":"+item.ASIN),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send alert", "asin", item.ASIN, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "hide":
		b.handleHide(ctx, chatID, args)
	case "show":
		b.handleShow(ctx, chatID, args)
	case "hidden":
		b.handleHidden(chatID)
	case "type":
		b.handleType(chatID, args)
	case "queue":
		b.handleQueue(chatID, args)
	case "price":
		b.handlePrice(chatID, args)
	case "pause":
		b.handlePause(chatID)
	case "resume":
		b.handleResume(chatID)
	case "feed":
		b.handleFeed(chatID)
	case "gc":
		b.handleGC(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
