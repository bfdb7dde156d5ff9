// Package notify delivers user-visible notifications.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Level is the severity of a notification.
type Level int

// Notification levels.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Notification is a single user-visible message.
type Notification struct {
	Level    Level
	Title    string
	Content  string
	Lifespan time.Duration
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Log writes notifications to a structured logger.
type Log struct {
	log *slog.Logger
}

// NewLog creates a Notifier backed by log.
func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

// Notify logs n at a level matching its severity.
func (l *Log) Notify(ctx context.Context, n Notification) {
	lvl := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		lvl = slog.LevelWarn
	case LevelError:
		lvl = slog.LevelError
	}
	l.log.Log(ctx, lvl, n.Title, "content", n.Content)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify delivers n to every notifier in order.
func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		x.Notify(ctx, n)
	}
}
