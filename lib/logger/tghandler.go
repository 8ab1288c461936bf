package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// AdminNotifier forwards a formatted log line to the admins. Implemented by
// the bot; an interface here keeps the logger free of a bot import.
type AdminNotifier interface {
	NotifyAdmins(text string)
}

// NotifyProxy is an AdminNotifier whose target is installed later. The
// logger is built before the bot exists; records forwarded before Install
// are dropped.
type NotifyProxy struct {
	mu     sync.Mutex
	target AdminNotifier
}

func NewNotifyProxy() *NotifyProxy {
	return &NotifyProxy{}
}

func (p *NotifyProxy) Install(target AdminNotifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = target
}

func (p *NotifyProxy) NotifyAdmins(text string) {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()
	if target != nil {
		target.NotifyAdmins(text)
	}
}

// TelegramHandler is a slog.Handler that mirrors records at or above
// minLevel to the admins while delegating to the wrapped handler.
type TelegramHandler struct {
	handler  slog.Handler
	notifier AdminNotifier
	minLevel slog.Level
	mu       sync.Mutex
	attrs    []slog.Attr
	group    string
}

func NewTelegramHandler(handler slog.Handler, notifier AdminNotifier, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		notifier: notifier,
		minLevel: minLevel,
		attrs:    make([]slog.Attr, 0),
	}
}

// Enabled delegates to the wrapped handler; minLevel only gates the
// forwarding, records below it still reach the log.
func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if err != nil {
		return err
	}

	if record.Level >= h.minLevel && h.notifier != nil {
		h.mu.Lock()
		defer h.mu.Unlock()

		var msg string
		if h.group != "" {
			msg = fmt.Sprintf("%s %s.%s", record.Level.String(), h.group, record.Message)
		} else {
			msg = fmt.Sprintf("%s %s", record.Level.String(), record.Message)
		}
		for _, attr := range h.attrs {
			msg += fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)
		}
		record.Attrs(func(attr slog.Attr) bool {
			msg += fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)
			return true
		})

		h.notifier.NotifyAdmins(msg)
	}

	return nil
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    newAttrs,
		group:    h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}
