package services

import (
	"context"
	"log"
)

// Notifier fans batched notifications out to this bot's operator chats.
// Admins are the full operators channel; watchers get only what the core
// explicitly addresses to them (confirmed claims, shutdown notices).
type Notifier struct {
	Registry *Registry
	Telegram *TelegramClient
}

func NewNotifier(registry *Registry, telegram *TelegramClient) *Notifier {
	return &Notifier{Registry: registry, Telegram: telegram}
}

func (n *Notifier) NotifyAdmins(ctx context.Context, text string) {
	n.notify(ctx, text, true)
}

func (n *Notifier) NotifyWatchers(ctx context.Context, text string) {
	n.notify(ctx, text, false)
}

// Flush drains the shared buffer and delivers both batches.
func (n *Notifier) Flush(ctx context.Context, batch *Notifications) {
	admins, watchers := batch.Drain()
	for _, msg := range admins {
		n.NotifyAdmins(ctx, msg)
	}
	for _, msg := range watchers {
		n.NotifyWatchers(ctx, msg)
	}
}

func (n *Notifier) notify(ctx context.Context, text string, admins bool) {
	cur := n.Registry.CurBot()
	if cur == nil || !n.Telegram.Enabled() {
		return
	}
	for _, user := range cur.Users {
		if user.IsAdmin != admins {
			continue
		}
		if err := n.Telegram.SendMessage(ctx, user.ChatID, text); err != nil {
			log.Printf("❌ [NOTIFY] send to %s failed: %v", user.ChatID, err)
		}
	}
}
