package workers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payout-claim-bot/models"
	"payout-claim-bot/services"
)

// fakeChatRegistry is an in-memory ChatRegistry recording every mutation.
type fakeChatRegistry struct {
	cur         *models.Bot
	runningSet  []bool
	limitSet    []int
	minSet      []int64
	maxSet      []int64
	offsets     []int64
	added       [][2]string
	botReloads  int
	userReloads int
}

func (f *fakeChatRegistry) CurBot() *models.Bot {
	if f.cur == nil {
		return nil
	}
	bot := *f.cur
	return &bot
}

func (f *fakeChatRegistry) SetUpdateOffset(v int64) error {
	f.offsets = append(f.offsets, v)
	f.cur.UpdateOffset = v
	return nil
}

func (f *fakeChatRegistry) SetIsRunning(v bool) error {
	f.runningSet = append(f.runningSet, v)
	f.cur.IsRunning = v
	return nil
}

func (f *fakeChatRegistry) SetMinAmount(v int64) error {
	f.minSet = append(f.minSet, v)
	f.cur.MinAmount = v
	return nil
}

func (f *fakeChatRegistry) SetMaxAmount(v int64) error {
	f.maxSet = append(f.maxSet, v)
	f.cur.MaxAmount = v
	return nil
}

func (f *fakeChatRegistry) SetPayoutsLimit(v int) error {
	f.limitSet = append(f.limitSet, v)
	f.cur.PayoutsLimit = v
	return nil
}

func (f *fakeChatRegistry) AddUser(name, chatID string) error {
	f.added = append(f.added, [2]string{name, chatID})
	return nil
}

func (f *fakeChatRegistry) LoadBots() error {
	f.botReloads++
	return nil
}

func (f *fakeChatRegistry) LoadUsers() error {
	f.userReloads++
	return nil
}

func newChatFixture(t *testing.T, users ...models.User) (*UpdatesWorker, *fakeChatRegistry, *[]string) {
	t.Helper()

	var sent []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			sent = append(sent, r.PostForm.Get("text"))
		}
		w.Write([]byte(`{"ok": true, "result": []}`))
	}))
	t.Cleanup(server.Close)

	registry := &fakeChatRegistry{
		cur: &models.Bot{
			ID:           1,
			BotName:      "alpha",
			MinAmount:    10_000,
			MaxAmount:    80_000,
			PayoutsLimit: 5,
			Users:        users,
		},
	}
	telegram := services.NewTelegramClient("test-token")
	telegram.BaseURL = server.URL

	return NewUpdatesWorker(registry, telegram, nil, nil), registry, &sent
}

func chatMessage(chatID int64, text string) *services.TgMessage {
	return &services.TgMessage{Text: text, Chat: services.TgChat{ID: chatID}}
}

func TestUpdatesWorker_Dispatch(t *testing.T) {
	ctx := context.Background()
	admin := models.User{Name: "Pete", ChatID: "777", IsAdmin: true}
	watcher := models.User{Name: "Ann", ChatID: "888"}

	t.Run("Given a registered admin When /run arrives Then the flag is set and acked", func(t *testing.T) {
		worker, registry, sent := newChatFixture(t, admin)

		worker.handle(ctx, chatMessage(777, "/run"))

		if len(registry.runningSet) != 1 || !registry.runningSet[0] {
			t.Fatalf("running flag writes = %v, want one true", registry.runningSet)
		}
		if len(*sent) != 1 || (*sent)[0] != "Started the loop" {
			t.Errorf("replies = %v, want the start ack", *sent)
		}
	})

	t.Run("Given an unregistered chat When a command arrives Then it is ignored", func(t *testing.T) {
		worker, registry, sent := newChatFixture(t, admin)

		worker.handle(ctx, chatMessage(12345, "/run"))

		if len(registry.runningSet) != 0 {
			t.Errorf("running flag writes = %v, want none", registry.runningSet)
		}
		if len(*sent) != 0 {
			t.Errorf("replies = %v, want none", *sent)
		}
	})

	t.Run("Given a watcher When a mutating command arrives Then it is ignored", func(t *testing.T) {
		worker, registry, sent := newChatFixture(t, watcher)

		worker.handle(ctx, chatMessage(888, "/set_payouts_limit 3"))

		if len(registry.limitSet) != 0 {
			t.Errorf("limit writes = %v, want none", registry.limitSet)
		}
		if len(*sent) != 0 {
			t.Errorf("replies = %v, want none", *sent)
		}
	})

	t.Run("Given an admin /set_min_amount When dispatched Then persists and echoes", func(t *testing.T) {
		worker, registry, sent := newChatFixture(t, admin)

		worker.handle(ctx, chatMessage(777, "/set_min_amount 50 000"))

		if len(registry.minSet) != 1 || registry.minSet[0] != 50_000 {
			t.Fatalf("min amount writes = %v, want one 50000", registry.minSet)
		}
		if len(*sent) != 1 || !strings.Contains((*sent)[0], "50 000") {
			t.Errorf("replies = %v, want the echoed value", *sent)
		}
	})

	t.Run("Given an admin /add_user When dispatched Then attaches and reloads", func(t *testing.T) {
		worker, registry, sent := newChatFixture(t, admin)

		worker.handle(ctx, chatMessage(777, "/add_user Ann 888"))

		if len(registry.added) != 1 || registry.added[0] != [2]string{"Ann", "888"} {
			t.Fatalf("added users = %v, want Ann/888", registry.added)
		}
		if registry.botReloads != 1 || registry.userReloads != 1 {
			t.Errorf("reloads = %d bots / %d users, want 1/1", registry.botReloads, registry.userReloads)
		}
		if len(*sent) != 1 || (*sent)[0] != "User registered" {
			t.Errorf("replies = %v, want the registration ack", *sent)
		}
	})

	t.Run("Given an attached user after a reload When commanding Then it is heard", func(t *testing.T) {
		worker, registry, sent := newChatFixture(t)

		// Unattached chat is silent.
		worker.handle(ctx, chatMessage(888, "/status"))
		if len(*sent) != 0 {
			t.Fatalf("replies before attach = %v, want none", *sent)
		}

		// A registry reload picks up the attached user.
		registry.cur.Users = []models.User{watcher}
		worker.handle(ctx, chatMessage(888, "/status"))
		if len(*sent) != 1 || !strings.Contains((*sent)[0], "Loop running") {
			t.Errorf("replies after attach = %v, want the status report", *sent)
		}
	})
}
