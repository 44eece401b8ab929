package services

import (
	"testing"

	"payout-claim-bot/models"
)

func newCachedRegistry() *Registry {
	r := &Registry{botName: "alpha"}
	r.bots = []models.Bot{
		{
			ID:           1,
			BotName:      "alpha",
			MinAmount:    10_000,
			MaxAmount:    80_000,
			PayoutsLimit: 5,
			IsRunning:    true,
			AuthCookie:   "alpha-cookie",
		},
		{
			ID:           2,
			BotName:      "beta",
			MinAmount:    80_001,
			MaxAmount:    150_000,
			PayoutsLimit: 5,
			IsRunning:    true,
			AuthCookie:   "beta-cookie",
		},
	}
	r.curBot = &r.bots[0]
	r.anyActive = true
	r.minAmount, r.maxAmount = 10_000, 150_000
	return r
}

func TestRegistrySnapshots(t *testing.T) {
	t.Run("Given the cached own row When read Then a later write does not show through", func(t *testing.T) {
		r := newCachedRegistry()

		got := r.CurBot()
		if got == nil {
			t.Fatal("CurBot returned nil for a loaded registry")
		}
		if got == &r.bots[0] {
			t.Fatal("CurBot handed out the cached struct itself")
		}

		// The setters mutate the cached struct in place.
		r.curBot.PayoutsLimit = 99
		if got.PayoutsLimit != 5 {
			t.Errorf("snapshot PayoutsLimit = %d, want the value at read time (5)", got.PayoutsLimit)
		}
	})

	t.Run("Given a matching peer When picked by amount Then the snapshot is detached", func(t *testing.T) {
		r := newCachedRegistry()

		got := r.BotByAmount(100_000)
		if got == nil || got.BotName != "beta" {
			t.Fatalf("BotByAmount = %+v, want the beta row", got)
		}
		if got == &r.bots[1] {
			t.Fatal("BotByAmount handed out the cached struct itself")
		}

		r.bots[1].AuthCookie = "rotated"
		if got.AuthCookie != "beta-cookie" {
			t.Errorf("snapshot AuthCookie = %q, want the value at read time", got.AuthCookie)
		}
	})

	t.Run("Given no running bot covers the amount When picked Then nil", func(t *testing.T) {
		r := newCachedRegistry()
		if got := r.BotByAmount(1_000_000); got != nil {
			t.Errorf("BotByAmount = %+v, want nil", got)
		}
	})

	t.Run("Given the cached rows When listed Then the slice is a copy", func(t *testing.T) {
		r := newCachedRegistry()

		bots := r.Bots()
		if len(bots) != 2 {
			t.Fatalf("Bots() returned %d rows, want 2", len(bots))
		}
		bots[0].BotName = "mutated"
		if r.bots[0].BotName != "alpha" {
			t.Error("mutating the returned slice reached the cache")
		}
	})

	t.Run("Given an empty registry When read Then CurBot is nil", func(t *testing.T) {
		r := &Registry{botName: "alpha"}
		if got := r.CurBot(); got != nil {
			t.Errorf("CurBot = %+v, want nil before the first load", got)
		}
	})
}
