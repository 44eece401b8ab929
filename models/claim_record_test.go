package models

import (
	"testing"
	"time"
)

func TestActionLabel(t *testing.T) {
	cases := []struct {
		action int
		want   string
	}{
		{ActionSuccess, "Claimed"},
		{ActionFail, "Not claimed"},
	}
	for _, c := range cases {
		if got := ActionLabel(c.action); got != c.want {
			t.Errorf("ActionLabel(%d) = %q, want %q", c.action, got, c.want)
		}
	}
}

func TestDayBounds(t *testing.T) {
	t.Run("Given a mid-day timestamp When bounded Then spans that calendar day", func(t *testing.T) {
		day := time.Date(2026, 5, 1, 15, 42, 7, 0, time.UTC)
		from, to := dayBounds(day)
		if !from.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("from = %v", from)
		}
		if !to.Equal(time.Date(2026, 5, 1, 23, 59, 59, 0, time.UTC)) {
			t.Errorf("to = %v", to)
		}
	})
}

func TestBotCoversAmount(t *testing.T) {
	bot := Bot{MinAmount: 10_000, MaxAmount: 80_000}
	cases := []struct {
		amount int64
		want   bool
	}{
		{9_999, false},
		{10_000, true},
		{80_000, true},
		{80_001, false},
	}
	for _, c := range cases {
		if got := bot.CoversAmount(c.amount); got != c.want {
			t.Errorf("CoversAmount(%d) = %v, want %v", c.amount, got, c.want)
		}
	}
}
