package models

import "time"

// Bot is one acting identity against the processor. Several rows may exist,
// each run by its own process; they share the claim ledger and coordinate
// only through it. The row doubles as the identity's persisted run state:
// amount bounds, per-cycle claim limit, running flag, session cookie and the
// chat-update cursor all live here and survive restarts.
type Bot struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	BotName             string `gorm:"uniqueIndex;not null" json:"bot_name"`
	TgBotToken          string `json:"-"`
	AuthCookie          string `json:"-"`
	MinAmount           int64  `gorm:"not null;default:50000" json:"min_amount"`
	MaxAmount           int64  `gorm:"not null;default:80000" json:"max_amount"`
	PayoutsLimit        int    `gorm:"not null;default:10" json:"payouts_limit"`
	IsRunning           bool   `gorm:"not null;default:false" json:"is_running"`
	ClaimedPayoutsCount int    `gorm:"not null;default:0" json:"claimed_payouts_count"`
	UpdateOffset        int64  `gorm:"not null;default:0" json:"update_offset"`

	Users []User `gorm:"many2many:bot_users;" json:"users,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Bot) TableName() string { return "bots" }

// CoversAmount reports whether the bot's configured range admits the amount.
func (b *Bot) CoversAmount(amount int64) bool {
	return b.MinAmount <= amount && amount <= b.MaxAmount
}
