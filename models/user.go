package models

import "time"

// User is an operator chat account. Admins may change settings and query the
// ledger; non-admin users ("watchers") only receive confirmed-claim
// notifications and the basic run/stop/status commands.
type User struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"not null" json:"name"`
	ChatID  string `gorm:"uniqueIndex;not null" json:"chat_id"`
	IsAdmin bool   `gorm:"not null;default:false" json:"is_admin"`

	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
