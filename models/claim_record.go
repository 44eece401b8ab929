package models

import (
	"time"

	"gorm.io/gorm"
)

// Claim outcome codes as stored in the ledger.
const (
	ActionSuccess = 10
	ActionFail    = 20
)

// ActionLabel is the operator-facing text for a ledger action code.
func ActionLabel(action int) string {
	if action == ActionSuccess {
		return "Claimed"
	}
	return "Not claimed"
}

// ClaimRecord is one claim attempt against the processor. Append-only: rows
// are never updated after creation except for GainedAndNotified, which flips
// exactly once when the housekeeping loop confirms the money arrived.
type ClaimRecord struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	Action            int       `gorm:"not null;index" json:"action"`
	OperationID       string    `gorm:"not null;index" json:"operation_id"`
	UserID            string    `gorm:"not null" json:"user_id"`
	Amount            int64     `gorm:"not null" json:"amount"`
	BotName           string    `gorm:"not null;index" json:"bot_name"`
	BankName          *string   `json:"bank_name,omitempty"`
	Card              *string   `json:"card,omitempty"`
	Phone             *string   `json:"phone,omitempty"`
	PayoutID          *string   `json:"payout_id,omitempty"`
	GainedAndNotified bool      `gorm:"not null;default:false" json:"gained_and_notified"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ClaimRecord) TableName() string { return "claim_records" }

// Ledger wraps the claim_records table. It is the shared source of truth for
// "has anyone already claimed this operation" across concurrent bot
// instances, so every read that gates a write happens inside the same
// transaction as that write.
type Ledger struct {
	DB *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db}
}

// CountSuccessByOperationID counts successful claims of an operation across
// all bot identities.
func (l *Ledger) CountSuccessByOperationID(operationID string) (int64, error) {
	var count int64
	err := l.DB.Model(&ClaimRecord{}).
		Where("operation_id = ? AND action = ?", operationID, ActionSuccess).
		Count(&count).Error
	return count, err
}

// Append writes a claim attempt and reports how many successful claims the
// same bot already held for the operation before this write. The count and
// the insert share one transaction so a concurrent writer cannot slip
// between them.
func (l *Ledger) Append(rec *ClaimRecord) (prior int64, err error) {
	err = l.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ClaimRecord{}).
			Where("bot_name = ? AND operation_id = ? AND action = ?",
				rec.BotName, rec.OperationID, ActionSuccess).
			Count(&prior).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	return prior, err
}

// TakeUnconfirmed marks every not-yet-notified successful claim of an
// operation as gained-and-notified and returns them, in one transaction, so
// the "payment gained" message goes out exactly once even with housekeeping
// loops running on several instances.
func (l *Ledger) TakeUnconfirmed(operationID string) ([]ClaimRecord, error) {
	var records []ClaimRecord
	err := l.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("operation_id = ? AND action = ? AND gained_and_notified = ?",
			operationID, ActionSuccess, false).
			Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		return tx.Model(&ClaimRecord{}).
			Where("id IN ?", ids).
			Update("gained_and_notified", true).Error
	})
	return records, err
}

// SearchByOperationID returns every recorded attempt for an operation,
// newest first. Used by the /payout operator command.
func (l *Ledger) SearchByOperationID(operationID string) ([]ClaimRecord, error) {
	var records []ClaimRecord
	err := l.DB.Where("operation_id = ?", operationID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// CountByDateAndAction counts a bot's attempts with the given outcome on one
// calendar day.
func (l *Ledger) CountByDateAndAction(botName string, day time.Time, action int) (int64, error) {
	start, end := dayBounds(day)
	var count int64
	err := l.DB.Model(&ClaimRecord{}).
		Where("bot_name = ? AND action = ? AND created_at >= ? AND created_at <= ?",
			botName, action, start, end).
		Count(&count).Error
	return count, err
}

// SumAmountByDateAndAction sums a bot's claim amounts with the given outcome
// on one calendar day.
func (l *Ledger) SumAmountByDateAndAction(botName string, day time.Time, action int) (int64, error) {
	start, end := dayBounds(day)
	var sum int64
	err := l.DB.Model(&ClaimRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("bot_name = ? AND action = ? AND created_at >= ? AND created_at <= ?",
			botName, action, start, end).
		Scan(&sum).Error
	return sum, err
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24*time.Hour - time.Second)
	return start, end
}
