package services

import (
	"fmt"
	"sync"

	"payout-claim-bot/models"

	"gorm.io/gorm"
)

// Settings is the narrow run-state view the core components depend on.
// *Registry implements it; tests substitute fakes.
type Settings interface {
	CurBot() *models.Bot
	BotByAmount(amount int64) *models.Bot
	AnyActive() bool
	AmountEnvelope() (min, max int64, ok bool)
	SetIsRunning(v bool) error
	SetAuthCookie(v string) error
	LoadBots() error
}

// Registry caches the bot and user tables. Every configured identity (this
// process's own bot and its peers) lives here; the cache is refreshed by the
// housekeeping loop so operator changes made from another instance propagate
// within seconds. All setters persist to the shared database first and only
// then update the cache.
type Registry struct {
	db      *gorm.DB
	botName string

	mu        sync.RWMutex
	bots      []models.Bot
	curBot    *models.Bot
	users     []models.User
	anyActive bool
	minAmount int64
	maxAmount int64
}

func NewRegistry(db *gorm.DB, botName string) *Registry {
	return &Registry{db: db, botName: botName}
}

// EnsureCurBot creates this identity's row with default run state when it
// does not exist yet, so a fresh deployment starts with defaults back-filled
// instead of crashing.
func (r *Registry) EnsureCurBot() error {
	var bot models.Bot
	err := r.db.Where("bot_name = ?", r.botName).First(&bot).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	bot = models.Bot{
		BotName:      r.botName,
		MinAmount:    50_000,
		MaxAmount:    80_000,
		PayoutsLimit: 10,
	}
	return r.db.Create(&bot).Error
}

// LoadBots reloads every bot row and recomputes the active-amount envelope:
// the widest [min, max] range covered by any running bot. The feed is
// requested with that envelope so one instance's page covers all peers.
func (r *Registry) LoadBots() error {
	var bots []models.Bot
	if err := r.db.Preload("Users").Order("id").Find(&bots).Error; err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.bots = bots
	r.curBot = nil
	for i := range r.bots {
		if r.bots[i].BotName == r.botName {
			r.curBot = &r.bots[i]
			break
		}
	}

	r.anyActive = false
	r.minAmount, r.maxAmount = 0, 0
	for i := range r.bots {
		b := &r.bots[i]
		if !b.IsRunning {
			continue
		}
		if !r.anyActive || b.MinAmount < r.minAmount {
			r.minAmount = b.MinAmount
		}
		if !r.anyActive || b.MaxAmount > r.maxAmount {
			r.maxAmount = b.MaxAmount
		}
		r.anyActive = true
	}
	return nil
}

// LoadUsers reloads the global operator roster.
func (r *Registry) LoadUsers() error {
	var users []models.User
	if err := r.db.Order("id").Find(&users).Error; err != nil {
		return err
	}
	r.mu.Lock()
	r.users = users
	r.mu.Unlock()
	return nil
}

// CurBot returns a snapshot of this process's own bot row, or nil before
// the first load. All accessors copy: the cached structs are written in
// place by the setters, so an interior pointer handed to a caller would
// race them.
func (r *Registry) CurBot() *models.Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.curBot == nil {
		return nil
	}
	bot := *r.curBot
	return &bot
}

// Bots returns a snapshot of the cached bot rows.
func (r *Registry) Bots() []models.Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bots := make([]models.Bot, len(r.bots))
	copy(bots, r.bots)
	return bots
}

// Users returns a snapshot of the cached operator roster.
func (r *Registry) Users() []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, len(r.users))
	copy(users, r.users)
	return users
}

// AnyActive reports whether at least one bot has its running flag set.
func (r *Registry) AnyActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.anyActive
}

// AmountEnvelope returns the min/max amount range across running bots.
func (r *Registry) AmountEnvelope() (int64, int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minAmount, r.maxAmount, r.anyActive
}

// BotByAmount picks the running bot whose configured range covers the
// amount, as a snapshot. The claim is then made on behalf of that
// identity, with its session cookie.
func (r *Registry) BotByAmount(amount int64) *models.Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.bots {
		b := r.bots[i]
		if b.IsRunning && b.CoversAmount(amount) {
			return &b
		}
	}
	return nil
}

func (r *Registry) updateCurBot(column string, value any, apply func(*models.Bot)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.curBot == nil {
		return fmt.Errorf("bot %q not loaded", r.botName)
	}
	if err := r.db.Model(&models.Bot{}).
		Where("id = ?", r.curBot.ID).
		Update(column, value).Error; err != nil {
		return err
	}
	apply(r.curBot)
	return nil
}

func (r *Registry) SetIsRunning(v bool) error {
	return r.updateCurBot("is_running", v, func(b *models.Bot) { b.IsRunning = v })
}

func (r *Registry) SetAuthCookie(v string) error {
	return r.updateCurBot("auth_cookie", v, func(b *models.Bot) { b.AuthCookie = v })
}

func (r *Registry) SetMinAmount(v int64) error {
	return r.updateCurBot("min_amount", v, func(b *models.Bot) { b.MinAmount = v })
}

func (r *Registry) SetMaxAmount(v int64) error {
	return r.updateCurBot("max_amount", v, func(b *models.Bot) { b.MaxAmount = v })
}

func (r *Registry) SetPayoutsLimit(v int) error {
	return r.updateCurBot("payouts_limit", v, func(b *models.Bot) { b.PayoutsLimit = v })
}

func (r *Registry) SetClaimedPayoutsCount(v int) error {
	return r.updateCurBot("claimed_payouts_count", v, func(b *models.Bot) { b.ClaimedPayoutsCount = v })
}

func (r *Registry) SetUpdateOffset(v int64) error {
	return r.updateCurBot("update_offset", v, func(b *models.Bot) { b.UpdateOffset = v })
}

// AddUser registers an operator chat account and attaches it to this
// process's bot, so the command dispatcher and the notification fan-out
// hear the chat after the next registry reload. Duplicate chat ids are
// reported as-is so the chat layer can answer with a friendly message.
func (r *Registry) AddUser(name, chatID string) error {
	cur := r.CurBot()
	if cur == nil {
		return fmt.Errorf("bot %q not loaded", r.botName)
	}
	user := models.User{Name: name, ChatID: chatID}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		bot := models.Bot{ID: cur.ID}
		return tx.Model(&bot).Association("Users").Append(&user)
	})
}
