package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"payout-claim-bot/utils"
)

// Display names the eligibility filter accepts, matched case-insensitively
// as substrings of the feed's free-text bank label.
var allowedBanks = []string{
	"Тинькофф",
	"Tinkoff",
	"T-Bank",
	"Сбербанк",
	"Sberbank",
}

// Offset baked into the feed's data-end-time epoch values.
const feedTimeOffset = 6 * time.Hour

// PayoutCandidate is an eligible payout parsed out of one feed row. Created
// fresh each poll cycle and discarded after the claim attempt.
type PayoutCandidate struct {
	Time        string
	Status      string
	RowID       string
	Amount      int64
	Bank        string
	Card        string
	Phone       string
	OperationID string
	UserID      string
}

// payoutRow is a feed row with the positional tuple resolved into names.
// If the upstream column order ever changes, parsePayoutRow is the only
// place that knows the indices.
type payoutRow struct {
	Time            string
	Status          string
	ClaimButton     string
	Disabled        bool
	EndTimeFragment string
	AmountText      string
	Bank            string
	Card            string
	Phone           string
	OperationID     string
	UserID          string
}

// FeedFetcher is the slice of the processor client the feed reader needs.
type FeedFetcher interface {
	FetchPayouts(ctx context.Context) [][]any
}

// FeedService turns raw feed pages into claim candidates: it parses rows,
// seeds the cycle counter from rows another actor already holds, emits
// expiring-payout reminders and applies the bank/card/phone eligibility
// heuristics.
type FeedService struct {
	Fetcher       FeedFetcher
	Settings      Settings
	Notifications *Notifications
	Cycle         *CycleState

	now func() time.Time
	// Pause after the pre-pass recount; the processor rate-limits
	// back-to-back page fetches.
	prePassDelay time.Duration

	mu               sync.Mutex
	claimedOps       map[string]struct{}
	notifiedExpiring map[string]struct{}
}

func NewFeedService(fetcher FeedFetcher, settings Settings, notifications *Notifications, cycle *CycleState) *FeedService {
	return &FeedService{
		Fetcher:          fetcher,
		Settings:         settings,
		Notifications:    notifications,
		Cycle:            cycle,
		now:              time.Now,
		prePassDelay:     2 * time.Second,
		claimedOps:       make(map[string]struct{}),
		notifiedExpiring: make(map[string]struct{}),
	}
}

// LoadPayouts runs one feed pass and returns the eligible candidates. Rows
// whose claim button is disabled count toward the cycle's held total and
// feed the gained-payout confirmation set instead.
func (f *FeedService) LoadPayouts(ctx context.Context) []PayoutCandidate {
	cur := f.Settings.CurBot()
	if cur == nil {
		return nil
	}
	limit := cur.PayoutsLimit

	// Pre-pass: when the counter is unseeded or the limit looks reached,
	// recount what this feed page says is actually held before claiming
	// anything new.
	if count, known := f.Cycle.Value(); !known || count >= limit {
		f.Cycle.Set(0)
		f.Notifications.AddToAdmins("Refreshing the claimed payouts counter")

		held := 0
		for _, raw := range f.Fetcher.FetchPayouts(ctx) {
			row, ok := parsePayoutRow(raw)
			if !ok || !row.Disabled {
				continue
			}
			f.markClaimed(row.OperationID)
			held++
		}
		f.Cycle.Set(held)

		sleepCtx(ctx, f.prePassDelay)
	}

	if count, _ := f.Cycle.Value(); count >= limit {
		return nil
	}

	f.Cycle.Set(0)
	stillExpiring := make(map[string]struct{})
	var candidates []PayoutCandidate

	for _, raw := range f.Fetcher.FetchPayouts(ctx) {
		row, ok := parsePayoutRow(raw)
		if !ok {
			continue
		}

		if row.Disabled {
			f.markClaimed(row.OperationID)
			f.Cycle.Increment()
			f.remindExpiring(row, stillExpiring)
			continue
		}

		candidate, eligible := f.classify(row)
		if !eligible {
			continue
		}
		log.Printf("💡 Payout found: op=%s amount=%d bank=%s", candidate.OperationID, candidate.Amount, candidate.Bank)
		candidates = append(candidates, candidate)
	}

	f.mu.Lock()
	f.notifiedExpiring = stillExpiring
	f.mu.Unlock()

	return candidates
}

// classify applies the eligibility heuristics to a not-yet-claimed row.
func (f *FeedService) classify(row payoutRow) (PayoutCandidate, bool) {
	rowID, ok := utils.AttrValue(row.ClaimButton, "data-id=")
	if !ok {
		return PayoutCandidate{}, false
	}

	candidate := PayoutCandidate{
		Time:        row.Time,
		Status:      row.Status,
		RowID:       rowID,
		Amount:      utils.ParseAmount(row.AmountText),
		Bank:        row.Bank,
		Card:        utils.DigitRun(row.Card),
		Phone:       row.Phone,
		OperationID: row.OperationID,
		UserID:      row.UserID,
	}

	bankOK := false
	lowerBank := strings.ToLower(candidate.Bank)
	for _, name := range allowedBanks {
		if strings.Contains(lowerBank, strings.ToLower(name)) {
			bankOK = true
			break
		}
	}

	if !bankOK && len(candidate.Card) != 11 && len(candidate.Phone) != 11 {
		return PayoutCandidate{}, false
	}
	return candidate, true
}

// remindExpiring warns the operators when a held payout's payment window is
// about to close, once per operation id per tier within a cycle window.
func (f *FeedService) remindExpiring(row payoutRow, stillExpiring map[string]struct{}) {
	fragment, ok := utils.AttrValue(row.EndTimeFragment, "data-end-time=")
	if !ok {
		return
	}
	endMillis, err := strconv.ParseInt(fragment, 10, 64)
	if err != nil {
		return
	}

	endTime := endMillis/1000 - int64(feedTimeOffset/time.Second)
	timeDiff := endTime - f.now().UTC().Unix()

	for _, tier := range []struct {
		text     string
		from, to int64
	}{
		{"15 minutes left", 14 * 60, 15 * 60},
		{"5 minutes left", 4 * 60, 5 * 60},
	} {
		if !(tier.from < timeDiff && timeDiff < tier.to) {
			continue
		}
		if _, dup := stillExpiring[row.OperationID]; dup {
			continue
		}
		stillExpiring[row.OperationID] = struct{}{}

		f.mu.Lock()
		_, already := f.notifiedExpiring[row.OperationID]
		f.mu.Unlock()
		if already {
			continue
		}

		f.Notifications.AddToAll(fmt.Sprintf(
			"❗️A payout's payment window is closing\n%s\nOperation ID: %s Amount: %s",
			tier.text, row.OperationID, row.AmountText))
	}
}

func (f *FeedService) markClaimed(operationID string) {
	if operationID == "" {
		return
	}
	f.mu.Lock()
	f.claimedOps[operationID] = struct{}{}
	f.mu.Unlock()
}

// DrainClaimedOps hands the operation ids observed as held to the gained
// confirmation job and resets the set.
func (f *FeedService) DrainClaimedOps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, 0, len(f.claimedOps))
	for op := range f.claimedOps {
		ops = append(ops, op)
	}
	f.claimedOps = make(map[string]struct{})
	return ops
}

// parsePayoutRow resolves the feed's fixed-position tuple. Rows that do not
// fit the known shape are skipped individually; the rest of the page still
// parses.
func parsePayoutRow(raw []any) (payoutRow, bool) {
	if len(raw) < 18 {
		return payoutRow{}, false
	}
	return payoutRow{
		Time:            cellString(raw[0]),
		Status:          cellString(raw[1]),
		ClaimButton:     cellString(raw[2]),
		Disabled:        truthy(raw[3]),
		EndTimeFragment: cellString(raw[4]),
		AmountText:      cellString(raw[6]),
		Bank:            cellString(raw[8]),
		Card:            cellString(raw[9]),
		Phone:           cellString(raw[15]),
		OperationID:     cellString(raw[16]),
		UserID:          cellString(raw[17]),
	}, true
}

// truthy follows the feed's loose typing: the disabled flag arrives as a
// bool, a number or a string depending on the upstream build.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false")
	default:
		return true
	}
}
