package services

import (
	"context"
	"sync"

	"payout-claim-bot/models"
)

// fakeSettings is an in-memory stand-in for the bot registry.
type fakeSettings struct {
	mu         sync.Mutex
	cur        *models.Bot
	bots       []*models.Bot
	runningSet []bool
	cookieSet  []string
	loadCalls  int
}

func (f *fakeSettings) CurBot() *models.Bot { return f.cur }

func (f *fakeSettings) BotByAmount(amount int64) *models.Bot {
	for _, b := range f.allBots() {
		if b.IsRunning && b.CoversAmount(amount) {
			return b
		}
	}
	return nil
}

func (f *fakeSettings) AnyActive() bool {
	for _, b := range f.allBots() {
		if b.IsRunning {
			return true
		}
	}
	return false
}

func (f *fakeSettings) AmountEnvelope() (int64, int64, bool) {
	var min, max int64
	active := false
	for _, b := range f.allBots() {
		if !b.IsRunning {
			continue
		}
		if !active || b.MinAmount < min {
			min = b.MinAmount
		}
		if !active || b.MaxAmount > max {
			max = b.MaxAmount
		}
		active = true
	}
	return min, max, active
}

func (f *fakeSettings) SetIsRunning(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runningSet = append(f.runningSet, v)
	if f.cur != nil {
		f.cur.IsRunning = v
	}
	return nil
}

func (f *fakeSettings) SetAuthCookie(v string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookieSet = append(f.cookieSet, v)
	return nil
}

func (f *fakeSettings) LoadBots() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	return nil
}

func (f *fakeSettings) allBots() []*models.Bot {
	bots := f.bots
	if f.cur != nil {
		bots = append([]*models.Bot{f.cur}, bots...)
	}
	return bots
}

// mockLedger records appends and serves canned counts.
type mockLedger struct {
	successCount map[string]int64
	countErr     error
	appendPrior  int64
	appendErr    error
	appended     []*models.ClaimRecord
	unconfirmed  map[string][]models.ClaimRecord
	takeCalls    []string
}

func (m *mockLedger) CountSuccessByOperationID(operationID string) (int64, error) {
	return m.successCount[operationID], m.countErr
}

func (m *mockLedger) Append(rec *models.ClaimRecord) (int64, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.appended = append(m.appended, rec)
	return m.appendPrior, nil
}

func (m *mockLedger) TakeUnconfirmed(operationID string) ([]models.ClaimRecord, error) {
	m.takeCalls = append(m.takeCalls, operationID)
	records := m.unconfirmed[operationID]
	delete(m.unconfirmed, operationID)
	return records, nil
}

// mockPoster records external claim calls and answers with a fixed outcome.
type mockPoster struct {
	outcome ClaimOutcome
	calls   []struct{ rowID, cookie string }
}

func (m *mockPoster) ClaimOwnership(_ context.Context, rowID, cookie string) ClaimOutcome {
	m.calls = append(m.calls, struct{ rowID, cookie string }{rowID, cookie})
	return m.outcome
}

// mockHeld hands out a fixed list of held operation ids once.
type mockHeld struct {
	ops []string
}

func (m *mockHeld) DrainClaimedOps() []string {
	ops := m.ops
	m.ops = nil
	return ops
}

// stubFetcher replays canned feed pages in order, repeating the last one.
type stubFetcher struct {
	pages [][][]any
	calls int
}

func (s *stubFetcher) FetchPayouts(context.Context) [][]any {
	s.calls++
	if len(s.pages) == 0 {
		return nil
	}
	page := s.pages[0]
	if len(s.pages) > 1 {
		s.pages = s.pages[1:]
	}
	return page
}
