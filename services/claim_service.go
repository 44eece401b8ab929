package services

import (
	"context"
	"fmt"
	"log"

	"payout-claim-bot/models"
	"payout-claim-bot/utils"

	"github.com/google/uuid"
)

// LedgerStore is the slice of the claim ledger the orchestrator needs.
type LedgerStore interface {
	// CountSuccessByOperationID counts successful claims across all bots.
	CountSuccessByOperationID(operationID string) (int64, error)
	// Append records an attempt and reports the same bot's prior success
	// count for the operation, inside one transaction.
	Append(rec *models.ClaimRecord) (prior int64, err error)
	// TakeUnconfirmed flips gained_and_notified on an operation's
	// successful claims and returns them.
	TakeUnconfirmed(operationID string) ([]models.ClaimRecord, error)
}

// ClaimPoster is the slice of the processor client the orchestrator needs.
type ClaimPoster interface {
	ClaimOwnership(ctx context.Context, rowID, cookie string) ClaimOutcome
}

// ClaimSelector picks the acting identity for a candidate.
type ClaimSelector interface {
	CurBot() *models.Bot
	BotByAmount(amount int64) *models.Bot
}

// HeldOps yields operation ids the feed observed as already held.
type HeldOps interface {
	DrainClaimedOps() []string
}

// ClaimService decides whether a candidate gets claimed and records what
// happened: throttle check, ledger check, external claim, record outcome,
// in that order. The ledger check before the external call is the primary
// defense against double-claiming when several identities watch the same
// feed; the duplicate warning after the write is only a belated safety net
// for the narrow race that remains.
type ClaimService struct {
	Ledger        LedgerStore
	Processor     ClaimPoster
	Selector      ClaimSelector
	Notifications *Notifications
	Cycle         *CycleState
	Held          HeldOps
}

func NewClaimService(ledger LedgerStore, processor ClaimPoster, selector ClaimSelector,
	notifications *Notifications, cycle *CycleState, held HeldOps) *ClaimService {
	return &ClaimService{
		Ledger:        ledger,
		Processor:     processor,
		Selector:      selector,
		Notifications: notifications,
		Cycle:         cycle,
		Held:          held,
	}
}

// Claim runs the per-candidate state machine. True means the claim was
// accepted by the processor and recorded. Transport and decode failures
// leave no ledger trace: the attempt is indeterminate and the next cycle
// retries; a ledger hit is the one condition that skips the external call
// entirely.
func (s *ClaimService) Claim(ctx context.Context, candidate PayoutCandidate) bool {
	bot := s.Selector.BotByAmount(candidate.Amount)
	if bot == nil {
		return false
	}

	// ThrottleCheck: cap exposure per cycle no matter how many eligible
	// candidates the page holds.
	cur := s.Selector.CurBot()
	if cur != nil && bot.ID == cur.ID {
		if count, _ := s.Cycle.Value(); count >= bot.PayoutsLimit {
			return false
		}
	} else if bot.ClaimedPayoutsCount >= bot.PayoutsLimit {
		return false
	}

	// LedgerCheck: anyone's prior success wins.
	claimed, err := s.Ledger.CountSuccessByOperationID(candidate.OperationID)
	if err != nil {
		log.Printf("❌ [CLAIM] ledger check failed for op=%s: %v", candidate.OperationID, err)
		return false
	}
	if claimed > 0 {
		return false
	}

	// ExternalClaim: a peer bot's claim goes out with that bot's cookie.
	cookie := ""
	if cur == nil || bot.ID != cur.ID {
		cookie = bot.AuthCookie
	}
	outcome := s.Processor.ClaimOwnership(ctx, candidate.RowID, cookie)
	if outcome == ClaimTransportError || outcome == ClaimDecodeError {
		return false
	}

	// RecordOutcome. Descriptive fields arrive in mixed encodings from the
	// feed; repair them lossily rather than fail the write.
	rec := &models.ClaimRecord{
		ID:          uuid.NewString(),
		OperationID: candidate.OperationID,
		UserID:      candidate.UserID,
		Amount:      candidate.Amount,
		BotName:     bot.BotName,
		BankName:    repaired(candidate.Bank),
		Card:        repaired(candidate.Card),
		Phone:       repaired(candidate.Phone),
		PayoutID:    repaired(candidate.RowID),
	}
	if outcome == ClaimAccepted {
		rec.Action = models.ActionSuccess
	} else {
		rec.Action = models.ActionFail
	}

	prior, err := s.Ledger.Append(rec)
	if err != nil {
		log.Printf("❌ [CLAIM] failed to record outcome for op=%s: %v", candidate.OperationID, err)
		return false
	}

	if outcome != ClaimAccepted {
		return false
	}

	s.Cycle.Increment()

	msg := fmt.Sprintf("Payout claimed\nAmount - 💰%s💰\nCard - 💸%s💸",
		utils.FormatNumber(candidate.Amount), candidate.Card)
	if prior > 0 {
		msg += "\n\n‼️Looks like this payout was already claimed‼️"
	}
	s.Notifications.AddToAll(msg)
	return true
}

// ConfirmGained is the housekeeping half of the claim lifecycle: once the
// feed shows an operation as held, the matching successful ledger entries
// get their one-time "payment received" notification.
func (s *ClaimService) ConfirmGained(ctx context.Context) {
	for _, op := range s.Held.DrainClaimedOps() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		records, err := s.Ledger.TakeUnconfirmed(op)
		if err != nil {
			log.Printf("❌ [CLAIM] gained confirmation failed for op=%s: %v", op, err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		first := records[0]
		msg := fmt.Sprintf("Payout gained\nAmount - 💰%s💰\nCard - 💸%s💸",
			utils.FormatNumber(first.Amount), derefOr(first.Card, "-"))
		if len(records) > 1 {
			msg += "\n\n‼️Looks like this payout was claimed more than once‼️"
		}
		s.Notifications.AddToAll(msg)
	}
}

func repaired(s string) *string {
	if s == "" {
		return nil
	}
	v := utils.RepairEncoding(s)
	return &v
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
