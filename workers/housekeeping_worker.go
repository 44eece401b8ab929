package workers

import (
	"context"
	"log"
	"time"

	"payout-claim-bot/services"

	"github.com/go-co-op/gocron/v2"
)

// StartHousekeeping schedules the periodic jobs around the poll loop. The
// fast job reloads the bot registry, confirms gained payouts, persists the
// claimed counter and flushes notification batches; the slow job reloads the
// operator roster. The jobs talk to the poll loop only through the shared
// registry, ledger and notification buffer.
func StartHousekeeping(ctx context.Context, registry *services.Registry, claims *services.ClaimService,
	cycle *services.CycleState, notifications *services.Notifications, notifier *services.Notifier) (gocron.Scheduler, error) {

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(10*time.Second),
		gocron.NewTask(func() {
			if err := registry.LoadBots(); err != nil {
				log.Printf("❌ [HOUSEKEEPING] bots reload failed: %v", err)
			}

			claims.ConfirmGained(ctx)

			count, known := cycle.Value()
			if !known {
				count = 0
			}
			if err := registry.SetClaimedPayoutsCount(count); err != nil {
				log.Printf("❌ [HOUSEKEEPING] counter persist failed: %v", err)
			}

			notifier.Flush(ctx, notifications)
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			if err := registry.LoadUsers(); err != nil {
				log.Printf("❌ [HOUSEKEEPING] users reload failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	log.Println("✅ Housekeeping jobs scheduled (10s fast / 30s slow)")
	return sched, nil
}
