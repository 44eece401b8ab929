package workers

import (
	"context"
	"log"
	"time"

	"payout-claim-bot/services"

	"golang.org/x/time/rate"
)

// PollWorker drives the claim cycle: fetch the feed, filter candidates,
// attempt claims. One pass at a time, one external call in flight. When no
// bot is active it backs off to a slow idle sleep so operator commands still
// land quickly; when active, a limiter keeps a sub-second gap between
// cycles instead of busy-spinning against the processor.
type PollWorker struct {
	Settings services.Settings
	Feed     *services.FeedService
	Claims   *services.ClaimService
}

func NewPollWorker(settings services.Settings, feed *services.FeedService, claims *services.ClaimService) *PollWorker {
	return &PollWorker{Settings: settings, Feed: feed, Claims: claims}
}

func (w *PollWorker) Run(ctx context.Context) {
	log.Println("🔁 Starting payout poll worker…")

	limiter := rate.NewLimiter(rate.Every(500*time.Millisecond), 1)
	idle := time.NewTicker(5 * time.Second)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			log.Println("⏹️ Payout poll worker stopped")
			return
		}

		if !w.Settings.AnyActive() {
			select {
			case <-ctx.Done():
			case <-idle.C:
			}
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			continue
		}

		for _, candidate := range w.Feed.LoadPayouts(ctx) {
			if ctx.Err() != nil {
				break
			}
			w.Claims.Claim(ctx, candidate)
		}
	}
}
