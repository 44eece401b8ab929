package handlers

import (
	"payout-claim-bot/middleware"
	"payout-claim-bot/services"

	"github.com/gofiber/fiber/v2"
)

// SetupStatsRoutes wires the peer-facing stats surface. Everything here is
// server-to-server: peers authenticate with the shared bearer password.
func SetupStatsRoutes(app *fiber.App, statsService *services.StatsService) {
	secured := app.Group("/", middleware.BearerAuthMiddleware())

	secured.Get("/webstats", statsService.GetWebStats)
}
