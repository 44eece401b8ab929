package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"payout-claim-bot/handlers"
	"payout-claim-bot/models"
	"payout-claim-bot/services"
	"payout-claim-bot/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	botName := os.Getenv("BOT_NAME")
	if botName == "" {
		botName = "unknown"
	}

	processorURL := os.Getenv("PROCESSOR_BASE_URL")
	if processorURL == "" {
		log.Fatal("PROCESSOR_BASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Bot{},
		&models.User{},
		&models.ClaimRecord{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	registry := services.NewRegistry(db, botName)
	if err := registry.EnsureCurBot(); err != nil {
		log.Fatal("failed to ensure bot row:", err)
	}
	if err := registry.LoadBots(); err != nil {
		log.Fatal("failed to load bots:", err)
	}
	if err := registry.LoadUsers(); err != nil {
		log.Fatal("failed to load users:", err)
	}
	if registry.CurBot() == nil {
		log.Fatalf("bot %q missing after load", botName)
	}

	ledger := models.NewLedger(db)
	notifications := services.NewNotifications()

	processor := services.NewProcessorClient(
		processorURL,
		os.Getenv("PROCESSOR_LOGIN"),
		os.Getenv("PROCESSOR_PASSWORD"),
		registry,
		notifications,
	)
	processor.SetCookie(registry.CurBot().AuthCookie)

	cycle := services.NewCycleState()
	feed := services.NewFeedService(processor, registry, notifications, cycle)
	claims := services.NewClaimService(ledger, processor, registry, notifications, cycle, feed)

	telegram := services.NewTelegramClient(registry.CurBot().TgBotToken)
	notifier := services.NewNotifier(registry, telegram)
	statsService := services.NewStatsService(ledger, registry, processor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.NewPollWorker(registry, feed, claims).Run(ctx)
	go workers.NewUpdatesWorker(registry, telegram, statsService, ledger).Run(ctx)

	sched, err := workers.StartHousekeeping(ctx, registry, claims, cycle, notifications, notifier)
	if err != nil {
		log.Fatal("failed to start housekeeping:", err)
	}

	app := fiber.New()
	handlers.SetupStatsRoutes(app, statsService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Stats endpoint running on http://localhost:%s", port)
	log.Printf("✅ Bot %q wired: poll loop, housekeeping, chat updates", botName)

	<-ctx.Done()
	log.Println("Shutting down…")

	// Persist what the next run needs before exiting: the session cookie
	// and the claimed counter are the only state living outside the DB
	// between housekeeping flushes.
	if err := registry.SetAuthCookie(processor.Cookie()); err != nil {
		log.Printf("❌ failed to persist auth cookie: %v", err)
	}
	if count, known := cycle.Value(); known {
		if err := registry.SetClaimedPayoutsCount(count); err != nil {
			log.Printf("❌ failed to persist claimed counter: %v", err)
		}
	}

	if err := sched.Shutdown(); err != nil {
		log.Printf("❌ scheduler shutdown error: %v", err)
	}
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ server shutdown error: %v", err)
	}
}
