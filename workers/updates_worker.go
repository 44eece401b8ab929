package workers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"payout-claim-bot/models"
	"payout-claim-bot/services"
	"payout-claim-bot/utils"
)

const helpText = `A little help :)

/help - list commands

===== Control =====
/run - start the loop
/stop - stop the loop
/status - flags, settings, all of it

===== Stats =====
/webstats - processor-side account stats from every instance
/stats [dd.mm.yyyy] - ledger stats
/payout <operation_id> - find a payout among everything claimed by any bot

===== Settings =====
/set_min_amount <number> - minimum claim amount, spaces allowed as separators
/set_max_amount <number> - maximum claim amount, spaces allowed as separators
/set_payouts_limit <number> - per-cycle payouts cap
/add_user <name> <chat_id> - register an operator chat`

// ChatRegistry is the slice of the bot registry the chat worker drives.
// *services.Registry implements it.
type ChatRegistry interface {
	CurBot() *models.Bot
	SetUpdateOffset(v int64) error
	SetIsRunning(v bool) error
	SetMinAmount(v int64) error
	SetMaxAmount(v int64) error
	SetPayoutsLimit(v int) error
	AddUser(name, chatID string) error
	LoadBots() error
	LoadUsers() error
}

// UpdatesWorker long-polls the Telegram update stream and dispatches
// operator commands. Only registered chats are heard at all; mutating and
// ledger-query commands additionally require the admin flag. The update
// cursor is persisted on the bot row so a restart never replays commands.
type UpdatesWorker struct {
	Registry ChatRegistry
	Telegram *services.TelegramClient
	Stats    *services.StatsService
	Ledger   *models.Ledger
}

func NewUpdatesWorker(registry ChatRegistry, telegram *services.TelegramClient,
	stats *services.StatsService, ledger *models.Ledger) *UpdatesWorker {
	return &UpdatesWorker{Registry: registry, Telegram: telegram, Stats: stats, Ledger: ledger}
}

func (w *UpdatesWorker) Run(ctx context.Context) {
	if !w.Telegram.Enabled() {
		log.Println("⚠️  No Telegram token configured, chat commands disabled")
		return
	}
	log.Println("🔁 Starting chat updates worker…")

	for {
		if ctx.Err() != nil {
			log.Println("⏹️ Chat updates worker stopped")
			return
		}

		cur := w.Registry.CurBot()
		if cur == nil {
			w.pause(ctx, 5*time.Second)
			continue
		}

		updates, err := w.Telegram.GetUpdates(ctx, cur.UpdateOffset+1, 25)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("❌ [UPDATES] getUpdates failed: %v", err)
			}
			w.pause(ctx, 3*time.Second)
			continue
		}

		for _, update := range updates {
			if err := w.Registry.SetUpdateOffset(update.UpdateID); err != nil {
				log.Printf("❌ [UPDATES] offset persist failed: %v", err)
			}
			if update.Message == nil {
				continue
			}
			w.handle(ctx, update.Message)
		}
	}
}

func (w *UpdatesWorker) handle(ctx context.Context, msg *services.TgMessage) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	user := w.findUser(chatID)
	if user == nil {
		return
	}

	cmd, arg, _ := strings.Cut(strings.TrimSpace(msg.Text), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		w.reply(ctx, chatID, helpText)
	case "/run":
		if err := w.Registry.SetIsRunning(true); err != nil {
			w.reply(ctx, chatID, "Could not persist the running flag")
			return
		}
		w.reply(ctx, chatID, "Started the loop")
	case "/stop":
		if err := w.Registry.SetIsRunning(false); err != nil {
			w.reply(ctx, chatID, "Could not persist the running flag")
			return
		}
		w.reply(ctx, chatID, "Stopped the loop")
	case "/status":
		w.statusCommand(ctx, chatID)
	case "/stats":
		w.statsCommand(ctx, chatID, arg)
	case "/payout":
		if user.IsAdmin {
			w.payoutCommand(ctx, chatID, arg)
		}
	case "/set_min_amount":
		if user.IsAdmin {
			w.setAmountCommand(ctx, chatID, arg, cmd, "Min claim amount", w.Registry.SetMinAmount)
		}
	case "/set_max_amount":
		if user.IsAdmin {
			w.setAmountCommand(ctx, chatID, arg, cmd, "Max claim amount", w.Registry.SetMaxAmount)
		}
	case "/set_payouts_limit":
		if user.IsAdmin {
			w.setAmountCommand(ctx, chatID, arg, cmd, "Payouts limit", func(v int64) error {
				return w.Registry.SetPayoutsLimit(int(v))
			})
		}
	case "/add_user":
		if user.IsAdmin {
			w.addUserCommand(ctx, chatID, arg)
		}
	case "/webstats":
		if user.IsAdmin {
			w.webStatsCommand(ctx, chatID)
		}
	}
}

func (w *UpdatesWorker) statusCommand(ctx context.Context, chatID string) {
	cur := w.Registry.CurBot()
	if cur == nil {
		return
	}
	running := "no"
	if cur.IsRunning {
		running = "yes"
	}
	w.reply(ctx, chatID, fmt.Sprintf(
		"Loop running: %s\nMin claim amount: %s\nMax claim amount: %s\nPayouts limit: %s",
		running,
		utils.FormatNumber(cur.MinAmount),
		utils.FormatNumber(cur.MaxAmount),
		utils.FormatNumber(int64(cur.PayoutsLimit))))
}

func (w *UpdatesWorker) statsCommand(ctx context.Context, chatID, arg string) {
	var day *time.Time
	if arg != "" {
		parsed, err := time.ParseInLocation("02.01.2006", arg, time.Local)
		if err != nil {
			w.reply(ctx, chatID, "Bad date format")
			return
		}
		day = &parsed
	}

	stats, err := w.Stats.DailyStats(day)
	if err != nil {
		log.Printf("❌ [UPDATES] stats query failed: %v", err)
		w.reply(ctx, chatID, "Stats query failed")
		return
	}
	if len(stats) == 0 {
		w.reply(ctx, chatID, "No stats yet")
		return
	}

	sep := strings.Repeat("-", 30)
	for _, s := range stats {
		w.reply(ctx, chatID, fmt.Sprintf(
			"Date: %s\n\n%s\n\nClaimed ✅\n\nSum: %s\nAvg: %s\nCount: %s\n\n%s\n\nNot claimed ❌\n\nSum: %s\nAvg: %s\nCount: %s",
			s.Date, sep,
			utils.FormatNumber(s.SuccessSum), utils.FormatNumber(s.SuccessAvg), utils.FormatNumber(s.SuccessCount),
			sep,
			utils.FormatNumber(s.FailSum), utils.FormatNumber(s.FailAvg), utils.FormatNumber(s.FailCount)))
	}
}

func (w *UpdatesWorker) payoutCommand(ctx context.Context, chatID, arg string) {
	if arg == "" {
		w.reply(ctx, chatID, "Bad input format,\nexample: /payout W153944573")
		return
	}

	records, err := w.Ledger.SearchByOperationID(arg)
	if err != nil {
		log.Printf("❌ [UPDATES] payout search failed: %v", err)
		return
	}
	if len(records) == 0 {
		w.reply(ctx, chatID, "Payout not found :(")
		return
	}
	for _, rec := range records {
		w.reply(ctx, chatID, fmt.Sprintf(
			"Event: %s\nEvent date: %s\nBot: %s\nOperation id: %s\nAmount: %s\nBank: %s\nCard: %s\nPhone: %s",
			models.ActionLabel(rec.Action),
			rec.CreatedAt.Format("02.01.2006 15:04:05"),
			rec.BotName,
			rec.OperationID,
			utils.FormatNumber(rec.Amount),
			derefOr(rec.BankName),
			derefOr(rec.Card),
			derefOr(rec.Phone)))
	}
}

func (w *UpdatesWorker) setAmountCommand(ctx context.Context, chatID, arg, cmd, label string, set func(int64) error) {
	value, err := strconv.ParseInt(strings.ReplaceAll(arg, " ", ""), 10, 64)
	if err != nil {
		w.reply(ctx, chatID, fmt.Sprintf("Bad input format, example: %s 50 000", cmd))
		return
	}
	if err := set(value); err != nil {
		log.Printf("❌ [UPDATES] setting persist failed: %v", err)
		w.reply(ctx, chatID, "Could not persist the setting")
		return
	}
	w.reply(ctx, chatID, fmt.Sprintf("%s: %s", label, utils.FormatNumber(value)))
}

func (w *UpdatesWorker) addUserCommand(ctx context.Context, chatID, arg string) {
	parts := strings.Fields(arg)
	if len(parts) != 2 {
		w.reply(ctx, chatID, "Bad format, example: /add_user Pete 123321")
		return
	}
	if err := w.Registry.AddUser(parts[0], parts[1]); err != nil {
		w.reply(ctx, chatID, "A user with this chat_id is already registered")
		return
	}
	w.reply(ctx, chatID, "User registered")
	// Reload right away so the new chat is heard before the next
	// housekeeping pass.
	if err := w.Registry.LoadBots(); err != nil {
		log.Printf("❌ [UPDATES] bots reload failed: %v", err)
	}
	if err := w.Registry.LoadUsers(); err != nil {
		log.Printf("❌ [UPDATES] users reload failed: %v", err)
	}
}

func (w *UpdatesWorker) webStatsCommand(ctx context.Context, chatID string) {
	peers := w.Stats.FetchPeerStats(ctx)
	if len(peers) == 0 {
		w.reply(ctx, chatID, "No peer instances configured")
		return
	}
	for i, profiles := range peers {
		var b strings.Builder
		fmt.Fprintf(&b, "==== Bot %d ====\n", i+1)
		if profiles == nil {
			b.WriteString("Could not reach it :(")
		} else {
			for _, stat := range profiles {
				fmt.Fprintf(&b, "Account: %s\nBalance: %s\nPayouts sum for 24h: %s\nPayouts count for 24h: %s\n\n",
					stat.Username,
					utils.FormatNumber(stat.Balance),
					utils.FormatNumber(stat.PayoutsSumFor24h),
					utils.FormatNumber(stat.PayoutsCountFor24h))
			}
		}
		w.reply(ctx, chatID, b.String())
	}
}

func (w *UpdatesWorker) findUser(chatID string) *models.User {
	cur := w.Registry.CurBot()
	if cur == nil {
		return nil
	}
	for i := range cur.Users {
		if cur.Users[i].ChatID == chatID {
			return &cur.Users[i]
		}
	}
	return nil
}

func (w *UpdatesWorker) reply(ctx context.Context, chatID, text string) {
	if err := w.Telegram.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("❌ [UPDATES] reply to %s failed: %v", chatID, err)
	}
}

func (w *UpdatesWorker) pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func derefOr(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
