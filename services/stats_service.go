package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"payout-claim-bot/models"

	"github.com/gofiber/fiber/v2"
)

// DailyStat is one calendar day of this bot's ledger activity.
type DailyStat struct {
	Date         string `json:"date"`
	SuccessCount int64  `json:"success_count"`
	SuccessSum   int64  `json:"success_sum"`
	SuccessAvg   int64  `json:"success_avg"`
	FailCount    int64  `json:"fail_count"`
	FailSum      int64  `json:"fail_sum"`
	FailAvg      int64  `json:"fail_avg"`
}

// StatsService aggregates the claim ledger for operator reporting and
// exposes the processor-side account stats over the /webstats endpoint so
// peer instances can collect them.
type StatsService struct {
	Ledger     *models.Ledger
	Registry   *Registry
	Processor  *ProcessorClient
	HTTPClient *http.Client
}

func NewStatsService(ledger *models.Ledger, registry *Registry, processor *ProcessorClient) *StatsService {
	return &StatsService{
		Ledger:    ledger,
		Registry:  registry,
		Processor: processor,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// DailyStats aggregates a single requested day, or the last seven days when
// day is nil. Days without any recorded attempt are omitted.
func (s *StatsService) DailyStats(day *time.Time) ([]DailyStat, error) {
	cur := s.Registry.CurBot()
	if cur == nil {
		return nil, fmt.Errorf("bot not loaded")
	}

	var days []time.Time
	if day != nil {
		days = []time.Time{*day}
	} else {
		today := time.Now()
		for i := 0; i < 7; i++ {
			days = append(days, today.AddDate(0, 0, -i))
		}
	}

	var stats []DailyStat
	for _, d := range days {
		successCount, err := s.Ledger.CountByDateAndAction(cur.BotName, d, models.ActionSuccess)
		if err != nil {
			return nil, err
		}
		successSum, err := s.Ledger.SumAmountByDateAndAction(cur.BotName, d, models.ActionSuccess)
		if err != nil {
			return nil, err
		}
		failCount, err := s.Ledger.CountByDateAndAction(cur.BotName, d, models.ActionFail)
		if err != nil {
			return nil, err
		}
		failSum, err := s.Ledger.SumAmountByDateAndAction(cur.BotName, d, models.ActionFail)
		if err != nil {
			return nil, err
		}

		if successCount == 0 && failCount == 0 {
			continue
		}
		stat := DailyStat{
			Date:         d.Format("02.01.2006"),
			SuccessCount: successCount,
			SuccessSum:   successSum,
			FailCount:    failCount,
			FailSum:      failSum,
		}
		if successCount > 0 {
			stat.SuccessAvg = successSum / successCount
		}
		if failCount > 0 {
			stat.FailAvg = failSum / failCount
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// GetWebStats serves this instance's processor-side account stats. Peer
// instances poll it with their configured bearer password.
func (s *StatsService) GetWebStats(c *fiber.Ctx) error {
	stats := s.Processor.FetchWebStats(c.UserContext())
	if stats == nil {
		stats = []WebStat{}
	}
	return c.JSON(stats)
}

// FetchPeerStats polls every peer instance listed in WEBAPP_LIST
// ("url::password;url::password"). A peer that cannot be reached yields a
// nil entry so the report still lines up by position.
func (s *StatsService) FetchPeerStats(ctx context.Context) [][]WebStat {
	list := os.Getenv("WEBAPP_LIST")
	if list == "" {
		return nil
	}

	var result [][]WebStat
	for _, entry := range strings.Split(list, ";") {
		addr, password, found := strings.Cut(entry, "::")
		if !found {
			continue
		}
		stats, err := s.fetchPeer(ctx, addr, password)
		if err != nil {
			log.Printf("❌ [STATS] peer %s unreachable: %v", addr, err)
			result = append(result, nil)
			continue
		}
		result = append(result, stats)
	}
	return result
}

func (s *StatsService) fetchPeer(ctx context.Context, addr, password string) ([]WebStat, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/webstats", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+password)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var stats []WebStat
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return stats, nil
}
