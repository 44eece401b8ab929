package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"payout-claim-bot/utils"
)

// ClaimOutcome is the result of one external claim call. Transport and
// decode failures are indeterminate: the claim may or may not have landed,
// so the caller records nothing and lets the next cycle retry.
type ClaimOutcome int

const (
	ClaimTransportError ClaimOutcome = iota
	ClaimDecodeError
	ClaimAccepted
	ClaimRejected
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	// Consecutive non-JSON feed responses tolerated before the session is
	// treated as lost.
	authErrorThreshold = 5

	maxResponseBytes = 8 << 20
)

// WebStat is one account row from the processor's own stats table.
type WebStat struct {
	Username           string `json:"username"`
	Balance            int64  `json:"balance"`
	PayoutsSumFor24h   int64  `json:"payouts_sum_for_24h"`
	PayoutsCountFor24h int64  `json:"payouts_count_for_24h"`
}

// ProcessorClient owns the authenticated HTTP session against the payout
// processor: login, feed listing, claim action and the stats table. One
// request in flight at a time per identity; every failure path returns a
// safe empty result instead of propagating.
type ProcessorClient struct {
	BaseURL       string
	Settings      Settings
	Notifications *Notifications
	HTTPClient    *http.Client

	login    string
	password string
	// Pause imposed after a 429 before the next cycle may fetch again.
	rateLimitBackoff time.Duration

	mu           sync.Mutex
	authCookie   string
	isAuth       bool
	authErrCount int
}

func NewProcessorClient(baseURL, login, password string, settings Settings, notifications *Notifications) *ProcessorClient {
	return &ProcessorClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Settings:      settings,
		Notifications: notifications,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		login:            login,
		password:         password,
		rateLimitBackoff: 4 * time.Second,
		isAuth:           true,
	}
}

// SetCookie injects a session cookie (e.g. the one persisted from a previous
// run, or one planted manually by an operator).
func (c *ProcessorClient) SetCookie(v string) {
	c.mu.Lock()
	c.authCookie = v
	c.mu.Unlock()
}

// Cookie returns the current session cookie.
func (c *ProcessorClient) Cookie() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authCookie
}

// Authenticate logs in and captures the session cookie from the Set-Cookie
// header. A deployment without configured credentials relies on a manually
// injected cookie; authenticating then is a no-op so the worker cannot spin
// in a re-login loop. A malformed Set-Cookie header is recoverable: the raw
// header goes to the operators for diagnosis and the prior cookie stays.
func (c *ProcessorClient) Authenticate(ctx context.Context) {
	if c.login == "" || c.password == "" {
		return
	}

	c.Notifications.AddToAdmins("Authenticating with the processor")

	form := url.Values{
		"login":         {c.login},
		"password":      {c.password},
		"authenticator": {""},
	}
	resp, _, err := c.postForm(ctx, "/authUser.php", form, "")
	if err != nil {
		log.Printf("❌ [PROCESSOR] auth request failed: %v", err)
		return
	}

	raw := resp.Header.Get("Set-Cookie")
	if cookie, ok := extractAuthCookie(raw); ok {
		c.mu.Lock()
		c.authCookie = cookie
		c.mu.Unlock()
		if err := c.Settings.SetAuthCookie(cookie); err != nil {
			log.Printf("❌ [PROCESSOR] failed to persist auth cookie: %v", err)
		}
	} else {
		c.Notifications.AddToAdmins(fmt.Sprintf("Something is wrong with the session cookie... %s", raw))
	}

	c.mu.Lock()
	c.isAuth = true
	c.mu.Unlock()
}

// FetchPayouts returns the current page of pending payout rows, bounded by
// the active bots' amount envelope. Every failure path returns an empty
// page; the poll loop simply tries again next cycle.
func (c *ProcessorClient) FetchPayouts(ctx context.Context) [][]any {
	if !c.authed() {
		c.Authenticate(ctx)
	}
	if !c.authed() {
		c.disable("Kicked out of the processor, re-auth needed\nShutting the loop down")
		return nil
	}

	pfrom, pto, ok := c.Settings.AmountEnvelope()
	if !ok {
		cur := c.Settings.CurBot()
		if cur == nil {
			return nil
		}
		pfrom, pto = cur.MinAmount, cur.MaxAmount
	}

	form := url.Values{
		"length":  {"100"},
		"pfrom":   {strconv.FormatInt(pfrom, 10)},
		"pto":     {strconv.FormatInt(pto, 10)},
		"fstatus": {"Pending"},
		"ftime":   {"All"},
	}
	resp, body, err := c.postForm(ctx, "/datatables/payouts.php", form, "")
	if err != nil {
		log.Printf("❌ [PROCESSOR] feed request failed: %v", err)
		return nil
	}

	// An account-level block is not a session expiry; it disables the
	// instance with its own message and no re-auth attempt.
	if bytes.Contains(body, []byte("blocked")) {
		c.disable("The processor blocked this account\nShutting the loop down")
		return nil
	}

	// The feed renews the session cookie opportunistically.
	if cookie, ok := extractAuthCookie(resp.Header.Get("Set-Cookie")); ok {
		c.SetCookie(cookie)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.Notifications.AddToAdmins("Got 429 from the processor")
		sleepCtx(ctx, c.rateLimitBackoff)
		return nil
	}

	var payload struct {
		Data [][]any `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.feedDecodeFailure()
		return nil
	}

	c.mu.Lock()
	c.isAuth = true
	c.authErrCount = 0
	c.mu.Unlock()

	return payload.Data
}

// feedDecodeFailure tolerates transient non-JSON noise; past the threshold
// the session is considered lost: cookie cleared, instance disabled,
// operators notified.
func (c *ProcessorClient) feedDecodeFailure() {
	c.mu.Lock()
	c.authErrCount++
	lost := c.authErrCount > authErrorThreshold
	if lost {
		c.isAuth = false
		c.authErrCount = 0
		c.authCookie = ""
	}
	c.mu.Unlock()

	if !lost {
		return
	}
	if err := c.Settings.SetAuthCookie(""); err != nil {
		log.Printf("❌ [PROCESSOR] failed to clear auth cookie: %v", err)
	}
	c.disable("Session lost\nShutting the loop down")
}

// ClaimOwnership issues the claim action for a feed row. An empty cookie
// means "use this instance's own session"; claims on behalf of a peer bot
// pass that bot's stored cookie.
func (c *ProcessorClient) ClaimOwnership(ctx context.Context, rowID, cookie string) ClaimOutcome {
	form := url.Values{
		"id":   {rowID},
		"mode": {"claim"},
	}
	resp, body, err := c.postForm(ctx, "/prtProcessPayoutsOwnership.php", form, cookie)
	if err != nil {
		log.Printf("❌ [PROCESSOR] claim request failed: %v", err)
		return ClaimTransportError
	}

	log.Printf("[PROCESSOR] claim response %d: %s", resp.StatusCode, body)

	var payload struct {
		Status bool `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("❌ [PROCESSOR] claim response not JSON (%d): %v", resp.StatusCode, err)
		return ClaimDecodeError
	}
	if payload.Status {
		return ClaimAccepted
	}
	return ClaimRejected
}

// FetchWebStats reads the processor's per-account stats table.
func (c *ProcessorClient) FetchWebStats(ctx context.Context) []WebStat {
	form := url.Values{
		"draw":   {"100"},
		"start":  {"0"},
		"length": {"100"},
	}
	_, body, err := c.postForm(ctx, "/datatables/tstats.php", form, "")
	if err != nil {
		log.Printf("❌ [PROCESSOR] stats request failed: %v", err)
		return nil
	}

	var payload struct {
		Data [][]any `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("❌ [PROCESSOR] stats response not JSON: %v", err)
		return nil
	}

	stats := make([]WebStat, 0, len(payload.Data))
	for _, row := range payload.Data {
		if len(row) < 8 {
			continue
		}
		stats = append(stats, WebStat{
			Username:           utils.StripTags(cellString(row[1])),
			Balance:            utils.ParseAmount(cellString(row[2])),
			PayoutsSumFor24h:   utils.ParseAmount(cellString(row[6])),
			PayoutsCountFor24h: utils.ParseAmount(cellString(row[7])),
		})
	}
	return stats
}

func (c *ProcessorClient) authed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAuth
}

// disable flips the persisted running flag off, refreshes the registry so
// the poll loop sees it immediately, and tells both audiences why.
func (c *ProcessorClient) disable(msg string) {
	if err := c.Settings.SetIsRunning(false); err != nil {
		log.Printf("❌ [PROCESSOR] failed to persist running flag: %v", err)
	}
	if err := c.Settings.LoadBots(); err != nil {
		log.Printf("❌ [PROCESSOR] failed to reload bots: %v", err)
	}
	c.Notifications.AddToAdmins(msg)
	c.Notifications.AddToWatchers(msg)
}

func (c *ProcessorClient) postForm(ctx context.Context, path string, form url.Values, cookie string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", browserUserAgent)

	if cookie == "" {
		cookie = c.Cookie()
	}
	if cookie != "" {
		req.Header.Set("Cookie", "auth="+cookie)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	return resp, body, nil
}

// extractAuthCookie pulls the session value out of a Set-Cookie header by
// the processor's `auth=<value>;` convention.
func extractAuthCookie(header string) (string, bool) {
	_, rest, found := strings.Cut(header, "auth=")
	if !found {
		return "", false
	}
	value, _, _ := strings.Cut(rest, ";")
	if value == "" {
		return "", false
	}
	return value, true
}

func cellString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
