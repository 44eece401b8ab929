package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TgUpdate is one entry from the Bot API getUpdates stream.
type TgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *TgMessage `json:"message"`
}

type TgMessage struct {
	Text string `json:"text"`
	Chat TgChat `json:"chat"`
}

type TgChat struct {
	ID int64 `json:"id"`
}

// TelegramClient speaks the Telegram Bot API over plain HTTPS: sendMessage
// for outbound notifications and getUpdates long-polling for operator
// commands. A client with an empty token is disabled and drops everything.
type TelegramClient struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		Token:   token,
		BaseURL: "https://api.telegram.org",
		HTTPClient: &http.Client{
			// Above the getUpdates long-poll window.
			Timeout: 40 * time.Second,
		},
	}
}

func (c *TelegramClient) Enabled() bool {
	return c.Token != ""
}

// SendMessage delivers one text message to a chat.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	if !c.Enabled() {
		return nil
	}
	form := url.Values{
		"chat_id": {chatID},
		"text":    {text},
	}
	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := c.call(ctx, "sendMessage", form, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("sendMessage rejected: %s", resp.Description)
	}
	return nil
}

// GetUpdates long-polls the update stream starting at offset.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]TgUpdate, error) {
	if !c.Enabled() {
		return nil, nil
	}
	form := url.Values{
		"offset":  {strconv.FormatInt(offset, 10)},
		"timeout": {strconv.Itoa(timeoutSec)},
	}
	var resp struct {
		OK     bool       `json:"ok"`
		Result []TgUpdate `json:"result"`
	}
	if err := c.call(ctx, "getUpdates", form, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("getUpdates rejected")
	}
	return resp.Result, nil
}

func (c *TelegramClient) call(ctx context.Context, method string, form url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(c.BaseURL, "/"), c.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
