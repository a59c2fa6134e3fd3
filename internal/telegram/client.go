// Package telegram is a small Bot API client and webhook receiver.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	oberr "oceanbot/internal/errors"
	"oceanbot/internal/httpx"
)

const DefaultAPIBase = "https://api.telegram.org"

// Client calls Bot API methods with a bot token.
type Client struct {
	http  *httpx.Client
	base  string
	token string
}

func NewClient(httpClient *httpx.Client, token string) *Client {
	return &Client{http: httpClient, base: DefaultAPIBase, token: token}
}

// SetAPIBase points the client at another Bot API server.
func (c *Client) SetAPIBase(base string) {
	c.base = strings.TrimRight(base, "/")
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	if c.token == "" {
		return oberr.New(oberr.CodeUsage, "telegram bot token is not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return oberr.Wrap(oberr.CodeInternal, "encode "+method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)

	var resp apiResponse
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, url, body, nil, &resp); err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if !resp.OK {
		return oberr.New(oberr.CodeUnavailable, fmt.Sprintf("telegram %s: %s", method, resp.Description))
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return oberr.Wrap(oberr.CodeUnavailable, "decode "+method+" result", err)
		}
	}
	return nil
}

// SendMessage sends an HTML-formatted message, optionally with an inline
// keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             ParseModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           markup,
	}, nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: id, Text: text}, nil)
}

// SetWebhook registers url. Telegram echoes secretToken in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message", "callback_query"},
	}, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", deleteWebhookRequest{}, nil)
}
