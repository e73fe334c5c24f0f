package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
)

const telegramAPIBase = "https://api.telegram.org"

var _ model.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier sends one bot message per posting to a chat.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewTelegramNotifier returns a notifier for the bot token and chat.
func NewTelegramNotifier(token, chatID string, client *http.Client, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPIBase,
		client:  client,
		logger:  logger,
	}
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends each posting in order and stops at the first failure. The
// whole batch is then re-sent next cycle, so earlier messages may repeat.
func (n *TelegramNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	for i, p := range postings {
		if err := n.send(ctx, formatTelegram(p)); err != nil {
			return fmt.Errorf("telegram message %d/%d: %w", i+1, len(postings), err)
		}
	}
	if len(postings) > 0 {
		n.logger.Info("telegram notifications sent", "postings", len(postings))
	}
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramMessage{ChatID: n.chatID, Text: text, DisableWebPagePreview: true})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// the request URL embeds the bot token
		return fmt.Errorf("post to telegram: %w", redactToken(err, n.token))
	}
	defer resp.Body.Close()

	var tr telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("telegram returned %d: decoding response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !tr.OK {
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, tr.Description)
	}
	return nil
}

func formatTelegram(p model.Posting) string {
	var b strings.Builder
	b.WriteString("📍 New Job Opportunity! 📍\n")
	fmt.Fprintf(&b, "🔹 Title: %s\n", p.Title)
	if p.Location != "" {
		fmt.Fprintf(&b, "🌍 Location: %s\n", p.Location)
	}
	fmt.Fprintf(&b, "🔗 Link: %s\n", p.Link)
	if p.Description != "" {
		fmt.Fprintf(&b, "📄 Description: %s\n", normalize.Truncate(p.Description, descriptionLimit))
	}
	fmt.Fprintf(&b, "Source: %s", p.Source)
	return b.String()
}

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
