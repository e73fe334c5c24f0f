package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// slackMaxPostings keeps a message under Slack's 50-block limit
// (one header plus three blocks per posting).
const slackMaxPostings = 15

// SlackNotifier sends posting digests to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts digests to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the batch as one Block Kit message, split into several when it
// exceeds slackMaxPostings. Any failed message fails the whole batch so it is
// re-sent next cycle.
func (s *SlackNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	for start := 0; start < len(postings); start += slackMaxPostings {
		end := min(start+slackMaxPostings, len(postings))
		if err := s.sendMessage(ctx, buildPayload(postings[start:end], len(postings))); err != nil {
			return fmt.Errorf("slack notification: %w", err)
		}
	}
	s.logger.Info("slack notification sent", "postings", len(postings))
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string        `json:"type"`
	Text      *slackText    `json:"text,omitempty"`
	Elements  []slackText   `json:"elements,omitempty"`
	Accessory *slackElement `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style,omitempty"`
}

func buildPayload(postings []model.Posting, total int) slackPayload {
	title := fmt.Sprintf("🚀 %d new job postings", total)
	if total == 1 {
		title = "🚀 1 new job posting"
	}

	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: title},
	}}

	for _, p := range postings {
		blocks = append(blocks,
			slackBlock{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", p.Title, locationLine(p))},
				Accessory: &slackElement{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Apply"},
					URL:   p.Link,
					Style: "primary",
				},
			},
			slackBlock{
				Type:     "context",
				Elements: []slackText{{Type: "mrkdwn", Text: contextLine(p)}},
			},
			slackBlock{Type: "divider"},
		)
	}

	return slackPayload{Text: title, Blocks: blocks}
}

func locationLine(p model.Posting) string {
	loc := p.Location
	if loc == "" {
		loc = "Location not listed"
	}
	return loc + " · " + p.EmploymentType
}

func contextLine(p model.Posting) string {
	line := "Source: " + p.Source
	if p.Profile != "" {
		line += " · Profile: " + p.Profile
	}
	if p.Description != "" {
		line += "\n" + normalize.Truncate(p.Description, descriptionLimit)
	}
	return line
}
