package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/normalize"
)

var _ model.Notifier = (*EmailNotifier)(nil)

// EmailProvider sends one HTML email.
type EmailProvider interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// EmailNotifier sends each batch as a single digest email.
type EmailNotifier struct {
	provider EmailProvider
	to       string
	now      func() time.Time
	logger   *slog.Logger
}

// NewEmailNotifier returns a notifier that mails digests to the given address.
func NewEmailNotifier(provider EmailProvider, to string, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		provider: provider,
		to:       to,
		now:      time.Now,
		logger:   logger,
	}
}

// Notify renders the batch and sends it with subject "New jobs - <date>".
func (n *EmailNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	subject := "New jobs - " + n.now().Format("2006-01-02")
	n.logger.Info("sending digest email", "to", n.to, "subject", subject, "postings", len(postings))

	if err := n.provider.Send(ctx, n.to, subject, renderDigest(postings)); err != nil {
		return fmt.Errorf("email digest to %s: %w", n.to, err)
	}
	return nil
}

func renderDigest(postings []model.Posting) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.5; color: #333; max-width: 720px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString(".job { margin-bottom: 20px; padding-bottom: 16px; border-bottom: 1px solid #ddd; }\n")
	b.WriteString(".job:last-of-type { border-bottom: none; }\n")
	b.WriteString(".meta { color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString("a { color: #2c7be5; text-decoration: none; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")
	b.WriteString("<h1>Job Search Results</h1>\n")

	for _, p := range postings {
		b.WriteString("<div class=\"job\">\n")
		fmt.Fprintf(&b, "<h3><a href=\"%s\">%s</a></h3>\n", html.EscapeString(p.Link), html.EscapeString(p.Title))

		meta := []string{"Source: " + p.Source}
		if p.Location != "" {
			meta = append(meta, p.Location)
		}
		meta = append(meta, p.EmploymentType)
		fmt.Fprintf(&b, "<div class=\"meta\">%s</div>\n", html.EscapeString(strings.Join(meta, " · ")))

		if p.Description != "" {
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(normalize.Truncate(p.Description, descriptionLimit)))
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}
