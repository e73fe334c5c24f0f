// Package notifier delivers batches of postings to a channel: the log,
// Slack, Telegram, or email.
package notifier

import (
	"context"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// descriptionLimit bounds the description excerpt rendered per posting.
const descriptionLimit = 200

// SendTestMessage sends a dummy posting to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	test := model.Posting{
		Title:          "Test Notification: Integration Verified",
		Link:           "https://github.com/amishk599/jobscout",
		Description:    "If you can read this, jobscout can reach this channel.",
		Location:       "Everywhere",
		EmploymentType: "Not specified",
		Source:         "test",
		Profile:        "test",
		DiscoveredAt:   time.Now(),
	}
	return n.Notify(ctx, []model.Posting{test})
}
