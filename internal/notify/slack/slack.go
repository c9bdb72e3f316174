// Package slack sends assessment alerts and reminders to Slack via
// incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Chethan-Regala/MedAssist/internal/medication"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

const httpTimeout = 10 * time.Second

// Notifier posts messages to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, every send
// is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// SendAlert posts a cross-agent alert raised during a combined assessment.
// Either verdict may be nil when its branch was omitted.
func (n *Notifier) SendAlert(ctx context.Context, userID, alert string, tv *triage.Verdict, mv *medication.Verdict) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := map[string]any{
		"blocks": []map[string]any{
			headerBlock(alertEmoji(tv, mv), "Health Alert"),
			{"type": "divider"},
			alertFieldsBlock(tv, mv),
			sectionBlock(alert),
			{"type": "divider"},
			contextBlock(userID),
		},
	}
	return n.post(ctx, msg)
}

// SendReminder posts a medication follow-up reminder.
func (n *Notifier) SendReminder(ctx context.Context, userID, message string) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := map[string]any{
		"blocks": []map[string]any{
			headerBlock("⏰", "Medication Follow-up"), // alarm clock
			sectionBlock(message),
			{"type": "divider"},
			contextBlock(userID),
		},
	}
	return n.post(ctx, msg)
}

func (n *Notifier) post(ctx context.Context, msg map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent")
	return nil
}

func headerBlock(emoji, title string) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s", emoji, title),
		},
	}
}

func alertFieldsBlock(tv *triage.Verdict, mv *medication.Verdict) map[string]any {
	var fields []map[string]any
	if tv != nil {
		fields = append(fields,
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Urgency:* %s", tv.Urgency)},
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Action:* %s", tv.RecommendedAction)},
		)
		if len(tv.RedFlags) > 0 {
			fields = append(fields, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Red flags:* %s", strings.Join(tv.RedFlags, ", ")),
			})
		}
	}
	if mv != nil {
		fields = append(fields,
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Medication risk:* %s", mv.RiskLevel)},
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Conflicts:* %d", len(mv.Conflicts))},
		)
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func sectionBlock(text string) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func contextBlock(userID string) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("medassist • user %s • %s", userID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func alertEmoji(tv *triage.Verdict, mv *medication.Verdict) string {
	if (tv != nil && tv.Urgency == triage.UrgencyHigh) ||
		(mv != nil && mv.RiskLevel == medication.SeverityHigh) {
		return "\U0001f534" // red circle
	}
	return "\U0001f7e1" // yellow circle
}
