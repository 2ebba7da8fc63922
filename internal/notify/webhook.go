// Package notify delivers escalation notices to the operator side channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 5 * time.Second

// WebhookNotifier POSTs priority-tagged escalation payloads to the
// messaging-bridge webhook
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify delivers one escalation notice
func (n *WebhookNotifier) Notify(ctx context.Context, notice *domain.EscalationNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("escalation webhook failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("escalation webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	log.Info().
		Str("priority", string(notice.Priority)).
		Str("channel_id", notice.ChannelID).
		Msg("escalation delivered")
	return nil
}

// NoopNotifier drops notices; used when no webhook is configured
type NoopNotifier struct{}

// Notify logs and discards the notice
func (NoopNotifier) Notify(ctx context.Context, notice *domain.EscalationNotice) error {
	log.Warn().
		Str("priority", string(notice.Priority)).
		Str("reason", notice.Reason).
		Msg("escalation raised but no notifier configured")
	return nil
}
