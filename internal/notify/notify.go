// Package notify sends a best-effort external alert each time the Ticket
// Manager opens or updates a ticket, whatever its severity, the way the
// teacher's internal/notifications package posts to
// ntfy.sh for sensor failures and recoveries. The Ticket Manager treats
// this as a side channel: failures here are logged, never surfaced as
// ingest errors (spec.md §7).
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Sender posts a titled message to an external channel.
type Sender interface {
	Send(title, message string) error
}

// NtfySender posts to a configured ntfy.sh topic.
type NtfySender struct {
	client *http.Client
	topic  string
}

// NewNtfySender builds a sender for the given topic, or a nil *NtfySender
// if topic is empty (Send then becomes a no-op error, matching the
// teacher's "notifications not initialized" behavior).
func NewNtfySender(topic string) *NtfySender {
	if topic == "" {
		log.Warn().Msg("ntfy topic not configured - ticket notifications disabled")
		return nil
	}
	return &NtfySender{
		client: &http.Client{Timeout: 10 * time.Second},
		topic:  topic,
	}
}

func (n *NtfySender) Send(title, message string) error {
	if n == nil {
		return fmt.Errorf("notifications not initialized")
	}

	url := fmt.Sprintf("https://ntfy.sh/%s", n.topic)
	payload := map[string]any{
		"topic":   n.topic,
		"title":   title,
		"message": message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().Str("title", title).Int("status", resp.StatusCode).Msg("ticket notification sent")
	return nil
}
