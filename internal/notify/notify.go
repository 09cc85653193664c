// Package notify defines the best-effort Notifier capability consumed by
// ErrorAlerter and WeeklyScorecard, plus a couple of concrete
// implementations.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier delivers a best-effort (severity, message) notification.
// Implementations must never block the caller indefinitely and must
// swallow their own delivery failures — callers treat Notify as fire-and-
// forget.
type Notifier interface {
	Notify(severity, message string)
}

// LogNotifier routes notifications through structured logging. Useful as
// a default when no external notification channel is configured.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(severity, message string) {
	log.Warn().Str("severity", severity).Msg(message)
}

// WebhookNotifier posts a JSON payload to a configured webhook URL (e.g.
// Slack/Telegram-compatible incoming webhook). Failures are logged, never
// returned — notifier failures must not affect request paths.
type WebhookNotifier struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookNotifier builds a WebhookNotifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, HTTPClient: &http.Client{Timeout: 5 * time.Second}}
}

type webhookPayload struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(severity, message string) {
	body, err := json.Marshal(webhookPayload{Severity: severity, Message: message})
	if err != nil {
		log.Error().Err(err).Msg("notify: failed to marshal webhook payload")
		return
	}
	resp, err := w.HTTPClient.Post(w.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("severity", severity).Msg("notify: webhook delivery failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		log.Error().Int("status", resp.StatusCode).Msg("notify: webhook returned error status")
	}
}

// NullNotifier drops every notification. Used when no notifier is
// configured and silent drop is acceptable.
type NullNotifier struct{}

// Notify implements Notifier.
func (NullNotifier) Notify(string, string) {}
