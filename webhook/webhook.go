package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/shotlist/models"
)

// EventRunCompleted is sent once after the last task.
const EventRunCompleted = "run.completed"

// SignatureHeader carries "sha256=<hex hmac of body>" when a secret is set.
const SignatureHeader = "X-Shotlist-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string         `json:"type"`
	RunID     string         `json:"run_id"`
	Timestamp int64          `json:"timestamp"`
	Data      models.Summary `json:"data"`
}

// NewRunCompleted builds the completion event for a run summary.
func NewRunCompleted(sum models.Summary) *Event {
	return &Event{
		Type:      EventRunCompleted,
		RunID:     sum.RunID,
		Timestamp: time.Now().Unix(),
		Data:      sum,
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event once.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Shotlist-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DefaultRetryDelays are the waits before each delivery attempt: one
// immediate attempt, then two retries after 1s and 5s.
var DefaultRetryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second}

// DeliverWithRetry sends event, retrying after each of delays. It blocks
// until delivery succeeds, attempts run out or ctx is done, and returns the
// last error.
func DeliverWithRetry(ctx context.Context, url, secret string, event *Event, delays []time.Duration) error {
	var lastErr error
	for attempt, delay := range delays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = Deliver(ctx, url, secret, event)
		if lastErr == nil {
			slog.Info("webhook delivered",
				"url", url,
				"event", event.Type,
				"run_id", event.RunID,
				"attempt", attempt+1,
			)
			return nil
		}
		slog.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"run_id", event.RunID,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	return lastErr
}
