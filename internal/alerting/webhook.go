package alerting

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// WebhookSink POSTs anomaly records as JSON to a configured URL, signing the
// body with HMAC-SHA256 so receivers can authenticate the source, and
// retrying transient failures with exponential backoff — the same retry
// shape as ariadne's pipeline backoff helper (internal/pipeline/pipeline.go
// backoffDelay), rebuilt here on cenkalti/backoff since the HTTP client
// needs cancellation-aware retry rather than ariadne's task-queue re-enqueue.
type WebhookSink struct {
	name   string
	url    string
	secret []byte
	client *http.Client
	retry  RetryPolicy
}

// NewWebhookSink constructs a WebhookSink. secret may be nil to disable
// signing (not recommended outside of local development).
func NewWebhookSink(name, url string, secret []byte, client *http.Client, retry RetryPolicy) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &WebhookSink{name: name, url: url, secret: secret, client: client, retry: retry.withDefaults()}
}

func (w *WebhookSink) Name() string { return w.name }

// Send POSTs record to the webhook URL, retrying 5xx responses and network
// errors with exponential backoff per w.retry (§4.6) until the attempt
// budget or ctx is exhausted. 4xx responses are treated as permanent
// failures and not retried.
func (w *WebhookSink) Send(ctx context.Context, record model.AnomalyRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("alerting: marshal anomaly: %w", err)
	}

	policy := w.retry.backOff(ctx)

	return backoff.Retry(func() error {
		err := w.attempt(ctx, body)
		if err == nil {
			return nil
		}
		if perr, ok := err.(*permanentError); ok {
			return backoff.Permanent(perr.err)
		}
		return err
	}, policy)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }

func (w *WebhookSink) attempt(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &permanentError{err}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != nil {
		req.Header.Set("X-Signature", sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err // network error: retryable
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &permanentError{fmt.Errorf("alerting: webhook %s returned %d", w.url, resp.StatusCode)}
	default:
		return fmt.Errorf("alerting: webhook %s returned %d", w.url, resp.StatusCode)
	}
}

// sign returns the hex-encoded HMAC-SHA256 of body under secret, the value
// sent in the X-Signature header for receivers to verify.
func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
