// Package webhook delivers order and chat events to the bot engine and keeps
// a durable log of every delivery outcome.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
)

const (
	// SecretHeader carries the shared secret on every delivery.
	SecretHeader = "X-Backend-Secret"
	endpointPath = "/webhook/backend"

	maxLoggedResponse = 500

	DefaultMaxRetries = 3
	DefaultTimeout    = 10 * time.Second
)

// Config is the process-wide delivery configuration, fixed at construction.
type Config struct {
	BaseURL      string
	Secret       string
	MaxRetries   int
	Timeout      time.Duration
	RetryBackoff time.Duration
}

// Sender delivers a single payload and reports whether the bot accepted it.
type Sender interface {
	Send(ctx context.Context, p Payload) bool
}

// Notifier posts payloads to {BaseURL}/webhook/backend. It is safe for
// concurrent use and never mutated after NewNotifier returns.
type Notifier struct {
	cfg    Config
	url    string
	client *http.Client
	db     *gorm.DB
	log    *zap.SugaredLogger
}

// NewNotifier builds a notifier. An empty BaseURL yields a notifier whose
// deliveries fail immediately without network I/O.
func NewNotifier(cfg Config, db *gorm.DB, client *http.Client) *Notifier {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}

	n := &Notifier{
		cfg:    cfg,
		client: client,
		db:     db,
		log:    logger.Named("webhook"),
	}
	if cfg.BaseURL != "" {
		n.url = strings.TrimRight(cfg.BaseURL, "/") + endpointPath
	} else {
		n.log.Warn("bot webhook URL is not configured; notifications will be logged as failed")
	}
	if cfg.Secret == "" {
		n.log.Warn("bot webhook secret is not configured")
	}
	return n
}

// Configured reports whether a target URL is set.
func (n *Notifier) Configured() bool {
	return n.url != ""
}

// URL returns the delivery endpoint, or an empty string.
func (n *Notifier) URL() string {
	return n.url
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Send delivers p, retrying transport errors, timeouts and non-200 responses
// up to MaxRetries attempts. Exactly one WebhookLog row is written per call.
func (n *Notifier) Send(ctx context.Context, p Payload) bool {
	body, err := json.Marshal(p)
	if err != nil {
		n.record(p.Event, fmt.Sprintf("%+v", p), nil, "failed to encode payload: "+err.Error(), false)
		return false
	}

	if n.url == "" {
		n.record(p.Event, string(body), nil, "webhook URL not configured", false)
		return false
	}

	var (
		lastStatus *int
		lastErr    string
	)
	for attempt := 1; attempt <= n.cfg.MaxRetries; attempt++ {
		if attempt > 1 && n.cfg.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				n.record(p.Event, string(body), lastStatus, "delivery cancelled: "+ctx.Err().Error(), false)
				return false
			case <-time.After(n.cfg.RetryBackoff):
			}
		}

		status, text, err := n.attempt(ctx, body)
		if err == nil {
			n.log.Infow("webhook delivered", "event", p.Event, "order_id", p.OrderID, "attempt", attempt)
			n.record(p.Event, string(body), &status, text, true)
			return true
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			n.log.Errorw("webhook aborted", "event", p.Event, "order_id", p.OrderID, "error", err)
			n.record(p.Event, string(body), nil, err.Error(), false)
			return false
		}
		if ctx.Err() != nil {
			n.record(p.Event, string(body), nil, "delivery cancelled: "+ctx.Err().Error(), false)
			return false
		}

		lastErr = err.Error()
		lastStatus = nil
		if status != 0 {
			s := status
			lastStatus = &s
			if text != "" {
				lastErr = text
			}
		}
		n.log.Warnw("webhook attempt failed",
			"event", p.Event,
			"order_id", p.OrderID,
			"attempt", attempt,
			"max_retries", n.cfg.MaxRetries,
			"error", err,
		)
	}

	n.log.Errorw("webhook delivery failed", "event", p.Event, "order_id", p.OrderID, "attempts", n.cfg.MaxRetries)
	n.record(p.Event, string(body), lastStatus,
		fmt.Sprintf("failed after %d attempts: %s", n.cfg.MaxRetries, lastErr), false)
	return false
}

// attempt performs one POST bounded by the per-attempt timeout. A nil error
// means the bot answered 200.
func (n *Notifier) attempt(ctx context.Context, body []byte) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", &permanentError{fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, n.cfg.Secret)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("posting webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedResponse))
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, string(raw), fmt.Errorf("posting webhook: unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, string(raw), nil
}

func (n *Notifier) record(event Event, payload string, status *int, response string, success bool) {
	if len(response) > maxLoggedResponse {
		response = response[:maxLoggedResponse]
	}
	entry := &models.WebhookLog{
		EventType:  string(event),
		Payload:    payload,
		StatusCode: status,
		Response:   response,
		Success:    success,
	}
	if err := n.db.Create(entry).Error; err != nil {
		n.log.Errorw("failed to write webhook log", "event", event, "error", err)
	}
}
