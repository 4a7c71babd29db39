package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nti-labs/webhooks/internal/domain"
	"github.com/nti-labs/webhooks/pkg/logger"
	"github.com/nti-labs/webhooks/pkg/ratelimiter"
	"github.com/nti-labs/webhooks/pkg/tracing"
)

// EngineConfig configures the worker pool's concurrency and HTTP behavior.
type EngineConfig struct {
	Concurrency       int
	RequestTimeout    time.Duration
	MaxResponseBytes  int64
	NamePrefix        string
	// PerHostPolicy, when set, throttles sends per destination host via
	// RateLimiter — a resource-shaping addition, not a retry policy.
	PerHostPolicy *ratelimiter.RatePolicy
}

// DefaultEngineConfig returns sensible defaults, mirroring the teacher's
// small-pool-with-name-prefix convention (internal/service/queue/worker.go).
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Concurrency:      10,
		RequestTimeout:   30 * time.Second,
		MaxResponseBytes: 64 * 1024,
		NamePrefix:       "webhook-delivery",
	}
}

// WriteBackFunc opens a fresh unit of work against the persistence layer and
// resolves each pair's attempt, per spec §4.8.1. It is supplied by the
// outbox package to avoid a delivery→outbox import cycle.
type WriteBackFunc func(ctx context.Context, shipment *domain.ShipmentInfo) error

// Engine is a process-wide worker pool performing HTTP delivery of
// ShipmentInfo parcels, modeled on the semaphore-channel + WaitGroup pattern
// in internal/service/queue/worker.go, generalized from a polling email
// queue to an accept-and-submit shipment model (no polling: shipments are
// pushed by AcceptForDelivery).
type Engine struct {
	cfg         *EngineConfig
	client      *http.Client
	rateLimiter *ratelimiter.RateLimiter
	writeBack   WriteBackFunc
	logger      logger.Logger

	sem     chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	errs    []error
	stopped bool
}

// NewEngine constructs an Engine. tracer may be nil to skip span wrapping.
func NewEngine(cfg *EngineConfig, writeBack WriteBackFunc, log logger.Logger, tracer tracing.Tracer) *Engine {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}

	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: cfg.Concurrency,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if tracer != nil {
		client = tracer.WrapHTTPClient(client)
	}

	var rl *ratelimiter.RateLimiter
	if cfg.PerHostPolicy != nil {
		rl = ratelimiter.NewRateLimiter()
		rl.SetPolicy("delivery-host", cfg.PerHostPolicy.MaxAttempts, cfg.PerHostPolicy.Window)
	}

	return &Engine{
		cfg:         cfg,
		client:      client,
		rateLimiter: rl,
		writeBack:   writeBack,
		logger:      log,
		sem:         make(chan struct{}, cfg.Concurrency),
	}
}

// AcceptForDelivery schedules shipment.deliver() on the worker pool. It
// returns promptly and never propagates exceptions — any error is recorded
// and surfaced only through WaitForPendingDeliveries.
func (e *Engine) AcceptForDelivery(ctx context.Context, shipment *domain.ShipmentInfo) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		e.sem <- struct{}{}
		defer func() { <-e.sem }()

		if err := e.deliver(ctx, shipment); err != nil {
			e.mu.Lock()
			e.errs = append(e.errs, err)
			e.mu.Unlock()
			e.logger.WithField("error", err.Error()).Error("shipment delivery failed")
		}
	}()
}

// WaitForPendingDeliveries blocks until every shipment submitted before this
// call has finished or timeout expires. Any delivery error is re-raised
// (the first recorded, if multiple).
func (e *Engine) WaitForPendingDeliveries(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("%s: timed out waiting for pending deliveries", e.cfg.NamePrefix)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) > 0 {
		first := e.errs[0]
		e.errs = nil
		return first
	}
	return nil
}

// deliver implements the per-shipment algorithm of spec §4.8.1: sorted-by-
// URL HTTP sends with a shared client for keep-alive, then a single
// write-back pass resolving every attempt.
func (e *Engine) deliver(ctx context.Context, shipment *domain.ShipmentInfo) error {
	for _, pair := range shipment.SortedByURL() {
		if e.rateLimiter != nil && !e.awaitRateLimit(ctx, pair) {
			continue
		}
		e.sendOne(ctx, pair)
	}

	return e.writeBack(ctx, shipment)
}

// awaitRateLimit blocks pair's send until the per-host policy admits it or
// ctx is cancelled, returning false in the latter case.
func (e *Engine) awaitRateLimit(ctx context.Context, pair *domain.ShipmentPair) bool {
	host := hostOf(pair.URL)
	for !e.rateLimiter.Allow("delivery-host", host) {
		select {
		case <-ctx.Done():
			pair.TransportError = ctx.Err().Error()
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
	return true
}

func (e *Engine) sendOne(ctx context.Context, pair *domain.ShipmentPair) {
	dialect := pair.Dialect
	sub := &domain.Subscription{To: pair.URL}

	var prepared domain.PreparedRequest
	var err error
	if dialect.PrepareRequest != nil {
		prepared, err = dialect.PrepareRequest(ctx, sub, pair)
	} else {
		prepared = domain.PreparedRequest{
			Method: dialect.HTTPMethod,
			URL:    pair.URL,
			Body:   pair.PayloadData,
			Headers: map[string]string{
				"Content-Type": dialect.ContentType,
				"User-Agent":   dialect.UserAgent,
			},
		}
	}
	if err != nil {
		pair.TransportError = err.Error()
		return
	}

	createdTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, prepared.Method, prepared.URL, bytes.NewReader(prepared.Body))
	if err != nil {
		pair.TransportError = err.Error()
		return
	}
	headers := make(map[string][]string, len(prepared.Headers))
	for k, v := range prepared.Headers {
		req.Header.Set(k, v)
		headers[k] = []string{v}
	}

	pair.Request = &domain.RequestRecord{
		URL:         prepared.URL,
		Method:      prepared.Method,
		Body:        string(prepared.Body),
		Headers:     headers,
		CreatedTime: createdTime,
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		pair.TransportError = err.Error()
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxResponseBytes))

	pair.Response = &domain.ResponseRecord{
		StatusCode:  resp.StatusCode,
		Reason:      http.StatusText(resp.StatusCode),
		Headers:     map[string][]string(resp.Header),
		Content:     string(body),
		Elapsed:     elapsed,
		CreatedTime: time.Now(),
	}
}

// SendTestDelivery sends payload to sub's URL using dialect's framing and
// returns the response directly to the caller, bypassing the worker pool
// and write-back path entirely: no DeliveryAttempt is ever created or
// persisted. Grounded on the teacher's WebhookDeliveryWorker.SendTestWebhook
// (SPEC_FULL §10), the manual "send test event" trigger a UI exposes
// alongside a subscription's real delivery history.
func (e *Engine) SendTestDelivery(ctx context.Context, sub *domain.Subscription, dialect *domain.Dialect, payload []byte) (*domain.ResponseRecord, error) {
	pair := &domain.ShipmentPair{
		SiteID:         sub.SiteID,
		SubscriptionID: sub.ID,
		URL:            sub.To,
		Dialect:        dialect,
		PayloadData:    payload,
	}

	e.sendOne(ctx, pair)

	if pair.TransportError != "" {
		return nil, fmt.Errorf("test delivery to %s failed: %s", sub.To, pair.TransportError)
	}
	return pair.Response, nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Hostname()
}
