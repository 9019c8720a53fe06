package tracking

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
)

// Beacon is a fire-and-forget transport. Send hands body off for delivery
// and reports only whether it was accepted, never whether it arrived.
type Beacon interface {
	Send(url string, body []byte) bool
}

// NoopBeacon accepts nothing.
type NoopBeacon struct{}

func (NoopBeacon) Send(string, []byte) bool { return false }

// BeaconFunc adapts a function to Beacon.
type BeaconFunc func(url string, body []byte) bool

func (f BeaconFunc) Send(url string, body []byte) bool { return f(url, body) }

type beaconItem struct {
	url  string
	body []byte
}

// HTTPBeaconConfig tunes the dispatcher.
type HTTPBeaconConfig struct {
	BufferSize     int
	MaxRetries     uint64
	RequestTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultHTTPBeaconConfig mirrors what a browser beacon offers: a small
// queue and a handful of attempts.
func DefaultHTTPBeaconConfig() HTTPBeaconConfig {
	return HTTPBeaconConfig{
		BufferSize:     32,
		MaxRetries:     4,
		RequestTimeout: 5 * time.Second,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// HTTPBeacon delivers beacon bodies from a single background worker with
// exponential backoff per item. Send never blocks.
type HTTPBeacon struct {
	client *http.Client
	cfg    HTTPBeaconConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	items  chan beaconItem

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHTTPBeacon starts the worker. Call Close to stop it.
func NewHTTPBeacon(client *http.Client, cfg HTTPBeaconConfig, logger *slog.Logger) *HTTPBeacon {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = discardLogger()
	}
	def := DefaultHTTPBeaconConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &HTTPBeacon{
		client: client,
		cfg:    cfg,
		logger: logger,
		items:  make(chan beaconItem, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Send queues body for delivery. It returns false when the dispatcher is
// closed or its buffer is full.
func (b *HTTPBeacon) Send(url string, body []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}

	cp := make([]byte, len(body))
	copy(cp, body)
	select {
	case b.items <- beaconItem{url: url, body: cp}:
		return true
	default:
		b.logger.Warn("Beacon buffer full, dropping payload", "url", url)
		return false
	}
}

// Close stops accepting work and waits for queued items to drain. If ctx
// ends first, in-flight retries are abandoned.
func (b *HTTPBeacon) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.items)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		<-b.done
		return ctx.Err()
	}
}

func (b *HTTPBeacon) run() {
	defer close(b.done)
	for item := range b.items {
		if b.ctx.Err() != nil {
			continue
		}
		b.deliver(item)
	}
}

func (b *HTTPBeacon) deliver(item beaconItem) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.cfg.InitialBackoff
	policy.MaxInterval = b.cfg.MaxBackoff
	policy.MaxElapsedTime = 0

	attempts := 0
	op := func() error {
		attempts++
		return b.post(item)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, b.cfg.MaxRetries), b.ctx))
	if err != nil {
		b.logger.Warn("Beacon delivery abandoned", "url", item.url, "attempts", attempts, "error", err.Error())
		return
	}
	b.logger.Debug("Beacon delivered", "url", item.url, "attempts", attempts)
}

// post returns an error only for failures worth retrying. A 4xx means the
// receiver looked at the body and refused it; resending will not help.
func (b *HTTPBeacon) post(item beaconItem) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, item.url, bytes.NewReader(item.body))
	if err != nil {
		b.logger.Error("Invalid beacon request", "url", item.url, "error", err.Error())
		return nil
	}
	// sendBeacon with a string body sends text/plain; receivers parse it as JSON anyway.
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("beacon request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("beacon endpoint returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		b.logger.Warn("Beacon rejected", "url", item.url, "status", resp.StatusCode)
	}
	return nil
}
