// Package source fetches raw entity payloads from the upstream portfolio API.
//
// The client treats payload bytes as opaque: envelope-shape normalization is
// the transformer's job. It performs no retries of its own either - the
// pipeline's activity retry policy owns retry cadence - but it does carry a
// token bucket and a per-endpoint circuit breaker so a flapping upstream is
// not hammered by concurrent fetch activities.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ed-andre/nowrepsync/pkg/entities"
	"github.com/ed-andre/nowrepsync/pkg/utils"
)

// maxErrorBodyBytes bounds how much of an error response body is kept.
const maxErrorBodyBytes = 2048

// Client is a wrapper around an http.Client that implements a
// circuit-breaker and token-bucket over the upstream base endpoints.
type Client struct {
	endpoints []string
	client    *http.Client

	// token-bucket
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts is the set of options for a new Client.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// NewWithOpts creates a new Client with the given options.
func NewWithOpts(o Opts) *Client {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 40
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	c := &Client{
		endpoints:        utils.Dedup(o.Endpoints),
		client:           client,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

// NewFromEnv builds a client from SOURCE_API_URL (comma-free single base URL).
func NewFromEnv() *Client {
	base := utils.Env("SOURCE_API_URL", "http://localhost:4000/api")
	return NewWithOpts(Opts{Endpoints: []string{base}})
}

// refill refills the token-bucket with new tokens if necessary.
func (c *Client) refill() {
	last := c.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= c.refillEvery {
		if atomic.LoadInt64(&c.tokens) < c.maxTokens {
			atomic.AddInt64(&c.tokens, 1)
		}
		c.lastRefill.Store(now)
	}
}

// acquire acquires a token from the token-bucket, blocking if necessary.
func (c *Client) acquire() {
	for {
		c.refill()
		if atomic.LoadInt64(&c.tokens) > 0 {
			atomic.AddInt64(&c.tokens, -1)
			return
		}
		time.Sleep(c.refillEvery / 2)
	}
}

// isOpen returns true if the endpoint breaker is in the OPEN state.
func (c *Client) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

// noteFailure marks an endpoint as failed and opens the circuit-breaker if
// the failure count exceeds the threshold.
func (c *Client) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

// Fetch issues a GET for the entity's endpoint and returns the raw JSON body.
// Non-2xx responses become *UpstreamError, transport failures *NetworkError.
func (c *Client) Fetch(ctx context.Context, entity entities.Entity) (json.RawMessage, error) {
	if !entity.IsValid() {
		return nil, fmt.Errorf("invalid entity: %q", entity)
	}
	return c.get(ctx, entity.EndpointPath())
}

// get runs a single GET round across the configured base endpoints, skipping
// any whose breaker is OPEN.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		ep := c.endpoints[i%len(c.endpoints)]
		if c.isOpen(ep) {
			continue
		}

		c.acquire()

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, ep+path, nil)
		if reqErr != nil {
			// Request creation failed: not an endpoint failure, just return.
			return nil, reqErr
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = &NetworkError{Err: err}
			c.noteFailure(ep)
			continue
		}

		// From here on, always drain+close the body before continuing/returning.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			_ = utils.DrainAndClose(resp.Body)
			lastErr = &UpstreamError{Status: resp.StatusCode, Body: string(body)}
			if resp.StatusCode >= 500 {
				c.noteFailure(ep)
			}
			continue
		}

		payload, readErr := io.ReadAll(resp.Body)
		if cerr := utils.DrainAndClose(resp.Body); cerr != nil && readErr == nil {
			readErr = cerr
		}
		if readErr != nil {
			lastErr = &NetworkError{Err: readErr}
			c.noteFailure(ep)
			continue
		}

		if !json.Valid(payload) {
			lastErr = fmt.Errorf("upstream returned invalid JSON for %s", path)
			continue
		}

		return payload, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("all endpoints have open circuit breakers")
	}
	return nil, lastErr
}
