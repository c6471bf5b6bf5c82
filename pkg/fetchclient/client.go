// Package fetchclient performs authenticated calls against the Bhavya API.
//
// The client owns token acquisition, per-call timeouts, retry of transient
// failures, and payload unwrapping. It never touches storage and never emits
// progress; callers see exactly one Result per Fetch, success or failure,
// within the configured hard ceiling.
package fetchclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/endpoint"
)

// Credentials are the client key pair posted to generateToken.
type Credentials struct {
	SecretKey string
	ClientKey string
}

// Config configures client behavior.
type Config struct {
	// BaseURL is the API root, e.g. https://host/api/bhavya.
	BaseURL string

	// Credentials authenticate token acquisition.
	Credentials Credentials

	// Timeout bounds a single HTTP attempt. Default: 10s.
	Timeout time.Duration

	// CallCeiling bounds one Fetch including all retries, so the
	// orchestrator never blocks indefinitely on one endpoint. Default: 30s.
	CallCeiling time.Duration

	// Retries is the number of additional attempts after a transient
	// failure. Default: 2.
	Retries int

	// Backoff is the fixed delay between attempts. Default: 1s.
	Backoff time.Duration

	// RateLimit is the maximum outbound requests per second.
	// Zero means unlimited.
	RateLimit float64

	// InsecureSkipVerify disables TLS verification. The upstream deployment
	// serves an incomplete certificate chain.
	InsecureSkipVerify bool
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		CallCeiling: 30 * time.Second,
		Retries:     2,
		Backoff:     time.Second,
	}
}

// Result is the outcome of one endpoint call for one date. Exactly one of
// Values or Err is set.
type Result struct {
	// Endpoint is the spec name this result belongs to.
	Endpoint string

	// Values is the flattened scalar payload on success.
	Values map[string]string

	// Err classifies the failure, nil on success.
	Err error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Client calls Bhavya endpoints with bearer-token authentication.
//
// Client is safe for concurrent use; the token is shared across calls and
// refreshed at most once per rejected call.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	mu    sync.Mutex
	token string
}

// New creates a client. Zero config values are replaced with defaults.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CallCeiling <= 0 {
		cfg.CallCeiling = def.CallCeiling
	}
	if cfg.Retries < 0 {
		cfg.Retries = def.Retries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- upstream serves a broken chain
		transport = t
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// Authenticate posts the credentials to generateToken and caches the token.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"secretKey": c.cfg.Credentials.SecretKey,
		"clientKey": c.cfg.Credentials.ClientKey,
	})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generateToken", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrTokenUnavailable, resp.StatusCode)
	}

	token, err := parseToken(resp.Body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// parseToken extracts the bearer token from a generateToken response. The
// upstream has answered with all three key spellings over time, and with a
// bare JSON string in early deployments.
func parseToken(r io.Reader) (string, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrTokenUnavailable, err)
	}

	switch v := raw.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case map[string]any:
		for _, key := range []string{"token", "access_token", "accessToken"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no token in response", ErrTokenUnavailable)
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Fetch performs one authenticated call for date against spec.
//
// Transient failures are retried with fixed backoff; 401 triggers one token
// re-acquisition. The call always returns within the configured ceiling.
// Fetch never returns an error: failures are carried inside the Result so
// the orchestrator's join point treats success and failure uniformly.
func (c *Client) Fetch(ctx context.Context, date datekey.Key, spec endpoint.Spec) Result {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallCeiling)
	defer cancel()

	values, err := c.fetchWithRetry(ctx, date, spec)
	if err != nil {
		return Result{Endpoint: spec.Name, Err: &CallError{Endpoint: spec.Name, Date: date, Err: err}}
	}
	return Result{Endpoint: spec.Name, Values: values}
}

func (c *Client) fetchWithRetry(ctx context.Context, date datekey.Key, spec endpoint.Spec) (map[string]string, error) {
	if c.currentToken() == "" {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	var lastErr error
	reauthed := false

	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
			case <-time.After(c.cfg.Backoff):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransient, err)
			}
		}

		values, err := c.doFetch(ctx, date, spec)
		if err == nil {
			return values, nil
		}

		if errors.Is(err, ErrUnauthorized) && !reauthed {
			// One fresh token per call, then the attempt is repeated
			// without consuming a transient retry.
			reauthed = true
			if authErr := c.Authenticate(ctx); authErr != nil {
				return nil, authErr
			}
			attempt--
			lastErr = err
			continue
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// doFetch performs a single HTTP attempt.
func (c *Client) doFetch(ctx context.Context, date datekey.Key, spec endpoint.Spec) (map[string]string, error) {
	// The upstream API expects the date window in a JSON body on a GET.
	body, err := json.Marshal(map[string]string{
		"tdate":    date.String(),
		"dEndDate": date.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+spec.Path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.currentToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts, connection resets, and DNS failures all land here.
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return parsePayload(resp.Body)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status 401", ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status 429", ErrTransient)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrPermanent, resp.StatusCode)
	}
}

// parsePayload unwraps the endpoint response into a flat scalar map.
//
// Endpoints answer either a JSON array (first element wins), an object
// wrapping the rows under data/result/results/records, or a bare object.
func parsePayload(r io.Reader) (map[string]string, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	row, err := unwrapRow(raw)
	if err != nil {
		return nil, err
	}
	return flatten(row), nil
}

func unwrapRow(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty result list", ErrMalformedPayload)
		}
		if m, ok := v[0].(map[string]any); ok {
			return m, nil
		}
		return map[string]any{"value": v[0]}, nil
	case map[string]any:
		for _, key := range []string{"data", "result", "results", "records"} {
			list, ok := v[key].([]any)
			if !ok || len(list) == 0 {
				continue
			}
			if m, ok := list[0].(map[string]any); ok {
				return m, nil
			}
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected top-level %T", ErrMalformedPayload, raw)
	}
}

// flatten renders scalar fields as strings. Nested structures are kept as
// compact JSON; the merger only ever reads scalar columns from them.
func flatten(row map[string]any) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			out[k] = x
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(x)
		default:
			if b, err := json.Marshal(x); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}
