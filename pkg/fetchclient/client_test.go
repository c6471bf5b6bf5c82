package fetchclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bipard/healthfetch/pkg/endpoint"
)

const testDate = "2024-01-15"

func testSpec() endpoint.Spec {
	s, ok := endpoint.ByName("mlc_count")
	if !ok {
		panic("mlc_count missing from endpoint table")
	}
	return s
}

// newTestServer returns a server that issues tokens and delegates endpoint
// calls to handle.
func newTestServer(t *testing.T, handle http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/generateToken", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "sk", creds["secretKey"])
		assert.Equal(t, "ck", creds["clientKey"])
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})
	mux.HandleFunc("/", handle)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, mutate func(*Config)) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Credentials = Credentials{SecretKey: "sk", ClientKey: "ck"}
	cfg.Backoff = 5 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func TestFetchSuccess(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/MLCCount", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var window map[string]string
		require.NoError(t, json.Unmarshal(body, &window))
		assert.Equal(t, testDate, window["tdate"])
		assert.Equal(t, testDate, window["dEndDate"])

		_ = json.NewEncoder(w).Encode([]map[string]any{{"count": 42}})
	})

	c := newTestClient(srv, nil)
	res := c.Fetch(context.Background(), testDate, testSpec())

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, "mlc_count", res.Endpoint)
	assert.Equal(t, "42", res.Values["count"])
}

func TestFetchPayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{"array of objects", `[{"count": "7"}]`, map[string]string{"count": "7"}},
		{"array of scalars", `[99]`, map[string]string{"value": "99"}},
		{"bare object", `{"count": 3}`, map[string]string{"count": "3"}},
		{"wrapped in data", `{"data": [{"count": 5}]}`, map[string]string{"count": "5"}},
		{"wrapped in records", `{"records": [{"count": 8}]}`, map[string]string{"count": "8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			c := newTestClient(srv, nil)

			res := c.Fetch(context.Background(), testDate, testSpec())
			require.True(t, res.OK(), "unexpected error: %v", res.Err)
			for k, v := range tt.want {
				assert.Equal(t, v, res.Values[k])
			}
		})
	}
}

func TestFetchRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"count": 1}})
	})

	c := newTestClient(srv, nil)
	res := c.Fetch(context.Background(), testDate, testSpec())

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, int32(3), calls.Load(), "two retries after the initial attempt")
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(srv, nil)
	res := c.Fetch(context.Background(), testDate, testSpec())

	require.False(t, res.OK())
	assert.True(t, IsTransient(res.Err))
	assert.Equal(t, int32(3), calls.Load())

	var callErr *CallError
	require.ErrorAs(t, res.Err, &callErr)
	assert.Equal(t, "mlc_count", callErr.Endpoint)
}

func TestFetchPermanentNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(srv, nil)
	res := c.Fetch(context.Background(), testDate, testSpec())

	require.False(t, res.OK())
	assert.True(t, IsPermanent(res.Err))
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestFetchMalformedPayload(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	})

	c := newTestClient(srv, nil)
	res := c.Fetch(context.Background(), testDate, testSpec())

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrMalformedPayload)
}

func TestFetchReauthenticatesOn401(t *testing.T) {
	var tokens atomic.Int32
	var dataCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/generateToken", func(w http.ResponseWriter, r *http.Request) {
		n := tokens.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok-" + string(rune('0'+n))})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if dataCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]map[string]any{{"count": 1}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv, nil)
	res := c.Fetch(context.Background(), testDate, testSpec())

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, int32(2), tokens.Load(), "exactly one re-authentication")
}

func TestFetchPersistentUnauthorized(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := newTestClient(srv, nil)
	res := c.Fetch(context.Background(), testDate, testSpec())

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, ErrUnauthorized)
}

func TestFetchCeiling(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client hanging up.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Registered after newTestServer so it runs before srv.Close and the
	// stalled handler can never hold up cleanup.
	t.Cleanup(func() { close(release) })

	c := newTestClient(srv, func(cfg *Config) {
		cfg.Timeout = 50 * time.Millisecond
		cfg.CallCeiling = 120 * time.Millisecond
	})

	start := time.Now()
	res := c.Fetch(context.Background(), testDate, testSpec())
	elapsed := time.Since(start)

	require.False(t, res.OK())
	assert.True(t, IsTransient(res.Err))
	assert.Less(t, elapsed, time.Second, "call must return within the ceiling")
}

func TestAuthenticateFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/generateToken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	c := New(cfg)

	err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestParseTokenShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"token key", `{"token":"abc"}`, "abc", false},
		{"access_token key", `{"access_token":"abc"}`, "abc", false},
		{"accessToken key", `{"accessToken":"abc"}`, "abc", false},
		{"bare string", `"abc"`, "abc", false},
		{"empty object", `{}`, "", true},
		{"not json", `<html>`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := parseToken(strings.NewReader(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok)
		})
	}
}
