package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bipard/healthfetch/internal/config"
	apperrors "github.com/bipard/healthfetch/internal/errors"
	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/endpoint"
	"github.com/bipard/healthfetch/pkg/fetcher"
	"github.com/bipard/healthfetch/pkg/progress"
)

type stubEngine struct {
	lastJob *fetcher.FetchJob
}

func (e *stubEngine) Run(ctx context.Context, job *fetcher.FetchJob) *progress.Stream {
	e.lastJob = job
	stream := progress.NewStream(job.JobID, 16)
	go func() {
		defer stream.Close()
		for i, date := range job.Dates {
			_ = stream.EmitStarted(progress.Started{Date: date, DateIndex: i + 1, TotalDates: len(job.Dates)})
			_ = stream.EmitDateDone(progress.DateDone{Date: date, Succeeded: endpoint.Count, Stored: true})
		}
		_ = stream.EmitBatchDone(progress.Summary{Requested: len(job.Dates), Processed: len(job.Dates)})
	}()
	return stream
}

func (e *stubEngine) Endpoints() []endpoint.Spec { return endpoint.Specs }

type stubStatusStore struct {
	count    int64
	countErr error
	last     string
	recent   []datekey.Key
}

func (s *stubStatusStore) Count(context.Context) (int64, error) { return s.count, s.countErr }

func (s *stubStatusStore) RecentDates(context.Context, int) ([]datekey.Key, error) {
	return s.recent, nil
}

func (s *stubStatusStore) LastFetchedAt(context.Context) (string, error) { return s.last, nil }

func newTestServer(store *stubStatusStore) (*Server, *stubEngine) {
	engine := &stubEngine{}
	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, engine, store, nil, "test")
	return srv, engine
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv, _ := newTestServer(&stubStatusStore{})

	t.Run("unknown path", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apperrors.CodeNotFound, decodeError(t, rec).Error.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := do(srv, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, apperrors.CodeMethodNotAllowed, decodeError(t, rec).Error.Code)
	})
}

func TestHealthRoute(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv, _ := newTestServer(&stubStatusStore{count: 12})
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "test", resp.Version)
		assert.Equal(t, "healthy", resp.Checks["store"])
	})

	t.Run("store down", func(t *testing.T) {
		srv, _ := newTestServer(&stubStatusStore{countErr: errors.New("locked")})
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		resp := decodeError(t, rec)
		assert.Equal(t, apperrors.CodeServiceUnavailable, resp.Error.Code)
		checks, ok := resp.Error.Details["checks"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "unhealthy", checks["store"])
	})
}

func TestStatusRoute(t *testing.T) {
	srv, _ := newTestServer(&stubStatusStore{
		count:  42,
		last:   "2024-03-07 10:00:00",
		recent: []datekey.Key{"2024-03-07", "2024-03-06"},
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.RecordCount)
	assert.Equal(t, "2024-03-07 10:00:00", resp.LastFetchedAt)
	assert.Equal(t, []datekey.Key{"2024-03-07", "2024-03-06"}, resp.RecentDates)
	assert.Equal(t, endpoint.Count, resp.EndpointCount)
}

func TestEndpointsRoute(t *testing.T) {
	srv, _ := newTestServer(&stubStatusStore{})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/endpoints", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count     int            `json:"count"`
		Endpoints []endpointInfo `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, endpoint.Count, resp.Count)
	require.Len(t, resp.Endpoints, endpoint.Count)
	assert.Equal(t, "staff_data", resp.Endpoints[0].Name)
}

func TestFetchRangeValidation(t *testing.T) {
	srv, engine := newTestServer(&stubStatusStore{})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/fetch/range", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(srv, req)
	}

	t.Run("malformed body", func(t *testing.T) {
		rec := post("{not json")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.CodeInvalidRequest, decodeError(t, rec).Error.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		rec := post(`{"from_date":"03/01/2024","to_date":"2024-03-02"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, apperrors.CodeInvalidRequest, resp.Error.Code)
		assert.Equal(t, "from_date", resp.Error.Details["field"])
	})

	t.Run("inverted range rejected before any stream", func(t *testing.T) {
		rec := post(`{"from_date":"2024-03-05","to_date":"2024-03-01"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, apperrors.CodeInvalidRange, decodeError(t, rec).Error.Code)
		assert.Nil(t, engine.lastJob)
	})
}

func TestFetchRangeStreamsSSE(t *testing.T) {
	srv, engine := newTestServer(&stubStatusStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/fetch/range",
		strings.NewReader(`{"from_date":"2024-03-01","to_date":"2024-03-03"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	require.NotNil(t, engine.lastJob)
	assert.Len(t, engine.lastJob.Dates, 3)

	body := rec.Body.String()
	assert.Contains(t, body, "event: "+progress.TypeStarted)
	assert.Contains(t, body, "event: "+progress.TypeDateDone)
	assert.Contains(t, body, "event: "+progress.TypeBatchDone)

	// batch_done is the final frame.
	frames := strings.Split(strings.TrimSpace(body), "\n\n")
	assert.Contains(t, frames[len(frames)-1], progress.TypeBatchDone)
}

func TestFetchTodayStreamsSSE(t *testing.T) {
	srv, engine := newTestServer(&stubStatusStore{})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/fetch/today", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.NotNil(t, engine.lastJob)
	require.Len(t, engine.lastJob.Dates, 1)
	assert.Equal(t, datekey.Today(), engine.lastJob.Dates[0])
}

func TestRecovererWritesEnvelope(t *testing.T) {
	srv, _ := newTestServer(&stubStatusStore{})

	handler := srv.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeInternal, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "panic: boom")
}
