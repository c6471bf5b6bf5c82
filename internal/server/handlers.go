package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/bipard/healthfetch/internal/errors"
	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/fetcher"
)

const recentDatesLimit = 14

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// healthResponse mirrors the readiness shape monitoring expects.
type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "healthy"}
	if _, err := s.store.Count(ctx); err != nil {
		checks["store"] = "unhealthy"
		s.logger.Warn("health check failed", zap.Error(err))
		apperrors.WriteErrorDetails(w, r, http.StatusServiceUnavailable,
			apperrors.CodeServiceUnavailable, "store unavailable",
			map[string]any{"checks": checks})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Version: s.version,
		Checks:  checks,
	})
}

type statusResponse struct {
	RecordCount   int64         `json:"record_count"`
	LastFetchedAt string        `json:"last_fetched_at,omitempty"`
	RecentDates   []datekey.Key `json:"recent_dates"`
	EndpointCount int           `json:"endpoint_count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 10*time.Second)
	defer cancel()

	count, err := s.store.Count(ctx)
	if err != nil {
		apperrors.WriteError(w, r, http.StatusInternalServerError,
			apperrors.CodeInternal, "query record count: "+err.Error())
		return
	}
	last, err := s.store.LastFetchedAt(ctx)
	if err != nil {
		apperrors.WriteError(w, r, http.StatusInternalServerError,
			apperrors.CodeInternal, "query last fetch time: "+err.Error())
		return
	}
	recent, err := s.store.RecentDates(ctx, recentDatesLimit)
	if err != nil {
		apperrors.WriteError(w, r, http.StatusInternalServerError,
			apperrors.CodeInternal, "query recent dates: "+err.Error())
		return
	}
	if recent == nil {
		recent = []datekey.Key{}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		RecordCount:   count,
		LastFetchedAt: last,
		RecentDates:   recent,
		EndpointCount: len(s.engine.Endpoints()),
	})
}

type endpointInfo struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	specs := s.engine.Endpoints()
	out := make([]endpointInfo, 0, len(specs))
	for _, spec := range specs {
		info := endpointInfo{
			Name:        spec.Name,
			Path:        spec.Path,
			Description: spec.Description,
			Columns:     []string{},
		}
		for _, f := range spec.Fields {
			info.Columns = append(info.Columns, f.Column)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(out),
		"endpoints": out,
	})
}

func (s *Server) handleFetchToday(w http.ResponseWriter, r *http.Request) {
	job := fetcher.JobForToday()
	s.logger.Info("fetch today requested",
		zap.String("job_id", job.JobID),
		zap.String("date", job.Dates[0].String()))
	s.streamJob(w, r, job)
}

type rangeRequest struct {
	From string `json:"from_date"`
	To   string `json:"to_date"`
}

func (s *Server) handleFetchRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteError(w, r, http.StatusBadRequest,
			apperrors.CodeInvalidRequest, "invalid JSON body: "+err.Error())
		return
	}

	from, err := datekey.Parse(req.From)
	if err != nil {
		apperrors.WriteErrorDetails(w, r, http.StatusBadRequest,
			apperrors.CodeInvalidRequest, err.Error(), map[string]any{"field": "from_date"})
		return
	}
	to, err := datekey.Parse(req.To)
	if err != nil {
		apperrors.WriteErrorDetails(w, r, http.StatusBadRequest,
			apperrors.CodeInvalidRequest, err.Error(), map[string]any{"field": "to_date"})
		return
	}

	// An inverted range is rejected here, before any stream exists.
	job, err := fetcher.JobForRange(from, to)
	if err != nil {
		apperrors.WriteError(w, r, http.StatusBadRequest,
			apperrors.CodeInvalidRange, err.Error())
		return
	}

	s.logger.Info("fetch range requested",
		zap.String("job_id", job.JobID),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("dates", len(job.Dates)))
	s.streamJob(w, r, job)
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
