package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/bipard/healthfetch/internal/errors"
	"github.com/bipard/healthfetch/pkg/fetcher"
)

// streamJob runs the job and relays its progress stream as Server-Sent
// Events. The request context drives cancellation: a client disconnect
// stops date submission while in-flight calls drain, and the final
// batch_done is still produced (though it may have no reader left).
func (s *Server) streamJob(w http.ResponseWriter, r *http.Request, job *fetcher.FetchJob) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apperrors.WriteError(w, r, http.StatusInternalServerError,
			apperrors.CodeInternal, "streaming unsupported by connection")
		return
	}

	stream := s.engine.Run(r.Context(), job)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range stream.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("marshal progress event",
				zap.String("job_id", job.JobID),
				zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
			// Client went away. Keep draining so the job's emitter never
			// blocks on a full buffer.
			for range stream.Events() {
			}
			return
		}
		flusher.Flush()
	}
}
