package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Handler is the HTTP driving adapter that serves the REST API and the live
// event stream.
type Handler struct {
	events      driven.EventStore
	summaries   driven.SummaryStore
	queue       driven.JobQueue
	coordinator *application.Coordinator
	notifier    *application.Notifier
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	events driven.EventStore,
	summaries driven.SummaryStore,
	queue driven.JobQueue,
	coordinator *application.Coordinator,
	notifier *application.Notifier,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		events:      events,
		summaries:   summaries,
		queue:       queue,
		coordinator: coordinator,
		notifier:    notifier,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/events", h.ListEvents)
	mux.HandleFunc("GET /api/v1/events/{id}/summary", h.GetSummary)
	mux.HandleFunc("POST /api/v1/events/{id}/summary", h.RequestSummary)
	mux.HandleFunc("GET /api/v1/stream", h.Stream)
	mux.HandleFunc("POST /api/v1/reset", h.Reset)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListEvents returns the most recently observed scored events, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.events.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSummary returns the stored summary for an event, or 404 when the event
// has no summary yet.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")

	summary, err := h.summaries.GetByEventID(r.Context(), eventID)
	if err != nil {
		h.logger.Error("failed to get summary", "event", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no summary for this event")
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(*summary))
}

// RequestSummary asks the coordinator to summarize an event. The response
// status encodes the outcome: 200 with the summary when one is already
// stored, 202 while generation is queued or in flight, 429 when the per-run
// budget is exhausted.
func (h *Handler) RequestSummary(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")

	status, existing, err := h.coordinator.RequestSummary(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, driven.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.logger.Error("summary request failed", "event", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch status {
	case application.RequestStored:
		writeJSON(w, http.StatusOK, RequestSummaryResponse{
			Status:  status,
			Summary: ptr(toSummaryResponse(*existing)),
		})
	case application.RequestGenerating:
		writeJSON(w, http.StatusAccepted, RequestSummaryResponse{Status: status})
	case application.RequestBudgetExhausted:
		writeJSON(w, http.StatusTooManyRequests, RequestSummaryResponse{Status: status})
	default:
		h.logger.Error("unknown summary request status", "status", status)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Reset clears all stored events, summaries, queued jobs, and budget state.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.Reset(r.Context()); err != nil {
		h.logger.Error("reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reset incomplete")
		return
	}

	writeJSON(w, http.StatusOK, ResetResponse{Status: "reset"})
}

// Stats returns pipeline counters for operational visibility.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	eventCount, err := h.events.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	summaryCount, err := h.summaries.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count summaries", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	queued, err := h.queue.Length(r.Context())
	if err != nil {
		h.logger.Error("failed to read queue length", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Events:           eventCount,
		Summaries:        summaryCount,
		QueuedJobs:       queued,
		PendingSummaries: h.coordinator.Pending(),
		SecuritySpent:    h.coordinator.Spent(model.CategorySecurity),
		QualitySpent:     h.coordinator.Spent(model.CategoryCodeQuality),
		BudgetPerAxis:    h.coordinator.Budget(),
		DurableQueue:     h.queue.Durable(),
		Subscribers:      h.notifier.SubscriberCount(),
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func ptr[T any](v T) *T {
	return &v
}
