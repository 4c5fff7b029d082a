package handler

import (
	"log/slog"
	"net/http"

	"github.com/curvelabs/bondengine/internal/domain"
)

// maxEventPage caps how many journal entries one request can return.
const maxEventPage = 500

// EventsHandler serves the committed event journal.
type EventsHandler struct {
	events domain.EventStore
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(events domain.EventStore, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{events: events, logger: logHandler(logger, "events")}
}

// List returns journal entries after a sequence number, oldest first.
// Archived segments are not served here; they live in blob storage.
// GET /api/events?after=N&limit=M
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	after, err := queryUint(r, "after", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
		return
	}
	limit, err := queryUint(r, "limit", 100)
	if err != nil || limit == 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}

	events, err := h.events.ListRange(r.Context(), after, int(limit))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "event range query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "event query failed")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
