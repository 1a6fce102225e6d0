package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-roster/internal/application"
)

type eventService interface {
	Create(ctx context.Context, input application.EventInput) (application.Event, error)
	Update(ctx context.Context, eventID string, input application.EventInput) (application.Event, error)
	Delete(ctx context.Context, eventID string) error
	Summary(ctx context.Context, eventID string) (application.EventSummary, error)
	ListSummaries(ctx context.Context) ([]application.EventSummary, error)
	ShareLink(eventID string) string
}

// EventHandler serves the admin event endpoints.
type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return h.responder.handlerLogger(ctx, "EventHandler", operation, attrs...)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req application.EventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	event, err := h.service.Create(r.Context(), req)
	if err != nil {
		logger.ErrorContext(r.Context(), "event creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventSummaryDTO{
		Event:     toEventDTO(event),
		ShareLink: h.service.ShareLink(event.ID),
	})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req application.EventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "event_id", eventID)
	if _, err := h.service.Update(r.Context(), eventID, req); err != nil {
		logger.ErrorContext(r.Context(), "event update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "event updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventSummaryDTO(summary))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	logger := h.log(r.Context(), "Delete", "event_id", eventID)
	if err := h.service.Delete(r.Context(), eventID); err != nil {
		logger.ErrorContext(r.Context(), "event delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, _ := EventIDFromContext(r.Context())
	summary, err := h.service.Summary(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).ErrorContext(r.Context(), "event lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventSummaryDTO(summary))
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	summaries, err := h.service.ListSummaries(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]eventSummaryDTO, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toEventSummaryDTO(summary))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventListResponse{Events: out})
}

type eventDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Time        string   `json:"time"`
	Agenda      []string `json:"agenda"`
	MeetingLink string   `json:"meeting_link"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

type eventSummaryDTO struct {
	Event           eventDTO `json:"event"`
	RegisteredCount int      `json:"registered_count"`
	ShareLink       string   `json:"share_link"`
}

type eventListResponse struct {
	Events []eventSummaryDTO `json:"events"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:          event.ID,
		Name:        event.Name,
		Time:        formatTime(event.Time),
		Agenda:      append([]string{}, event.Agenda...),
		MeetingLink: event.MeetingLink,
		CreatedAt:   formatTime(event.CreatedAt),
		UpdatedAt:   formatTime(event.UpdatedAt),
	}
}

func toEventSummaryDTO(summary application.EventSummary) eventSummaryDTO {
	return eventSummaryDTO{
		Event:           toEventDTO(summary.Event),
		RegisteredCount: summary.RegisteredCount,
		ShareLink:       summary.ShareLink,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
