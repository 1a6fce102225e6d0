package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/tabular"
)

const (
	exportSheet    = "Registered Users"
	exportFilename = "Registered_Users.xlsx"
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type rosterService interface {
	Search(ctx context.Context, eventID string, filter application.RosterFilter) ([]application.RosterRow, error)
	Export(ctx context.Context, eventID string) ([]application.ExportRow, error)
}

type ledgerService interface {
	Remove(ctx context.Context, eventID, phone string) error
	MarkAttendance(ctx context.Context, eventID, phone string) (application.Registration, error)
}

type feedbackService interface {
	Append(ctx context.Context, eventID, phone string, input application.FeedbackInput) (application.FeedbackEntry, error)
	ListFor(ctx context.Context, eventID, phone string) ([]application.FeedbackEntry, error)
}

// RosterHandler serves the admin view of an event's registrations.
type RosterHandler struct {
	roster    rosterService
	ledger    ledgerService
	feedback  feedbackService
	responder responder
}

func NewRosterHandler(roster rosterService, ledger ledgerService, feedback feedbackService, logger *slog.Logger) *RosterHandler {
	return &RosterHandler{
		roster:    roster,
		ledger:    ledger,
		feedback:  feedback,
		responder: newResponder(logger),
	}
}

func (h *RosterHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return h.responder.handlerLogger(ctx, "RosterHandler", operation, attrs...)
}

// List returns the event roster narrowed by the query parameters
// registered_number, code, name and category.
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.roster == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	query := r.URL.Query()
	filter := application.RosterFilter{
		RegisteredNumber: query.Get("registered_number"),
		Code:             query.Get("code"),
		Name:             query.Get("name"),
		Category:         query.Get("category"),
	}

	rows, err := h.roster.Search(r.Context(), eventID, filter)
	if err != nil {
		h.log(r.Context(), "List", "event_id", eventID).ErrorContext(r.Context(), "roster search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]rosterRowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRosterRowDTO(row))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, rosterResponse{EventID: eventID, Count: len(out), Registrations: out})
}

// Export downloads the roster as an xlsx workbook, or as JSON when
// format=json is requested.
func (h *RosterHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.roster == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format != "" && format != "xlsx" && format != "json" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errUnsupportedFormat)
		return
	}

	logger := h.log(r.Context(), "Export", "event_id", eventID, "format", format)
	rows, err := h.roster.Export(r.Context(), eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "roster export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if format == "json" {
		out := make([]exportRowDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, exportRowDTO{SrNo: row.SrNo, Name: row.Name, Phone: row.Phone})
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, exportResponse{Rows: out})
		return
	}

	values := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row.Values())
	}
	var buf bytes.Buffer
	if err := tabular.WriteWorkbook(&buf, exportSheet, application.ExportColumns, values); err != nil {
		logger.ErrorContext(r.Context(), "failed to render workbook", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", xlsxMediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.ErrorContext(r.Context(), "failed to write workbook", "error", err)
		return
	}
	logger.InfoContext(r.Context(), "roster exported", "rows", len(rows))
}

// Remove deletes a registration from the event ledger.
func (h *RosterHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.ledger == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, phone, ok := h.registrationKey(w, r)
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Remove", "event_id", eventID, "phone", phone)
	if err := h.ledger.Remove(r.Context(), eventID, phone); err != nil {
		logger.ErrorContext(r.Context(), "registration removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "registration removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// MarkAttendance flags a registrant as present. Repeating the call returns
// the attendance already recorded.
func (h *RosterHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.ledger == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, phone, ok := h.registrationKey(w, r)
	if !ok {
		return
	}

	logger := h.log(r.Context(), "MarkAttendance", "event_id", eventID, "phone", phone)
	registration, err := h.ledger.MarkAttendance(r.Context(), eventID, phone)
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "attendance recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{
		EventID:    registration.EventID,
		Phone:      registration.Phone,
		AttendedAt: formatTime(registration.AttendedAt),
	})
}

// ListFeedback returns the feedback log of one registration.
func (h *RosterHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.feedback == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, phone, ok := h.registrationKey(w, r)
	if !ok {
		return
	}

	entries, err := h.feedback.ListFor(r.Context(), eventID, phone)
	if err != nil {
		h.log(r.Context(), "ListFeedback", "event_id", eventID, "phone", phone).ErrorContext(r.Context(), "feedback lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, feedbackListResponse{Feedback: toFeedbackDTOs(entries)})
}

// AddFeedback appends a feedback entry to a registration.
func (h *RosterHandler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.feedback == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, phone, ok := h.registrationKey(w, r)
	if !ok {
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AddFeedback", "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode feedback request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddFeedback", "event_id", eventID, "phone", phone)
	entry, err := h.feedback.Append(r.Context(), eventID, phone, application.FeedbackInput{Category: req.Category, Remark: req.Remark})
	if err != nil {
		logger.ErrorContext(r.Context(), "feedback submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "feedback recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toFeedbackDTO(entry))
}

// Categories lists the predefined feedback categories.
func (h *RosterHandler) Categories(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, categoriesResponse{
		Categories: append([]string{}, application.FeedbackCategories...),
	})
}

func (h *RosterHandler) registrationKey(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return "", "", false
	}
	phone, ok := PhoneFromContext(r.Context())
	if !ok || strings.TrimSpace(phone) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPhone)
		return "", "", false
	}
	return eventID, phone, true
}

type rosterRowDTO struct {
	Phone        string        `json:"phone"`
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	RegisteredAt string        `json:"registered_at"`
	AttendedAt   string        `json:"attended_at,omitempty"`
	Feedback     []feedbackDTO `json:"feedback"`
}

type attendanceResponse struct {
	EventID    string `json:"event_id"`
	Phone      string `json:"phone"`
	AttendedAt string `json:"attended_at"`
}

type rosterResponse struct {
	EventID       string         `json:"event_id"`
	Count         int            `json:"count"`
	Registrations []rosterRowDTO `json:"registrations"`
}

type exportRowDTO struct {
	SrNo  int    `json:"sr_no"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type exportResponse struct {
	Rows []exportRowDTO `json:"rows"`
}

type feedbackRequest struct {
	Category string `json:"category"`
	Remark   string `json:"remark"`
}

type feedbackDTO struct {
	Category  string `json:"category"`
	Remark    string `json:"remark"`
	Timestamp string `json:"timestamp"`
}

type feedbackListResponse struct {
	Feedback []feedbackDTO `json:"feedback"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

func toRosterRowDTO(row application.RosterRow) rosterRowDTO {
	return rosterRowDTO{
		Phone:        row.Phone,
		Code:         row.Code,
		Name:         row.Name,
		Category:     row.Category,
		RegisteredAt: formatTime(row.RegisteredAt),
		AttendedAt:   formatTime(row.AttendedAt),
		Feedback:     toFeedbackDTOs(row.Feedback),
	}
}

func toFeedbackDTO(entry application.FeedbackEntry) feedbackDTO {
	return feedbackDTO{Category: entry.Category, Remark: entry.Remark, Timestamp: entry.Timestamp}
}

func toFeedbackDTOs(entries []application.FeedbackEntry) []feedbackDTO {
	out := make([]feedbackDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toFeedbackDTO(entry))
	}
	return out
}
