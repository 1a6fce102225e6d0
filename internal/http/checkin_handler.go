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

// RegistrantTokenHeader carries the registrant session token.
const RegistrantTokenHeader = "X-Registrant-Token"

const registrantCookie = "registrant_token"

type checkInService interface {
	Login(ctx context.Context, eventID, phone string) (application.RegistrantSession, application.EventView, error)
	View(ctx context.Context, token string) (application.EventView, error)
	Logout(ctx context.Context, token string) error
}

// CheckInHandler serves the public registrant endpoints.
type CheckInHandler struct {
	service   checkInService
	responder responder
}

func NewCheckInHandler(service checkInService, logger *slog.Logger) *CheckInHandler {
	return &CheckInHandler{service: service, responder: newResponder(logger)}
}

func (h *CheckInHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return h.responder.handlerLogger(ctx, "CheckInHandler", operation, attrs...)
}

// Login verifies the posted phone number and registers it for the event.
func (h *CheckInHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Login", "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Login", "event_id", eventID)
	session, view, err := h.service.Login(r.Context(), eventID, req.PhoneNumber)
	if err != nil {
		logger.ErrorContext(r.Context(), "registrant login failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	setRegistrantCookie(w, session.Token, session.ExpiresAt)
	w.Header().Set(RegistrantTokenHeader, session.Token)
	logger.InfoContext(r.Context(), "registrant logged in")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		View:      toViewDTO(view),
	})
}

// View returns the event as seen by the registrant holding the session.
func (h *CheckInHandler) View(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := registrantToken(r)
	if token == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingRegistrantToken)
		return
	}

	eventID, _ := EventIDFromContext(r.Context())
	logger := h.log(r.Context(), "View", "event_id", eventID)
	view, err := h.service.View(r.Context(), token)
	if err != nil {
		if application.ErrorKind(err) == "session_invalid" {
			clearRegistrantCookie(w)
		}
		logger.ErrorContext(r.Context(), "registrant view failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if eventID != "" && view.Event.ID != eventID {
		logger.WarnContext(r.Context(), "session belongs to another event", "session_event_id", view.Event.ID)
		h.responder.handleServiceError(r.Context(), w, application.ErrSessionInvalid)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toViewDTO(view))
}

// Logout discards the registrant session.
func (h *CheckInHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Logout")
	if err := h.service.Logout(r.Context(), registrantToken(r)); err != nil {
		logger.ErrorContext(r.Context(), "registrant logout failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearRegistrantCookie(w)
	logger.InfoContext(r.Context(), "registrant logged out")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	View      viewDTO `json:"view"`
}

type viewDTO struct {
	Event           eventDTO `json:"event"`
	PhoneNumber     string   `json:"phone_number"`
	DisplayName     string   `json:"display_name"`
	RegisteredCount int      `json:"registered_count"`
}

func toViewDTO(view application.EventView) viewDTO {
	return viewDTO{
		Event:           toEventDTO(view.Event),
		PhoneNumber:     view.Phone,
		DisplayName:     view.DisplayName,
		RegisteredCount: view.RegisteredCount,
	}
}

func setRegistrantCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     registrantCookie,
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearRegistrantCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     registrantCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

func registrantToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := strings.TrimSpace(r.Header.Get(RegistrantTokenHeader)); token != "" {
		return token
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	if cookie, err := r.Cookie(registrantCookie); err == nil {
		return cookie.Value
	}
	return ""
}
