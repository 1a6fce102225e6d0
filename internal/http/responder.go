package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/event-roster/internal/application"
)

var (
	errBadRequestBody         = errors.New("Invalid request body.")
	errInvalidEventID         = errors.New("Invalid event id.")
	errInvalidPhone           = errors.New("Invalid phone number.")
	errMissingAdminKey        = errors.New("Admin key is required.")
	errMissingRegistrantToken = errors.New("Please log in to view this event.")
	errUnsupportedFormat      = errors.New("Unsupported export format.")
	errMissingWorkbook        = errors.New("Upload an xlsx file in the \"file\" field or send JSON rows.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "You are not allowed to perform this operation.",
		})
	case errors.Is(err, application.ErrSessionInvalid):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "SESSION_INVALID",
			Message:   "Your session has ended. Please log in again.",
		})
	case errors.Is(err, application.ErrPhoneNotVerified):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "PHONE_NOT_REGISTERED",
			Message:   "Phone number not registered.",
		})
	case errors.Is(err, application.ErrTimeout):
		r.writeJSON(ctx, w, http.StatusGatewayTimeout, errorResponse{
			ErrorCode: "TIMEOUT",
			Message:   "The operation timed out. Please try again.",
		})
	case errors.Is(err, application.ErrVerificationUnavailable):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "VERIFICATION_FAILED",
			Message:   "Login failed. Please try again.",
		})
	case errors.Is(err, application.ErrEmptyExport):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "EXPORT_EMPTY",
			Message:   "There are no registrations to export.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "The requested resource was not found."})
	case errors.Is(err, application.ErrStoreUnavailable):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "STORE_UNAVAILABLE",
			Message:   "The service is temporarily unavailable. Please try again.",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: vErr.Error(),
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "An internal server error occurred."})
	}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is invalid."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusForbidden:
		return "You are not allowed to perform this operation."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusUnprocessableEntity:
		return "The submitted data is invalid."
	default:
		return "An internal server error occurred."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
