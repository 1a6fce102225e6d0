package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// FeedbackCategories is the fixed set of predefined feedback categories.
var FeedbackCategories = []string{
	"Available",
	"Not Available",
	"Not Connected Yet",
	"Called but no response",
	"Tentative",
	"Other response",
}

const submittedAtLayout = "2/1/2006, 3:04:05 pm"

// FormatSubmittedAt renders the display timestamp stored with a feedback entry.
func FormatSubmittedAt(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return "Submitted on: " + t.In(loc).Format(submittedAtLayout)
}

// FeedbackService appends to and reads the feedback log of a registration.
type FeedbackService struct {
	registrations RegistrationRepository
	now           func() time.Time
	location      *time.Location
	logger        *slog.Logger
}

// NewFeedbackService wires dependencies for the feedback service. Timestamps
// are rendered in location.
func NewFeedbackService(registrations RegistrationRepository, now func() time.Time, location *time.Location) *FeedbackService {
	return NewFeedbackServiceWithLogger(registrations, now, location, nil)
}

// NewFeedbackServiceWithLogger wires dependencies with a specified logger.
func NewFeedbackServiceWithLogger(registrations RegistrationRepository, now func() time.Time, location *time.Location, logger *slog.Logger) *FeedbackService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &FeedbackService{registrations: registrations, now: now, location: location, logger: defaultLogger(logger)}
}

func (s *FeedbackService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "FeedbackService", operation, attrs...)
}

// Append adds an entry to the feedback log of (eventID, phone). At least one
// of category and remark is required, and a category must be one of
// FeedbackCategories. Entries are never edited or removed afterwards.
func (s *FeedbackService) Append(ctx context.Context, eventID, phone string, input FeedbackInput) (entry FeedbackEntry, err error) {
	if s == nil || s.registrations == nil {
		return FeedbackEntry{}, fmt.Errorf("registration repository not configured")
	}

	logger := s.loggerWith(ctx, "Append", "event_id", eventID, "phone", phone)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to append feedback", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "feedback appended", "category", entry.Category)
	}()

	input = normalizeFeedbackInput(input)
	if vErr := validateFeedbackInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	entry = FeedbackEntry{
		Category:  input.Category,
		Remark:    input.Remark,
		Timestamp: FormatSubmittedAt(s.now(), s.location),
	}
	if err = s.registrations.AppendFeedback(ctx, strings.TrimSpace(eventID), strings.TrimSpace(phone), entry); err != nil {
		entry = FeedbackEntry{}
		return
	}
	return
}

// ListFor returns the feedback log of (eventID, phone), oldest first.
func (s *FeedbackService) ListFor(ctx context.Context, eventID, phone string) ([]FeedbackEntry, error) {
	if s == nil || s.registrations == nil {
		return nil, fmt.Errorf("registration repository not configured")
	}
	registration, err := s.registrations.GetRegistration(ctx, strings.TrimSpace(eventID), strings.TrimSpace(phone))
	if err != nil {
		return nil, err
	}
	out := make([]FeedbackEntry, len(registration.Feedback))
	copy(out, registration.Feedback)
	return out, nil
}

func normalizeFeedbackInput(input FeedbackInput) FeedbackInput {
	return FeedbackInput{
		Category: strings.TrimSpace(input.Category),
		Remark:   strings.TrimSpace(input.Remark),
	}
}

func validateFeedbackInput(input FeedbackInput) *ValidationError {
	vErr := &ValidationError{Message: "Please select a predefined feedback or enter custom feedback."}

	if input.Category == "" && input.Remark == "" {
		vErr.add("feedback", "category or remark is required")
		return vErr
	}
	if input.Category != "" && !isFeedbackCategory(input.Category) {
		vErr.add("category", "category is not a predefined feedback option")
	}
	return vErr
}

func isFeedbackCategory(category string) bool {
	for _, candidate := range FeedbackCategories {
		if candidate == category {
			return true
		}
	}
	return false
}
