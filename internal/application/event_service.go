package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EventRepository captures the persistence operations needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// RegistrationCounter reports the size of an event ledger.
type RegistrationCounter interface {
	Count(ctx context.Context, eventID string) (int, error)
}

const eventValidationMessage = "Please fill in all fields."

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// eventTimeLayouts are tried in order; layouts without a zone are read in
// the service location.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// EventService manages event aggregates.
type EventService struct {
	events      EventRepository
	counter     RegistrationCounter
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	linkBase    string
	logger      *slog.Logger
}

// EventServiceConfig holds optional event service settings.
type EventServiceConfig struct {
	// Location interprets event times given without a zone.
	Location *time.Location
	// PublicBaseURL prefixes share links, e.g. https://events.example.com.
	PublicBaseURL string
}

// NewEventService wires dependencies for the event service.
func NewEventService(events EventRepository, counter RegistrationCounter, idGenerator func() string, now func() time.Time, cfg EventServiceConfig) *EventService {
	return NewEventServiceWithLogger(events, counter, idGenerator, now, cfg, nil)
}

// NewEventServiceWithLogger wires dependencies with a specified logger.
func NewEventServiceWithLogger(events EventRepository, counter RegistrationCounter, idGenerator func() string, now func() time.Time, cfg EventServiceConfig, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &EventService{
		events:      events,
		counter:     counter,
		idGenerator: idGenerator,
		now:         now,
		location:    cfg.Location,
		linkBase:    strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// Create validates input and stores a new event under a generated id.
func (s *EventService) Create(ctx context.Context, input EventInput) (event Event, err error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "Create")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event created", "event_id", event.ID)
	}()

	var at time.Time
	input, at, err = s.validateInput(input)
	if err != nil {
		return
	}

	now := s.now()
	event = Event{
		ID:          s.idGenerator(),
		Name:        input.Name,
		Time:        at,
		Agenda:      input.Agenda,
		MeetingLink: input.MeetingLink,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.events.CreateEvent(ctx, event); err != nil {
		event = Event{}
		return
	}
	return
}

// Update replaces every field of an existing event.
func (s *EventService) Update(ctx context.Context, eventID string, input EventInput) (event Event, err error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	eventID = strings.TrimSpace(eventID)
	logger := s.loggerWith(ctx, "Update", "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	var existing Event
	existing, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		return
	}

	var at time.Time
	input, at, err = s.validateInput(input)
	if err != nil {
		return
	}

	event = Event{
		ID:          existing.ID,
		Name:        input.Name,
		Time:        at,
		Agenda:      input.Agenda,
		MeetingLink: input.MeetingLink,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   s.now(),
	}
	if err = s.events.UpdateEvent(ctx, event); err != nil {
		event = Event{}
		return
	}
	return
}

// Delete removes the event. Its registrations are not touched.
func (s *EventService) Delete(ctx context.Context, eventID string) (err error) {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "Delete", "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted")
	}()

	err = s.events.DeleteEvent(ctx, strings.TrimSpace(eventID))
	return
}

// Get returns the event with eventID or ErrNotFound.
func (s *EventService) Get(ctx context.Context, eventID string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	return s.events.GetEvent(ctx, strings.TrimSpace(eventID))
}

// List returns every event ordered by time.
func (s *EventService) List(ctx context.Context) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}
	return s.events.ListEvents(ctx)
}

// Summary returns the event with its registered count and share link.
func (s *EventService) Summary(ctx context.Context, eventID string) (EventSummary, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return EventSummary{}, err
	}
	summary := EventSummary{Event: event, ShareLink: s.ShareLink(event.ID)}
	if s.counter != nil {
		if summary.RegisteredCount, err = s.counter.Count(ctx, event.ID); err != nil {
			return EventSummary{}, err
		}
	}
	return summary, nil
}

// ListSummaries returns every event with its registered count and share link.
func (s *EventService) ListSummaries(ctx context.Context) ([]EventSummary, error) {
	events, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]EventSummary, 0, len(events))
	for _, event := range events {
		summary := EventSummary{Event: event, ShareLink: s.ShareLink(event.ID)}
		if s.counter != nil {
			if summary.RegisteredCount, err = s.counter.Count(ctx, event.ID); err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ShareLink returns the public registration link of eventID.
func (s *EventService) ShareLink(eventID string) string {
	path := "/events/" + eventID
	if s == nil || s.linkBase == "" {
		return path
	}
	return s.linkBase + path
}

func (s *EventService) validateInput(input EventInput) (EventInput, time.Time, error) {
	normalized := normalizeEventInput(input)
	vErr := &ValidationError{Message: eventValidationMessage}

	if err := validate.Struct(normalized); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return EventInput{}, time.Time{}, err
		}
		for _, fe := range fieldErrs {
			vErr.add(fe.Field(), fieldMessage(fe))
		}
	}

	var at time.Time
	if normalized.Time != "" {
		parsed, ok := parseEventTime(normalized.Time, s.location)
		if !ok {
			vErr.add("time", "time must be a valid date and time")
		}
		at = parsed
	}

	if vErr.HasErrors() {
		return EventInput{}, time.Time{}, vErr
	}
	return normalized, at, nil
}

func normalizeEventInput(input EventInput) EventInput {
	agenda := make([]string, len(input.Agenda))
	for i, item := range input.Agenda {
		agenda[i] = strings.TrimSpace(item)
	}
	return EventInput{
		Name:        strings.TrimSpace(input.Name),
		Time:        strings.TrimSpace(input.Time),
		Agenda:      agenda,
		MeetingLink: strings.TrimSpace(input.MeetingLink),
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		if strings.HasPrefix(name, "agenda[") {
			return "agenda item must not be empty"
		}
		return name + " is required"
	case "min":
		return name + " requires at least one item"
	default:
		return name + " is invalid"
	}
}

func parseEventTime(value string, loc *time.Location) (time.Time, bool) {
	for _, layout := range eventTimeLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
