package http

import "context"

type contextKey string

const (
	eventIDContextKey contextKey = "event_id"
	phoneContextKey   contextKey = "phone"
)

// ContextWithEventID injects the event identifier resolved from the request path.
func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDContextKey, eventID)
}

// EventIDFromContext extracts an event identifier previously associated with the context.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDContextKey).(string)
	return id, ok
}

// ContextWithPhone injects the phone number resolved from the request path.
func ContextWithPhone(ctx context.Context, phone string) context.Context {
	return context.WithValue(ctx, phoneContextKey, phone)
}

// PhoneFromContext extracts a phone number previously associated with the context.
func PhoneFromContext(ctx context.Context) (string, bool) {
	phone, ok := ctx.Value(phoneContextKey).(string)
	return phone, ok
}
