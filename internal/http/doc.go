// Package http provides HTTP handlers and middleware for the event roster API.
//
// The router exposes the following endpoints:
//   - POST /events/{eventID}/sessions: registrant login. Body: {"phone_number"}.
//     The phone is verified externally, registered for the event and a session
//     is issued. Response: {"token","expires_at","view"} with the token also
//     surfaced via the `X-Registrant-Token` header and a `registrant_token` cookie.
//   - GET /events/{eventID}/view: the event as seen by the registrant holding the
//     session. The token is read from `X-Registrant-Token`, a Bearer
//     Authorization header or the cookie, in that order.
//   - DELETE /events/{eventID}/sessions/current: discards the session. 204.
//   - GET /admin/events, POST /admin/events, GET|PUT|DELETE /admin/events/{eventID}:
//     event management exchanging the `eventSummaryDTO` payload defined in
//     event_handler.go.
//   - GET /admin/events/{eventID}/registrations: roster joined with the directory,
//     filtered by registered_number, code, name and category query parameters.
//   - GET /admin/events/{eventID}/registrations/export: xlsx download of the
//     roster, or JSON with format=json.
//   - DELETE /admin/events/{eventID}/registrations/{phone}: removes a registration.
//   - POST /admin/events/{eventID}/registrations/{phone}/attendance: marks the
//     registrant as present. Idempotent; 404 when the phone is not registered.
//   - GET|POST /admin/events/{eventID}/registrations/{phone}/feedback: the
//     feedback log of a registration. Body: {"category","remark"}.
//   - GET /admin/feedback/categories: the predefined feedback categories.
//   - GET /admin/directory, GET|PUT|DELETE /admin/directory/{phone},
//     POST /admin/directory/import: user master maintenance. Import accepts a
//     multipart xlsx upload in the "file" field or JSON {"rows":[...]}.
//
// Every /admin route requires the `X-Admin-Key` header. Request/response DTOs
// live alongside their respective handlers.
package http
