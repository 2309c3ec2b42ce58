// Package request implements the outbound HTTP pipeline shared by every
// server call: credential injection, timeouts, loading indicators, envelope
// classification and the global reaction to session expiry.
//
// # Classification
//
// Each call ends in exactly one outcome, checked in this order: transport
// failure, non-2xx status, envelope success (code 200), session expiry (code
// 401), business error (any other code). Codes are accepted as JSON strings
// or numbers.
//
// # Architecture boundaries
//
// The pipeline reads the token and clears the session through [Session]; it
// never writes a session. It reports expiry and per-call results through
// [Hooks] and leaves state transitions, metrics and audit to the caller.
package request
