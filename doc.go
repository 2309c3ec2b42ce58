// Package glazeAuth is the client-side session and request layer of the glaze
// formula app: it persists the signed-in session, sends every server call
// through one pipeline that reacts to session expiry, and runs the provider
// and email login flows that drive an explicit session state machine.
//
// A [Client] is assembled once by [Builder.Build] and is safe to use from
// multiple goroutines afterwards.
//
// # Architecture boundaries
//
// glazeAuth is the public surface. It exposes [Client], [Builder], [Config]
// and value types (LoginResult, MetricsSnapshot, AuditEvent). The building
// blocks live in their own packages:
//
//   - session: key/value persistence and the composite session record
//   - platform: capability probing, host integration and deferred commands
//   - request: the HTTP pipeline and response classification
//   - api: typed auth endpoints
//   - state: the session state machine
//   - autherr: the error taxonomy
//
// Flow orchestration and audit dispatch live under internal/ and are never
// exported.
//
// # What this package must NOT do
//
//   - Refresh tokens on its own. RefreshSession is only ever called explicitly.
//   - Retry or deduplicate calls. Two racing logins resolve last-write-wins.
//   - Hold a lock across a network call.
//   - Perform I/O in Builder methods before Build.
package glazeAuth
