// Package session provides persistent, restart-surviving storage of the signed-in
// session: the bearer token, the cached user profile, the refresh token and the
// login timestamp.
//
// # Storage backends
//
// A [Store] writes JSON-encoded values through a [Backend]. Three backends ship
// with the package: [MemoryBackend] (process lifetime only), [FileBackend] (one
// JSON document on disk) and [RedisBackend] (a shared Redis keyspace under a
// prefix). Backends that also implement [Batcher] receive session saves as one
// batched write so token and user can never be observed apart.
//
// # Architecture boundaries
//
// This package owns the [Store] and the [User] model. It does NOT issue network
// requests, verify token signatures, or decide when a session is invalid on the
// server; those responsibilities belong to the request pipeline and the client.
//
// # What this package must NOT do
//
//   - Import glazeAuth, request, or state (no upward imports).
//   - Return errors from the simple accessors; failures are logged and reported as false.
//   - Encrypt or otherwise transform stored credentials.
package session
