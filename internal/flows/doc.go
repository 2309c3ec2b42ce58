// Package flows contains pure-function orchestrators for every Client operation.
//
// Each flow function (RunProviderLogin, RunCredentialLogin, RunLogout,
// RunRestore, etc.) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. This keeps the Client type
// thin and lets tests substitute every collaborator.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, auth endpoints,
// provider host, scheduler, state machine, audit emitter and metrics. They do
// NOT own any of these resources; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import glazeAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
