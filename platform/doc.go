// Package platform describes the host the client runs in and the host
// capabilities the client depends on: environment detection, the provider
// login bridge, user-facing notices and deferred navigation.
//
// # Architecture boundaries
//
// Everything in this package is an interface onto the host application or a
// small pure helper around one. Rendering and routing are performed by the
// host; the client only emits [Command] values and calls [Presenter] methods.
//
// # What this package must NOT do
//
//   - Import glazeAuth, request, or session.
//   - Block on user interaction.
package platform
