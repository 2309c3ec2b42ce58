// Package authtest provides test doubles for the client: an in-process auth
// server speaking the envelope protocol and a presenter that records calls.
//
// It is imported only from _test.go files and by the glazectl demo mode.
package authtest
