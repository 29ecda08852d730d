// Package session adapts one connected client to the server: it decodes
// inbound messages, runs interception, dispatches through a handler table
// that covers every message kind, and sends outbound messages.
//
// Ownership boundary:
// - the per-kind handler policies (delegate, stubs, refusal, relay, direct mutation)
// - timing scopes and advisory diagnostics around every message
// - the disconnect sequence for a session
//
// Framing, payload encoding and game state belong to the transport, the
// packet codec and the session owner.
package session
