// Package protocol owns the message kind contract and the envelope that
// carries one decoded message through a session.
//
// Ownership boundary:
// - closed message kind enumeration and wire ids
// - traffic direction
// - envelope read cursor over tlv payloads
package protocol
