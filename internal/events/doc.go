// Package events is the interception pipeline every session message passes
// through before its handler runs or before it reaches the transport.
//
// Ownership boundary:
// - observer registration order and naming
// - synchronous delivery with first-cancel short circuit
// - passive observers, which see events but cannot cancel them
package events
