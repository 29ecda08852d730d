// Package server runs playerd: the game listener, one session adapter per
// connection, and the admin HTTP API.
//
// Ownership boundary:
// - session registry keyed by transport session id
// - player world lifetime and relay broadcasts between sessions
// - built-in interception observers from config
// - admin routes for health, metrics, sessions and observers
package server
