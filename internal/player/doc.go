// Package player is the session owner for connected clients: login, chat,
// commands, view distance, forms and skins. Game rules are not modelled;
// movement and interaction messages are recorded and accepted after login.
package player
