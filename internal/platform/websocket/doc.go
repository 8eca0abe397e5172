// Package websocket pushes match game events to browser clients.
//
// Hub implements events.EventHandler: every event emitted for a game is
// forwarded to the websocket connections subscribed to that game. Each
// connection has its own buffered send queue and writer goroutine, so event
// delivery never blocks the game engine; a client that falls behind is
// disconnected.
package websocket
