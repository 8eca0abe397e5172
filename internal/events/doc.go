// Package events provides types and interfaces for an event-driven architecture.
//
// Game engines emit events describing every state change of a match game
// without knowing who consumes them; the websocket hub is the main handler
// and forwards each event to the clients watching that game.
//
// The primary components are:
// - GameEvent: A state change of one game, carrying a snapshot of its state
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
