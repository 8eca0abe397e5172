// Package game hosts live matching-game instances.
//
// The game rules themselves live in internal/domain/match as pure state
// transitions. This package binds a match.GameState to time and to the
// outside world:
//
//   - Engine owns one game. It schedules the delayed resolution of a selected
//     pair and the once-per-second clock through a Scheduler, and emits an
//     events.GameEvent for every state change.
//   - Manager owns many engines keyed by a public, URL-safe id, enforces a
//     capacity limit and evicts idle games.
//   - Scheduler abstracts timers. RealScheduler uses the runtime timers;
//     ManualScheduler lets tests advance a virtual clock deterministically.
//
// Every scheduled callback captures the game-instance id it was created
// for and does nothing if the game has since been restarted, so callbacks
// from a superseded instance are inert even if cancellation races with them.
package game
