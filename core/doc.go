// Package core provides the foundational domain types, interfaces and execution
// contexts used by dialogmesh. It defines the core abstractions for:
//
//   - Activities (messages and conversation updates exchanged with a channel)
//   - TurnContext (per-turn execution scope, reply delivery, turn state)
//   - Middleware (the adapter turn pipeline)
//   - Storage (keyed JSON documents backing conversation and user state)
//
// The package intentionally keeps implementation concerns (persistence,
// adapters, dialogs) out of scope, exposing small interfaces to enable custom
// backends and extensions.
package core
