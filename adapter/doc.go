// Package adapter connects channels to the turn pipeline. Adapter composes
// middleware; TestAdapter and TestFlow script conversations in-process; the
// transcript middleware records every activity of a conversation.
package adapter
