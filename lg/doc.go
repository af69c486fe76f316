// Package lg implements a language-generation template language.
//
// A .lg file holds named templates:
//
//	> comment
//	[shared](other.lg)
//
//	# Greeting(user)
//	- Hello ${user.name}!
//	- Hi ${user.name}!
//
// Each template picks one of its variants, or evaluates IF / SWITCH branches,
// or builds a structured object from a [Type ... ] body. Templates are
// exposed to expressions as functions, so they compose: ${Greeting(user)}.
package lg
