package core

import "context"

// Document is a JSON-compatible storage item. Stores own the "eTag" key and
// use it for optimistic concurrency.
type Document = map[string]any

// ETagKey is the document key holding the store-assigned version tag.
const ETagKey = "eTag"

// ETagAny disables the concurrency check for a write.
const ETagAny = "*"

// Storage persists keyed documents. Implementations must be safe for
// concurrent use and must return independent copies from Read so callers can
// mutate results freely.
//
// Contract:
//   - Read omits unknown keys from the result
//   - Write fails with a precondition error when the document carries an eTag
//     that is neither empty nor ETagAny and differs from the stored one
//   - Delete of unknown keys is a no-op
type Storage interface {
	Read(ctx context.Context, keys ...string) (map[string]Document, error)
	Write(ctx context.Context, changes map[string]Document) error
	Delete(ctx context.Context, keys ...string) error
}
