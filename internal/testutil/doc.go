// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing activities and conversation references.
// These helpers are intentionally minimal and not intended for production
// usage.
package testutil
