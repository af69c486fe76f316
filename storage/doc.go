// Package storage houses concrete implementations of core.Storage. The
// interface itself lives in the core package to centralize domain contracts;
// keeping only implementations here prevents higher level packages (state,
// dialogs) from depending on concrete persistence.
//
// Both backends persist documents as JSON and assign a fresh eTag on every
// write, so values read back are JSON-shaped (maps, slices, float64 numbers)
// regardless of the backend in use.
package storage
