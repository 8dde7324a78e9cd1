// Package runner implements the send pipeline.
//
// A send resolves the endpoint at a handle, applies the request patch,
// substitutes variables (environment first, then context, then overrides),
// fills scope headers, sends the request with the active cookie jar, and on
// success writes the body to the output, records a history entry and persists
// the jar. A failed send persists nothing.
package runner
