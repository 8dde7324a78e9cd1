// Package endpoint stores request templates in a hierarchical namespace.
//
// It provides functionality for:
//   - Parsing slash separated handles into normalized segments
//   - Persisting endpoints as one directory per segment (endpoint.toml + body)
//   - Resolving the effective endpoint of a handle with inheritance from its ancestors
//   - Lazy, depth-bounded traversal of the tree for listings
//
// Nodes without an endpoint.toml are namespaces: they exist only to hold
// children and contribute nothing to resolution.
package endpoint
