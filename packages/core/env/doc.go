// Package env handles variable scopes and variable substitution for quartz.
//
// It provides functionality for:
//   - Contexts and environments: named variable mappings with a header set
//   - Variable interpolation using {{NAME}} syntax over an ordered list of scopes
//   - Filling scope headers into a request without overriding endpoint headers
//   - Importing variables from .env files
//
// Environments additionally own a cookie jar file; contexts do not.
package env
