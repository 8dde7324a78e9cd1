// Package output renders workspace data for the terminal.
//
// Supported formats for history entries:
//   - text: one colored summary line per entry
//   - json: indented JSON documents
//   - yaml: YAML documents
//
// Console helpers color methods and status codes and draw the endpoint tree.
package output
