// Package cmd implements the quartz CLI commands using Cobra.
//
// Available commands:
//   - init: Create a .quartz workspace
//   - create, edit, rm, ls, show, use: Manage the endpoint tree
//   - header, query, body: Edit the selected endpoint
//   - send: Resolve and send an endpoint, optionally watching for changes
//   - ctx, env, var: Manage variable scopes
//   - cookie: Inspect and edit cookie jars
//   - history, last: Inspect sent requests and export them to SQLite
//   - import: Create endpoints from curl commands
//
// Every command except init and version runs against the workspace found
// from --dir or the working directory.
package cmd
