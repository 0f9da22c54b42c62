// Package cmd implements the autoapi CLI commands using Cobra.
//
// Available commands:
//   - list: Display modules and case files of the active data source
//   - validate: Materialize case files and report schema violations
//   - cache clear: Wipe the file-backed cache between sessions
//   - version: Show autoapi version information
//
// The --driver flag switches between the yaml and excel data sources
// without touching the project configuration.
package cmd
