// Package cmd implements the command-line interface for mailbridge.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing mailbox tools for AI assistants
//   - accounts: List, remove, and set the default stored mail account
//   - sweep: Run a single OAuth token maintenance sweep and exit
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
