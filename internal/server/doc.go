// Package server provides the MCP server context and the dedicated
// metrics/health endpoints for the mailbridge application.
//
// # Key Components
//
// ServerContext carries the shared dependencies handed to tool
// handlers: the credential store, the token lifecycle manager,
// configuration, and the metrics recorder. It also owns the
// per-operation IMAP session open/close path so the session gauge
// stays accurate.
//
// MetricsServer serves Prometheus metrics and health probes on a
// dedicated port, separate from the MCP transport.
package server
