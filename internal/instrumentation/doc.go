// Package instrumentation provides OpenTelemetry instrumentation for the
// mailbridge MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for mail protocol operations, token refreshes,
//     and MCP tool invocations
//   - Prometheus metrics export via /metrics endpoint on a dedicated port
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Mail Protocol Metrics:
//   - mail_operations_total: Counter of IMAP/SMTP operations by protocol, operation, status
//   - mail_operation_duration_seconds: Histogram of mail operation durations
//   - active_mail_sessions: Gauge of open protocol sessions
//
// Token Lifecycle Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result and strategy
//   - accounts_disabled_total: Counter of accounts soft-disabled by the sweep
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - OTEL_SERVICE_NAME: Service name (default: mailbridge)
//   - METRICS_DETAILED_LABELS: Include account-domain labels (default: false)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "mailbridge",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordMailOperation(ctx, "imap", "fetch", "success", time.Since(start))
//	recorder.RecordToolInvocation(ctx, "mail_get_emails", "success", time.Since(start))
package instrumentation
