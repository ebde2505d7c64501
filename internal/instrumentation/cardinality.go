package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Always use these helpers when recording metrics with user identifiers.

// ExtractAccountDomain extracts the domain part from an email address.
// This reduces cardinality by using the provider domain instead of the
// full address.
//
// Example:
//
//	ExtractAccountDomain("jane@example.com")  // "example.com"
//	ExtractAccountDomain("user@gmail.com")    // "gmail.com"
//	ExtractAccountDomain("invalid")           // "unknown"
//	ExtractAccountDomain("")                  // "unknown"
func ExtractAccountDomain(address string) string {
	if address == "" {
		return "unknown"
	}

	parts := strings.Split(address, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Common operation types for mail protocol metrics.
// Status and protocol constants are defined in config.go.
const (
	OperationOpen  = "open"
	OperationList  = "list"
	OperationFetch = "fetch"
	OperationSend  = "send"
	OperationSweep = "sweep"
)
