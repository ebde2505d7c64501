// Package logging provides structured logging utilities for the mailbridge application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (email address anonymization)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "mailbox.fetch")
//	logger.Info("fetched message",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("account operation",
//	    logging.Account(address))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Email addresses are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
