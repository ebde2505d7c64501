package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyAccount   = "account"
	KeyMailbox   = "mailbox"
	KeyUID       = "uid"
	KeyTool      = "tool"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyProvider  = "provider"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Mailbox returns a slog attribute for the mailbox name.
func Mailbox(name string) slog.Attr {
	return slog.String(KeyMailbox, name)
}

// UID returns a slog attribute for a message UID.
func UID(uid uint32) slog.Attr {
	return slog.Uint64(KeyUID, uint64(uid))
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Provider returns a slog attribute for the mail provider name.
func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

// Err returns a slog attribute for an error. A nil error yields an empty
// group that slog drops, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeAccount returns a hashed representation of an email address
// for logging. Log entries stay correlatable without exposing the
// address itself.
func AnonymizeAccount(address string) string {
	if address == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(address))
	return "acct:" + hex.EncodeToString(hash[:8])
}

// Account returns a slog attribute with the anonymized account address.
func Account(address string) slog.Attr {
	return slog.String(KeyAccount, AnonymizeAccount(address))
}

// SanitizeToken returns a masked version of a token for logging. Only a
// length indicator is exposed; even token prefixes can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
