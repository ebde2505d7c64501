// Package mailerr defines the error taxonomy shared by the mailbox,
// token, and send layers.
//
// Every failure that can reach a tool handler is classified into one of
// the Kind values so that the handler can attach a remediation hint:
// re-authenticate, re-check the password, check the network, or retry.
package mailerr

import (
	"errors"
	"fmt"
)

// Kind classifies a mail operation failure.
type Kind int

const (
	// KindUnknown is the zero value; used only for unclassified wrapping.
	KindUnknown Kind = iota

	// KindAuthFailed means static credentials (password, app passcode)
	// were rejected by the server.
	KindAuthFailed

	// KindAuthExpired means an OAuth access token is invalid or expired
	// and every refresh strategy has been exhausted. The user must
	// re-authenticate; retrying will not help.
	KindAuthExpired

	// KindConnectionFailed covers network, DNS, and TLS failures.
	KindConnectionFailed

	// KindNotFound means a UID did not resolve to a message.
	KindNotFound

	// KindValidation means the caller supplied malformed input, detected
	// before any network call was made.
	KindValidation

	// KindSendFailed is a generic delivery rejection that is neither an
	// auth problem nor a validation problem.
	KindSendFailed
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuthFailed:
		return "auth_failed"
	case KindAuthExpired:
		return "auth_expired"
	case KindConnectionFailed:
		return "connection_failed"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	case KindSendFailed:
		return "send_failed"
	default:
		return "unknown"
	}
}

// Hint returns a human-readable remediation hint for the kind.
func (k Kind) Hint() string {
	switch k {
	case KindAuthFailed:
		return "Check the account password or app passcode and log in again."
	case KindAuthExpired:
		return "The OAuth authorization has expired. Re-authenticate this account to obtain a new token."
	case KindConnectionFailed:
		return "Could not reach the mail server. Check the network connection and server settings."
	case KindNotFound:
		return "The requested message does not exist in this mailbox. It may have been deleted or moved."
	case KindValidation:
		return "The request was malformed. Correct the listed fields and try again."
	case KindSendFailed:
		return "The provider rejected the message. Wait a moment and retry, or check the recipient addresses."
	default:
		return "An unexpected error occurred."
	}
}

// Error carries a taxonomy kind alongside the operation that failed and
// the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two *Error values by kind, so sentinel-style
// comparisons like errors.Is(err, mailerr.E(KindAuthExpired, "", nil))
// work without identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// E builds a taxonomy error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the taxonomy kind from err, or KindUnknown if err does
// not carry one anywhere in its chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
