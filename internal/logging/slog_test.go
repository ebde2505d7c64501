package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "test_operation")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithTool(t *testing.T) {
	logger := slog.Default()
	result := WithTool(logger, "test_tool")
	if result == nil {
		t.Error("WithTool returned nil")
	}
}

func TestOperationAttr(t *testing.T) {
	attr := Operation("test_op")
	if attr.Key != KeyOperation {
		t.Errorf("Operation key = %q, want %q", attr.Key, KeyOperation)
	}
	if attr.Value.String() != "test_op" {
		t.Errorf("Operation value = %q, want %q", attr.Value.String(), "test_op")
	}
}

func TestMailboxAttr(t *testing.T) {
	attr := Mailbox("INBOX")
	if attr.Key != KeyMailbox {
		t.Errorf("Mailbox key = %q, want %q", attr.Key, KeyMailbox)
	}
	if attr.Value.String() != "INBOX" {
		t.Errorf("Mailbox value = %q, want %q", attr.Value.String(), "INBOX")
	}
}

func TestUIDAttr(t *testing.T) {
	attr := UID(42)
	if attr.Key != KeyUID {
		t.Errorf("UID key = %q, want %q", attr.Key, KeyUID)
	}
	if attr.Value.Uint64() != 42 {
		t.Errorf("UID value = %d, want 42", attr.Value.Uint64())
	}
}

func TestStatusAttr(t *testing.T) {
	attr := Status(StatusSuccess)
	if attr.Key != KeyStatus {
		t.Errorf("Status key = %q, want %q", attr.Key, KeyStatus)
	}
	if attr.Value.String() != StatusSuccess {
		t.Errorf("Status value = %q, want %q", attr.Value.String(), StatusSuccess)
	}
}

func TestErrAttr(t *testing.T) {
	err := errors.New("test error")
	attr := Err(err)
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}
}

func TestErrAttrNil(t *testing.T) {
	attr := Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestAnonymizeAccount(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"simple address", "user@example.com"},
		{"uppercase address", "USER@EXAMPLE.COM"},
		{"plus address", "user+tag@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnonymizeAccount(tt.address)
			if !strings.HasPrefix(result, "acct:") {
				t.Errorf("AnonymizeAccount(%q) = %q, want acct: prefix", tt.address, result)
			}
			if strings.Contains(result, "@") {
				t.Errorf("AnonymizeAccount(%q) = %q, contains raw address", tt.address, result)
			}
			// Same input must hash to the same value for correlation.
			if again := AnonymizeAccount(tt.address); again != result {
				t.Errorf("AnonymizeAccount not deterministic: %q != %q", again, result)
			}
		})
	}
}

func TestAnonymizeAccountEmpty(t *testing.T) {
	if got := AnonymizeAccount(""); got != "" {
		t.Errorf("AnonymizeAccount(\"\") = %q, want empty", got)
	}
}

func TestAnonymizeAccountDistinct(t *testing.T) {
	a := AnonymizeAccount("alice@example.com")
	b := AnonymizeAccount("bob@example.com")
	if a == b {
		t.Error("different addresses produced the same hash")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty token", "", "<empty>"},
		{"short token", "abc", "[token:3 chars]"},
		{"long token", strings.Repeat("x", 64), "[token:64 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}
