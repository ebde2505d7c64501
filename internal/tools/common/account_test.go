package common

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/mailerr"
	"github.com/mailtools/mailbridge/internal/server"
	"github.com/mailtools/mailbridge/internal/store"
	"github.com/mailtools/mailbridge/internal/token"
)

func TestAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "no account specified",
			args:     map[string]interface{}{},
			expected: "",
		},
		{
			name: "account specified",
			args: map[string]interface{}{
				"account": "work@example.com",
			},
			expected: "work@example.com",
		},
		{
			name: "account with other params",
			args: map[string]interface{}{
				"account": "personal@example.com",
				"other":   "value",
			},
			expected: "personal@example.com",
		},
		{
			name:     "nil args",
			args:     nil,
			expected: "",
		},
		{
			name: "non-string account",
			args: map[string]interface{}{
				"account": 42,
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AccountFromArgs(tt.args)
			if result != tt.expected {
				t.Errorf("AccountFromArgs() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func newTestContext(t *testing.T, recs ...store.Record) *server.ServerContext {
	t.Helper()

	st := store.New(filepath.Join(t.TempDir(), "accounts.json"))
	for _, rec := range recs {
		if err := st.Upsert(rec); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	cfg := config.Default()
	sc := server.NewServerContext(context.Background(), cfg, st, token.NewManager(st, cfg, nil, nil), nil, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestResolveAccountExplicit(t *testing.T) {
	sc := newTestContext(t,
		store.Record{Address: "first@example.com", AuthMode: store.AuthPassword, Active: true},
		store.Record{Address: "second@example.com", DisplayName: "Work", AuthMode: store.AuthPassword, Active: true},
	)

	rec, err := ResolveAccount(sc, map[string]interface{}{"account": "second@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Address != "second@example.com" {
		t.Errorf("resolved %q, want second@example.com", rec.Address)
	}

	// Display name works as a lookup key too.
	rec, err = ResolveAccount(sc, map[string]interface{}{"account": "Work"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Address != "second@example.com" {
		t.Errorf("resolved %q via display name, want second@example.com", rec.Address)
	}
}

func TestResolveAccountDefault(t *testing.T) {
	sc := newTestContext(t,
		store.Record{Address: "only@example.com", AuthMode: store.AuthPassword, Active: true},
	)

	rec, err := ResolveAccount(sc, map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Address != "only@example.com" {
		t.Errorf("resolved %q, want only@example.com", rec.Address)
	}
}

func TestResolveAccountDisabled(t *testing.T) {
	sc := newTestContext(t,
		store.Record{Address: "stale@example.com", AuthMode: store.AuthOAuthBearer, Active: false},
	)

	// A soft-disabled record must report needs-re-auth instead of being
	// handed to the token manager for another doomed refresh.
	_, err := ResolveAccount(sc, map[string]interface{}{"account": "stale@example.com"})
	if err == nil {
		t.Fatal("expected error for disabled account")
	}
	if !mailerr.IsKind(err, mailerr.KindAuthExpired) {
		t.Errorf("expected AuthExpired kind, got %v", err)
	}

	// Same through the default-account path.
	_, err = ResolveAccount(sc, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for disabled default account")
	}
	if !mailerr.IsKind(err, mailerr.KindAuthExpired) {
		t.Errorf("expected AuthExpired kind, got %v", err)
	}
}

func TestResolveAccountNotFound(t *testing.T) {
	sc := newTestContext(t)

	_, err := ResolveAccount(sc, map[string]interface{}{"account": "missing@example.com"})
	if err == nil {
		t.Fatal("expected error for unknown account")
	}
	if !mailerr.IsKind(err, mailerr.KindNotFound) {
		t.Errorf("expected NotFound kind, got %v", err)
	}

	_, err = ResolveAccount(sc, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error with no default account")
	}
	if !mailerr.IsKind(err, mailerr.KindNotFound) {
		t.Errorf("expected NotFound kind, got %v", err)
	}
}
