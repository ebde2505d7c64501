package mail_tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/provider"
	"github.com/mailtools/mailbridge/internal/server"
	"github.com/mailtools/mailbridge/internal/store"
	"github.com/mailtools/mailbridge/internal/token"
)

func newTestContext(t *testing.T, recs ...store.Record) *server.ServerContext {
	t.Helper()
	cfg := config.Default()
	st := store.New(filepath.Join(t.TempDir(), "accounts.json"))
	for _, rec := range recs {
		require.NoError(t, st.Upsert(rec))
	}
	sc := server.NewServerContext(context.Background(), cfg, st, token.NewManager(st, cfg, nil, nil), nil, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func activeRecord(address string) store.Record {
	return store.Record{
		Address:  address,
		AuthMode: store.AuthPassword,
		Secret:   "hunter2",
		Server: provider.ServerConfig{
			IMAPHost: "imap.example.com", IMAPPort: 993,
			SMTPHost: "smtp.example.com", SMTPPort: 587,
			UseTLS: true,
		},
		Active: true,
	}
}

func requestWith(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleLoginValidation(t *testing.T) {
	sc := newTestContext(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{
			name: "missing email",
			args: map[string]interface{}{"password": "x"},
			want: "'email' field is required",
		},
		{
			name: "malformed email",
			args: map[string]interface{}{"email": "not-an-address", "password": "x"},
			want: "not a valid email address",
		},
		{
			name: "no credential",
			args: map[string]interface{}{"email": "a@example.com"},
			want: "either 'password' or 'access_token' is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleLogin(context.Background(), requestWith(tt.args), sc)
			require.NoError(t, err)
			require.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleListAccountsEmpty(t *testing.T) {
	sc := newTestContext(t)

	result, err := handleListAccounts(context.Background(), requestWith(nil), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No accounts configured")
}

func TestHandleListAccounts(t *testing.T) {
	work := activeRecord("work@example.com")
	work.DisplayName = "Work"
	stale := activeRecord("stale@example.com")
	stale.Active = false

	sc := newTestContext(t, work, stale)

	result, err := handleListAccounts(context.Background(), requestWith(nil), sc)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Configured accounts (2)")
	assert.Contains(t, text, "* work@example.com (Work)")
	assert.Contains(t, text, "needs re-auth")
	assert.Contains(t, text, "* = default account")
}

func TestHandleSetDefault(t *testing.T) {
	sc := newTestContext(t, activeRecord("a@example.com"), activeRecord("b@example.com"))

	result, err := handleSetDefault(context.Background(),
		requestWith(map[string]interface{}{"email": "b@example.com"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	addr, err := sc.Store().DefaultAddress()
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", addr)
}

func TestHandleSetDefaultUnknown(t *testing.T) {
	sc := newTestContext(t, activeRecord("a@example.com"))

	result, err := handleSetDefault(context.Background(),
		requestWith(map[string]interface{}{"email": "missing@example.com"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleDeleteAccount(t *testing.T) {
	sc := newTestContext(t, activeRecord("a@example.com"))

	result, err := handleDeleteAccount(context.Background(),
		requestWith(map[string]interface{}{"email": "a@example.com"}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	recs, err := sc.Store().ListAll()
	require.NoError(t, err)
	assert.Empty(t, recs)
}
