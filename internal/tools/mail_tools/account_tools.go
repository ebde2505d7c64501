package mail_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mailtools/mailbridge/internal/logging"
	"github.com/mailtools/mailbridge/internal/provider"
	"github.com/mailtools/mailbridge/internal/server"
	"github.com/mailtools/mailbridge/internal/store"
	"github.com/mailtools/mailbridge/internal/tools/common"
)

// RegisterAccountTools registers account management tools with the MCP server.
// In read-only mode, tools that mutate the credential store are not registered.
func RegisterAccountTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("mail_list_accounts",
		mcp.WithDescription("List all configured mail accounts, their auth mode, and which one is the default"),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("mail_list_accounts", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAccounts(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	loginTool := mcp.NewTool("mail_login",
		mcp.WithDescription("Add a mail account. Provide a password (or app passcode) for password auth, "+
			"or an access token plus refresh token for OAuth providers. Server endpoints are derived from the address domain."),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Email address of the account"),
		),
		mcp.WithString("password",
			mcp.Description("Password or app passcode (password auth)"),
		),
		mcp.WithString("access_token",
			mcp.Description("OAuth access token (OAuth auth)"),
		),
		mcp.WithString("refresh_token",
			mcp.Description("OAuth refresh token; without it the account cannot be refreshed after expiry"),
		),
		mcp.WithString("display_name",
			mcp.Description("Optional alias usable as a lookup key"),
		),
	)
	s.AddTool(loginTool, common.InstrumentedToolHandler("mail_login", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleLogin(ctx, request, sc)
		}))

	setDefaultTool := mcp.NewTool("mail_set_default_account",
		mcp.WithDescription("Designate the default account used when tools are called without an account argument"),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Email address of the account to make default"),
		),
	)
	s.AddTool(setDefaultTool, common.InstrumentedToolHandler("mail_set_default_account", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetDefault(ctx, request, sc)
		}))

	deleteTool := mcp.NewTool("mail_delete_account",
		mcp.WithDescription("Remove a mail account and its stored credentials"),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Email address of the account to remove"),
		),
	)
	s.AddTool(deleteTool, common.InstrumentedToolHandler("mail_delete_account", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteAccount(ctx, request, sc)
		}))

	return nil
}

func handleLogin(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	email, ok := args["email"].(string)
	if !ok || email == "" {
		return mcp.NewToolResultError("'email' field is required"), nil
	}
	if !strings.Contains(email, "@") {
		return mcp.NewToolResultError(fmt.Sprintf("%q is not a valid email address", email)), nil
	}

	password, _ := args["password"].(string)
	accessToken, _ := args["access_token"].(string)
	refreshToken, _ := args["refresh_token"].(string)
	displayName, _ := args["display_name"].(string)

	if password == "" && accessToken == "" {
		return mcp.NewToolResultError("either 'password' or 'access_token' is required"), nil
	}

	serverConfig, err := provider.Resolve(email)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot derive server config: %v", err)), nil
	}

	rec := store.Record{
		Address:     email,
		DisplayName: displayName,
		Server:      serverConfig,
		Active:      true,
	}
	if password != "" {
		rec.AuthMode = store.AuthPassword
		rec.Secret = password
	} else {
		rec.AuthMode = store.AuthOAuthBearer
		rec.AccessToken = accessToken
		rec.RefreshToken = refreshToken
		// Expiry is unknown at login time; assume the provider's usual
		// lifetime and let the lifecycle manager refresh from there.
		rec.TokenExpiry = time.Now().Add(time.Hour)
	}

	// Verify the credentials by opening a session before persisting.
	session, verified, err := sc.OpenSession(rec)
	if err != nil {
		return errorResult(err), nil
	}
	sc.CloseSession(session)
	verified.LastAuthenticatedAt = time.Now()

	if err := sc.Store().Upsert(verified); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to persist account: %v", err)), nil
	}

	domain, _ := provider.Domain(email)
	sc.Logger().Info("account added",
		logging.Operation("tools.login"),
		logging.Account(email),
		logging.Provider(domain))

	defaultAddr, _ := sc.Store().DefaultAddress()
	msg := fmt.Sprintf("Logged in as %s (%s auth, IMAP %s, SMTP %s).",
		email, rec.AuthMode, serverConfig.IMAPAddr(), serverConfig.SMTPAddr())
	if strings.EqualFold(defaultAddr, email) {
		msg += " This account is the default."
	}
	return mcp.NewToolResultText(msg), nil
}

func handleListAccounts(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	recs, err := sc.Store().ListAll()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read accounts: %v", err)), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("No accounts configured. Use mail_login to add one."), nil
	}

	defaultAddr, _ := sc.Store().DefaultAddress()

	var b strings.Builder
	fmt.Fprintf(&b, "Configured accounts (%d):\n", len(recs))
	for _, rec := range recs {
		marker := " "
		if strings.EqualFold(rec.Address, defaultAddr) {
			marker = "*"
		}
		status := "active"
		if !rec.Active {
			status = "needs re-auth"
		}
		name := rec.Address
		if rec.DisplayName != "" {
			name = fmt.Sprintf("%s (%s)", rec.Address, rec.DisplayName)
		}
		fmt.Fprintf(&b, "%s %s [%s, %s]\n", marker, name, rec.AuthMode, status)
	}
	b.WriteString("* = default account")
	return mcp.NewToolResultText(b.String()), nil
}

func handleSetDefault(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	email, ok := request.GetArguments()["email"].(string)
	if !ok || email == "" {
		return mcp.NewToolResultError("'email' field is required"), nil
	}

	if err := sc.Store().SetDefault(email); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Default account set to %s.", email)), nil
}

func handleDeleteAccount(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	email, ok := request.GetArguments()["email"].(string)
	if !ok || email == "" {
		return mcp.NewToolResultError("'email' field is required"), nil
	}

	if err := sc.Store().Remove(email); err != nil {
		return errorResult(err), nil
	}

	sc.Logger().Info("account removed",
		logging.Operation("tools.delete_account"),
		logging.Account(email))
	return mcp.NewToolResultText(fmt.Sprintf("Account %s removed.", email)), nil
}
