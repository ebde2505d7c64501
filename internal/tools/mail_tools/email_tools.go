package mail_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mailtools/mailbridge/internal/instrumentation"
	"github.com/mailtools/mailbridge/internal/mailbox"
	"github.com/mailtools/mailbridge/internal/mailerr"
	"github.com/mailtools/mailbridge/internal/send"
	"github.com/mailtools/mailbridge/internal/server"
	"github.com/mailtools/mailbridge/internal/tools/common"
)

const (
	defaultMailbox   = "INBOX"
	defaultListCount = 10
	maxListCount     = 50
)

// RegisterEmailTools registers message retrieval and send tools with
// the MCP server. The send tool is not registered in read-only mode.
func RegisterEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	getEmailsTool := mcp.NewTool("mail_get_emails",
		mcp.WithDescription("List the most recent emails in a mailbox, newest first"),
		mcp.WithString("account",
			mcp.Description("Account address or display name; omit to use the default account"),
		),
		mcp.WithString("mailbox",
			mcp.Description("Mailbox name (default: INBOX)"),
		),
		mcp.WithNumber("count",
			mcp.Description(fmt.Sprintf("Number of messages to return (default %d, max %d)", defaultListCount, maxListCount)),
		),
	)
	s.AddTool(getEmailsTool, common.InstrumentedToolHandler("mail_get_emails", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEmails(ctx, request, sc)
		}))

	getDetailTool := mcp.NewTool("mail_get_email_detail",
		mcp.WithDescription("Fetch one email by UID: headers, cleaned plain-text body, and attachment list"),
		mcp.WithNumber("uid",
			mcp.Required(),
			mcp.Description("Server-assigned UID of the message"),
		),
		mcp.WithString("account",
			mcp.Description("Account address or display name; omit to use the default account"),
		),
		mcp.WithString("mailbox",
			mcp.Description("Mailbox name (default: INBOX)"),
		),
	)
	s.AddTool(getDetailTool, common.InstrumentedToolHandler("mail_get_email_detail", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEmailDetail(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	sendTool := mcp.NewTool("mail_send_email",
		mcp.WithDescription("Send an email from a configured account"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Description("Plain-text body"),
		),
		mcp.WithString("html_body",
			mcp.Description("HTML body; at least one of body/html_body is required"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated; not visible to other recipients"),
		),
		mcp.WithString("account",
			mcp.Description("Account address or display name; omit to use the default account"),
		),
	)
	s.AddTool(sendTool, common.InstrumentedToolHandler("mail_send_email", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc)
		}))

	return nil
}

func handleGetEmails(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	rec, err := common.ResolveAccount(sc, args)
	if err != nil {
		return errorResult(err), nil
	}

	mailboxName := defaultMailbox
	if mb, ok := args["mailbox"].(string); ok && mb != "" {
		mailboxName = mb
	}
	count := uint32(defaultListCount)
	if c, ok := args["count"].(float64); ok && c > 0 {
		if c > maxListCount {
			c = maxListCount
		}
		count = uint32(c)
	}

	session, _, err := sc.OpenSession(rec)
	if err != nil {
		return errorResult(err), nil
	}
	defer sc.CloseSession(session)

	start := time.Now()
	summaries, err := session.ListRecent(mailboxName, count)
	if err != nil {
		sc.Metrics().RecordMailOperation(sc.Context(), instrumentation.ProtocolIMAP, instrumentation.OperationList, instrumentation.StatusError, time.Since(start))
		return errorResult(err), nil
	}
	sc.Metrics().RecordMailOperation(sc.Context(), instrumentation.ProtocolIMAP, instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
	if len(summaries) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Mailbox %s is empty.", mailboxName)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Latest %d message(s) in %s for %s:\n\n", len(summaries), mailboxName, rec.Address)
	for _, s := range summaries {
		flag := ""
		if s.Unread {
			flag = " [unread]"
		}
		fmt.Fprintf(&b, "UID %d%s\n  From: %s\n  Subject: %s\n  Date: %s\n\n",
			s.UID, flag, s.From, s.Subject, s.Date.Format("2006-01-02 15:04"))
	}
	b.WriteString("Use mail_get_email_detail with a UID to read a message.")
	return mcp.NewToolResultText(b.String()), nil
}

func handleGetEmailDetail(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	uidVal, ok := args["uid"].(float64)
	if !ok || uidVal <= 0 {
		return mcp.NewToolResultError("'uid' field is required and must be a positive number"), nil
	}
	uid := uint32(uidVal)

	rec, err := common.ResolveAccount(sc, args)
	if err != nil {
		return errorResult(err), nil
	}

	mailboxName := defaultMailbox
	if mb, ok := args["mailbox"].(string); ok && mb != "" {
		mailboxName = mb
	}

	session, _, err := sc.OpenSession(rec)
	if err != nil {
		return errorResult(err), nil
	}
	defer sc.CloseSession(session)

	start := time.Now()
	msg, err := session.FetchMessage(mailboxName, uid)
	if err != nil {
		sc.Metrics().RecordMailOperation(sc.Context(), instrumentation.ProtocolIMAP, instrumentation.OperationFetch, instrumentation.StatusError, time.Since(start))
		return errorResult(err), nil
	}
	sc.Metrics().RecordMailOperation(sc.Context(), instrumentation.ProtocolIMAP, instrumentation.OperationFetch, instrumentation.StatusSuccess, time.Since(start))

	return mcp.NewToolResultText(formatDetail(msg)), nil
}

// formatDetail renders a fetched message: envelope headers, the
// resolved and normalized body, and the attachment list.
func formatDetail(msg mailbox.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "UID: %d\n", msg.UID)
	if env := msg.Envelope; env != nil {
		fmt.Fprintf(&b, "From: %s\n", mailbox.FormatAddresses(env.From))
		fmt.Fprintf(&b, "To: %s\n", mailbox.FormatAddresses(env.To))
		if cc := mailbox.FormatAddresses(env.Cc); cc != "" {
			fmt.Fprintf(&b, "Cc: %s\n", cc)
		}
		fmt.Fprintf(&b, "Subject: %s\n", env.Subject)
		fmt.Fprintf(&b, "Date: %s\n", env.Date.Format("2006-01-02 15:04:05 -0700"))
	}

	body, found := mailbox.ResolveText(msg)
	b.WriteString("\n")
	switch {
	case !found:
		b.WriteString("(message body could not be fetched)\n")
	case body == "":
		b.WriteString("(message has no text content)\n")
	default:
		b.WriteString(mailbox.Normalize(body))
		b.WriteString("\n")
	}

	if atts := mailbox.Attachments(msg.Structure); len(atts) > 0 {
		fmt.Fprintf(&b, "\nAttachments (%d):\n", len(atts))
		for _, a := range atts {
			fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", a.Filename, a.ContentType, a.Size)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func handleSendEmail(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	toStr, ok := args["to"].(string)
	if !ok || toStr == "" {
		return mcp.NewToolResultError("'to' field is required"), nil
	}
	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return mcp.NewToolResultError("'subject' field is required"), nil
	}
	body, _ := args["body"].(string)
	htmlBody, _ := args["html_body"].(string)
	ccStr, _ := args["cc"].(string)
	bccStr, _ := args["bcc"].(string)

	rec, err := common.ResolveAccount(sc, args)
	if err != nil {
		return errorResult(err), nil
	}

	req := send.ComposeRequest{
		To:      splitAddresses(toStr),
		Cc:      splitAddresses(ccStr),
		Bcc:     splitAddresses(bccStr),
		Subject: subject,
		Text:    body,
		HTML:    htmlBody,
	}

	updated, credential, err := sc.Tokens().EnsureUsable(sc.Context(), rec)
	if err != nil {
		return errorResult(err), nil
	}

	start := time.Now()
	msgID, err := send.Deliver(updated, credential, sc.Config(), req, sc.Logger())
	if err != nil {
		sc.Metrics().RecordMailOperation(sc.Context(), instrumentation.ProtocolSMTP, instrumentation.OperationSend, instrumentation.StatusError, time.Since(start))
		return errorResult(err), nil
	}
	sc.Metrics().RecordMailOperation(sc.Context(), instrumentation.ProtocolSMTP, instrumentation.OperationSend, instrumentation.StatusSuccess, time.Since(start))

	return mcp.NewToolResultText(fmt.Sprintf("Email sent from %s to %s (Message-ID <%s>).",
		updated.Address, strings.Join(req.To, ", "), msgID)), nil
}

// splitAddresses splits a comma-separated address list, trimming
// whitespace and dropping empties.
func splitAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// errorResult turns a classified error into a tool error with a
// remediation hint attached.
func errorResult(err error) *mcp.CallToolResult {
	kind := mailerr.KindOf(err)
	if hint := kind.Hint(); hint != "" {
		return mcp.NewToolResultError(fmt.Sprintf("%v\nHint: %s", err, hint))
	}
	return mcp.NewToolResultError(err.Error())
}
