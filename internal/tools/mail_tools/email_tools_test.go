package mail_tools

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailtools/mailbridge/internal/mailbox"
	"github.com/mailtools/mailbridge/internal/mailerr"
)

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestSplitAddresses(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "a@example.com", []string{"a@example.com"}},
		{"multiple", "a@example.com,b@example.com", []string{"a@example.com", "b@example.com"}},
		{"whitespace", " a@example.com , b@example.com ", []string{"a@example.com", "b@example.com"}},
		{"trailing comma", "a@example.com,", []string{"a@example.com"}},
		{"only commas", ",,", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAddresses(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorResult(t *testing.T) {
	err := mailerr.E(mailerr.KindAuthExpired, "mailbox.open", errors.New("token rejected"))
	result := errorResult(err)

	require.True(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "token rejected")
	assert.Contains(t, text, "Hint: "+mailerr.KindAuthExpired.Hint())
}

func TestErrorResultUnclassified(t *testing.T) {
	result := errorResult(errors.New("something odd"))

	require.True(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "something odd")
	assert.Contains(t, text, "Hint:")
}

func TestFormatDetail(t *testing.T) {
	raw := strings.ReplaceAll(`From: Ada <ada@example.com>
To: Bob <bob@example.com>
Subject: Status
Date: Mon, 02 Jun 2025 10:00:00 +0000
Content-Type: text/plain; charset=utf-8

All systems nominal.
`, "\n", "\r\n")

	msg := mailbox.Message{
		UID: 99,
		Envelope: &imap.Envelope{
			Subject: "Status",
			Date:    time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			From:    []*imap.Address{{PersonalName: "Ada", MailboxName: "ada", HostName: "example.com"}},
			To:      []*imap.Address{{PersonalName: "Bob", MailboxName: "bob", HostName: "example.com"}},
		},
		Raw: []byte(raw),
	}

	out := formatDetail(msg)
	assert.Contains(t, out, "UID: 99")
	assert.Contains(t, out, "From: Ada <ada@example.com>")
	assert.Contains(t, out, "To: Bob <bob@example.com>")
	assert.Contains(t, out, "Subject: Status")
	assert.Contains(t, out, "All systems nominal.")
	assert.NotContains(t, out, "Cc:")
	assert.NotContains(t, out, "Attachments")
}

func TestFormatDetailNoBody(t *testing.T) {
	msg := mailbox.Message{UID: 5}
	out := formatDetail(msg)
	assert.Contains(t, out, "(message body could not be fetched)")
}

func TestFormatDetailAttachments(t *testing.T) {
	msg := mailbox.Message{
		UID: 7,
		Parts: map[string][]byte{
			"TEXT": []byte("see attached"),
		},
		Structure: &imap.BodyStructure{
			MIMEType:    "multipart",
			MIMESubType: "mixed",
			Parts: []*imap.BodyStructure{
				{MIMEType: "text", MIMESubType: "plain"},
				{
					MIMEType:          "application",
					MIMESubType:       "pdf",
					Disposition:       "attachment",
					DispositionParams: map[string]string{"filename": "report.pdf"},
					Size:              2048,
				},
			},
		},
	}

	out := formatDetail(msg)
	assert.Contains(t, out, "see attached")
	assert.Contains(t, out, "Attachments (1):")
	assert.Contains(t, out, "- report.pdf (application/pdf, 2048 bytes)")
}
