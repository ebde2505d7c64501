package mailbox

import (
	"strings"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crlf turns readable test fixtures into wire-format message source.
func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const multipartAlternative = `From: sender@example.com
To: recipient@example.com
Subject: Greetings
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Hello

World
--b1
Content-Type: text/html; charset=utf-8

<p>Hello</p><p>World</p>
--b1--
`

func TestResolveTextPlainWinsOverHTML(t *testing.T) {
	msg := Message{UID: 42, Raw: crlf(multipartAlternative)}

	text, ok := ResolveText(msg)
	require.True(t, ok)
	assert.Equal(t, "Hello\n\nWorld", Normalize(text))
	assert.NotContains(t, text, "<p>")
}

func TestResolveTextHTMLFallback(t *testing.T) {
	raw := crlf(`From: sender@example.com
Subject: Offer
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<div>Special offer! <a href='http://ad.example/x'>Click here</a></div>
`)
	msg := Message{UID: 7, Raw: raw}

	text, ok := ResolveText(msg)
	require.True(t, ok)
	assert.Equal(t, "Special offer! Click here (http://ad.example/x)", Normalize(text))
}

func TestResolveTextParagraphsKeepBlankLine(t *testing.T) {
	raw := crlf(`Subject: P
MIME-Version: 1.0
Content-Type: text/html

<p>A</p><p>B</p>
`)
	text, ok := ResolveText(Message{Raw: raw})
	require.True(t, ok)

	normalized := Normalize(text)
	assert.Equal(t, "A\n\nB", normalized)
	assert.NotContains(t, normalized, "<")
}

func TestResolveTextPlainOnly(t *testing.T) {
	raw := crlf(`Subject: Plain
MIME-Version: 1.0
Content-Type: text/plain

Just plain text.
`)
	text, ok := ResolveText(Message{Raw: raw})
	require.True(t, ok)
	assert.Equal(t, "Just plain text.", Normalize(text))
}

func TestResolveTextNoContentIsEmptyNotAbsent(t *testing.T) {
	raw := crlf(`Subject: Empty
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b2"

--b2
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"

binarybytes
--b2--
`)
	text, ok := ResolveText(Message{Raw: raw})
	assert.True(t, ok)
	assert.Equal(t, "", text)
}

func TestResolveTextAbsentVersusEmpty(t *testing.T) {
	// Nothing fetched at all: absent.
	_, ok := ResolveText(Message{})
	assert.False(t, ok)

	_, ok = ResolveText(Message{Parts: map[string][]byte{}})
	assert.False(t, ok)

	// A TEXT section that is the empty string: present but empty.
	text, ok := ResolveText(Message{Parts: map[string][]byte{"TEXT": []byte("")}})
	assert.True(t, ok)
	assert.Equal(t, "", text)
}

func TestResolveTextPartsTextLabelFirst(t *testing.T) {
	msg := Message{Parts: map[string][]byte{
		"1":    []byte("section one"),
		"TEXT": []byte("the body"),
	}}
	text, ok := ResolveText(msg)
	require.True(t, ok)
	assert.Equal(t, "the body", text)
}

func TestResolveTextPartsSkipsHeader(t *testing.T) {
	msg := Message{Parts: map[string][]byte{
		"HEADER": []byte("Subject: leak"),
		"1":      []byte("actual content"),
	}}
	text, ok := ResolveText(msg)
	require.True(t, ok)
	assert.Equal(t, "actual content", text)
}

func TestResolveTextPartsSniffsHTML(t *testing.T) {
	msg := Message{Parts: map[string][]byte{
		"TEXT": []byte("<html><body><p>Rendered</p></body></html>"),
	}}
	text, ok := ResolveText(msg)
	require.True(t, ok)
	assert.Equal(t, "Rendered", Normalize(text))
}

func TestResolveTextMalformedSourceDegrades(t *testing.T) {
	// Not a parseable message; resolution must not fail.
	text, ok := ResolveText(Message{Raw: []byte("\x00\x01 not mime at all")})
	assert.True(t, ok)
	assert.NotContains(t, text, "\x00\x01\x02")
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "list items become bullets",
			html: "<ul><li>first</li><li>second</li></ul>",
			want: "- first\n- second",
		},
		{
			name: "line breaks",
			html: "one<br>two<br/>three",
			want: "one\ntwo\nthree",
		},
		{
			name: "table cells become tabs",
			html: "<table><tr><td>a</td><td>b</td></tr><tr><td>c</td><td>d</td></tr></table>",
			want: "a\tb\nc\td",
		},
		{
			name: "image with alt",
			html: `<p>logo: <img src="x.png" alt="Acme"></p>`,
			want: "logo: [image: Acme]",
		},
		{
			name: "image without alt",
			html: `<img src="x.png">`,
			want: "[image]",
		},
		{
			name: "script and style dropped",
			html: "<style>p{color:red}</style><p>visible</p><script>alert(1)</script>",
			want: "visible",
		},
		{
			name: "entities decoded",
			html: "<p>Fish &amp; Chips &copy; 2024 &#65;</p>",
			want: "Fish & Chips © 2024 A",
		},
		{
			name: "anchor without href",
			html: "<p><a>bare anchor</a></p>",
			want: "bare anchor",
		},
		{
			name: "fragment link keeps text only",
			html: `<p><a href="#top">back to top</a></p>`,
			want: "back to top",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(htmlToText(tt.html))
			if got != tt.want {
				t.Errorf("htmlToText(%q) = %q, want %q", tt.html, got, tt.want)
			}
		})
	}
}

func TestAttachments(t *testing.T) {
	structure := &imap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{
				MIMEType:    "text",
				MIMESubType: "plain",
			},
			{
				MIMEType:          "application",
				MIMESubType:       "pdf",
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "foo.pdf"},
				Size:              1234,
			},
			{
				MIMEType:    "multipart",
				MIMESubType: "related",
				Parts: []*imap.BodyStructure{
					{
						MIMEType:    "image",
						MIMESubType: "png",
						Disposition: "inline",
					},
					{
						MIMEType:    "image",
						MIMESubType: "jpeg",
						Disposition: "ATTACHMENT",
						Params:      map[string]string{"name": "photo.jpg"},
						Size:        5678,
					},
				},
			},
		},
	}

	atts := Attachments(structure)
	require.Len(t, atts, 2)

	assert.Equal(t, "foo.pdf", atts[0].Filename)
	assert.Equal(t, "application/pdf", atts[0].ContentType)
	assert.Equal(t, uint32(1234), atts[0].Size)

	// Nested attachment found, inline sibling excluded, filename from
	// content-type params, disposition matched case-insensitively.
	assert.Equal(t, "photo.jpg", atts[1].Filename)
	assert.Equal(t, "image/jpeg", atts[1].ContentType)
}

func TestAttachmentsFallbackFilename(t *testing.T) {
	structure := &imap.BodyStructure{
		Disposition: "attachment",
	}
	atts := Attachments(structure)
	require.Len(t, atts, 1)
	assert.Equal(t, "unknown", atts[0].Filename)
	assert.Equal(t, "application/octet-stream", atts[0].ContentType)
}

func TestSummarizeSortOrderHelpers(t *testing.T) {
	addr := []*imap.Address{{PersonalName: "Ada", MailboxName: "ada", HostName: "example.com"}}
	assert.Equal(t, "Ada <ada@example.com>", FormatAddresses(addr))

	plain := []*imap.Address{{MailboxName: "bob", HostName: "example.com"}}
	assert.Equal(t, "bob@example.com", FormatAddresses(plain))
}
