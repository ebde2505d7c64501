package mailbox

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"
)

// Message is a single fetched message. It is constructed per fetch and
// discarded after the handler returns; nothing is cached.
type Message struct {
	UID      uint32
	Envelope *imap.Envelope

	// Raw is the full message source, present only when explicitly
	// fetched.
	Raw []byte

	// Parts maps MIME section labels ("TEXT", "1", "1.1") to raw
	// content, for servers where only sectioned fetches succeeded.
	Parts map[string][]byte

	// Structure is the parsed MIME tree, used for attachment
	// enumeration only.
	Structure *imap.BodyStructure
}

// ResolveText selects the best textual representation of a message.
// Plain text always wins over HTML; HTML is converted to text as a
// fallback. The boolean reports whether any body was fetchable at all:
// ("", true) means the message exists but has no textual content,
// while (_, false) means nothing was fetched.
//
// Resolution never fails on a structurally odd message; it degrades to
// an empty string first. The returned text is raw; callers run it
// through Normalize.
func ResolveText(msg Message) (string, bool) {
	if len(msg.Raw) > 0 {
		return resolveRaw(msg.Raw), true
	}
	if len(msg.Parts) > 0 {
		return resolveParts(msg.Parts), true
	}
	return "", false
}

// resolveRaw parses full message source and picks plain text over HTML.
func resolveRaw(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable source degrades to a tag-sniff of the payload.
		return sniffAndConvert(string(raw))
	}

	var plain, htmlBody string
	var havePlain, haveHTML bool
	for {
		part, err := mr.NextPart()
		if err == io.EOF || part == nil {
			break
		}
		if err != nil {
			// Keep whatever parts parsed before the failure.
			break
		}
		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ctype, _, err := header.ContentType()
		if err != nil {
			ctype = "text/plain"
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case ctype == "text/plain" && !havePlain:
			plain = string(body)
			havePlain = true
		case ctype == "text/html" && !haveHTML:
			htmlBody = string(body)
			haveHTML = true
		}
	}

	if havePlain {
		return plain
	}
	if haveHTML {
		return htmlToText(htmlBody)
	}
	return ""
}

// resolveParts works off sectioned content when no raw source exists.
// The "TEXT" section is preferred; any other non-HEADER section is a
// fallback, in deterministic label order.
func resolveParts(parts map[string][]byte) string {
	if body, ok := parts["TEXT"]; ok {
		return sniffAndConvert(string(body))
	}

	labels := make([]string, 0, len(parts))
	for label := range parts {
		if strings.EqualFold(label, "HEADER") {
			continue
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		return sniffAndConvert(string(parts[label]))
	}
	return ""
}

// structuralTags is the sniff set for HTML detection in unlabeled
// content. This is deliberately a substring check, not a parse.
var structuralTags = []string{
	"<html", "<body", "<div", "<p>", "<p ", "<table", "<br", "<span", "<a href",
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	for _, tag := range structuralTags {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

func sniffAndConvert(body string) string {
	if looksLikeHTML(body) {
		return htmlToText(body)
	}
	return body
}

// Attachment describes one attachment node from a message's MIME tree.
// The payload itself is not downloaded.
type Attachment struct {
	Filename    string
	ContentType string
	Size        uint32
}

// Attachments walks a MIME structure tree and returns a record for
// every node whose disposition is "attachment", at any depth.
func Attachments(structure *imap.BodyStructure) []Attachment {
	var out []Attachment
	collectAttachments(structure, &out)
	return out
}

func collectAttachments(bs *imap.BodyStructure, out *[]Attachment) {
	if bs == nil {
		return
	}
	if strings.EqualFold(bs.Disposition, "attachment") {
		*out = append(*out, Attachment{
			Filename:    attachmentFilename(bs),
			ContentType: attachmentContentType(bs),
			Size:        bs.Size,
		})
	}
	for _, child := range bs.Parts {
		collectAttachments(child, out)
	}
}

func attachmentFilename(bs *imap.BodyStructure) string {
	if name := paramFold(bs.DispositionParams, "filename"); name != "" {
		return name
	}
	if name := paramFold(bs.Params, "name"); name != "" {
		return name
	}
	return "unknown"
}

func attachmentContentType(bs *imap.BodyStructure) string {
	if bs.MIMEType == "" {
		return "application/octet-stream"
	}
	return strings.ToLower(bs.MIMEType + "/" + bs.MIMESubType)
}

func paramFold(params map[string]string, key string) string {
	for k, v := range params {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
