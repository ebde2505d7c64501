package mailbox

import (
	"regexp"
	"strings"
)

var (
	// Bracket-wrapped bare URLs, a common marketing-footer artifact.
	bracketURLRe = regexp.MustCompile(`\[\s*https?://[^\]]*\]`)

	// A line that is nothing but a bare URL.
	urlOnlyLineRe = regexp.MustCompile(`^[ \t]*https?://\S+[ \t]*$`)

	// A bare URL embedded in a line, bounded on the left by start of
	// line or whitespace. URLs already wrapped by the HTML converter
	// as "text (url)" are preceded by "(" and deliberately survive.
	inlineURLRe = regexp.MustCompile(`(?m)(^|[ \t])https?://\S+`)

	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe     = regexp.MustCompile(`[ \t]{2,}`)
	lineEdgeRe     = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
)

// Zero-width and invisible characters that survive entity decoding and
// show up in marketing mail to defeat naive filtering.
var invisibleReplacer = strings.NewReplacer(
	"\u200b", "", // zero width space
	"\u200c", "", // zero width non-joiner
	"\u200d", "", // zero width joiner
	"\ufeff", "", // byte order mark
	"\u034f", "", // combining grapheme joiner
)

// Normalize cleans a resolved message body into readable plain text.
// The pipeline is ordered; each step assumes the previous step's
// output. Normalize is idempotent: applying it twice yields the same
// result as applying it once.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)

	text = bracketURLRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !urlOnlyLineRe.MatchString(line) {
			kept = append(kept, line)
		}
	}
	text = strings.Join(kept, "\n")

	text = inlineURLRe.ReplaceAllString(text, "$1")

	text = invisibleReplacer.Replace(text)

	text = lineEdgeRe.ReplaceAllString(text, "")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")

	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineEdgeRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}
