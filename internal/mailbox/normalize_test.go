package mailbox

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "Hello\n\nWorld",
			want:  "Hello\n\nWorld",
		},
		{
			name:  "bracketed url removed",
			input: "Read more [https://track.example/abc123] today",
			want:  "Read more today",
		},
		{
			name:  "url-only line removed",
			input: "Header\nhttps://unsubscribe.example/x\nFooter",
			want:  "Header\nFooter",
		},
		{
			name:  "inline url removed keeps surrounding words",
			input: "See http://x.com for more",
			want:  "See for more",
		},
		{
			name:  "parenthesized link url survives",
			input: "Click here (http://ad.example/x)",
			want:  "Click here (http://ad.example/x)",
		},
		{
			name:  "zero width characters stripped",
			input: "he\u200bllo",
			want:  "hello",
		},
		{
			name:  "all invisible characters stripped",
			input: "a\u200bb\u200cc\u200dd\ufeffe\u034ff",
			want:  "abcdef",
		},
		{
			name:  "triple newlines collapse to paragraph break",
			input: "one\n\n\n\n\ntwo",
			want:  "one\n\ntwo",
		},
		{
			name:  "whitespace-only lines become blank",
			input: "one\n   \t \ntwo",
			want:  "one\n\ntwo",
		},
		{
			name:  "space runs collapse",
			input: "too   many\t\tspaces",
			want:  "too many spaces",
		},
		{
			name:  "line edges trimmed",
			input: "  padded line  \n\tanother\t",
			want:  "padded line\nanother",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace-only input",
			input: "  \n\t \n ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Hello\n\nWorld",
		"See http://x.com for more",
		"a [https://t.example/1] b\n\n\n\nhttps://t.example/2\nc",
		"he\u200bllo   wor\ufeffld",
		"Click here (http://ad.example/x)",
		"",
		"- item one\n- item two",
	}
	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}
