package fileutil

import "strings"

// ToLF converts CRLF line endings to LF and reports whether text had any.
func ToLF(text string) (string, bool) {
	if !strings.Contains(text, "\r\n") {
		return text, false
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), true
}

// ToCRLF ends every line of text with CRLF.
func ToCRLF(text string) string {
	text, _ = ToLF(text)
	return strings.ReplaceAll(text, "\n", "\r\n")
}

// RestoreEndings returns text with CRLF endings when crlf is set and
// unchanged otherwise.
func RestoreEndings(text string, crlf bool) string {
	if !crlf {
		return text
	}
	return ToCRLF(text)
}
