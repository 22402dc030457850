package security

import (
	"regexp"
	"strings"
	"unicode"
)

// shellMetacharacters that, if present, indicate an attempt to smuggle
// commands through text that later gets written into audit logs.
var shellMetacharacters = []rune{';', '|', '&', '`', '$', '>', '<'}

var pathTraversal = regexp.MustCompile(`\.\.[/\\]`)

// Sanitize validates free-form natural-language input before it reaches
// the NLP engine or an audit log. It rejects control-character smuggling,
// shell-metacharacter injection, and path-traversal escape sequences
// (spec §4.5), returning the trimmed text when the input is clean.
func Sanitize(text string) (ok bool, cleaned string) {
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return false, ""
		}
	}

	for _, m := range shellMetacharacters {
		if strings.ContainsRune(text, m) {
			return false, ""
		}
	}

	if pathTraversal.MatchString(text) {
		return false, ""
	}

	return true, strings.TrimSpace(text)
}
