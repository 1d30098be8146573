// Package trailing removes trailing white space from plain-text files.
package trailing

import (
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultPattern matches spaces and tabs directly before a line terminator
// ("\n" or "\r\n") or the end of input. The terminator is captured so that it
// survives the replacement.
var DefaultPattern = regexp.MustCompile(`[ \t]+(\r?\n|\z)`)

// Strip removes every match of pattern from src, keeping the pattern's first
// capture group if it has one. If pattern is nil, DefaultPattern is used.
func Strip(src []byte, pattern *regexp.Regexp) []byte {
	if pattern == nil {
		pattern = DefaultPattern
	}
	return pattern.ReplaceAll(src, []byte("${1}"))
}

// Has reports whether src contains trailing white space matched by pattern.
// If pattern is nil, DefaultPattern is used.
func Has(src []byte, pattern *regexp.Regexp) bool {
	if pattern == nil {
		pattern = DefaultPattern
	}
	return pattern.Match(src)
}

// IsText reports whether a file holds plain text, judged by the MIME type of its
// extension or, failing that, by sniffing head, the first bytes of the file.
func IsText(name string, head []byte) bool {
	if typ := mime.TypeByExtension(filepath.Ext(name)); typ != "" {
		return strings.HasPrefix(typ, "text/")
	}
	return strings.HasPrefix(http.DetectContentType(head), "text/")
}
