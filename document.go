package compactify

import "strings"

// document is source text split into lines without their terminators.
type document struct {
	lines []string
	eol   string // terminator of the first line, used to rejoin every line
	final bool   // whether the source ended with a terminator
}

// splitDocument splits src on "\n", "\r\n" and "\r".
func splitDocument(src string) *document {
	doc := &document{}

	for len(src) > 0 {
		i := strings.IndexAny(src, "\r\n")
		if i < 0 {
			doc.lines = append(doc.lines, src)
			return doc
		}

		n := 1
		if src[i] == '\r' && i+1 < len(src) && src[i+1] == '\n' {
			n = 2
		}
		if doc.eol == "" {
			doc.eol = src[i : i+n]
		}

		doc.lines = append(doc.lines, src[:i])
		src = src[i+n:]
	}

	doc.final = doc.eol != ""
	return doc
}

// String joins the lines back together.
func (d *document) String() string {
	s := strings.Join(d.lines, d.eol)
	if d.final {
		s += d.eol
	}
	return s
}
