package compactify

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// space matches the same runes as unicode.IsSpace.
const space = `\s\v\x{85}\p{Z}`

// lineClass recognises lines whose only non-space content is drawn from a set
// of structural characters.
type lineClass struct {
	line *regexp.Regexp
	char *regexp.Regexp
}

func newLineClass(body string) *lineClass {
	return &lineClass{
		line: regexp.MustCompile(`^[` + space + `]*[` + body + `][` + body + space + `]*$`),
		char: regexp.MustCompile(`^[` + body + `]$`),
	}
}

var (
	closers = newLineClass(`\])},:`)
	openers = newLineClass(`\[({`)
)

// matches reports whether the line consists only of the class's characters and white space.
func (c *lineClass) matches(line string) bool { return c.line.MatchString(line) }

// isBody reports whether r is one of the class's structural characters.
func (c *lineClass) isBody(r rune) bool { return c.char.MatchString(string(r)) }

// groupRuns returns the maximal runs of consecutive line indices matching c,
// keeping only runs of at least minLen lines. Runs and the indices within them
// are in ascending order.
func groupRuns(lines []string, c *lineClass, minLen int) [][]int {
	var runs [][]int
	var run []int

	flush := func() {
		if len(run) > 0 && len(run) >= minLen {
			runs = append(runs, run)
		}
		run = nil
	}

	for i, line := range lines {
		if !c.matches(line) {
			flush()
			continue
		}
		run = append(run, i)
	}
	flush()

	return runs
}

// mergeRuns merges every run of two or more lines matching c, working from the
// last run to the first so that earlier indices stay valid.
func mergeRuns(lines []string, c *lineClass) []string {
	runs := groupRuns(lines, c, 2)
	for _, run := range slices.Backward(runs) {
		lines = mergeRun(lines, run)
	}
	return lines
}

// mergeRun replaces the lines in run with a single line holding their content
// stripped of all white space, indented as deep as the least indented non-blank
// line of the run.
func mergeRun(lines []string, run []int) []string {
	indent := -1
	var content strings.Builder
	for _, i := range run {
		line := lines[i]
		if !isBlank(line) {
			if n := indentOf(line); indent < 0 || n < indent {
				indent = n
			}
		}
		content.WriteString(stripSpace(line))
	}
	indent = max(indent, 0)

	// With no indent the fill rune is never used, so it need not be white space.
	fill, _ := utf8.DecodeRuneInString(lines[run[0]])
	merged := strings.Repeat(string(fill), indent) + content.String()

	for _, i := range slices.Backward(run) {
		lines = slices.Delete(lines, i, i+1)
	}
	return slices.Insert(lines, run[0], merged)
}

// fuseOpeners appends each lone opener line to the line before it when that line
// ends with an opening bracket and the opener line starts with one.
func fuseOpeners(lines []string) []string {
	runs := groupRuns(lines, openers, 1)
	for _, run := range slices.Backward(runs) {
		i := run[0]
		if i == 0 {
			continue
		}

		prev := strings.TrimRightFunc(lines[i-1], unicode.IsSpace)
		next := strings.TrimLeftFunc(lines[i], unicode.IsSpace)
		last, _ := utf8.DecodeLastRuneInString(prev)
		first, _ := utf8.DecodeRuneInString(next)
		if prev == "" || !openers.isBody(last) || !openers.isBody(first) {
			continue
		}

		lines[i-1] = prev + next
		lines = slices.Delete(lines, i, i+1)
	}
	return lines
}

// removeExcessIndent limits every line to at most step columns deeper than the
// nearest preceding non-blank line. Lines following an overindented line lose
// the same amount until the indentation returns to the allowed bound.
func removeExcessIndent(lines []string, step int) {
	if len(lines) < 2 {
		return
	}

	indents := make([]int, len(lines))
	for i, line := range lines {
		indents[i] = indentOf(line)
	}

	bounds := make([]int, len(lines))
	bounds[0] = indents[0]
	parent := -1
	for i := 1; i < len(lines); i++ {
		if !isBlank(lines[i-1]) {
			parent = i - 1
		}
		prev := 0
		if parent >= 0 {
			prev = indents[parent]
		}
		bounds[i] = min(indents[i], prev+step)
	}

	deindents := make([]int, len(lines))
	for i, bound := range bounds {
		over := indents[i] - bound
		if over <= 0 {
			continue
		}
		for j := i; j < len(lines) && indents[j] > bound; j++ {
			deindents[j] += min(over, indents[j]-bound)
		}
	}

	for i, n := range deindents {
		if n > 0 {
			lines[i] = trimIndent(lines[i], min(n, indents[i]))
		}
	}
}

// indentOf returns the number of leading white space runes in line.
func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}

// trimIndent removes the first n runes of line.
func trimIndent(line string, n int) string {
	for i := range line {
		if n == 0 {
			return line[i:]
		}
		n--
	}
	return ""
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
