package compactify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"go/parser"
	"go/token"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Validator reports whether source code is syntactically valid.
// Implementations must be safe for concurrent use and must not panic.
type Validator interface {
	Valid(src []byte) bool
}

// ValidatorFunc adapts an ordinary function to the Validator interface.
type ValidatorFunc func(src []byte) bool

// Valid calls f(src).
func (f ValidatorFunc) Valid(src []byte) bool { return f(src) }

// Balanced is a language-agnostic Validator that accepts source in which every
// '(', '[' and '{' is closed by its matching bracket. Brackets inside quoted
// strings and line comments are ignored.
type Balanced struct {
	// LineComment starts a comment running to the end of the line, e.g. "#" or "//".
	// If empty, comments are not recognised.
	LineComment string
}

// Valid implements Validator.
func (b Balanced) Valid(src []byte) bool {
	var stack []byte
	var quote byte

	for i := 0; i < len(src); i++ {
		c := src[i]

		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		if b.LineComment != "" && bytes.HasPrefix(src[i:], []byte(b.LineComment)) {
			end := bytes.IndexAny(src[i:], "\r\n")
			if end < 0 {
				break
			}
			i += end
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != opening[c] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0 && quote == 0
}

var opening = map[byte]byte{')': '(', ']': '[', '}': '{'}

// GoSource is a Validator that accepts source which parses as a Go file.
type GoSource struct{}

// Valid implements Validator.
func (GoSource) Valid(src []byte) bool {
	_, err := parser.ParseFile(token.NewFileSet(), "", src, parser.SkipObjectResolution)
	return err == nil
}

const pythonCheck = "import ast, sys; ast.parse(sys.stdin.buffer.read())"

// Python is a Validator that asks a Python interpreter to parse the source with
// its ast module. Any failure to run the interpreter counts as invalid source.
type Python struct {
	// Interpreter is the interpreter to run.
	// If empty, "python3" is used.
	Interpreter string

	// Timeout bounds a single check.
	// If 0, 10 seconds is used.
	Timeout time.Duration
}

// Valid implements Validator.
func (p Python) Valid(src []byte) bool {
	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, interpreter, "-c", pythonCheck)
	cmd.Stdin = bytes.NewReader(src)
	return cmd.Run() == nil
}

// Cached wraps a Validator with a fixed-size cache of results keyed by the
// SHA-256 digest of the source. It is safe for concurrent use.
type Cached struct {
	validator Validator
	cache     *lru.Cache[[sha256.Size]byte, bool]
}

// NewCached returns a Cached validator remembering up to size results.
func NewCached(v Validator, size int) (*Cached, error) {
	cache, err := lru.New[[sha256.Size]byte, bool](size)
	if err != nil {
		return nil, err
	}
	return &Cached{validator: v, cache: cache}, nil
}

// Valid implements Validator.
func (c *Cached) Valid(src []byte) bool {
	key := sha256.Sum256(src)
	if ok, hit := c.cache.Get(key); hit {
		return ok
	}
	ok := c.validator.Valid(src)
	c.cache.Add(key, ok)
	return ok
}

// ForFile returns the Validator matching the file's extension: Python for
// Python sources, GoSource for Go sources and Balanced with '#' comments for
// anything else. The interpreter is passed on to Python.
func ForFile(name, interpreter string) Validator {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".py", ".pyi":
		return Python{Interpreter: interpreter}
	case ".go":
		return GoSource{}
	default:
		return Balanced{LineComment: "#"}
	}
}
