package compactify

import (
	"bytes"
	"log/slog"
)

// Feature represents a bitmask flag for enabling or disabling specific formatting passes.
// Multiple features can be combined using bitwise OR operations.
type Feature uint

// has checks if a specific feature flag is enabled in this Feature set.
func (f Feature) has(flag Feature) bool { return f&flag != 0 }

const (
	// Closers enables merging of consecutive lines made only of closing brackets,
	// colons and commas.
	// This converts lines like:
	//   foo(
	//       bar(
	//           1,
	//       )
	//   )
	// into:
	//   foo(
	//       bar(
	//           1,
	//   ))
	Closers Feature = 1 << iota

	// Openers enables merging of consecutive lines made only of opening brackets.
	// This converts lines like:
	//   x = (
	//       [
	//           {
	// into:
	//   x = (
	//       [{
	Openers

	// Fuse enables joining a single opener line onto the line before it, when that
	// line itself ends with an opening bracket.
	// This converts lines like:
	//   foo(
	//       [
	// into:
	//   foo([
	Fuse

	// Dedent enables removal of indentation deeper than one IndentStep below the
	// nearest preceding non-blank line.
	// This converts lines like:
	//   call(
	//               first,
	//   )
	// into:
	//   call(
	//       first,
	//   )
	Dedent

	// All enables all passes.
	All = Closers | Openers | Fuse | Dedent
)

// Config holds the configuration settings for the formatter.
type Config struct {
	// IndentStep specifies how many columns deeper than its nearest preceding
	// non-blank line a line may be indented before it counts as overindented.
	// If 0, the DefaultConfig.IndentStep value is used instead.
	IndentStep int

	// Enable specifies which passes are active using bitwise flags.
	// If 0, the DefaultConfig.Enable value is used instead.
	Enable Feature

	// Validator decides whether source is syntactically valid. It is asked about
	// the input before any work and about the result afterwards.
	// If nil, the DefaultConfig.Validator value is used instead.
	Validator Validator

	// Logger receives debug messages when a validity check rejects a document.
	// If nil, the DefaultConfig.Logger value is used instead.
	Logger *slog.Logger
}

// DefaultConfig provides the default configuration for the formatter.
// It enables all passes with an indent step of 4 and checks bracket balance,
// treating '#' as the start of a line comment.
var DefaultConfig = &Config{
	IndentStep: 4,
	Enable:     All,
	Validator:  Balanced{LineComment: "#"},
	Logger:     slog.New(slog.DiscardHandler),
}

// Format is a convenience function that formats the given source code
// using the default configuration. This is equivalent to calling:
//
//	New(DefaultConfig).Format(src)
func Format(src []byte) []byte {
	return New(DefaultConfig).Format(src)
}

// Formatter handles the compaction process using the specified configuration.
// It holds no mutable state and is safe for concurrent use.
type Formatter struct {
	step      int
	enable    Feature
	validator Validator
	logger    *slog.Logger
}

// New creates a new formatter instance with the given configuration.
// If config is nil, DefaultConfig will be used instead.
// The returned formatter can be reused for multiple Format calls.
func New(config *Config) *Formatter {
	if config == nil {
		config = DefaultConfig
	}

	f := &Formatter{
		step:      config.IndentStep,
		enable:    config.Enable,
		validator: config.Validator,
		logger:    config.Logger,
	}
	if f.step == 0 {
		f.step = DefaultConfig.IndentStep
	}
	if f.enable == 0 {
		f.enable = DefaultConfig.Enable
	}
	if f.validator == nil {
		f.validator = DefaultConfig.Validator
	}
	if f.logger == nil {
		f.logger = DefaultConfig.Logger
	}

	return f
}

// Format compacts the given source code and returns the result.
//
// Blank input, input the validator rejects, and input whose compacted form the
// validator rejects are all returned unchanged. The line terminator of the first
// line is used for every line of the output, and a final terminator is kept if
// the input had one.
func (f *Formatter) Format(src []byte) []byte {
	if len(bytes.TrimSpace(src)) == 0 {
		return src
	}

	if !f.validator.Valid(src) {
		f.logger.Debug("source is not valid, skipping")
		return src
	}

	doc := splitDocument(string(src))

	if f.enable.has(Closers) {
		doc.lines = mergeRuns(doc.lines, closers)
	}
	if f.enable.has(Openers) {
		doc.lines = mergeRuns(doc.lines, openers)
	}
	if f.enable.has(Fuse) {
		doc.lines = fuseOpeners(doc.lines)
	}
	if f.enable.has(Dedent) {
		removeExcessIndent(doc.lines, f.step)
	}

	out := []byte(doc.String())
	if bytes.Equal(out, src) {
		return src
	}

	if !f.validator.Valid(out) {
		f.logger.Debug("result is not valid, discarding",
			slog.Int("lines", len(doc.lines)))
		return src
	}

	return out
}
