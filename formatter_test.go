package compactify_test

import (
	"bytes"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"

	"github.com/abemedia/compactify"
)

var update = flag.Bool("update", false, "update golden sections of testdata archives")

func TestFormat(t *testing.T) {
	matches, err := filepath.Glob("testdata/*.txtar")
	if err != nil {
		t.Fatal(err)
	}

	for _, file := range matches {
		name := strings.TrimSuffix(filepath.Base(file), ".txtar")
		t.Run(name, func(t *testing.T) {
			archive, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatalf("failed to read archive %s: %v", file, err)
			}

			input := section(t, archive, "input")
			got := compactify.Format(input)

			if *update { // Update golden section
				for i := range archive.Files {
					if archive.Files[i].Name == "golden" {
						archive.Files[i].Data = got
					}
				}
				if err := os.WriteFile(file, txtar.Format(archive), 0o600); err != nil {
					t.Fatalf("failed to update archive %s: %v", file, err)
				}
				return
			}

			want := section(t, archive, "golden")
			if diff := cmp.Diff(string(want), string(got)); diff != "" {
				t.Error(diff)
			}

			// Holds for these cases; see TestFormatBlankLineStopsDedent for one where it does not.
			if again := compactify.Format(got); !bytes.Equal(again, got) {
				t.Errorf("second pass changed output:\n%s", cmp.Diff(string(got), string(again)))
			}
			if stripSpace(got) != stripSpace(input) {
				t.Errorf("non-space content changed: %q != %q", stripSpace(got), stripSpace(input))
			}
			if n, m := bytes.Count(got, []byte("\n")), bytes.Count(input, []byte("\n")); n > m {
				t.Errorf("output has %d lines, input has %d", n, m)
			}
		})
	}
}

func section(t *testing.T, archive *txtar.Archive, name string) []byte {
	t.Helper()
	for _, f := range archive.Files {
		if f.Name == name {
			return f.Data
		}
	}
	t.Fatalf("archive has no %q section", name)
	return nil
}

func stripSpace(b []byte) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(b))
}

func TestFormatBlank(t *testing.T) {
	for _, input := range []string{"", "   \n", "\n\n", "\t \r\n"} {
		if got := compactify.Format([]byte(input)); string(got) != input {
			t.Errorf("Format(%q) = %q", input, got)
		}
	}
}

func TestFormatBlankLineStopsDedent(t *testing.T) {
	// A blank line ends dedent propagation, so lines after it are only
	// pulled in to the new bound of their parent on the next pass.
	passes := []string{
		"x = call(\n            a,\n\n            b,\n)\n",
		"x = call(\n    a,\n\n            b,\n)\n",
		"x = call(\n    a,\n\n        b,\n)\n",
		"x = call(\n    a,\n\n        b,\n)\n",
	}

	for i := 1; i < len(passes); i++ {
		got := string(compactify.Format([]byte(passes[i-1])))
		if diff := cmp.Diff(passes[i], got); diff != "" {
			t.Errorf("pass %d: %s", i, diff)
		}
	}
}

func TestFormatLineEndings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lf",
			input: "foo(\n    [\n        1,\n    ]\n)\n",
			want:  "foo([\n    1,\n])\n",
		},
		{
			name:  "crlf",
			input: "foo(\r\n    [\r\n        1,\r\n    ]\r\n)\r\n",
			want:  "foo([\r\n    1,\r\n])\r\n",
		},
		{
			name:  "cr",
			input: "foo(\r    [\r        1,\r    ]\r)\r",
			want:  "foo([\r    1,\r])\r",
		},
		{
			name:  "no_final_newline",
			input: "foo(\n    [\n        1,\n    ]\n)",
			want:  "foo([\n    1,\n])",
		},
		{
			name:  "mixed_uses_first",
			input: "foo(\r\n    [\n        1,\n    ]\n)\n",
			want:  "foo([\r\n    1,\r\n])\r\n",
		},
		{
			name:  "single_line",
			input: "foo([1])",
			want:  "foo([1])",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compactify.Format([]byte(tt.input))
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestFormatWithConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *compactify.Config
		input  string
		want   string
	}{
		{
			name:   "closers_only",
			config: &compactify.Config{Enable: compactify.Closers},
			input:  "foo(\n    [\n        1,\n    ]\n)\n",
			want:   "foo(\n    [\n        1,\n])\n",
		},
		{
			name:   "without_fuse",
			config: &compactify.Config{Enable: compactify.All &^ compactify.Fuse},
			input:  "foo(\n    [\n        1,\n    ]\n)\n",
			want:   "foo(\n    [\n        1,\n])\n",
		},
		{
			name:   "openers_without_closers",
			config: &compactify.Config{Enable: compactify.Openers},
			input:  "x = (\n    [\n        {\n            1: 2,\n        },\n    ]\n)\n",
			want:   "x = (\n    [{\n            1: 2,\n        },\n    ]\n)\n",
		},
		{
			name:   "dedent_only",
			config: &compactify.Config{Enable: compactify.Dedent},
			input:  "call(\n            first,\n)\n",
			want:   "call(\n    first,\n)\n",
		},
		{
			name:   "indent_step",
			config: &compactify.Config{IndentStep: 8},
			input:  "call(\n            first,\n                second,\n            third,\n)\n",
			want:   "call(\n        first,\n            second,\n        third,\n)\n",
		},
		{
			name:   "nil_config",
			config: nil,
			input:  "    )\n    )\n    ]\n",
			want:   "    )\n    )\n    ]\n",
		},
		{
			name: "accept_all",
			config: &compactify.Config{
				Validator: compactify.ValidatorFunc(func([]byte) bool { return true }),
			},
			input: "    )\n    )\n    ]\n",
			want:  "    ))]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compactify.New(tt.config).Format([]byte(tt.input))
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestFormatValidityGate(t *testing.T) {
	input := []byte("foo(\n    [\n        1,\n    ]\n)\n")

	t.Run("rejects_result", func(t *testing.T) {
		var calls atomic.Int32
		f := compactify.New(&compactify.Config{
			Validator: compactify.ValidatorFunc(func(src []byte) bool {
				calls.Add(1)
				return bytes.Equal(src, input)
			}),
		})
		got := f.Format(input)
		if !bytes.Equal(got, input) {
			t.Errorf("got %q, want original", got)
		}
		if n := calls.Load(); n != 2 {
			t.Errorf("validator called %d times, want 2", n)
		}
	})

	t.Run("rejects_input", func(t *testing.T) {
		var calls atomic.Int32
		f := compactify.New(&compactify.Config{
			Validator: compactify.ValidatorFunc(func([]byte) bool {
				calls.Add(1)
				return false
			}),
		})
		got := f.Format(input)
		if !bytes.Equal(got, input) {
			t.Errorf("got %q, want original", got)
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("validator called %d times, want 1", n)
		}
	})

	t.Run("unchanged_skips_recheck", func(t *testing.T) {
		var calls atomic.Int32
		f := compactify.New(&compactify.Config{
			Validator: compactify.ValidatorFunc(func([]byte) bool {
				calls.Add(1)
				return true
			}),
		})
		src := []byte("x = 1\ny = 2\n")
		if got := f.Format(src); !bytes.Equal(got, src) {
			t.Errorf("got %q, want original", got)
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("validator called %d times, want 1", n)
		}
	})
}

func TestFormatLogsRejection(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	input := []byte("foo(\n)\n)\n")
	got := compactify.New(&compactify.Config{Logger: logger}).Format(input)
	if !bytes.Equal(got, input) {
		t.Errorf("got %q, want original", got)
	}
	if !strings.Contains(buf.String(), "source is not valid") {
		t.Errorf("missing log message, got %q", buf.String())
	}
}

func TestFormatGo(t *testing.T) {
	input := `package p

func f() {
	if true {
		g(
			1,
		)
	}
}
`
	want := `package p

func f() {
	if true {
		g(
			1,
)}}
`

	f := compactify.New(&compactify.Config{Validator: compactify.GoSource{}})
	got := f.Format([]byte(input))
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Error(diff)
	}

	invalid := "package p\n\nfunc f() {\n\tg(\n\t\t1,\n\t)\n"
	if got := f.Format([]byte(invalid)); string(got) != invalid {
		t.Errorf("invalid Go source was changed: %q", got)
	}
}

func TestFormatConcurrent(t *testing.T) {
	input := []byte("x = (\n    [\n        {\n            \"a\": 1,\n        },\n    ]\n)\n")
	want := "x = ([{\n    \"a\": 1,\n},])\n"

	f := compactify.New(nil)
	t.Run("group", func(t *testing.T) {
		for i := range 8 {
			t.Run(strings.Repeat("x", i+1), func(t *testing.T) {
				t.Parallel()
				if got := string(f.Format(input)); got != want {
					t.Errorf("got %q, want %q", got, want)
				}
			})
		}
	})
}
