package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/abemedia/compactify"
)

var (
	errorColor   = color.New(color.FgRed)
	changedColor = color.New(color.FgGreen)
	checkColor   = color.New(color.FgYellow)
)

func runFormat(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	r := newRunner(opts, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	stdin, err := cmd.Flags().GetBool("stdin")
	if err != nil {
		return err
	}
	if stdin || len(args) == 0 {
		if len(args) > 0 {
			return fmt.Errorf("--stdin cannot be used with paths")
		}
		return r.formatStream(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	files, err := r.collect(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files provided")
	}

	r.formatFiles(cmd.Context(), files, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if n := r.failed.Load(); n > 0 {
		return fmt.Errorf("failed to format %d file(s)", n)
	}
	if n := r.changed.Load(); opts.check && n > 0 {
		return fmt.Errorf("%d file(s) would be reformatted", n)
	}
	return nil
}

// runner formats files with one formatter per validator kind, each sharing a
// cache of validity results.
type runner struct {
	opts   options
	logger *slog.Logger

	mu         sync.Mutex
	formatters map[compactify.Validator]*compactify.Formatter
	validators map[compactify.Validator]compactify.Validator

	changed atomic.Int32
	failed  atomic.Int32
}

func newRunner(opts options, logger *slog.Logger) *runner {
	return &runner{
		opts:       opts,
		logger:     logger,
		formatters: make(map[compactify.Validator]*compactify.Formatter),
		validators: make(map[compactify.Validator]compactify.Validator),
	}
}

// formatterFor returns the formatter and cached validator for the named file.
func (r *runner) formatterFor(name string) (*compactify.Formatter, compactify.Validator, error) {
	var key compactify.Validator
	switch r.opts.lang {
	case "python":
		key = compactify.Python{Interpreter: r.opts.python}
	case "go":
		key = compactify.GoSource{}
	case "balanced":
		key = compactify.Balanced{LineComment: "#"}
	default:
		if name == "" {
			// Stdin has no extension; assume the language searched for by default.
			key = compactify.Python{Interpreter: r.opts.python}
			break
		}
		key = compactify.ForFile(name, r.opts.python)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.formatters[key]; ok {
		return f, r.validators[key], nil
	}

	cached, err := compactify.NewCached(key, r.opts.cacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create validity cache: %w", err)
	}
	f := compactify.New(&compactify.Config{
		IndentStep: r.opts.indentStep,
		Enable:     r.opts.enable,
		Validator:  cached,
		Logger:     r.logger,
	})
	r.formatters[key] = f
	r.validators[key] = cached
	return f, cached, nil
}

func (r *runner) formatStream(in io.Reader, out io.Writer) error {
	input, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read from stdin: %w", err)
	}
	f, _, err := r.formatterFor("")
	if err != nil {
		return err
	}
	_, err = out.Write(f.Format(input))
	return err
}

// collect resolves the arguments to a list of files. A directory is searched
// for files with a matching extension; a trailing "/..." makes the search
// recursive. Files named directly are always included.
func (r *runner) collect(args []string) ([]string, error) {
	var files []string
	for _, path := range args {
		arg := path
		recursive := strings.HasSuffix(path, "/...")
		if recursive {
			path = strings.TrimSuffix(path, "/...")
			arg = path
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("not found: %w", err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if !recursive && path != arg {
					return filepath.SkipDir
				}
				return nil
			}
			if slices.Contains(r.opts.extensions, filepath.Ext(path)) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk path %s: %w", path, err)
		}
	}
	return files, nil
}

func (r *runner) formatFiles(ctx context.Context, files []string, stdout, stderr io.Writer) {
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))

	for _, path := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			errorColor.Fprintf(stderr, "Failed to acquire semaphore: %v\n", err)
			r.failed.Add(1)
			break
		}
		wg.Add(1)
		go func(path string) {
			defer sem.Release(1)
			defer wg.Done()

			changed, err := r.processFile(path)
			switch {
			case err != nil:
				r.failed.Add(1)
				errorColor.Fprintf(stderr, "Error formatting file %s: %v\n", path, err)
			case changed && r.opts.check:
				r.changed.Add(1)
				checkColor.Fprintf(stdout, "would reformat %s\n", path)
			case changed:
				r.changed.Add(1)
				changedColor.Fprintf(stdout, "reformatted %s\n", path)
			}
		}(path)
	}

	wg.Wait()
}

// processFile formats a file in place. The file is only rewritten when the
// output differs and is valid, or when the input was not valid to begin with.
func (r *runner) processFile(path string) (bool, error) {
	r.logger.Debug("formatting", slog.String("path", path))

	input, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	f, validator, err := r.formatterFor(path)
	if err != nil {
		return false, err
	}

	output := f.Format(input)
	if bytes.Equal(output, input) {
		return false, nil
	}
	if !validator.Valid(output) && validator.Valid(input) {
		return false, nil
	}
	if r.opts.check {
		return true, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, output, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}
