package main

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/abemedia/compactify"
)

const configName = ".compactify.toml"

var features = map[string]compactify.Feature{
	"closers": compactify.Closers,
	"openers": compactify.Openers,
	"fuse":    compactify.Fuse,
	"dedent":  compactify.Dedent,
	"all":     compactify.All,
}

var langs = []string{"auto", "python", "go", "balanced"}

// fileConfig is the content of a .compactify.toml file.
type fileConfig struct {
	IndentStep int      `toml:"indent-step"`
	Enable     []string `toml:"enable"`
	Disable    []string `toml:"disable"`
	Lang       string   `toml:"lang"`
	Python     string   `toml:"python"`
	CacheSize  int      `toml:"cache-size"`
	Extensions []string `toml:"extensions"`
}

// options are the settings of a format run, from flags and the config file.
type options struct {
	indentStep int
	enable     compactify.Feature
	lang       string
	python     string
	cacheSize  int
	extensions []string
	check      bool
	verbose    bool
}

// findConfig walks up from startDir to locate a .compactify.toml file.
func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// resolveOptions merges the config file with the command's flags. Flags set on
// the command line take precedence over the file.
func resolveOptions(cmd *cobra.Command) (options, error) {
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return options{}, err
	}
	var cfg fileConfig
	if path == "" {
		found, ok, err := findConfig(".")
		if err != nil {
			return options{}, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if cfg, err = loadConfig(path); err != nil {
			return options{}, err
		}
	}

	var opts options
	if opts.indentStep, err = flags.GetInt("indent-step"); err != nil {
		return options{}, err
	}
	if opts.lang, err = flags.GetString("lang"); err != nil {
		return options{}, err
	}
	if opts.python, err = flags.GetString("python"); err != nil {
		return options{}, err
	}
	if opts.cacheSize, err = flags.GetInt("cache-size"); err != nil {
		return options{}, err
	}
	if opts.extensions, err = flags.GetStringSlice("ext"); err != nil {
		return options{}, err
	}
	if opts.check, err = flags.GetBool("check"); err != nil {
		return options{}, err
	}
	if opts.verbose, err = flags.GetBool("verbose"); err != nil {
		return options{}, err
	}
	enable, err := flags.GetString("enable")
	if err != nil {
		return options{}, err
	}
	disable, err := flags.GetString("disable")
	if err != nil {
		return options{}, err
	}

	if cfg.IndentStep != 0 && !flags.Changed("indent-step") {
		opts.indentStep = cfg.IndentStep
	}
	if cfg.Lang != "" && !flags.Changed("lang") {
		opts.lang = cfg.Lang
	}
	if !flags.Changed("python") {
		opts.python = cmp.Or(os.Getenv("COMPACTIFY_PYTHON"), cfg.Python, "python3")
	}
	if cfg.CacheSize != 0 && !flags.Changed("cache-size") {
		opts.cacheSize = cfg.CacheSize
	}
	if len(cfg.Extensions) > 0 && !flags.Changed("ext") {
		opts.extensions = cfg.Extensions
	}
	if len(cfg.Enable) > 0 && !flags.Changed("enable") {
		enable = strings.Join(cfg.Enable, ",")
	}
	if len(cfg.Disable) > 0 && !flags.Changed("disable") {
		disable = strings.Join(cfg.Disable, ",")
	}

	enabled, err := parseFeatures(enable)
	if err != nil {
		return options{}, fmt.Errorf("invalid enable list: %w", err)
	}
	disabled, err := parseFeatures(disable)
	if err != nil {
		return options{}, fmt.Errorf("invalid disable list: %w", err)
	}
	opts.enable = enabled &^ disabled
	if opts.enable == 0 {
		return options{}, errors.New("all features are disabled")
	}

	if !slices.Contains(langs, opts.lang) {
		return options{}, fmt.Errorf("unknown language %q (want one of %s)", opts.lang, strings.Join(langs, ", "))
	}
	if opts.indentStep < 1 {
		return options{}, fmt.Errorf("indent step must be positive, got %d", opts.indentStep)
	}
	if opts.cacheSize < 1 {
		return options{}, fmt.Errorf("cache size must be positive, got %d", opts.cacheSize)
	}

	return opts, nil
}

func parseFeatures(s string) (compactify.Feature, error) {
	var f compactify.Feature
	if s == "" {
		return f, nil
	}
	for part := range strings.SplitSeq(s, ",") {
		if feature, ok := features[strings.TrimSpace(part)]; ok {
			f |= feature
		} else {
			return 0, fmt.Errorf("unknown feature: %s", part)
		}
	}
	return f, nil
}

func featureNames() string {
	return strings.Join(slices.Sorted(maps.Keys(features)), ", ")
}
