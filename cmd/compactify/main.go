// Package main provides the compactify command-line tool for merging lines of
// source code that hold only structural punctuation.
package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "compactify [flags] [file|dir|dir/...]",
	Short: "Compact lines of source code holding only brackets and punctuation",
	Long: `Compactify merges consecutive lines that hold only closing or opening brackets,
then removes indentation made excessive by the merge. Files are only rewritten
when the result passes the same syntax check as the input.

If no path is provided, reads from stdin and writes to stdout.`,
	SilenceErrors: true,
	RunE:          runFormat,
}

func init() {
	registerFormatFlags(rootCmd)
	rootCmd.AddCommand(trimCmd)
}

func registerFormatFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("check", false, "report files that would be reformatted and exit with status 1 if any")
	flags.Bool("stdin", false, "read source from stdin and write the result to stdout")
	flags.String("lang", "auto", "syntax check to use ("+strings.Join(langs, "|")+")")
	flags.String("python", "", "python interpreter used for the python syntax check (default: $COMPACTIFY_PYTHON, the config file, then python3)")
	flags.Int("indent-step", 4, "columns a line may be indented beyond its parent")
	flags.String("enable", "all", "comma-separated list of features to enable ("+featureNames()+")")
	flags.String("disable", "", "comma-separated list of features to disable")
	flags.StringSlice("ext", []string{".py"}, "file extensions searched for in directories")
	flags.Int("cache-size", 1024, "number of syntax check results to remember")
	flags.String("config", "", "path to a "+configName+" file (default: search upwards from the working directory)")
	flags.BoolP("verbose", "v", false, "log debug messages")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
