package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abemedia/compactify/trailing"
)

var trimCmd = &cobra.Command{
	Use:   "trim [flags] <path> [path...]",
	Short: "Remove trailing whitespace from plain-text files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrim,
}

func init() {
	trimCmd.Flags().Bool("check", false, "exit with status 1 if any file had trailing whitespace")
}

func runTrim(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}

	formatted, total, err := trimPaths(args, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Found trailing whitespace in %d/%d files.\n", formatted, total)

	if check && formatted > 0 {
		return fmt.Errorf("%d file(s) had trailing whitespace", formatted)
	}
	return nil
}

// trimPaths strips trailing white space from every text file found under paths,
// returning how many files were changed and how many text files were seen.
func trimPaths(paths []string, out io.Writer) (formatted, total int, err error) {
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("not found: %w", err)
			}
			if d.IsDir() {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if !trailing.IsText(path, content[:min(len(content), 512)]) {
				return nil
			}

			total++
			if !trailing.Has(content, nil) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, trailing.Strip(content, nil), info.Mode().Perm()); err != nil {
				return err
			}

			changedColor.Fprintf(out, "Formatting %s\n", path)
			formatted++
			return nil
		})
		if err != nil {
			return formatted, total, err
		}
	}
	return formatted, total, nil
}
