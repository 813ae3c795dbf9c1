package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
)

var extractCmd = &cobra.Command{
	Use:   "extract <version>",
	Short: "Extract release notes for a specific version",
	Long: `Extract release notes for a specific version in markdown format.

This command outputs the changelog entries for a specific version in a format
suitable for GitHub release notes. The output is written to stdout.`,
	Example: `  chlog extract v0.6.0     # Extract notes for version 0.6.0
  chlog extract 0.6.0      # Same (v prefix optional)
  chlog extract unreleased # Extract unreleased changes`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.GroupID = shared.GroupChangelog
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	doc, _, err := p.parseChangelog()
	if err != nil {
		return err
	}

	r, err := doc.Release(args[0])
	if err != nil {
		var notFound *changelog.VersionNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Version %q not found.\n\n", args[0])
			fmt.Fprintf(cmd.ErrOrStderr(), "Available versions:\n")
			for _, v := range doc.ListVersions() {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", v)
			}
			return shared.NewExitError(shared.ExitInvalidArguments)
		}
		return fmt.Errorf("getting version: %w", err)
	}

	renderReleaseNotes(r, cmd.OutOrStdout())
	return nil
}

// renderReleaseNotes writes the sections of r as markdown, without the
// release header.
func renderReleaseNotes(r *changelog.Release, w io.Writer) {
	first := true
	for _, s := range r.Sections {
		if len(s.Entries) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false

		fmt.Fprintf(w, "### %s\n", s.Category)
		for _, e := range s.Entries {
			fmt.Fprintln(w, e.Line())
		}
	}
}
