package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
)

var showCmd = &cobra.Command{
	Use:   "show [version]",
	Short: "View changelog entries in the terminal",
	Long: `View changelog entries in the terminal.

By default, shows the 5 most recent entries. Use a version argument to
see all entries for a specific version, or use --last to control entry count.`,
	Example: `  chlog show              # Show 5 most recent entries
  chlog show v0.6.0       # Show all entries for version 0.6.0
  chlog show 0.6.0        # Same (v prefix optional)
  chlog show unreleased   # Show unreleased changes
  chlog show --last 10    # Show 10 most recent entries
  chlog show --plain      # Plain output (no colors/icons)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.GroupID = shared.GroupChangelog
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Int("last", 5, "Number of entries to show")
	showCmd.Flags().Bool("plain", false, "Plain text output (no colors/icons)")
}

func runShow(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	doc, _, err := p.parseChangelog()
	if err != nil {
		return err
	}

	plain, _ := cmd.Flags().GetBool("plain")
	opts := changelog.FormatOptions{Plain: plain}

	if len(args) == 1 {
		return showVersion(cmd, doc, args[0], opts)
	}
	last, _ := cmd.Flags().GetInt("last")
	return showLastEntries(cmd, doc, last, opts)
}

func showVersion(cmd *cobra.Command, doc *changelog.Document, version string, opts changelog.FormatOptions) error {
	r, err := doc.Release(version)
	if err != nil {
		var notFound *changelog.VersionNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Version %q not found.\n\n", version)
			fmt.Fprintf(cmd.ErrOrStderr(), "Available versions:\n")
			for _, v := range doc.ListVersions() {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", v)
			}
			return shared.NewExitError(shared.ExitInvalidArguments)
		}
		return fmt.Errorf("getting version: %w", err)
	}

	return changelog.FormatRelease(r, cmd.OutOrStdout(), opts)
}

func showLastEntries(cmd *cobra.Command, doc *changelog.Document, n int, opts changelog.FormatOptions) error {
	entries := doc.LastN(n)
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No changelog entries found.")
		return nil
	}

	if err := changelog.FormatTerminal(entries, cmd.OutOrStdout(), opts); err != nil {
		return fmt.Errorf("formatting entries: %w", err)
	}

	total := doc.EntryCount()
	if total > len(entries) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n(%d of %d entries shown. Use --last %d to see all)\n",
			len(entries), total, total)
	}
	return nil
}
