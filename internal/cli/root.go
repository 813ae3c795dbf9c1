// Package cli implements the chlog command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	clicfg "github.com/ariel-frischer/chlog/internal/cli/config"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
	"github.com/ariel-frischer/chlog/internal/cli/util"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/git"
	"github.com/ariel-frischer/chlog/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "chlog",
	Short: "Maintain a Keep a Changelog CHANGELOG.md from git history",
	Long: `chlog keeps a CHANGELOG.md in the Keep a Changelog format in sync with
the repository it describes.

It adds entries for merged pull requests from conventional commit subjects,
validates the document against its grammar and the repository tags, and
checks that dependency bumps in package.json or go.mod are recorded.

Formatting of sections chlog does not touch is preserved byte for byte.`,
	Example: `  # Create an empty changelog
  chlog init --repo-url https://github.com/acme/tool

  # Add entries for commits since the last release
  chlog update

  # Preview the change without writing
  chlog update --dry-run

  # Check the changelog in CI
  chlog validate --deps

  # Record dependency bumps
  chlog deps --fix`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRun,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: shared.GroupGettingStarted, Title: "Getting Started:"},
		&cobra.Group{ID: shared.GroupChangelog, Title: "Changelog Commands:"},
		&cobra.Group{ID: shared.GroupConfiguration, Title: "Configuration:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.String(shared.DirFlagName, "", "Project directory (default: current directory)")
	pf.StringP("file", "f", "", "Changelog file (overrides the changelog config key)")
	pf.Bool("debug", false, "Enable debug logging")
	pf.BoolP("verbose", "v", false, "Enable informational logging")
	pf.Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(util.VersionCmd, clicfg.ConfigCmd)
}

// setupRun configures output and logging for the invoked command.
func setupRun(cmd *cobra.Command, _ []string) error {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	debug, _ := cmd.Flags().GetBool("debug")
	verbose, _ := cmd.Flags().GetBool("verbose")

	l := logger.Initialize(cmd.ErrOrStderr(), debug, verbose)
	// The root context is the caller's; a leaf keeps the one set by a
	// previous run.
	ctx := cmd.Root().Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, l.With("run", logger.NewRunID()))
	cmd.SetContext(ctx)

	if debug {
		git.SetDebugLogger(func(format string, args ...any) {
			logger.Debug(ctx, fmt.Sprintf(format, args...))
		})
	} else {
		git.SetDebugLogger(nil)
	}
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return shared.ExitSuccess
	}

	// An ExitError means the command already reported the failure.
	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		clierrors.Fprint(rootCmd.ErrOrStderr(), err, clierrors.Runtime)
	}
	return shared.ExitCode(err)
}
