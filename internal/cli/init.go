package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/logger"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty changelog",
	Long: `Create a changelog with the standard Keep a Changelog preamble, an empty
Unreleased section and its reference link.

The repository URL comes from --repo-url, the repo_url config key, the
package.json repository field or the origin remote, in that order.`,
	Example: `  chlog init
  chlog init --repo-url https://github.com/acme/tool
  chlog init --file docs/CHANGELOG.md --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.GroupID = shared.GroupGettingStarted
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("repo-url", "", "Repository web URL used for links")
	initCmd.Flags().String("title", "", "Document title (default: Changelog)")
	initCmd.Flags().Bool("force", false, "Overwrite an existing changelog")
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(p.path); err == nil && !force {
		return clierrors.ChangelogExists(p.relPath())
	}

	if url, _ := cmd.Flags().GetString("repo-url"); url != "" {
		p.cfg.RepoURL = url
	}
	hist, err := p.history()
	if err != nil {
		logger.Debug(ctx, "history unavailable for URL discovery", "error", err)
		hist = nil
	}
	repoURL, err := p.repoURL(ctx, hist)
	if err != nil {
		return err
	}

	title, _ := cmd.Flags().GetString("title")
	doc, err := changelog.NewDocument(changelog.Options{
		RepoURL:   repoURL,
		TagPrefix: p.cfg.TagPrefix,
		Title:     title,
	})
	if err != nil {
		return clierrors.Wrap(err, clierrors.Argument, "Pass a full URL such as https://github.com/owner/repo")
	}
	if err := p.writeChangelog(doc); err != nil {
		return err
	}

	logger.Info(ctx, "changelog created", "path", p.path, "repo_url", repoURL)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", p.relPath())
	return nil
}
