package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
	"github.com/ariel-frischer/chlog/internal/commits"
	"github.com/ariel-frischer/chlog/internal/diffview"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/git"
	"github.com/ariel-frischer/chlog/internal/logger"
	"github.com/ariel-frischer/chlog/internal/prsource"
	"github.com/ariel-frischer/chlog/internal/reconcile"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Add entries for new commits",
	Long: `Add an entry for every commit since the last release that the changelog
does not mention yet.

Commits whose pull request number already appears anywhere in the document
are skipped, so running update twice changes nothing. Entries are placed
under the category implied by the conventional commit type (feat -> Added,
fix -> Fixed, ...) in the Unreleased section, or in a release candidate
section with --rc.

By default the log starts at the tag of the newest release in the changelog.`,
	Example: `  chlog update
  chlog update --dry-run
  chlog update --from v1.2.0 --to main
  chlog update --rc 2.0.0-rc.1
  chlog update --path packages/core`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.GroupID = shared.GroupChangelog
	rootCmd.AddCommand(updateCmd)

	f := updateCmd.Flags()
	f.String("from", "", "Start after this ref (default: tag of the latest release)")
	f.String("to", "", "End at this ref (default: HEAD)")
	f.String("path", "", "Only include commits touching this path")
	f.String("rc", "", "Add entries to this release candidate version instead of Unreleased")
	f.String("today", "", "Date of a created release candidate section, YYYY-MM-DD")
	f.Bool("dry-run", false, "Print the change as a diff without writing")
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	doc, before, err := p.parseChangelog()
	if err != nil {
		return err
	}
	hist, err := p.history()
	if err != nil {
		return err
	}

	rng := logRange{}
	rng.From, _ = cmd.Flags().GetString("from")
	rng.To, _ = cmd.Flags().GetString("to")
	rng.Path, _ = cmd.Flags().GetString("path")
	in, err := gatherInputs(ctx, p, hist, doc, rng)
	if err != nil {
		return err
	}

	records := git.Records(in.Log)
	if p.cfg.FetchPREntries {
		if records, err = fetchPREntries(cmd, p, in.RepoURL, records); err != nil {
			return err
		}
	}

	opts := p.cfg.ReconcileOptions()
	opts.RepoURL = in.RepoURL
	opts.Target, _ = cmd.Flags().GetString("rc")
	opts.Today, _ = cmd.Flags().GetString("today")

	res, err := reconcile.Update(doc, records, opts)
	if err != nil {
		return clierrors.Wrap(err, clierrors.Argument)
	}
	for _, dropped := range res.Dropped {
		var missing *reconcile.MissingPRNumberError
		if errors.As(dropped, &missing) {
			logger.Warn(ctx, "skipping commit without pull request number",
				"commit", missing.Commit.Hash, "subject", missing.Commit.Subject)
		}
	}
	logger.Info(ctx, "update computed", "added", len(res.Added), "skipped", len(res.Skipped), "dropped", len(res.Dropped))

	out := cmd.OutOrStdout()
	if !res.Changed() {
		if len(res.Dropped) > 0 {
			fmt.Fprintf(out, "No changes to add: %d %s without a pull request number\n",
				len(res.Dropped), plural(len(res.Dropped), "commit", "commits"))
			return nil
		}
		fmt.Fprintf(out, "%s is up to date (%d commits already recorded)\n", p.relPath(), len(res.Skipped))
		return nil
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		after := changelog.Serialize(res.Document)
		fmt.Fprint(out, diffview.Colorize(diffview.Unified(p.relPath(), p.relPath(), before, after)))
		return nil
	}
	if err := p.writeChangelog(res.Document); err != nil {
		return err
	}
	printAdditions(out, res)
	return nil
}

func fetchPREntries(cmd *cobra.Command, p *project, repoURL string, records []commits.Record) ([]commits.Record, error) {
	src, err := prsource.New(repoURL, p.cfg.GitHubToken)
	if err != nil {
		return nil, clierrors.Wrap(err, clierrors.Configuration,
			"Disable fetch_pr_entries or point repo_url at a GitHub repository")
	}
	enriched, err := src.Enrich(cmd.Context(), records)
	if err != nil {
		return nil, clierrors.NewCollaboratorError("github", "fetching pull requests", err)
	}
	return enriched, nil
}

func printAdditions(w io.Writer, res *reconcile.Result) {
	fmt.Fprintf(w, "✓ Added %d %s to [%s]\n", len(res.Added), plural(len(res.Added), "entry", "entries"), res.Target)
	for _, a := range res.Added {
		fmt.Fprintf(w, "  %-10s %s\n", a.Category, a.Entry.Text)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
