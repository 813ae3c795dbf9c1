package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
	"github.com/ariel-frischer/chlog/internal/depbump"
	"github.com/ariel-frischer/chlog/internal/diffview"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/git"
	"github.com/ariel-frischer/chlog/internal/logger"
)

// maxManifestReads bounds concurrent reads of manifest snapshots.
const maxManifestReads = 8

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check that dependency bumps are recorded",
	Long: `Compare the dependency manifest (package.json or go.mod) at the latest
release with every later commit that changed it, and check that the
changelog has an entry naming each bumped dependency and its new version.

Runtime and peer dependencies are tracked; development dependencies are
not. Peer dependency bumps are breaking changes.

With --fix, missing entries are added and stale ones replaced.`,
	Example: `  chlog deps
  chlog deps --fix
  chlog deps --fix --dry-run
  chlog deps --release 1.4.0`,
	Args: cobra.NoArgs,
	RunE: runDeps,
}

func init() {
	depsCmd.GroupID = shared.GroupChangelog
	rootCmd.AddCommand(depsCmd)

	f := depsCmd.Flags()
	f.String("from", "", "Compare against the manifest at this ref (default: tag of the latest release)")
	f.String("release", "", "Record bumps under this release instead of Unreleased")
	f.String("today", "", "Date of a created release section, YYYY-MM-DD")
	f.Bool("fix", false, "Add or replace entries for unrecorded bumps")
	f.Bool("dry-run", false, "With --fix, print the change as a diff without writing")
}

func runDeps(cmd *cobra.Command, _ []string) error {
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

	from, _ := cmd.Flags().GetString("from")
	in, err := gatherInputs(ctx, p, hist, doc, logRange{Skip: true})
	if err != nil {
		return err
	}
	if from == "" {
		from = latestReleaseTag(doc, p.cfg.TagScheme(), in.Tags)
	}
	release, _ := cmd.Flags().GetString("release")
	today, _ := cmd.Flags().GetString("today")

	bumps, err := collectBumps(ctx, p, hist, doc, in.Tags, from, release)
	if err != nil {
		return err
	}
	opts := depbump.Options{
		RepoURL:    in.RepoURL,
		Tags:       p.cfg.TagScheme(),
		ShortLinks: p.cfg.ShortLinks,
		Today:      today,
		File:       p.relPath(),
	}

	out := cmd.OutOrStdout()
	fix, _ := cmd.Flags().GetBool("fix")
	if !fix {
		mismatches := depbump.Check(doc, bumps, opts)
		if len(mismatches) == 0 {
			fmt.Fprintf(out, "✓ %d dependency %s recorded\n", len(bumps), plural(len(bumps), "bump", "bumps"))
			return nil
		}
		printMismatches(out, mismatches)
		fmt.Fprintln(out, "\nRun 'chlog deps --fix' to record them.")
		return shared.NewExitError(shared.ExitValidationFailed)
	}

	fixed, applied := depbump.Fix(doc, bumps, opts)
	if len(applied) == 0 {
		fmt.Fprintf(out, "%s already records every dependency bump\n", p.relPath())
		return nil
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		fmt.Fprint(out, diffview.Colorize(diffview.Unified(p.relPath(), p.relPath(), before, changelog.Serialize(fixed))))
		return nil
	}
	if err := p.writeChangelog(fixed); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Recorded %d dependency %s\n", len(applied), plural(len(applied), "bump", "bumps"))
	for _, rec := range applied {
		fmt.Fprintf(out, "  %s\n", rec.EntryText())
	}
	return nil
}

func printMismatches(w io.Writer, mismatches []error) {
	for _, err := range mismatches {
		fmt.Fprintf(w, "✗ %v\n", err)
		var m *depbump.MismatchError
		if errors.As(err, &m) && m.Diff != "" {
			fmt.Fprint(w, diffview.Colorize(m.Diff))
		}
	}
}

// collectBumps builds manifest snapshots from the state at from and every
// later commit changing the manifest, and folds them into bump records.
// It returns nil when the project has no manifest.
func collectBumps(ctx context.Context, p *project, hist git.History, doc *changelog.Document, tags []string, from, release string) ([]depbump.Record, error) {
	file := p.manifestFile()
	if file == "" {
		logger.Debug(ctx, "no dependency manifest found")
		return nil, nil
	}
	path := p.repoPath(file)

	log, err := hist.Log(ctx, from, "", path)
	if err != nil {
		return nil, collaboratorError("reading manifest history", err)
	}

	// Snapshots are oldest first: the state at from, then every commit of
	// the log, which is newest first.
	refs := make([]depbump.Snapshot, 0, len(log)+1)
	if from != "" {
		refs = append(refs, depbump.Snapshot{Ref: from})
	}
	for _, c := range slices.Backward(log) {
		refs = append(refs, depbump.Snapshot{Ref: c.Hash, PR: c.Record().PR})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxManifestReads)
	for i := range refs {
		g.Go(func() error {
			m, err := manifestAt(gctx, hist, refs[i].Ref, path)
			if err != nil {
				return err
			}
			refs[i].Manifest = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snapshots := refs

	if release == "" {
		release = pendingRelease(ctx, p, doc, tags, file)
	}
	bumps := depbump.Detect(snapshots, release)
	logger.Info(ctx, "dependency bumps detected", "manifest", path, "snapshots", len(snapshots), "bumps", len(bumps), "release", release)
	return bumps, nil
}

// manifestAt parses the manifest at ref. A manifest missing at ref yields
// a nil manifest.
func manifestAt(ctx context.Context, hist git.History, ref, path string) (*depbump.Manifest, error) {
	data, err := hist.FileAt(ctx, ref, path)
	if git.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, collaboratorError("reading "+path+" at "+ref, err)
	}
	m, err := depbump.ParseManifest(path, data)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Document, fmt.Sprintf("cannot parse %s at %s", path, ref))
	}
	return m, nil
}

// pendingRelease returns the version declared by package.json when the
// changelog has a section for it that is not tagged yet: bumps belong to
// that release rather than to Unreleased.
func pendingRelease(ctx context.Context, p *project, doc *changelog.Document, tags []string, manifest string) string {
	if filepath.Base(manifest) != "package.json" {
		return ""
	}
	version := p.currentVersion(ctx)
	if version == "" || doc == nil {
		return ""
	}
	version = changelog.NormalizeVersion(version)
	if _, err := doc.Release(version); err != nil {
		return ""
	}
	if slices.Contains(tags, p.cfg.TagScheme().TagFor(version)) {
		return ""
	}
	return version
}
