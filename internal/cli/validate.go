package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
	"github.com/ariel-frischer/chlog/internal/depbump"
	"github.com/ariel-frischer/chlog/internal/diffview"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/git"
	"github.com/ariel-frischer/chlog/internal/logger"
	"github.com/ariel-frischer/chlog/internal/validate"
	"github.com/ariel-frischer/chlog/internal/watch"
)

var outputFormats = []string{"text", "yaml", "json"}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the changelog against its grammar and the repository",
	Long: `Check the changelog and report every problem found:

  - grammar: headers, dates, categories and entry lines
  - ordering: releases newest first, categories in canonical order
  - reference links: one per release, no stray ones
  - tags: every released version has its tag
  - current version: the package.json version has a dated section
  - traceability: every commit since the last release is recorded
  - dependency bumps (--deps)

Exits with code 1 when a problem is found.`,
	Example: `  chlog validate
  chlog validate --current 2.0.0-rc.1 --rc
  chlog validate --deps --output json
  chlog validate --offline
  chlog validate --watch`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.GroupID = shared.GroupChangelog
	rootCmd.AddCommand(validateCmd)

	f := validateCmd.Flags()
	f.String("current", "", "Version that must have a dated section (default: package.json version)")
	f.Bool("rc", false, "The current version is a release candidate being prepared")
	f.StringP("output", "o", "text", "Output format: text, yaml or json")
	f.Bool("deps", false, "Also check that dependency bumps are recorded")
	f.Bool("offline", false, "Skip checks that read the git history")
	f.Bool("watch", false, "Validate again whenever the changelog changes")
}

// validateRun holds the settings of one validate invocation.
type validateRun struct {
	p       *project
	hist    git.History
	output  string
	current string
	rc      bool
	deps    bool
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	run := &validateRun{p: p}
	run.output, _ = cmd.Flags().GetString("output")
	if !slices.Contains(outputFormats, run.output) {
		return clierrors.NewArgumentErrorWithUsage(
			fmt.Sprintf("unknown output format %q", run.output),
			cmd.UseLine(),
			"Use one of: text, yaml, json",
		)
	}
	run.current, _ = cmd.Flags().GetString("current")
	if run.current == "" {
		run.current = p.currentVersion(ctx)
	}
	run.rc, _ = cmd.Flags().GetBool("rc")
	run.deps, _ = cmd.Flags().GetBool("deps")

	offline, _ := cmd.Flags().GetBool("offline")
	if offline && run.deps {
		return clierrors.InvalidFlagCombination("--offline and --deps", "dependency checks read the git history")
	}
	if !offline {
		if run.hist, err = p.history(); err != nil {
			return err
		}
	}

	watching, _ := cmd.Flags().GetBool("watch")
	if watching {
		return run.watch(ctx, cmd.OutOrStdout())
	}
	ok, err := run.once(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewExitError(shared.ExitValidationFailed)
	}
	return nil
}

// once validates the changelog and prints the report. It reports whether
// the changelog passed.
func (v *validateRun) once(ctx context.Context, w io.Writer) (bool, error) {
	text, err := v.p.readChangelog()
	if err != nil {
		return false, err
	}

	opts := validate.Options{
		CurrentVersion:   v.current,
		RepoURL:          v.p.cfg.RepoURL,
		ReleaseCandidate: v.rc,
		Tags:             v.p.cfg.TagScheme(),
		RequirePRLinks:   v.p.cfg.RequirePRLinks,
	}
	if v.hist != nil {
		if err := v.addHistory(ctx, text, &opts); err != nil {
			return false, err
		}
	}

	report, err := validate.Validate(text, opts)
	if err != nil {
		return false, clierrors.Wrap(err, clierrors.Argument)
	}
	logger.Info(ctx, "validation finished", "violations", len(report.Violations))
	if err := writeReport(w, v.p.relPath(), report, v.output); err != nil {
		return false, err
	}
	return report.OK(), nil
}

// addHistory fills the tag, traceability and dependency options.
func (v *validateRun) addHistory(ctx context.Context, text string, opts *validate.Options) error {
	// A document that does not parse still gets its grammar report; the
	// history checks need its releases.
	doc, _ := changelog.Inspect(text)

	in, err := gatherInputs(ctx, v.p, v.hist, doc, logRange{})
	if err != nil {
		return err
	}
	opts.RepoURL = in.RepoURL
	opts.KnownTags = in.Tags
	if opts.KnownTags == nil {
		opts.KnownTags = []string{}
	}
	opts.Commits = git.Records(in.Log)

	if !v.deps {
		return nil
	}
	bumps, err := collectBumps(ctx, v.p, v.hist, doc, in.Tags, in.From, "")
	if err != nil {
		return err
	}
	if bumps == nil {
		bumps = []depbump.Record{}
	}
	opts.Bumps = bumps
	opts.BumpOptions = depbump.Options{
		RepoURL:    in.RepoURL,
		Tags:       opts.Tags,
		ShortLinks: v.p.cfg.ShortLinks,
		File:       v.p.relPath(),
	}
	return nil
}

// watch validates now and after every change until ctx is done.
func (v *validateRun) watch(ctx context.Context, w io.Writer) error {
	fw, err := watch.NewFileWatcher(v.p.path, watch.DefaultDebounce)
	if err != nil {
		return clierrors.Wrap(err, clierrors.Runtime)
	}
	defer fw.Close()

	changes, errs := fw.Changes(ctx)
	for {
		if _, err := v.once(ctx, w); err != nil {
			clierrors.Fprint(w, err, clierrors.Runtime)
		}
		fmt.Fprintln(w, color.New(color.Faint).Sprintf("Watching %s for changes (Ctrl+C to stop)", v.p.relPath()))

		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err != nil {
				return clierrors.Wrap(err, clierrors.Runtime)
			}
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug(ctx, "changelog changed", "path", v.p.path)
		}
	}
}

// reportView is the serialized form of a validation report.
type reportView struct {
	File       string               `json:"file" yaml:"file"`
	OK         bool                 `json:"ok" yaml:"ok"`
	Violations []validate.Violation `json:"violations" yaml:"violations"`
}

func writeReport(w io.Writer, file string, report *validate.Report, format string) error {
	view := reportView{File: file, OK: report.OK(), Violations: report.Violations}
	if view.Violations == nil {
		view.Violations = []validate.Violation{}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	}

	if report.OK() {
		fmt.Fprintf(w, "%s %s is valid\n", color.GreenString("✓"), file)
		return nil
	}
	fmt.Fprintf(w, "%s %s has %d %s:\n", color.RedString("✗"), file,
		len(report.Violations), plural(len(report.Violations), "problem", "problems"))
	for _, viol := range report.Violations {
		fmt.Fprintf(w, "  %s\n", viol.String())
		if viol.Diff != "" {
			fmt.Fprint(w, indent(diffview.Colorize(viol.Diff), "    "))
		}
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	return b.String()
}
