// Package validate checks that a changelog follows the Keep a Changelog
// grammar, that its releases and links agree with the repository tags and
// that its entries trace back to real changes.
package validate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/commits"
	"github.com/ariel-frischer/chlog/internal/depbump"
)

// Kind classifies a violation.
type Kind string

const (
	KindMalformed         Kind = "malformed"
	KindOrdering          Kind = "ordering"
	KindMissingLink       Kind = "missing-link"
	KindExtraLink         Kind = "extra-link"
	KindUnknownTag        Kind = "unknown-tag"
	KindMissingUnreleased Kind = "missing-unreleased"
	KindMissingRelease    Kind = "missing-release"
	KindMissingPRLink     Kind = "missing-pr-link"
	KindUncategorized     Kind = "uncategorized"
	KindUntracedEntry     Kind = "untraced-entry"
	KindDependencyBump    Kind = "dependency-bump"
)

// Violation is one rule the document breaks.
type Violation struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Release string `json:"release,omitempty" yaml:"release,omitempty"`
	// Line is 1-based, or 0 when the violation has no single location.
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
	// Diff previews the repair for dependency-bump violations.
	Diff string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

func (v Violation) String() string {
	var b strings.Builder
	b.WriteString("[" + string(v.Kind) + "] ")
	if v.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", v.Line)
	}
	b.WriteString(v.Message)
	return b.String()
}

// Options configures Validate.
type Options struct {
	// CurrentVersion is the version the project declares, e.g. from
	// package.json. When set it must have a dated release section.
	CurrentVersion   string `validate:"omitempty,semver"`
	RepoURL          string `validate:"omitempty,url"`
	ReleaseCandidate bool
	Tags             changelog.TagScheme

	// KnownTags lists the repository tags; nil skips the tag check.
	KnownTags      []string
	RequirePRLinks bool
	// Commits are the changes since the last release; nil skips the
	// traceability check.
	Commits []commits.Record
	// Bumps are the dependency bumps to check; nil skips the check.
	Bumps       []depbump.Record
	BumpOptions depbump.Options
}

var optionsValidator = validator.New()

// Report holds every violation found. Validation never stops at the first
// problem.
type Report struct {
	Violations []Violation `json:"violations" yaml:"violations"`
	// Document is the best-effort parse of the input.
	Document *changelog.Document `json:"-" yaml:"-"`
}

// OK reports whether the document passed every check.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Count returns the number of violations of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == k {
			n++
		}
	}
	return n
}

// Err returns a *FailedError when there are violations, nil otherwise.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &FailedError{Violations: r.Violations}
}

// FailedError is returned when a changelog breaks at least one rule.
type FailedError struct {
	Violations []Violation
}

func (e *FailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "changelog validation failed with %d violation(s):", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// IsFailed returns true if err is or wraps a FailedError.
func IsFailed(err error) bool {
	var fe *FailedError
	return errors.As(err, &fe)
}

// Validate checks text against the grammar and the repository state in
// opts. The returned error is only set for invalid options.
func Validate(text string, opts Options) (*Report, error) {
	if err := optionsValidator.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid validation options: %w", err)
	}
	current := ""
	if opts.CurrentVersion != "" {
		current = changelog.NormalizeVersion(opts.CurrentVersion)
	}

	doc, problems := changelog.Inspect(text)
	c := &checker{doc: doc, opts: opts, current: current, report: &Report{Document: doc}}

	c.grammar(problems)
	c.releases()
	c.tags()
	c.links()
	c.entries()
	c.traceability()
	c.bumps()
	return c.report, nil
}

type checker struct {
	doc     *changelog.Document
	opts    Options
	current string
	report  *Report
}

func (c *checker) add(v Violation) {
	c.report.Violations = append(c.report.Violations, v)
}

func (c *checker) grammar(problems []changelog.Problem) {
	for _, p := range problems {
		kind := KindMalformed
		switch {
		case p.Code == changelog.ProblemMissingUnreleased:
			if c.opts.ReleaseCandidate {
				continue
			}
			kind = KindMissingUnreleased
		case p.IsOrdering():
			kind = KindOrdering
		}
		c.add(Violation{Kind: kind, Line: p.Line, Message: p.String()})
	}
}

// releases checks that the current version has its own dated section.
// releases requires a dated section for the candidate being prepared. A
// version that is not a candidate lives in Unreleased, which grammar checks.
func (c *checker) releases() {
	if c.current == "" || !c.opts.ReleaseCandidate {
		return
	}
	r, err := c.doc.Release(c.current)
	switch {
	case err != nil:
		c.add(Violation{
			Kind:    KindMissingRelease,
			Release: c.current,
			Message: fmt.Sprintf("current version %s has no release section", c.current),
		})
	case r.Date == "":
		c.add(Violation{
			Kind:    KindMissingRelease,
			Release: c.current,
			Message: fmt.Sprintf("release %s has no date", c.current),
		})
	}
}

// inProgress reports whether r is the candidate being prepared and so has
// no tag yet.
func (c *checker) inProgress(r changelog.Release) bool {
	return c.opts.ReleaseCandidate && r.ID == c.current
}

func (c *checker) tags() {
	if c.opts.KnownTags == nil {
		return
	}
	known := make(map[string]bool, len(c.opts.KnownTags))
	for _, t := range c.opts.KnownTags {
		known[t] = true
	}
	for _, r := range c.doc.Releases {
		if r.IsUnreleased() || c.inProgress(r) {
			continue
		}
		if tag := c.opts.Tags.TagFor(r.ID); !known[tag] {
			c.add(Violation{
				Kind:    KindUnknownTag,
				Release: r.ID,
				Message: fmt.Sprintf("release %s has no tag %q", r.ID, tag),
			})
		}
	}
}

func (c *checker) links() {
	ids := make(map[string]bool, len(c.doc.Releases))
	for i, r := range c.doc.Releases {
		ids[r.ID] = true
		got, ok := c.doc.Link(r.ID)
		if !ok {
			c.add(Violation{
				Kind:    KindMissingLink,
				Release: r.ID,
				Message: fmt.Sprintf("release %s has no link reference", r.ID),
			})
			continue
		}
		if c.opts.RepoURL == "" {
			continue
		}
		if want := changelog.ReleaseLink(c.opts.RepoURL, c.opts.Tags, c.doc.Releases, i); got != want {
			c.add(Violation{
				Kind:    KindMissingLink,
				Release: r.ID,
				Message: fmt.Sprintf("link for %s is %s, expected %s", r.ID, got, want),
			})
		}
	}
	for _, l := range c.doc.Links {
		if !ids[l.ID] {
			c.add(Violation{
				Kind:    KindExtraLink,
				Release: l.ID,
				Message: fmt.Sprintf("link reference %q matches no release", l.ID),
			})
		}
	}
}

func (c *checker) entries() {
	for _, r := range c.doc.Releases {
		if s := r.Section(changelog.Uncategorized); s != nil && len(s.Entries) > 0 && !r.IsUnreleased() {
			c.add(Violation{
				Kind:    KindUncategorized,
				Release: r.ID,
				Message: fmt.Sprintf("release %s has %d uncategorized entries", r.ID, len(s.Entries)),
			})
		}
		if !c.opts.RequirePRLinks {
			continue
		}
		for _, fe := range r.Entries() {
			if msg := c.prLinkProblem(fe.Entry); msg != "" {
				c.add(Violation{
					Kind:    KindMissingPRLink,
					Release: r.ID,
					Message: fmt.Sprintf("%s: %q", msg, fe.Text),
				})
			}
		}
	}
}

// prLinkProblem describes what is wrong with the pull request references of
// e, or returns "".
func (c *checker) prLinkProblem(e changelog.Entry) string {
	if len(e.PRNumbers()) == 0 {
		return "entry has no pull request link"
	}
	for _, ref := range e.PRs {
		if ref.URL == "" {
			continue
		}
		if c.opts.RepoURL != "" && ref.URL != changelog.PullURL(c.opts.RepoURL, ref.Number) {
			return fmt.Sprintf("pull request link %s does not point to %s", ref.URL, changelog.PullURL(c.opts.RepoURL, ref.Number))
		}
		if !strings.HasSuffix(ref.URL, fmt.Sprintf("/pull/%d", ref.Number)) {
			return fmt.Sprintf("pull request link %s does not match #%d", ref.URL, ref.Number)
		}
	}
	return ""
}

func (c *checker) traceability() {
	if c.opts.Commits == nil {
		return
	}
	r := c.doc.Unreleased()
	if r == nil {
		return
	}
	var prs []int
	for _, rec := range c.opts.Commits {
		if rec.PR != 0 {
			prs = append(prs, rec.PR)
		}
	}
	for _, fe := range r.Entries() {
		for _, n := range fe.PRNumbers() {
			if !slices.Contains(prs, n) {
				c.add(Violation{
					Kind:    KindUntracedEntry,
					Release: r.ID,
					Message: fmt.Sprintf("#%d is not among the commits since the last release: %q", n, fe.Text),
				})
			}
		}
	}
}

func (c *checker) bumps() {
	if c.opts.Bumps == nil {
		return
	}
	for _, err := range depbump.Check(c.doc, c.opts.Bumps, c.opts.BumpOptions) {
		v := Violation{Kind: KindDependencyBump, Message: err.Error()}
		var mismatch *depbump.MismatchError
		if errors.As(err, &mismatch) {
			v.Release = mismatch.Record.Release
			if v.Release == "" {
				v.Release = changelog.UnreleasedID
			}
			v.Diff = mismatch.Diff
		}
		c.add(v)
	}
}
