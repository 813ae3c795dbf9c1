// Package reconcile inserts entries for newly observed commits into a
// changelog document.
//
// Update is idempotent: commits whose pull request is already referenced
// anywhere in the document are skipped, so running it twice with the same
// commits leaves the second result unchanged.
package reconcile

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/commits"
)

// CategorizeMode selects how commits are sorted into categories.
type CategorizeMode string

const (
	// CategorizeOff puts every new entry in Uncategorized.
	CategorizeOff CategorizeMode = "off"
	// CategorizeConventional maps conventional-commit types to categories.
	CategorizeConventional CategorizeMode = "conventional"
)

// EntrySource selects where entry text comes from.
type EntrySource string

const (
	// SourceSubject uses the cleaned commit subject.
	SourceSubject EntrySource = "subject"
	// SourceExplicit prefers explicit changelog text supplied out of band
	// and falls back to the subject.
	SourceExplicit EntrySource = "explicit"
)

// Options configures Update.
type Options struct {
	// Target is the release receiving new entries: "" or Unreleased, or a
	// release-candidate version such as "2.0.0-rc.1".
	Target string
	// Today is the date of a release created for Target, YYYY-MM-DD.
	// Defaults to the current date.
	Today   string `validate:"omitempty,datetime=2006-01-02"`
	RepoURL string `validate:"omitempty,url"`
	Tags    changelog.TagScheme

	// Categorize defaults to CategorizeConventional.
	Categorize       CategorizeMode `validate:"omitempty,oneof=off conventional"`
	EntrySource      EntrySource    `validate:"omitempty,oneof=subject explicit"`
	RequirePRNumbers bool
	ShortLinks       bool
}

var optionsValidator = validator.New()

// MissingPRNumberError reports a commit dropped because it has no pull
// request number while one is required.
type MissingPRNumberError struct {
	Commit commits.Record
}

func (e *MissingPRNumberError) Error() string {
	return fmt.Sprintf("commit %s has no pull request number: %q", shortHash(e.Commit.Hash), e.Commit.Subject)
}

// Placement is an entry destined for a category.
type Placement struct {
	Category changelog.Category
	Entry    changelog.Entry
}

// Addition is an entry Update added, with the commit it came from.
type Addition struct {
	Placement
	Commit commits.Record
}

// Result is the outcome of Update.
type Result struct {
	// Document is a new document; the input is never modified.
	Document *changelog.Document
	Target   string
	Added    []Addition
	// Skipped holds commits already represented in the document.
	Skipped []commits.Record
	// Dropped holds one *MissingPRNumberError per dropped commit.
	Dropped []error
}

// Changed reports whether Update added anything.
func (r *Result) Changed() bool {
	return len(r.Added) > 0
}

// Update adds entries for records, which are ordered newest first, to the
// target release of doc.
func Update(doc *changelog.Document, records []commits.Record, opts Options) (*Result, error) {
	if err := optionsValidator.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid update options: %w", err)
	}
	target := opts.Target
	if target == "" {
		target = changelog.UnreleasedID
	}
	if target != changelog.UnreleasedID && !changelog.IsCandidateVersion(target) {
		return nil, fmt.Errorf("target %q is neither Unreleased nor a release candidate version", target)
	}
	if target != changelog.UnreleasedID && !changelog.ValidVersion(target) {
		return nil, fmt.Errorf("target %q is not a valid semantic version", target)
	}

	res := &Result{Document: doc.Clone(), Target: target}
	present := doc.PRNumbers()
	texts := entryTexts(doc)

	var batch []Placement
	for _, c := range records {
		if c.PR != 0 && present[c.PR] {
			res.Skipped = append(res.Skipped, c)
			continue
		}
		if c.PR == 0 && opts.RequirePRNumbers {
			res.Dropped = append(res.Dropped, &MissingPRNumberError{Commit: c})
			continue
		}

		p := placementFor(c, opts)
		// Commits without a pull request have nothing but their text to
		// recognize them by.
		if c.PR == 0 && texts[p.Entry.Text] {
			res.Skipped = append(res.Skipped, c)
			continue
		}
		if c.PR != 0 {
			present[c.PR] = true
		}
		texts[p.Entry.Text] = true

		batch = append(batch, p)
		res.Added = append(res.Added, Addition{Placement: p, Commit: c})
	}

	if len(batch) == 0 {
		return res, nil
	}

	today := opts.Today
	if today == "" {
		today = time.Now().Format("2006-01-02")
	}
	if target != changelog.UnreleasedID {
		EnsureRelease(res.Document, changelog.UnreleasedID, "", opts.RepoURL, opts.Tags)
	}
	r := EnsureRelease(res.Document, target, today, opts.RepoURL, opts.Tags)
	Insert(r, batch)
	return res, nil
}

func placementFor(c commits.Record, opts Options) Placement {
	categorize := opts.Categorize != CategorizeOff

	text := c.Text(!categorize)
	if opts.EntrySource == SourceExplicit && c.EntryText != "" {
		text = c.EntryText
	}

	category := changelog.Uncategorized
	if categorize {
		category = c.Category()
	}

	var refs []changelog.PRRef
	if c.PR != 0 {
		refs = append(refs, changelog.NewPRRef(c.PR, opts.RepoURL, opts.ShortLinks))
	}
	return Placement{Category: category, Entry: changelog.NewEntry(text, c.Breaking, refs...)}
}

func entryTexts(doc *changelog.Document) map[string]bool {
	texts := make(map[string]bool)
	for _, e := range doc.AllEntries() {
		texts[e.Text] = true
	}
	return texts
}

// Insert places entries at the top of their categories in r. Entries bound
// for the same category keep their relative order.
func Insert(r *changelog.Release, entries []Placement) {
	grouped := make(map[changelog.Category][]changelog.Entry)
	for _, p := range entries {
		grouped[p.Category] = append(grouped[p.Category], p.Entry)
	}
	for _, c := range changelog.Categories() {
		batch, ok := grouped[c]
		if !ok {
			continue
		}
		s := r.EnsureSection(c)
		s.Entries = append(append([]changelog.Entry(nil), batch...), s.Entries...)
	}
}

// EnsureRelease returns the release id of doc, creating it when absent.
// Unreleased is created on top; a version is placed before the first older
// release, which puts a new candidate directly after Unreleased. The links
// of the created release and of the release above it are refreshed.
func EnsureRelease(doc *changelog.Document, id, date, repoURL string, tags changelog.TagScheme) *changelog.Release {
	if r, err := doc.Release(id); err == nil {
		return r
	}

	pos := 0
	if id != changelog.UnreleasedID {
		pos = len(doc.Releases)
		for i, r := range doc.Releases {
			if !r.IsUnreleased() && changelog.CompareVersions(r.ID, id) < 0 {
				pos = i
				break
			}
		}
	}

	doc.Releases = append(doc.Releases, changelog.Release{})
	copy(doc.Releases[pos+1:], doc.Releases[pos:])
	if id == changelog.UnreleasedID {
		doc.Releases[pos] = changelog.NewRelease(id, "")
	} else {
		doc.Releases[pos] = changelog.NewRelease(id, date)
	}

	ids := []string{id}
	if pos > 0 {
		ids = append(ids, doc.Releases[pos-1].ID)
	}
	doc.RefreshLinks(repoURL, tags, ids...)
	return &doc.Releases[pos]
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
