package depbump

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/diffview"
	"github.com/ariel-frischer/chlog/internal/reconcile"
)

// Options controls how synthesized entries and releases are rendered.
type Options struct {
	RepoURL    string
	Tags       changelog.TagScheme
	ShortLinks bool
	// Today dates a release section created for a record. Defaults to the
	// current date.
	Today string
	// File names the changelog in diff previews.
	File string
}

// MismatchError reports a bump the changelog does not record correctly.
type MismatchError struct {
	Record Record
	// Stale holds entries that mention the dependency with another version.
	Stale []changelog.Entry
	// Diff previews the fix as a unified diff.
	Diff string
}

func (e *MismatchError) Error() string {
	target := targetRelease(e.Record)
	if len(e.Stale) > 0 {
		return fmt.Sprintf("%s entry for %s in [%s] does not mention version %s",
			e.Record.Kind, e.Record.Name, target, e.Record.To)
	}
	return fmt.Sprintf("%s %s changed to %s but [%s] has no entry for it",
		e.Record.Kind, e.Record.Name, e.Record.To, target)
}

func targetRelease(r Record) string {
	if r.Release == "" {
		return changelog.UnreleasedID
	}
	return r.Release
}

// Check returns one *MismatchError for every record that has no satisfying
// entry in its target release. doc is not modified.
func Check(doc *changelog.Document, records []Record, opts Options) []error {
	before := changelog.Serialize(doc)
	file := opts.File
	if file == "" {
		file = "CHANGELOG.md"
	}

	var errs []error
	for _, rec := range records {
		satisfied, stale := match(doc, rec)
		if satisfied {
			continue
		}
		fixed := doc.Clone()
		apply(fixed, rec, opts)
		errs = append(errs, &MismatchError{
			Record: rec,
			Stale:  stale,
			Diff:   diffview.Unified(file, file, before, changelog.Serialize(fixed)),
		})
	}
	return errs
}

// Fix returns a copy of doc with an entry for every unsatisfied record.
// Stale entries are replaced; their pull requests move to the new entry.
func Fix(doc *changelog.Document, records []Record, opts Options) (*changelog.Document, []Record) {
	fixed := doc.Clone()
	var applied []Record
	for _, rec := range records {
		if satisfied, _ := match(fixed, rec); satisfied {
			continue
		}
		apply(fixed, rec, opts)
		applied = append(applied, rec)
	}
	return fixed, applied
}

// match looks for entries of the target release that name the dependency.
func match(doc *changelog.Document, rec Record) (bool, []changelog.Entry) {
	r, err := doc.Release(targetRelease(rec))
	if err != nil {
		return false, nil
	}
	var stale []changelog.Entry
	for _, fe := range r.Entries() {
		tokens := Tokens(fe.Text)
		if !slices.Contains(tokens, rec.Name) {
			continue
		}
		if slices.Contains(tokens, rec.To) {
			return true, nil
		}
		stale = append(stale, fe.Entry)
	}
	return false, stale
}

func apply(doc *changelog.Document, rec Record, opts Options) {
	today := opts.Today
	if today == "" {
		today = time.Now().Format("2006-01-02")
	}
	r := reconcile.EnsureRelease(doc, targetRelease(rec), today, opts.RepoURL, opts.Tags)

	prs := slices.Clone(rec.PRs)
	emptied := make(map[changelog.Category]bool)
	for si := range r.Sections {
		s := &r.Sections[si]
		had := len(s.Entries)
		removed := s.RemoveEntries(func(e changelog.Entry) bool {
			tokens := Tokens(e.Text)
			return slices.Contains(tokens, rec.Name) && !slices.Contains(tokens, rec.To)
		})
		for _, e := range removed {
			for _, n := range e.PRNumbers() {
				if !slices.Contains(prs, n) {
					prs = append(prs, n)
				}
			}
		}
		if had > 0 && len(s.Entries) == 0 {
			emptied[s.Category] = true
		}
	}

	var sections []changelog.Section
	for _, s := range r.Sections {
		if !emptied[s.Category] {
			sections = append(sections, s)
		}
	}
	r.Sections = sections

	var refs []changelog.PRRef
	for _, n := range prs {
		refs = append(refs, changelog.NewPRRef(n, opts.RepoURL, opts.ShortLinks))
	}
	reconcile.Insert(r, []reconcile.Placement{{
		Category: changelog.Changed,
		Entry:    changelog.NewEntry(rec.EntryText(), rec.Breaking, refs...),
	}})
}

// Tokens splits entry text into words that may name a dependency or a
// version. Package scopes, module paths and prerelease suffixes stay
// inside their token, so "1.1.0" and "1.1.0-beta" are different tokens.
func Tokens(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("._@/+-~", r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
