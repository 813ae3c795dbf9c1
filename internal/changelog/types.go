package changelog

import (
	"strings"

	"golang.org/x/mod/semver"
)

// UnreleasedID is the identifier of the section holding changes that are not
// attached to a version tag yet.
const UnreleasedID = "Unreleased"

// Document is the parsed form of a CHANGELOG.md file.
// Releases are ordered newest first with Unreleased (when present) on top.
// Links holds the trailing "[id]: url" reference lines in file order.
type Document struct {
	Title    string
	Preamble string
	Releases []Release
	Links    []Link

	// head holds the raw lines from the start of the file up to the first
	// release header, including the title line.
	head         []string
	origTitle    string
	origPreamble string
	finalNewline bool
}

// Release is one "## [id]" section.
type Release struct {
	// ID is UnreleasedID or a bare semantic version such as "1.2.0".
	ID       string
	Date     string
	Yanked   bool
	Sections []Section

	raw   string
	after []string
}

// Section is one "### Category" block inside a release.
type Section struct {
	Category Category
	Entries  []Entry

	raw   string
	after []string
}

// Entry is a single bullet line.
// Text excludes the breaking marker and the trailing pull request group.
type Entry struct {
	Text     string
	PRs      []PRRef
	Breaking bool

	raw   string
	after []string
}

// PRRef references a pull request. URL is empty for the short "#n" form.
type PRRef struct {
	Number int
	URL    string
}

// Link is a reference definition such as "[1.0.0]: https://...".
type Link struct {
	ID  string
	URL string

	raw   string
	after []string
}

// IsUnreleased returns true if this release represents unreleased changes.
func (r Release) IsUnreleased() bool {
	return r.ID == UnreleasedID
}

// IsCandidate returns true for versions whose prerelease part starts with "rc".
func (r Release) IsCandidate() bool {
	return IsCandidateVersion(r.ID)
}

// IsCandidateVersion reports whether version is a release candidate, e.g. "2.0.0-rc.1".
func IsCandidateVersion(version string) bool {
	pre := semver.Prerelease("v" + version)
	return strings.HasPrefix(pre, "-rc")
}

// Section returns the section for c, or nil when the release has none.
func (r *Release) Section(c Category) *Section {
	for i := range r.Sections {
		if r.Sections[i].Category == c {
			return &r.Sections[i]
		}
	}
	return nil
}

// EnsureSection returns the section for c, inserting an empty one at its
// canonical position when missing.
func (r *Release) EnsureSection(c Category) *Section {
	if s := r.Section(c); s != nil {
		return s
	}
	pos := len(r.Sections)
	for i, s := range r.Sections {
		if s.Category > c {
			pos = i
			break
		}
	}
	r.Sections = append(r.Sections, Section{})
	copy(r.Sections[pos+1:], r.Sections[pos:])
	r.Sections[pos] = NewSection(c)
	return &r.Sections[pos]
}

// RemoveEntries deletes the entries for which drop returns true and returns
// them. When the last entry goes, its trailing lines move to the new last
// entry so the section still ends the same way.
func (s *Section) RemoveEntries(drop func(Entry) bool) []Entry {
	var kept, removed []Entry
	for _, e := range s.Entries {
		if drop(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(removed) == 0 {
		return nil
	}
	last := s.Entries[len(s.Entries)-1]
	if n := len(kept); n > 0 && drop(last) {
		kept[n-1].after = last.after
	}
	s.Entries = kept
	return removed
}

// EntryCount returns the number of entries across all sections.
func (r Release) EntryCount() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Entries)
	}
	return n
}

// IsEmpty returns true if the release has no entries in any section.
func (r Release) IsEmpty() bool {
	return r.EntryCount() == 0
}

// NewRelease builds a release header that has not been parsed from text.
func NewRelease(id, date string) Release {
	return Release{ID: id, Date: date, after: []string{""}}
}

// NewSection builds an empty category section.
func NewSection(c Category) Section {
	return Section{Category: c, after: []string{""}}
}

// NewEntry builds an entry rendered in canonical form.
func NewEntry(text string, breaking bool, prs ...PRRef) Entry {
	return Entry{Text: text, Breaking: breaking, PRs: prs}
}

// PRNumbers returns every pull request number the entry references: the
// trailing group plus any inline "[#n](.../pull/n)" links in the text.
func (e Entry) PRNumbers() []int {
	seen := make(map[int]bool)
	var numbers []int
	for _, pr := range e.PRs {
		if !seen[pr.Number] {
			seen[pr.Number] = true
			numbers = append(numbers, pr.Number)
		}
	}
	for _, n := range inlinePRNumbers(e.Text) {
		if !seen[n] {
			seen[n] = true
			numbers = append(numbers, n)
		}
	}
	return numbers
}

// Line renders the entry as a bullet line.
func (e Entry) Line() string {
	if e.raw != "" && entryMatchesRaw(e) {
		return e.raw
	}
	return renderEntry(e)
}

// Clone returns a deep copy of the document. Edits never touch the input
// document; every stage works on its own clone.
func (d *Document) Clone() *Document {
	c := *d
	c.head = append([]string(nil), d.head...)
	c.Links = make([]Link, len(d.Links))
	for i, l := range d.Links {
		l.after = append([]string(nil), l.after...)
		c.Links[i] = l
	}
	c.Releases = make([]Release, len(d.Releases))
	for i, r := range d.Releases {
		c.Releases[i] = r.clone()
	}
	return &c
}

func (r Release) clone() Release {
	c := r
	c.after = append([]string(nil), r.after...)
	c.Sections = make([]Section, len(r.Sections))
	for i, s := range r.Sections {
		sc := s
		sc.after = append([]string(nil), s.after...)
		sc.Entries = make([]Entry, len(s.Entries))
		for j, e := range s.Entries {
			ec := e
			ec.after = append([]string(nil), e.after...)
			ec.PRs = append([]PRRef(nil), e.PRs...)
			sc.Entries[j] = ec
		}
		c.Sections[i] = sc
	}
	return c
}
