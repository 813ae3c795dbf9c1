package changelog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// ProblemCode identifies a kind of grammar violation.
type ProblemCode string

const (
	ProblemMissingTitle           ProblemCode = "missing-title"
	ProblemMissingPreamble        ProblemCode = "missing-preamble"
	ProblemMissingUnreleased      ProblemCode = "missing-unreleased"
	ProblemBadReleaseHeader       ProblemCode = "bad-release-header"
	ProblemBulletOutsideCategory  ProblemCode = "bullet-outside-category"
	ProblemCategoryOutsideRelease ProblemCode = "category-outside-release"
	ProblemUnknownCategory        ProblemCode = "unknown-category"
	ProblemCategoryOrder          ProblemCode = "category-order"
	ProblemReleaseOrder           ProblemCode = "release-order"
	ProblemDuplicateRelease       ProblemCode = "duplicate-release"
	ProblemTrailingContent        ProblemCode = "trailing-content"
)

// Problem is a single grammar violation found while parsing.
type Problem struct {
	Code ProblemCode
	// Line is 1-based; 0 means the problem concerns the whole document.
	Line     int
	Fragment string
	Message  string
}

// String formats the problem with its location and offending fragment.
func (p Problem) String() string {
	var b strings.Builder
	if p.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", p.Line)
	}
	b.WriteString(p.Message)
	if p.Fragment != "" {
		fmt.Fprintf(&b, ": %q", p.Fragment)
	}
	return b.String()
}

// IsOrdering reports whether the problem concerns release ordering.
func (p Problem) IsOrdering() bool {
	return p.Code == ProblemReleaseOrder || p.Code == ProblemDuplicateRelease
}

// MalformedError is returned when a document does not follow the grammar.
type MalformedError struct {
	Problems []Problem
}

func (e *MalformedError) Error() string {
	if len(e.Problems) == 0 {
		return "malformed changelog"
	}
	msg := "malformed changelog: " + e.Problems[0].String()
	if n := len(e.Problems) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// IsMalformed returns true if err is or wraps a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

var (
	releaseHeaderPattern = regexp.MustCompile(`^## \[([^\]]+)\](?: - (\S+))?( \[YANKED\])?\s*$`)
	linkDefPattern       = regexp.MustCompile(`^\[([^\]]+)\]:\s*(\S+)\s*$`)
)

// Parse reads a changelog and returns its document tree. Any grammar
// violation fails the parse with a *MalformedError listing every problem.
func Parse(text string) (*Document, error) {
	doc, problems := Inspect(text)
	if len(problems) > 0 {
		return nil, &MalformedError{Problems: problems}
	}
	return doc, nil
}

// Inspect parses text as far as possible and returns the document together
// with all grammar problems found. Lines that cannot be placed in the tree
// are kept as trivia so the document still serializes to the input text.
func Inspect(text string) (*Document, []Problem) {
	p := &parser{doc: &Document{}}
	if strings.HasSuffix(text, "\n") {
		p.doc.finalNewline = true
		text = strings.TrimSuffix(text, "\n")
	}
	for i, line := range strings.Split(text, "\n") {
		p.line(i+1, line)
	}
	p.finishHead()
	p.checkReleases()
	return p.doc, p.problems
}

type parseState int

const (
	stateHead parseState = iota
	stateRelease
	stateBadRelease
	stateSection
	stateBadSection
	stateLinks
)

type parser struct {
	doc      *Document
	problems []Problem
	state    parseState
	lines    []int // source line of each release, for ordering problems
}

func (p *parser) problem(code ProblemCode, line int, fragment, msg string) {
	p.problems = append(p.problems, Problem{Code: code, Line: line, Fragment: fragment, Message: msg})
}

func (p *parser) line(n int, line string) {
	if p.state == stateLinks {
		p.linkBlockLine(n, line)
		return
	}
	if strings.HasPrefix(line, "## ") {
		p.releaseHeader(n, line)
		return
	}
	if p.state == stateHead {
		if strings.HasPrefix(line, "### ") {
			p.problem(ProblemCategoryOutsideRelease, n, line, "category heading before any release")
		}
		p.doc.head = append(p.doc.head, line)
		return
	}
	if m := linkDefPattern.FindStringSubmatch(line); m != nil {
		p.state = stateLinks
		p.doc.Links = append(p.doc.Links, Link{ID: m[1], URL: m[2], raw: line})
		return
	}
	if p.state == stateBadRelease {
		p.trivia(line)
		return
	}
	if strings.HasPrefix(line, "### ") {
		p.sectionHeading(n, line)
		return
	}
	if e, ok := parseEntryLine(line); ok {
		switch p.state {
		case stateSection:
			r := p.currentRelease()
			s := &r.Sections[len(r.Sections)-1]
			s.Entries = append(s.Entries, e)
			return
		case stateRelease:
			p.problem(ProblemBulletOutsideCategory, n, line, "bullet outside of any category")
		}
	}
	p.trivia(line)
}

func (p *parser) releaseHeader(n int, line string) {
	r, msg := parseReleaseHeader(line)
	if msg != "" {
		p.problem(ProblemBadReleaseHeader, n, line, msg)
		p.trivia(line)
		p.state = stateBadRelease
		return
	}
	r.raw = line
	p.doc.Releases = append(p.doc.Releases, r)
	p.lines = append(p.lines, n)
	p.state = stateRelease
}

// parseReleaseHeader returns the release and an empty message, or a
// message describing why the header is invalid.
func parseReleaseHeader(line string) (Release, string) {
	m := releaseHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		return Release{}, "release header must be \"## [version] - YYYY-MM-DD\" or \"## [Unreleased]\""
	}
	id, date := m[1], m[2]
	if strings.EqualFold(id, UnreleasedID) {
		if date != "" || m[3] != "" {
			return Release{}, "Unreleased header must not carry a date"
		}
		return Release{ID: UnreleasedID}, ""
	}
	if !ValidVersion(id) {
		return Release{}, fmt.Sprintf("invalid semantic version %q", id)
	}
	if date == "" {
		return Release{}, fmt.Sprintf("release %s is missing its date", id)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return Release{}, fmt.Sprintf("invalid date %q (expected: YYYY-MM-DD)", date)
	}
	return Release{ID: id, Date: date, Yanked: m[3] != ""}, ""
}

// ValidVersion reports whether v is a bare semantic version such as
// "1.2.3" or "2.0.0-rc.1" (no "v" prefix, no shorthand).
func ValidVersion(v string) bool {
	if strings.HasPrefix(v, "v") {
		return false
	}
	sv := "v" + v
	return semver.IsValid(sv) && semver.Canonical(sv)+semver.Build(sv) == sv
}

func (p *parser) sectionHeading(n int, line string) {
	name := strings.TrimSpace(strings.TrimPrefix(line, "### "))
	c, ok := ParseCategory(name)
	if !ok {
		p.problem(ProblemUnknownCategory, n, line, fmt.Sprintf("unknown category %q", name))
		p.trivia(line)
		p.state = stateBadSection
		return
	}
	r := p.currentRelease()
	if k := len(r.Sections); k > 0 && r.Sections[k-1].Category >= c {
		msg := fmt.Sprintf("category %s out of order in release %s", c, r.ID)
		if r.Section(c) != nil {
			msg = fmt.Sprintf("category %s repeated in release %s", c, r.ID)
		}
		p.problem(ProblemCategoryOrder, n, line, msg)
	}
	r.Sections = append(r.Sections, Section{Category: c, raw: line})
	p.state = stateSection
}

func (p *parser) linkBlockLine(n int, line string) {
	if m := linkDefPattern.FindStringSubmatch(line); m != nil {
		p.doc.Links = append(p.doc.Links, Link{ID: m[1], URL: m[2], raw: line})
		return
	}
	if strings.TrimSpace(line) != "" {
		p.problem(ProblemTrailingContent, n, line, "unexpected content after reference links")
	}
	p.trivia(line)
}

func (p *parser) currentRelease() *Release {
	return &p.doc.Releases[len(p.doc.Releases)-1]
}

// trivia attaches line to the most recent node.
func (p *parser) trivia(line string) {
	d := p.doc
	if len(d.Links) > 0 {
		l := &d.Links[len(d.Links)-1]
		l.after = append(l.after, line)
		return
	}
	if len(d.Releases) == 0 {
		d.head = append(d.head, line)
		return
	}
	r := &d.Releases[len(d.Releases)-1]
	if len(r.Sections) == 0 {
		r.after = append(r.after, line)
		return
	}
	s := &r.Sections[len(r.Sections)-1]
	if len(s.Entries) == 0 {
		s.after = append(s.after, line)
		return
	}
	e := &s.Entries[len(s.Entries)-1]
	e.after = append(e.after, line)
}

// finishHead extracts the title and preamble from the head lines.
func (p *parser) finishHead() {
	d := p.doc
	first := -1
	for i, line := range d.head {
		if strings.TrimSpace(line) != "" {
			first = i
			break
		}
	}
	if first < 0 || !strings.HasPrefix(d.head[first], "# ") {
		fragment := ""
		if first >= 0 {
			fragment = d.head[first]
		}
		p.problem(ProblemMissingTitle, first+1, fragment, "document must start with a \"# \" title")
		return
	}
	d.Title = strings.TrimSpace(strings.TrimPrefix(d.head[first], "# "))
	d.Preamble = strings.TrimSpace(strings.Join(d.head[first+1:], "\n"))
	d.origTitle, d.origPreamble = d.Title, d.Preamble
	if d.Preamble == "" {
		p.problem(ProblemMissingPreamble, first+1, "", "document must have a description below the title")
	}
}

// checkReleases verifies release uniqueness and descending order.
func (p *parser) checkReleases() {
	seen := make(map[string]bool)
	prev := ""
	hasUnreleased := false
	for i, r := range p.doc.Releases {
		line := p.lines[i]
		if seen[r.ID] {
			p.problem(ProblemDuplicateRelease, line, r.raw, fmt.Sprintf("release %s appears more than once", r.ID))
			continue
		}
		seen[r.ID] = true
		if r.IsUnreleased() {
			hasUnreleased = true
			if i != 0 {
				p.problem(ProblemReleaseOrder, line, r.raw, "Unreleased must be the first release")
			}
			continue
		}
		if prev != "" && CompareVersions(prev, r.ID) <= 0 {
			p.problem(ProblemReleaseOrder, line, r.raw,
				fmt.Sprintf("release %s must be listed before %s", r.ID, prev))
		}
		prev = r.ID
	}
	if !hasUnreleased {
		p.problem(ProblemMissingUnreleased, 0, "", "document has no [Unreleased] section")
	}
}

// CompareVersions compares two bare semantic versions like semver.Compare.
func CompareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}
