// Package commits turns raw commit metadata into records the reconciliation
// engine consumes: pull request number, conventional-commit type and the
// explicit changelog text a commit or pull request may carry.
package commits

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ariel-frischer/chlog/internal/changelog"
)

var (
	conventionalPattern = regexp.MustCompile(`^([A-Za-z]+)(?:\(([^)]*)\))?(!)?:\s*(.+)$`)
	trailingPRPattern   = regexp.MustCompile(`\s*\(#(\d+)\)\s*$`)
	mergePRPattern      = regexp.MustCompile(`^Merge pull request #(\d+) from \S+`)
	breakingPattern     = regexp.MustCompile(`(?m)^BREAKING[ -]CHANGE:\s*(.+)`)
	revertPattern       = regexp.MustCompile(`^Revert "(.+)"$`)
	changelogLine       = regexp.MustCompile(`(?im)^changelog:\s*(.+?)\s*$`)
	changelogHeading    = regexp.MustCompile(`(?i)^#{1,6}\s*changelog\s*$`)
)

// typeCategories maps recognized conventional-commit types to categories.
// Recognized types missing from the map land in Changed.
var typeCategories = map[string]changelog.Category{
	"feat":      changelog.Added,
	"fix":       changelog.Fixed,
	"deprecate": changelog.Deprecated,
	"remove":    changelog.Removed,
	"revert":    changelog.Removed,
	"security":  changelog.Security,
	"sec":       changelog.Security,
}

var knownTypes = []string{
	"feat", "fix", "docs", "style", "refactor", "perf", "test", "build", "ci",
	"chore", "revert", "deprecate", "remove", "security", "sec", "deps",
}

// Record is one commit observed in history.
type Record struct {
	Hash    string
	Subject string
	Body    string

	// PR is the pull request number extracted from the subject, 0 when none.
	PR int
	// Type is the lower-cased conventional-commit type, "" when the subject
	// has no recognized prefix.
	Type     string
	Scope    string
	Breaking bool
	// Description is the subject without conventional prefix and PR suffix.
	Description string
	// EntryText is explicit changelog text supplied out of band, if any.
	EntryText string
}

// Parse builds a record from a commit hash, subject and body.
func Parse(hash, subject, body string) Record {
	r := Record{Hash: hash, Subject: strings.TrimSpace(subject), Body: strings.TrimSpace(body)}
	rest := r.Subject

	if m := mergePRPattern.FindStringSubmatch(rest); m != nil {
		r.PR, _ = strconv.Atoi(m[1])
		// The pull request title is the first body line of a merge commit.
		rest = firstLine(r.Body)
	} else if m := trailingPRPattern.FindStringSubmatchIndex(rest); m != nil {
		r.PR, _ = strconv.Atoi(rest[m[2]:m[3]])
		rest = rest[:m[0]]
	}

	if m := revertPattern.FindStringSubmatch(rest); m != nil {
		r.Type = "revert"
		r.Description = m[1]
	} else if m := conventionalPattern.FindStringSubmatch(rest); m != nil && slices.Contains(knownTypes, strings.ToLower(m[1])) {
		r.Type = strings.ToLower(m[1])
		r.Scope = m[2]
		r.Breaking = m[3] != ""
		r.Description = strings.TrimSpace(m[4])
	} else {
		r.Description = strings.TrimSpace(rest)
	}

	if breakingPattern.MatchString(r.Body) {
		r.Breaking = true
	}
	r.EntryText = ExplicitEntry(r.Body)
	return r
}

// Category returns the changelog category for the commit type.
func (r Record) Category() changelog.Category {
	if r.Type == "" {
		return changelog.Uncategorized
	}
	if c, ok := typeCategories[r.Type]; ok {
		return c
	}
	return changelog.Changed
}

// Text returns the cleaned subject used as entry text. When keepPrefix is
// set the conventional prefix stays in place (used when categorization is
// off, so the reader can still triage the entry).
func (r Record) Text(keepPrefix bool) string {
	text := r.Description
	if keepPrefix && r.Type != "" {
		text = strings.TrimSpace(trailingPRPattern.ReplaceAllString(r.Subject, ""))
		if mergePRPattern.MatchString(r.Subject) {
			text = firstLine(r.Body)
		}
	}
	return capitalize(text)
}

// ExplicitEntry extracts changelog text from a commit or pull request body:
// a "Changelog: text" line, or the first bullet or line of a "## Changelog"
// section. It returns "" when the body carries none.
func ExplicitEntry(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !changelogHeading.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if next == "" {
				continue
			}
			if strings.HasPrefix(next, "#") {
				break
			}
			return explicitText(strings.TrimLeft(next, "-*"))
		}
	}
	if m := changelogLine.FindStringSubmatch(body); m != nil {
		return explicitText(m[1])
	}
	return ""
}

// explicitText normalizes explicit entry text; "none" and "n/a" opt out.
func explicitText(s string) string {
	s = singleLine(s)
	if strings.EqualFold(s, "none") || strings.EqualFold(s, "n/a") {
		return ""
	}
	return s
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// singleLine collapses whitespace so entry text never spans lines.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
