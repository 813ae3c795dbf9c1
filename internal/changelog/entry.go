package changelog

import (
	"regexp"
	"strconv"
	"strings"
)

const breakingMarker = "**Breaking:**"

var (
	bulletPattern   = regexp.MustCompile(`^[-*] (.*)$`)
	breakingPattern = regexp.MustCompile(`(?i)^\*\*breaking(?: change)?:?\*\*:?\s*`)

	// refPattern matches one pull request reference: "#12" or "[#12](url)".
	refPattern = `(?:#\d+|\[#\d+\]\([^()\s]+\))`
	// trailingRefsPattern matches a trailing group such as "(#12)" or
	// "([#12](https://x/pull/12), [#14](https://x/pull/14))".
	trailingRefsPattern = regexp.MustCompile(`^(.*?)\s*\((` + refPattern + `(?:,\s*` + refPattern + `)*)\)$`)
	singleRefPattern    = regexp.MustCompile(`#(\d+)|\[#(\d+)\]\(([^()\s]+)\)`)
	inlinePRLinkPattern = regexp.MustCompile(`\[#(\d+)\]\([^()\s]*/pull/(\d+)\)`)
)

// parseEntryLine parses a bullet line. ok is false when line is not a bullet.
func parseEntryLine(line string) (Entry, bool) {
	m := bulletPattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	body := strings.TrimSpace(m[1])

	e := Entry{raw: line}
	if loc := breakingPattern.FindStringIndex(body); loc != nil {
		e.Breaking = true
		body = body[loc[1]:]
	}

	if g := trailingRefsPattern.FindStringSubmatch(body); g != nil {
		e.Text = strings.TrimSpace(g[1])
		e.PRs = parseRefs(g[2])
	} else {
		e.Text = body
	}
	return e, true
}

// parseRefs splits the inside of a trailing reference group.
func parseRefs(group string) []PRRef {
	var refs []PRRef
	for _, m := range singleRefPattern.FindAllStringSubmatch(group, -1) {
		if m[1] != "" {
			n, _ := strconv.Atoi(m[1])
			refs = append(refs, PRRef{Number: n})
			continue
		}
		n, _ := strconv.Atoi(m[2])
		refs = append(refs, PRRef{Number: n, URL: m[3]})
	}
	return refs
}

// inlinePRNumbers finds "[#n](.../pull/n)" links embedded in free text.
func inlinePRNumbers(text string) []int {
	var numbers []int
	for _, m := range inlinePRLinkPattern.FindAllStringSubmatch(text, -1) {
		if m[1] != m[2] {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		numbers = append(numbers, n)
	}
	return numbers
}

// renderEntry writes the canonical bullet line for e.
func renderEntry(e Entry) string {
	var b strings.Builder
	b.WriteString("- ")
	if e.Breaking {
		b.WriteString(breakingMarker)
		b.WriteString(" ")
	}
	b.WriteString(e.Text)
	if len(e.PRs) > 0 {
		b.WriteString(" (")
		b.WriteString(FormatRefs(e.PRs))
		b.WriteString(")")
	}
	return b.String()
}

// FormatRefs renders references comma separated, without the parentheses.
func FormatRefs(refs []PRRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// String renders "#n" or "[#n](url)".
func (r PRRef) String() string {
	if r.URL == "" {
		return "#" + strconv.Itoa(r.Number)
	}
	return "[#" + strconv.Itoa(r.Number) + "](" + r.URL + ")"
}

// NewPRRef builds a reference to pull request n of repoURL. A short "#n"
// reference is produced when short is set or repoURL is empty.
func NewPRRef(n int, repoURL string, short bool) PRRef {
	if short || repoURL == "" {
		return PRRef{Number: n}
	}
	return PRRef{Number: n, URL: PullURL(repoURL, n)}
}

// PullURL returns the pull request page of repoURL.
func PullURL(repoURL string, n int) string {
	return strings.TrimSuffix(repoURL, "/") + "/pull/" + strconv.Itoa(n)
}

// entryMatchesRaw reports whether the raw line still describes e.
func entryMatchesRaw(e Entry) bool {
	p, ok := parseEntryLine(e.raw)
	if !ok || p.Text != e.Text || p.Breaking != e.Breaking || len(p.PRs) != len(e.PRs) {
		return false
	}
	for i := range p.PRs {
		if p.PRs[i] != e.PRs[i] {
			return false
		}
	}
	return true
}
