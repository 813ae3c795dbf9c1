package changelog

import (
	"io"
	"strings"
)

// Serialize renders the document back to Markdown.
//
// Nodes parsed from text are written from their raw lines as long as their
// fields still match them, so serialize(parse(text)) == text. Nodes created
// or changed in memory are rendered canonically and separated from their
// neighbours by a single blank line.
func Serialize(d *Document) string {
	w := &lineWriter{}
	w.head(d)
	for _, r := range d.Releases {
		w.release(r)
	}
	for i, l := range d.Links {
		line := l.canonical()
		if l.raw != "" && l.matchesRaw() {
			line = l.raw
		}
		w.node(line, line != l.raw, i == 0, l.after)
	}

	out := strings.Join(w.lines, "\n")
	if d.finalNewline {
		out += "\n"
	}
	return out
}

// WriteTo serializes the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, Serialize(d))
	return int64(n), err
}

type lineWriter struct {
	lines     []string
	prevFresh bool
}

// node appends a structural line and its trivia. Spaced nodes that are new,
// or follow a new node, get one blank line above them when the previous line
// is not blank already.
func (w *lineWriter) node(line string, fresh, spaced bool, after []string) {
	if spaced && (fresh || w.prevFresh) && len(w.lines) > 0 &&
		strings.TrimSpace(w.lines[len(w.lines)-1]) != "" {
		w.lines = append(w.lines, "")
	}
	w.lines = append(w.lines, line)
	w.lines = append(w.lines, after...)
	w.prevFresh = fresh
}

func (w *lineWriter) head(d *Document) {
	if d.head != nil && d.Title == d.origTitle && d.Preamble == d.origPreamble {
		w.lines = append(w.lines, d.head...)
		return
	}
	w.lines = append(w.lines, "# "+d.Title, "")
	if d.Preamble != "" {
		w.lines = append(w.lines, strings.Split(d.Preamble, "\n")...)
		w.lines = append(w.lines, "")
	}
	w.prevFresh = true
}

func (w *lineWriter) release(r Release) {
	line := r.header()
	if r.raw != "" && r.matchesRaw() {
		line = r.raw
	}
	w.node(line, line != r.raw, true, r.after)

	for _, s := range r.Sections {
		line := "### " + s.Category.String()
		if s.raw != "" && s.matchesRaw() {
			line = s.raw
		}
		w.node(line, line != s.raw, true, s.after)

		for _, e := range s.Entries {
			line := e.Line()
			w.node(line, line != e.raw, false, e.after)
		}
	}
}

// header renders the canonical release header line.
func (r Release) header() string {
	if r.IsUnreleased() {
		return "## [" + UnreleasedID + "]"
	}
	h := "## [" + r.ID + "] - " + r.Date
	if r.Yanked {
		h += " [YANKED]"
	}
	return h
}

func (r Release) matchesRaw() bool {
	p, msg := parseReleaseHeader(r.raw)
	return msg == "" && p.ID == r.ID && p.Date == r.Date && p.Yanked == r.Yanked
}

func (s Section) matchesRaw() bool {
	c, ok := ParseCategory(strings.TrimPrefix(s.raw, "### "))
	return ok && c == s.Category
}

func (l Link) canonical() string {
	return "[" + l.ID + "]: " + l.URL
}

func (l Link) matchesRaw() bool {
	m := linkDefPattern.FindStringSubmatch(l.raw)
	return m != nil && m[1] == l.ID && m[2] == l.URL
}
