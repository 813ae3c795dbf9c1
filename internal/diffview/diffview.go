// Package diffview renders before/after text pairs as unified diffs for
// validation messages and --dry-run previews.
package diffview

import (
	"bytes"
	"strings"

	"github.com/fatih/color"
	gitdiff "github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// ContextLines is the number of unchanged lines shown around each change.
const ContextLines = 3

type line struct {
	op   byte
	text string
}

// Unified returns a unified diff between before and after, or "" when they
// are equal.
func Unified(oldName, newName, before, after string) string {
	if before == after {
		return ""
	}
	fd := &godiff.FileDiff{
		OrigName: oldName,
		NewName:  newName,
		Hunks:    hunks(diffLines(before, after), ContextLines),
	}
	out, err := godiff.PrintFileDiff(fd)
	if err != nil {
		// Printing into a buffer only fails on writer errors.
		return ""
	}
	return string(out)
}

func diffLines(before, after string) []line {
	var out []line
	for _, d := range gitdiff.Do(before, after) {
		op := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = '-'
		case diffmatchpatch.DiffInsert:
			op = '+'
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text != "" {
				out = append(out, line{op: op, text: text})
			}
		}
	}
	return out
}

// hunks groups changed lines with their context. Changes separated by no
// more than twice the context share a hunk.
func hunks(lines []line, context int) []*godiff.Hunk {
	type position struct{ orig, new int32 }
	pos := make([]position, len(lines))
	var o, n int32 = 1, 1
	for i, l := range lines {
		pos[i] = position{o, n}
		if l.op != '+' {
			o++
		}
		if l.op != '-' {
			n++
		}
	}

	var out []*godiff.Hunk
	for i := 0; i < len(lines); {
		if lines[i].op == ' ' {
			i++
			continue
		}

		end := i
		for j := i; j < len(lines); {
			if lines[j].op != ' ' {
				j++
				end = j
				continue
			}
			k := j
			for k < len(lines) && lines[k].op == ' ' {
				k++
			}
			if k == len(lines) || k-j > 2*context {
				break
			}
			j = k
		}

		start := max(i-context, 0)
		stop := min(end+context, len(lines))
		h := &godiff.Hunk{OrigStartLine: pos[start].orig, NewStartLine: pos[start].new}
		var body bytes.Buffer
		for _, l := range lines[start:stop] {
			body.WriteByte(l.op)
			body.WriteString(l.text)
			// A final line without a newline gets the printer's marker: the
			// original side through OrigNoNewlineAt, the new side by ending
			// the body without a newline.
			if l.op == '-' && !strings.HasSuffix(l.text, "\n") {
				body.WriteByte('\n')
				h.OrigNoNewlineAt = int32(body.Len())
			}
			if l.op != '+' {
				h.OrigLines++
			}
			if l.op != '-' {
				h.NewLines++
			}
		}
		// An empty side starts at the line before the hunk.
		if h.OrigLines == 0 {
			h.OrigStartLine--
		}
		if h.NewLines == 0 {
			h.NewStartLine--
		}
		h.Body = body.Bytes()
		out = append(out, h)
		i = stop
	}
	return out
}

var (
	addColor    = color.New(color.FgGreen)
	removeColor = color.New(color.FgRed)
	hunkColor   = color.New(color.FgCyan)
	headerColor = color.New(color.Bold)
)

// Colorize paints a unified diff for terminal output.
func Colorize(unified string) string {
	if unified == "" {
		return ""
	}
	lines := strings.SplitAfter(unified, "\n")
	var b strings.Builder
	for _, l := range lines {
		text := strings.TrimSuffix(l, "\n")
		nl := l[len(text):]
		switch {
		case strings.HasPrefix(text, "--- "), strings.HasPrefix(text, "+++ "):
			b.WriteString(headerColor.Sprint(text))
		case strings.HasPrefix(text, "@@"):
			b.WriteString(hunkColor.Sprint(text))
		case strings.HasPrefix(text, "+"):
			b.WriteString(addColor.Sprint(text))
		case strings.HasPrefix(text, "-"):
			b.WriteString(removeColor.Sprint(text))
		default:
			b.WriteString(text)
		}
		b.WriteString(nl)
	}
	return b.String()
}
