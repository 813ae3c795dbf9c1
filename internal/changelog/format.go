package changelog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// CategoryStyle defines the color and icon for a changelog category.
type CategoryStyle struct {
	Color *color.Color
	Icon  string
}

// categoryStyles maps categories to their terminal styling.
var categoryStyles = map[Category]CategoryStyle{
	Added:         {Color: color.New(color.FgGreen), Icon: "✓"},
	Changed:       {Color: color.New(color.FgBlue), Icon: "~"},
	Deprecated:    {Color: color.New(color.FgRed), Icon: "⚠"},
	Removed:       {Color: color.New(color.FgRed), Icon: "✗"},
	Fixed:         {Color: color.New(color.FgYellow), Icon: "⚡"},
	Security:      {Color: color.New(color.FgMagenta), Icon: "🔒"},
	Uncategorized: {Color: color.New(color.FgHiBlack), Icon: "?"},
}

// FormatOptions controls the terminal output formatting.
type FormatOptions struct {
	Plain    bool // Disable colors and icons
	MaxWidth int  // Maximum line width (0 = auto-detect)
}

// FormatTerminal writes changelog entries to the writer with terminal styling.
// Entries are grouped by release with color-coded category headers.
func FormatTerminal(entries []FlatEntry, w io.Writer, opts FormatOptions) error {
	if len(entries) == 0 {
		return nil
	}

	width := resolveWidth(opts.MaxWidth)

	groups := groupEntriesByVersion(entries)

	for i, group := range groups {
		if err := formatVersionGroup(group, w, opts, width, i > 0); err != nil {
			return fmt.Errorf("formatting version %s: %w", group.version, err)
		}
	}

	return nil
}

// FormatRelease writes a single release's entries to the writer.
func FormatRelease(r *Release, w io.Writer, opts FormatOptions) error {
	width := resolveWidth(opts.MaxWidth)

	if err := writeVersionHeader(r.ID, r.Date, w, opts); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, s := range r.Sections {
		if len(s.Entries) == 0 {
			continue
		}
		if err := writeCategorySection(s.Category, s.Entries, w, opts, width); err != nil {
			return err
		}
	}
	return nil
}

type versionGroup struct {
	version string
	entries []FlatEntry
}

// groupEntriesByVersion groups entries by their release, preserving order.
func groupEntriesByVersion(entries []FlatEntry) []versionGroup {
	var groups []versionGroup
	var current *versionGroup

	for _, e := range entries {
		if current == nil || current.version != e.Version {
			if current != nil {
				groups = append(groups, *current)
			}
			current = &versionGroup{version: e.Version}
		}
		current.entries = append(current.entries, e)
	}

	if current != nil {
		groups = append(groups, *current)
	}

	return groups
}

func formatVersionGroup(group versionGroup, w io.Writer, opts FormatOptions, width int, addSeparator bool) error {
	if addSeparator {
		fmt.Fprintln(w)
	}

	if err := writeVersionHeader(group.version, "", w, opts); err != nil {
		return err
	}

	byCategory := make(map[Category][]Entry)
	for _, e := range group.entries {
		byCategory[e.Category] = append(byCategory[e.Category], e.Entry)
	}
	for _, c := range Categories() {
		if entries, ok := byCategory[c]; ok {
			if err := writeCategorySection(c, entries, w, opts, width); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeVersionHeader(version, date string, w io.Writer, opts FormatOptions) error {
	var header string
	switch {
	case version == UnreleasedID:
		header = UnreleasedID
	case date != "":
		header = fmt.Sprintf("v%s (%s)", version, date)
	default:
		header = fmt.Sprintf("v%s", version)
	}

	if opts.Plain {
		_, err := fmt.Fprintf(w, "## %s\n", header)
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	_, err := fmt.Fprintf(w, "## %s\n", bold(header))
	return err
}

func writeCategorySection(c Category, entries []Entry, w io.Writer, opts FormatOptions, width int) error {
	style := categoryStyles[c]

	if opts.Plain {
		if _, err := fmt.Fprintf(w, "\n### %s\n", c); err != nil {
			return err
		}
	} else {
		colored := style.Color.SprintFunc()
		if _, err := fmt.Fprintf(w, "\n%s %s\n", colored(style.Icon), colored(c.String())); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := writeEntry(entry, style, w, opts, width); err != nil {
			return err
		}
	}

	return nil
}

// writeEntry writes a single changelog entry with optional wrapping.
func writeEntry(entry Entry, style CategoryStyle, w io.Writer, opts FormatOptions, width int) error {
	prefix := "  - "
	text := displayText(entry)

	if opts.Plain {
		_, err := fmt.Fprintf(w, "%s%s\n", prefix, text)
		return err
	}

	wrapped := wrapText(text, width-len(prefix), "    ")

	colored := style.Color.SprintFunc()
	_, err := fmt.Fprintf(w, "%s%s\n", prefix, colored(wrapped))
	return err
}

// displayText renders an entry without link targets: "BREAKING: text (#1, #2)".
func displayText(e Entry) string {
	text := e.Text
	if e.Breaking {
		text = "BREAKING: " + text
	}
	if len(e.PRs) > 0 {
		refs := make([]string, len(e.PRs))
		for i, pr := range e.PRs {
			refs[i] = fmt.Sprintf("#%d", pr.Number)
		}
		text += " (" + strings.Join(refs, ", ") + ")"
	}
	return text
}

// resolveWidth determines the terminal width to use.
func resolveWidth(maxWidth int) int {
	if maxWidth > 0 {
		return maxWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// wrapText wraps text to fit within maxWidth, using indent for continuation lines.
func wrapText(text string, maxWidth int, indent string) string {
	if maxWidth <= 0 || len(text) <= maxWidth {
		return text
	}

	var lines []string
	remaining := text

	for len(remaining) > maxWidth {
		// Find the last space within maxWidth
		breakPoint := maxWidth
		for i := maxWidth - 1; i > 0; i-- {
			if remaining[i] == ' ' {
				breakPoint = i
				break
			}
		}

		lines = append(lines, remaining[:breakPoint])
		remaining = strings.TrimLeft(remaining[breakPoint:], " ")
	}

	if len(remaining) > 0 {
		lines = append(lines, remaining)
	}

	return strings.Join(lines, "\n"+indent)
}

// FormatEntrySummary returns a brief one-line summary of an entry.
func FormatEntrySummary(entry FlatEntry, opts FormatOptions) string {
	style := categoryStyles[entry.Category]
	text := truncateText(displayText(entry.Entry), 60)

	if opts.Plain {
		return fmt.Sprintf("[%s] %s", strings.ToLower(entry.Category.String()), text)
	}

	colored := style.Color.SprintFunc()
	return fmt.Sprintf("%s %s", colored(style.Icon), text)
}

// truncateText truncates text to maxLen, adding ellipsis if needed.
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen-3] + "..."
}
