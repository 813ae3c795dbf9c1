package changelog

import (
	"fmt"
	"strings"
)

// VersionNotFoundError is returned when a requested release doesn't exist.
type VersionNotFoundError struct {
	Version           string
	AvailableVersions []string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found (available: %s)",
		e.Version, strings.Join(e.AvailableVersions, ", "))
}

// FlatEntry is a flattened view of one entry with its release and category,
// used for querying and display.
type FlatEntry struct {
	Entry
	Category Category
	Version  string
}

// NormalizeVersion removes a leading "v" so "v0.6.0" and "0.6.0" match.
// "unreleased" in any case maps to UnreleasedID.
func NormalizeVersion(version string) string {
	if strings.EqualFold(version, UnreleasedID) {
		return UnreleasedID
	}
	return strings.TrimPrefix(strings.ToLower(version), "v")
}

// Release retrieves a release by identifier. Accepts both "v0.6.0" and "0.6.0".
func (d *Document) Release(id string) (*Release, error) {
	normalized := NormalizeVersion(id)
	for i := range d.Releases {
		if d.Releases[i].ID == normalized {
			return &d.Releases[i], nil
		}
	}
	return nil, &VersionNotFoundError{
		Version:           id,
		AvailableVersions: d.ListVersions(),
	}
}

// Unreleased returns the Unreleased section, or nil when absent.
func (d *Document) Unreleased() *Release {
	for i := range d.Releases {
		if d.Releases[i].IsUnreleased() {
			return &d.Releases[i]
		}
	}
	return nil
}

// ListVersions returns all release identifiers in document order.
func (d *Document) ListVersions() []string {
	ids := make([]string, len(d.Releases))
	for i, r := range d.Releases {
		ids[i] = r.ID
	}
	return ids
}

// LatestRelease returns the most recent dated release, or nil.
func (d *Document) LatestRelease() *Release {
	for i := range d.Releases {
		if !d.Releases[i].IsUnreleased() {
			return &d.Releases[i]
		}
	}
	return nil
}

// AllEntries returns every entry, newest release first, sections in
// canonical order.
func (d *Document) AllEntries() []FlatEntry {
	var entries []FlatEntry
	for _, r := range d.Releases {
		entries = append(entries, r.Entries()...)
	}
	return entries
}

// Entries returns the flattened entries of the release.
func (r Release) Entries() []FlatEntry {
	entries := make([]FlatEntry, 0, r.EntryCount())
	for _, s := range r.Sections {
		for _, e := range s.Entries {
			entries = append(entries, FlatEntry{Entry: e, Category: s.Category, Version: r.ID})
		}
	}
	return entries
}

// LastN returns the n most recent entries across all releases.
func (d *Document) LastN(n int) []FlatEntry {
	if n <= 0 {
		return []FlatEntry{}
	}
	entries := d.AllEntries()
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}

// EntryCount returns the total number of entries across all releases.
func (d *Document) EntryCount() int {
	count := 0
	for _, r := range d.Releases {
		count += r.EntryCount()
	}
	return count
}

// PRNumbers collects, in a single pass, every pull request number referenced
// anywhere in the document.
func (d *Document) PRNumbers() map[int]bool {
	seen := make(map[int]bool)
	for _, r := range d.Releases {
		for _, s := range r.Sections {
			for _, e := range s.Entries {
				for _, n := range e.PRNumbers() {
					seen[n] = true
				}
			}
		}
	}
	return seen
}
