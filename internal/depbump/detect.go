// Package depbump finds dependency version bumps between manifest snapshots
// and checks that the changelog records each of them.
package depbump

import (
	"fmt"
	"slices"
)

// Snapshot is a manifest as of one ref. PR is the pull request of the
// commit that produced it, or 0.
type Snapshot struct {
	Ref      string
	PR       int
	Manifest *Manifest
}

// Record is one dependency bump folded over a series of snapshots.
type Record struct {
	Name string
	// From is "" when the dependency was added.
	From     string
	To       string
	Kind     Kind
	Breaking bool
	PRs      []int
	// Release is the version the newest snapshot was released as, or ""
	// when it is not a release.
	Release string
}

// EntryText is the changelog text describing the bump.
func (r Record) EntryText() string {
	if r.From == "" {
		return fmt.Sprintf("Add %s %s", r.Name, r.To)
	}
	return fmt.Sprintf("Bump %s from %s to %s", r.Name, r.From, r.To)
}

type key struct {
	name string
	kind Kind
}

// Detect compares consecutive snapshots, oldest first, and returns the
// tracked bumps folded into one record per dependency and kind. Removed
// dependencies are not bumps. release is the version of the newest snapshot
// when it is a declared release.
func Detect(snapshots []Snapshot, release string) []Record {
	var order []key
	folded := make(map[key]*Record)

	if len(snapshots) == 0 {
		return nil
	}
	// prev is the newest manifest seen so far. Snapshots without a manifest
	// are skipped rather than treated as empty.
	prev := snapshots[0].Manifest
	for _, next := range snapshots[1:] {
		if next.Manifest == nil {
			continue
		}
		for _, d := range next.Manifest.Dependencies {
			if !d.Kind.Tracked() {
				continue
			}
			old, existed := prev.Lookup(d.Name, d.Kind)
			if existed && old == d.Version {
				continue
			}

			k := key{d.Name, d.Kind}
			r, ok := folded[k]
			if !ok {
				r = &Record{
					Name:     d.Name,
					From:     old,
					Kind:     d.Kind,
					Breaking: d.Kind == KindPeerDependency,
					Release:  release,
				}
				folded[k] = r
				order = append(order, k)
			}
			r.To = d.Version
			if next.PR != 0 && !slices.Contains(r.PRs, next.PR) {
				r.PRs = append(r.PRs, next.PR)
			}
		}
		prev = next.Manifest
	}

	var records []Record
	for _, k := range order {
		if r := folded[k]; r.To != r.From {
			records = append(records, *r)
		}
	}
	return records
}
