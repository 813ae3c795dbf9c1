package changelog

import "strings"

// TagScheme maps versions to version-control tags.
//
// Prefix is prepended to versions ("v" gives "v1.2.0", "pkg@" gives
// "pkg@1.2.0"). When a package was renamed, versions below RenamedAt were
// tagged with OldPrefix instead.
type TagScheme struct {
	Prefix    string
	RenamedAt string
	OldPrefix string
}

// TagFor returns the tag of version.
func (s TagScheme) TagFor(version string) string {
	if s.RenamedAt != "" && CompareVersions(version, s.RenamedAt) < 0 {
		return s.OldPrefix + version
	}
	return s.Prefix + version
}

// VersionFromTag returns the version a tag denotes under this scheme.
func (s TagScheme) VersionFromTag(tag string) (string, bool) {
	if v, ok := strings.CutPrefix(tag, s.Prefix); ok && ValidVersion(v) {
		if s.RenamedAt == "" || CompareVersions(v, s.RenamedAt) >= 0 {
			return v, true
		}
	}
	if s.RenamedAt != "" {
		if v, ok := strings.CutPrefix(tag, s.OldPrefix); ok && ValidVersion(v) && CompareVersions(v, s.RenamedAt) < 0 {
			return v, true
		}
	}
	return "", false
}

// ReleaseLink returns the comparison URL for the release at index i of
// releases: a compare view against the next older release, or the tag page
// for the oldest one. Unreleased compares the newest version with HEAD.
func ReleaseLink(repoURL string, scheme TagScheme, releases []Release, i int) string {
	repoURL = strings.TrimSuffix(repoURL, "/")
	prev := ""
	for _, r := range releases[i+1:] {
		if !r.IsUnreleased() {
			prev = r.ID
			break
		}
	}
	if releases[i].IsUnreleased() {
		if prev == "" {
			return repoURL
		}
		return repoURL + "/compare/" + scheme.TagFor(prev) + "...HEAD"
	}
	if prev == "" {
		return repoURL + "/releases/tag/" + scheme.TagFor(releases[i].ID)
	}
	return repoURL + "/compare/" + scheme.TagFor(prev) + "..." + scheme.TagFor(releases[i].ID)
}

// Link returns the URL of the reference definition for id.
func (d *Document) Link(id string) (string, bool) {
	for _, l := range d.Links {
		if l.ID == id {
			return l.URL, true
		}
	}
	return "", false
}

// SetLink updates the reference definition for id or inserts one so that
// links keep the order of their releases.
func (d *Document) SetLink(id, url string) {
	for i := range d.Links {
		if d.Links[i].ID == id {
			d.Links[i].URL = url
			return
		}
	}

	order := make(map[string]int, len(d.Releases))
	for i, r := range d.Releases {
		order[r.ID] = i
	}
	rank, known := order[id]
	pos := len(d.Links)
	if known {
		for i, l := range d.Links {
			if lr, ok := order[l.ID]; ok && lr > rank {
				pos = i
				break
			}
		}
	}

	link := Link{ID: id, URL: url}
	// A link appended after the last one inherits its trailing lines so the
	// file still ends the same way.
	if pos == len(d.Links) && pos > 0 {
		last := &d.Links[pos-1]
		link.after, last.after = last.after, nil
	}
	d.Links = append(d.Links, Link{})
	copy(d.Links[pos+1:], d.Links[pos:])
	d.Links[pos] = link
}

// RefreshLinks rewrites the links of the given release ids from the
// repository URL and tag scheme, adding missing ones.
func (d *Document) RefreshLinks(repoURL string, scheme TagScheme, ids ...string) {
	if repoURL == "" {
		return
	}
	for _, id := range ids {
		for i, r := range d.Releases {
			if r.ID == id {
				d.SetLink(id, ReleaseLink(repoURL, scheme, d.Releases, i))
				break
			}
		}
	}
}
