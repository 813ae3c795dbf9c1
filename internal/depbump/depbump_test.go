package depbump

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/chlog/internal/changelog"
)

func pkg(t *testing.T, json string) *Manifest {
	t.Helper()
	m, err := ParsePackageJSON([]byte(json))
	require.NoError(t, err)
	return m
}

func TestDetect_Kinds(t *testing.T) {
	tests := map[string]struct {
		section string
		want    []Record
	}{
		"dependency": {
			section: "dependencies",
			want:    []Record{{Name: "a", From: "1.0.0", To: "1.1.0", Kind: KindDependency}},
		},
		"peer dependency": {
			section: "peerDependencies",
			want:    []Record{{Name: "a", From: "1.0.0", To: "1.1.0", Kind: KindPeerDependency, Breaking: true}},
		},
		"dev dependency": {
			section: "devDependencies",
			want:    nil,
		},
		"optional dependency": {
			section: "optionalDependencies",
			want:    nil,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			from := pkg(t, `{"`+tc.section+`": {"a": "1.0.0"}}`)
			to := pkg(t, `{"`+tc.section+`": {"a": "1.1.0"}}`)

			got := Detect([]Snapshot{{Ref: "v1", Manifest: from}, {Ref: "HEAD", Manifest: to}}, "")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetect_Fold(t *testing.T) {
	snapshots := []Snapshot{
		{Ref: "v1.0.0", Manifest: pkg(t, `{"dependencies": {"a": "^1.0.0", "b": "2.0.0", "c": "1.0.0"}}`)},
		{Ref: "c1", PR: 5, Manifest: pkg(t, `{"dependencies": {"a": "^1.1.0", "b": "2.1.0", "c": "1.0.0"}}`)},
		{Ref: "c2", PR: 6, Manifest: pkg(t, `{"dependencies": {"a": "^1.2.0", "b": "2.0.0", "d": "0.1.0"}}`)},
		{Ref: "c3", PR: 5, Manifest: pkg(t, `{"dependencies": {"a": "^1.3.0", "b": "2.0.0", "d": "0.1.0"}}`)},
	}

	got := Detect(snapshots, "1.1.0")
	assert.Equal(t, []Record{
		{Name: "a", From: "1.0.0", To: "1.3.0", Kind: KindDependency, PRs: []int{5, 6}, Release: "1.1.0"},
		{Name: "d", To: "0.1.0", Kind: KindDependency, PRs: []int{6}, Release: "1.1.0"},
	}, got, "b returned to its original version and c was removed")
}

func TestDetect_MissingManifest(t *testing.T) {
	base := `{"dependencies": {"a": "1.0.0", "b": "2.0.0"}}`

	tests := map[string]struct {
		snapshots []Snapshot
		want      []Record
	}{
		"manifest missing between unchanged snapshots": {
			snapshots: []Snapshot{
				{Ref: "v1.0.0", Manifest: pkg(t, base)},
				{Ref: "c1", PR: 6},
				{Ref: "c2", PR: 7, Manifest: pkg(t, base)},
			},
		},
		"bump after a missing manifest compares with the last one seen": {
			snapshots: []Snapshot{
				{Ref: "v1.0.0", Manifest: pkg(t, base)},
				{Ref: "c1", PR: 6},
				{Ref: "c2", PR: 7, Manifest: pkg(t, `{"dependencies": {"a": "1.1.0", "b": "2.0.0"}}`)},
			},
			want: []Record{{Name: "a", From: "1.0.0", To: "1.1.0", Kind: KindDependency, PRs: []int{7}}},
		},
		"manifest added after the start": {
			snapshots: []Snapshot{
				{Ref: "v1.0.0"},
				{Ref: "c1", PR: 8, Manifest: pkg(t, `{"dependencies": {"a": "1.0.0"}}`)},
			},
			want: []Record{{Name: "a", To: "1.0.0", Kind: KindDependency, PRs: []int{8}}},
		},
		"no snapshots": {},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(tc.snapshots, ""))
		})
	}
}

func TestParseGoMod(t *testing.T) {
	m, err := ParseGoMod([]byte(`module example.com/app

go 1.25

require (
	github.com/spf13/cobra v1.10.1
	golang.org/x/sys v0.36.0 // indirect
)
`))
	require.NoError(t, err)

	assert.Equal(t, "example.com/app", m.Name)
	assert.Equal(t, []Dependency{{Name: "github.com/spf13/cobra", Version: "v1.10.1", Kind: KindDependency}}, m.Dependencies)
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest("web/package.json", []byte(`{
		"name": "web",
		"version": "2.0.0",
		"repository": {"type": "git", "url": "https://github.com/acme/web.git"},
		"dependencies": {"react": "~18.2.0"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", m.Version)
	assert.Equal(t, "https://github.com/acme/web.git", m.Repository)
	v, ok := m.Lookup("react", KindDependency)
	assert.True(t, ok)
	assert.Equal(t, "18.2.0", v)

	_, err = ParseManifest("Cargo.toml", nil)
	assert.Error(t, err)

	_, err = ParseManifest("package.json", []byte("{"))
	assert.Error(t, err)
}

func TestTokens(t *testing.T) {
	tests := map[string]struct {
		text string
		want []string
	}{
		"plain": {
			text: "Bump react from 1.0.0 to 1.1.0.",
			want: []string{"Bump", "react", "from", "1.0.0", "to", "1.1.0"},
		},
		"scoped package in code span": {
			text: "Update `@types/node` to 20.1.0-beta.1",
			want: []string{"Update", "@types/node", "to", "20.1.0-beta.1"},
		},
		"module path": {
			text: "Bump github.com/spf13/cobra to v1.10.1, fixing help",
			want: []string{"Bump", "github.com/spf13/cobra", "to", "v1.10.1", "fixing", "help"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Tokens(tc.text))
		})
	}
}

const bumpChangelog = `# Changelog

Notes.

## [Unreleased]

### Fixed

- Fix crash (#3)

## [1.0.0] - 2024-01-01

### Added

- Initial release

[Unreleased]: https://github.com/acme/web/compare/v1.0.0...HEAD
[1.0.0]: https://github.com/acme/web/releases/tag/v1.0.0
`

func TestCheck(t *testing.T) {
	rec := Record{Name: "a", From: "1.0.0", To: "1.1.0", Kind: KindDependency, PRs: []int{12}}

	tests := map[string]struct {
		entry     string
		wantErr   bool
		wantStale int
	}{
		"satisfied": {
			entry: "- Bump a from 1.0.0 to 1.1.0 (#12)\n",
		},
		"hand-written entry naming the version": {
			entry: "- Upgrade `a` to 1.1.0 for faster builds\n",
		},
		"missing": {
			entry:   "",
			wantErr: true,
		},
		"prerelease is a different version": {
			entry:     "- Bump a to 1.1.0-beta (#9)\n",
			wantErr:   true,
			wantStale: 1,
		},
		"longer version is a different version": {
			entry:     "- Bump a to 11.1.0 (#9)\n",
			wantErr:   true,
			wantStale: 1,
		},
		"name must be a whole token": {
			entry:   "- Bump ab to 1.1.0\n",
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			text := bumpChangelog
			if tc.entry != "" {
				text = strings.Replace(text, "### Fixed\n", "### Changed\n\n"+tc.entry+"\n### Fixed\n", 1)
			}
			doc, err := changelog.Parse(text)
			require.NoError(t, err)

			errs := Check(doc, []Record{rec}, Options{ShortLinks: true})
			if !tc.wantErr {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			var mismatch *MismatchError
			require.True(t, errors.As(errs[0], &mismatch))
			assert.Len(t, mismatch.Stale, tc.wantStale)
			assert.Contains(t, mismatch.Diff, "+- Bump a from 1.0.0 to 1.1.0 (#12")
			assert.Equal(t, text, changelog.Serialize(doc), "Check must not modify the document")
		})
	}
}

func TestFix(t *testing.T) {
	text := strings.Replace(bumpChangelog, "- Fix crash (#3)\n", "- Fix crash (#3)\n- Bump a to 1.0.5 (#8)\n", 1)
	doc, err := changelog.Parse(text)
	require.NoError(t, err)

	records := []Record{
		{Name: "a", From: "1.0.0", To: "1.1.0", Kind: KindDependency, PRs: []int{12}},
		{Name: "p", From: "2.0.0", To: "3.0.0", Kind: KindPeerDependency, Breaking: true, PRs: []int{13}},
		{Name: "n", To: "0.1.0", Kind: KindDependency},
	}
	fixed, applied := Fix(doc, records, Options{RepoURL: "https://github.com/acme/web", ShortLinks: true})
	assert.Equal(t, records, applied)

	unreleased := fixed.Unreleased()
	require.NotNil(t, unreleased)
	changed := unreleased.Section(changelog.Changed)
	require.NotNil(t, changed)

	var lines []string
	for _, e := range changed.Entries {
		lines = append(lines, e.Line())
	}
	assert.Equal(t, []string{
		"- Add n 0.1.0",
		"- **Breaking:** Bump p from 2.0.0 to 3.0.0 (#13)",
		"- Bump a from 1.0.0 to 1.1.0 (#12, #8)",
	}, lines)
	fixedText := changelog.Serialize(fixed)
	assert.Contains(t, fixedText, "### Fixed\n\n- Fix crash (#3)\n")
	assert.NotContains(t, fixedText, "1.0.5")

	again, applied := Fix(fixed, records, Options{ShortLinks: true})
	assert.Empty(t, applied)
	assert.Equal(t, fixedText, changelog.Serialize(again))
	assert.Equal(t, text, changelog.Serialize(doc))
}

func TestFix_ReleaseTarget(t *testing.T) {
	doc, err := changelog.Parse(bumpChangelog)
	require.NoError(t, err)

	rec := Record{Name: "a", From: "1.0.0", To: "1.1.0", Kind: KindDependency, PRs: []int{4}, Release: "1.1.0"}
	fixed, _ := Fix(doc, []Record{rec}, Options{
		RepoURL:    "https://github.com/acme/web",
		Tags:       changelog.TagScheme{Prefix: "v"},
		ShortLinks: true,
		Today:      "2024-02-01",
	})

	assert.Equal(t, []string{changelog.UnreleasedID, "1.1.0", "1.0.0"}, fixed.ListVersions())
	r, err := fixed.Release("1.1.0")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", r.Date)
	link, ok := fixed.Link("1.1.0")
	assert.True(t, ok)
	assert.Equal(t, "https://github.com/acme/web/compare/v1.0.0...v1.1.0", link)
}
