package changelog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleChangelog = `# Changelog

All notable changes to this project will be documented in this file.

## [Unreleased]

### Added

- New flag (#12)

## [1.1.0] - 2024-02-01

### Fixed

- **Breaking:** Crash on empty input ([#9](https://github.com/acme/tool/pull/9))
- Typo

## [1.0.0] - 2024-01-15

### Added

- Initial release

[Unreleased]: https://github.com/acme/tool/compare/v1.1.0...HEAD
[1.1.0]: https://github.com/acme/tool/compare/v1.0.0...v1.1.0
[1.0.0]: https://github.com/acme/tool/releases/tag/v1.0.0
`

func TestParse_Valid(t *testing.T) {
	doc, err := Parse(sampleChangelog)
	require.NoError(t, err)

	assert.Equal(t, "Changelog", doc.Title)
	assert.Equal(t, "All notable changes to this project will be documented in this file.", doc.Preamble)
	assert.Equal(t, []string{UnreleasedID, "1.1.0", "1.0.0"}, doc.ListVersions())

	unreleased := doc.Unreleased()
	require.NotNil(t, unreleased)
	added := unreleased.Section(Added)
	require.NotNil(t, added)
	require.Len(t, added.Entries, 1)
	assert.Equal(t, "New flag", added.Entries[0].Text)
	assert.Equal(t, []PRRef{{Number: 12}}, added.Entries[0].PRs)

	r, err := doc.Release("1.1.0")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", r.Date)
	fixed := r.Section(Fixed)
	require.NotNil(t, fixed)
	require.Len(t, fixed.Entries, 2)
	assert.True(t, fixed.Entries[0].Breaking)
	assert.Equal(t, "Crash on empty input", fixed.Entries[0].Text)
	assert.Equal(t, []PRRef{{Number: 9, URL: "https://github.com/acme/tool/pull/9"}}, fixed.Entries[0].PRs)
	assert.Equal(t, "Typo", fixed.Entries[1].Text)
	assert.Empty(t, fixed.Entries[1].PRs)

	require.Len(t, doc.Links, 3)
	url, ok := doc.Link("1.0.0")
	assert.True(t, ok)
	assert.Equal(t, "https://github.com/acme/tool/releases/tag/v1.0.0", url)
}

func TestParse_Problems(t *testing.T) {
	tests := map[string]struct {
		text string
		code ProblemCode
	}{
		"missing title": {
			text: "Intro text\n\n## [Unreleased]\n",
			code: ProblemMissingTitle,
		},
		"empty document": {
			text: "",
			code: ProblemMissingTitle,
		},
		"missing preamble": {
			text: "# Changelog\n\n## [Unreleased]\n",
			code: ProblemMissingPreamble,
		},
		"missing unreleased": {
			text: "# Changelog\n\nText.\n\n## [1.0.0] - 2024-01-01\n",
			code: ProblemMissingUnreleased,
		},
		"shorthand version": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n## [1.0] - 2024-01-01\n",
			code: ProblemBadReleaseHeader,
		},
		"release without date": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n## [1.0.0]\n",
			code: ProblemBadReleaseHeader,
		},
		"invalid date": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n## [1.0.0] - 2024-13-01\n",
			code: ProblemBadReleaseHeader,
		},
		"dated unreleased": {
			text: "# Changelog\n\nText.\n\n## [Unreleased] - 2024-01-01\n",
			code: ProblemBadReleaseHeader,
		},
		"free form header": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n## Version 1\n",
			code: ProblemBadReleaseHeader,
		},
		"bullet outside category": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n- stray\n",
			code: ProblemBulletOutsideCategory,
		},
		"category before release": {
			text: "# Changelog\n\nText.\n\n### Added\n\n## [Unreleased]\n",
			code: ProblemCategoryOutsideRelease,
		},
		"unknown category": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n### Misc\n\n- a\n",
			code: ProblemUnknownCategory,
		},
		"categories out of order": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n### Fixed\n\n- a\n\n### Added\n\n- b\n",
			code: ProblemCategoryOrder,
		},
		"category repeated": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n### Added\n\n- a\n\n### Added\n\n- b\n",
			code: ProblemCategoryOrder,
		},
		"releases ascending": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n## [1.0.0] - 2024-01-01\n\n## [2.0.0] - 2024-02-01\n",
			code: ProblemReleaseOrder,
		},
		"unreleased not first": {
			text: "# Changelog\n\nText.\n\n## [1.0.0] - 2024-01-01\n\n## [Unreleased]\n",
			code: ProblemReleaseOrder,
		},
		"duplicate release": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n## [1.0.0] - 2024-01-01\n\n## [1.0.0] - 2024-01-01\n",
			code: ProblemDuplicateRelease,
		},
		"content after links": {
			text: "# Changelog\n\nText.\n\n## [Unreleased]\n\n[Unreleased]: https://x\n\nMore text\n",
			code: ProblemTrailingContent,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.text)
			require.Error(t, err)
			assert.True(t, IsMalformed(err))

			_, problems := Inspect(tc.text)
			codes := make([]ProblemCode, len(problems))
			for i, p := range problems {
				codes[i] = p.Code
			}
			assert.Contains(t, codes, tc.code)
		})
	}
}

func TestParse_ProblemLocation(t *testing.T) {
	text := "# Changelog\n\nText.\n\n## [Unreleased]\n\n### Misc\n"

	_, err := Parse(text)
	require.Error(t, err)

	var me *MalformedError
	require.ErrorAs(t, err, &me)
	require.Len(t, me.Problems, 1)
	assert.Equal(t, 7, me.Problems[0].Line)
	assert.Equal(t, "### Misc", me.Problems[0].Fragment)
	assert.Contains(t, err.Error(), "line 7")
	assert.Contains(t, err.Error(), `"### Misc"`)
}

func TestParse_CollectsAllProblems(t *testing.T) {
	text := "# Changelog\n\nText.\n\n## [Unreleased]\n\n- stray\n\n### Misc\n\n## [0.1.0] - 2024-01-01\n\n## [0.2.0] - 2024-02-01\n"

	_, err := Parse(text)
	require.Error(t, err)

	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Len(t, me.Problems, 3)
	assert.Contains(t, err.Error(), "(and 2 more)")
}

func TestParseEntryLine(t *testing.T) {
	tests := map[string]struct {
		line     string
		wantOK   bool
		text     string
		breaking bool
		prs      []PRRef
	}{
		"plain": {
			line: "- Add a flag", wantOK: true, text: "Add a flag",
		},
		"star bullet": {
			line: "* Add a flag", wantOK: true, text: "Add a flag",
		},
		"short ref": {
			line: "- Add a flag (#3)", wantOK: true, text: "Add a flag",
			prs:  []PRRef{{Number: 3}},
		},
		"several refs": {
			line: "- Bump x from 1.0.0 to 1.2.0 (#3, #5)", wantOK: true, text: "Bump x from 1.0.0 to 1.2.0",
			prs:  []PRRef{{Number: 3}, {Number: 5}},
		},
		"full ref": {
			line: "- Fix it ([#7](https://github.com/a/b/pull/7))", wantOK: true, text: "Fix it",
			prs:  []PRRef{{Number: 7, URL: "https://github.com/a/b/pull/7"}},
		},
		"breaking marker": {
			line: "- **Breaking:** Drop Node 14 (#8)", wantOK: true, text: "Drop Node 14", breaking: true,
			prs:  []PRRef{{Number: 8}},
		},
		"breaking change variant": {
			line: "- **BREAKING CHANGE:** Rename API", wantOK: true, text: "Rename API", breaking: true,
		},
		"parenthesis that is not a ref": {
			line: "- Support Go (1.22)", wantOK: true, text: "Support Go (1.22)",
		},
		"not a bullet": {
			line: "Some paragraph", wantOK: false,
		},
		"indented bullet": {
			line: "  - nested", wantOK: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			e, ok := parseEntryLine(tc.line)
			assert.Equal(t, tc.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.text, e.Text)
			assert.Equal(t, tc.breaking, e.Breaking)
			assert.Equal(t, tc.prs, e.PRs)
		})
	}
}

func TestEntry_PRNumbers(t *testing.T) {
	e, ok := parseEntryLine("- See [#4](https://github.com/a/b/pull/4) for details (#6, #4)")
	require.True(t, ok)
	assert.Equal(t, []int{6, 4}, e.PRNumbers())

	e, ok = parseEntryLine("- Mentions [#2](https://github.com/a/b/pull/2)")
	require.True(t, ok)
	assert.Equal(t, []int{2}, e.PRNumbers())
}

func TestValidVersion(t *testing.T) {
	tests := map[string]struct {
		version string
		want    bool
	}{
		"release":         {version: "1.2.3", want: true},
		"prerelease":      {version: "2.0.0-rc.1", want: true},
		"build metadata":  {version: "1.0.0+build.5", want: true},
		"v prefix":        {version: "v1.2.3", want: false},
		"shorthand":       {version: "1.2", want: false},
		"not semver":      {version: "latest", want: false},
		"leading zero":    {version: "01.2.3", want: false},
		"empty":           {version: "", want: false},
		"unreleased name": {version: UnreleasedID, want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidVersion(tc.version))
		})
	}
}

func TestIsCandidateVersion(t *testing.T) {
	assert.True(t, IsCandidateVersion("2.0.0-rc.1"))
	assert.True(t, IsCandidateVersion("2.0.0-rc1"))
	assert.False(t, IsCandidateVersion("2.0.0-beta.1"))
	assert.False(t, IsCandidateVersion("2.0.0"))
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" fixed ")
	assert.True(t, ok)
	assert.Equal(t, Fixed, c)

	_, ok = ParseCategory("Misc")
	assert.False(t, ok)

	assert.Equal(t, "Invalid", Category(0).String())
	all := Categories()
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1] < all[i], "%s must sort before %s", all[i-1], all[i])
	}
}

func TestDocument_Clone(t *testing.T) {
	doc, err := Parse(sampleChangelog)
	require.NoError(t, err)

	clone := doc.Clone()
	clone.Unreleased().Section(Added).Entries[0].Text = "Changed text"
	clone.Releases[1].Sections[0].Entries[0].PRs[0].Number = 99

	assert.Equal(t, "New flag", doc.Unreleased().Section(Added).Entries[0].Text)
	assert.Equal(t, 9, doc.Releases[1].Sections[0].Entries[0].PRs[0].Number)
	assert.Equal(t, sampleChangelog, Serialize(doc))
	assert.True(t, strings.Contains(Serialize(clone), "- Changed text (#12)"))
}
