package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
	"github.com/ariel-frischer/chlog/internal/git"
	"github.com/ariel-frischer/chlog/internal/validate"
)

func TestInit(t *testing.T) {
	tests := map[string]struct {
		files    map[string]string
		hist     bool
		args     []string
		wantCode int
		wantURL  string
	}{
		"url from origin": {
			hist:    true,
			wantURL: "[Unreleased]: https://github.com/acme/tool",
		},
		"url from flag without repository": {
			args:    []string{"--repo-url", "https://gitlab.com/acme/tool"},
			wantURL: "[Unreleased]: https://gitlab.com/acme/tool",
		},
		"url from package.json": {
			files:   map[string]string{"package.json": `{"repository": {"type": "git", "url": "git+https://github.com/acme/pkg.git"}}`},
			wantURL: "[Unreleased]: https://github.com/acme/pkg",
		},
		"no url anywhere": {
			wantCode: shared.ExitInvalidArguments,
		},
		"existing changelog": {
			files:    map[string]string{"CHANGELOG.md": testChangelog},
			hist:     true,
			wantCode: shared.ExitInvalidArguments,
		},
		"existing changelog with force": {
			files:   map[string]string{"CHANGELOG.md": testChangelog},
			hist:    true,
			args:    []string{"--force"},
			wantURL: "[Unreleased]: https://github.com/acme/tool",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := newProjectDir(t, tt.files)
			var hist git.History
			if tt.hist {
				hist = newTestHistory()
			}
			out, err := runCLI(t, dir, hist, append([]string{"init"}, tt.args...)...)

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, shared.ExitCode(err))
				return
			}
			require.NoError(t, err, out)
			content := readFile(t, filepath.Join(dir, "CHANGELOG.md"))
			assert.Contains(t, content, "## [Unreleased]")
			assert.Contains(t, content, tt.wantURL)
			_, err = changelog.Parse(content)
			assert.NoError(t, err)
		})
	}
}

func TestUpdate(t *testing.T) {
	dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})
	path := filepath.Join(dir, "CHANGELOG.md")

	out, err := runCLI(t, dir, newTestHistory(), "update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added 1 entry to [Unreleased]")

	content := readFile(t, path)
	assert.Contains(t, content, "### Fixed")
	assert.Contains(t, content, "https://github.com/acme/tool/pull/11")
	assert.Equal(t, 1, countOf(content, "pull/10)"), "already recorded pull request is not repeated")

	out, err = runCLI(t, dir, newTestHistory(), "update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "is up to date")
	assert.Equal(t, content, readFile(t, path), "second update changes nothing")
}

func TestUpdate_DryRun(t *testing.T) {
	dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})

	out, err := runCLI(t, dir, newTestHistory(), "update", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "--- CHANGELOG.md")
	assert.Contains(t, out, "+### Fixed")
	assert.Equal(t, testChangelog, readFile(t, filepath.Join(dir, "CHANGELOG.md")))
}

func TestUpdate_OnlyCommitLacksPRNumber(t *testing.T) {
	dir := newProjectDir(t, map[string]string{
		"CHANGELOG.md": testChangelog,
		".chlog.yml":   "require_pr_numbers: true\n",
	})
	hist := &fakeHistory{
		commits: []fakeCommit{
			commit("c3", "chore: tidy build scripts", nil),
			commit("c2", "chore(release): 1.0.0", nil),
		},
		tags:   map[string]string{"v1.0.0": "c2"},
		origin: "git@github.com:acme/tool.git",
	}

	out, err := runCLI(t, dir, hist, "update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No changes to add: 1 commit without a pull request number")
	assert.Equal(t, testChangelog, readFile(t, filepath.Join(dir, "CHANGELOG.md")))
}

func TestUpdate_ReleaseCandidate(t *testing.T) {
	dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})

	out, err := runCLI(t, dir, newTestHistory(), "update", "--rc", "1.1.0-rc.1", "--today", "2024-03-01")
	require.NoError(t, err, out)
	assert.Contains(t, readFile(t, filepath.Join(dir, "CHANGELOG.md")), "## [1.1.0-rc.1] - 2024-03-01")
}

func TestUpdate_Errors(t *testing.T) {
	tests := map[string]struct {
		files    map[string]string
		args     []string
		wantCode int
	}{
		"missing changelog": {
			wantCode: shared.ExitMalformedDocument,
		},
		"malformed changelog": {
			files:    map[string]string{"CHANGELOG.md": "# Changelog\n\n## [1.0.0] - yesterday\n"},
			wantCode: shared.ExitMalformedDocument,
		},
		"unknown from ref": {
			files:    map[string]string{"CHANGELOG.md": testChangelog},
			args:     []string{"--from", "v9.9.9"},
			wantCode: shared.ExitMissingDependency,
		},
		"invalid rc version": {
			files:    map[string]string{"CHANGELOG.md": testChangelog},
			args:     []string{"--rc", "next"},
			wantCode: shared.ExitInvalidArguments,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := newProjectDir(t, tt.files)
			_, err := runCLI(t, dir, newTestHistory(), append([]string{"update"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, shared.ExitCode(err))
		})
	}
}

func TestValidate(t *testing.T) {
	untraced := `# Changelog

## [Unreleased]

### Added

- Mystery ([#99](https://github.com/acme/tool/pull/99))

## [1.0.0] - 2024-01-15

### Added

- Initial release ([#1](https://github.com/acme/tool/pull/1))

[Unreleased]: https://github.com/acme/tool/compare/v1.0.0...HEAD
[1.0.0]: https://github.com/acme/tool/releases/tag/v1.0.0
`
	misordered := `# Changelog

## [Unreleased]

## [1.0.0] - 2024-01-15

## [2.0.0] - 2024-02-15

[Unreleased]: https://github.com/acme/tool/compare/v2.0.0...HEAD
[1.0.0]: https://github.com/acme/tool/releases/tag/v1.0.0
[2.0.0]: https://github.com/acme/tool/compare/v1.0.0...v2.0.0
`

	tests := map[string]struct {
		content  string
		args     []string
		wantOK   bool
		wantKind validate.Kind
	}{
		"valid": {
			content: testChangelog,
			wantOK:  true,
		},
		"untraced entry": {
			content:  untraced,
			wantKind: validate.KindUntracedEntry,
		},
		"ordering offline": {
			content:  misordered,
			args:     []string{"--offline"},
			wantKind: validate.KindOrdering,
		},
		"candidate without section": {
			content:  testChangelog,
			args:     []string{"--current", "1.1.0-rc.1", "--rc"},
			wantKind: validate.KindMissingRelease,
		},
		"dependency bump unrecorded": {
			content:  testChangelog,
			args:     []string{"--deps"},
			wantKind: validate.KindDependencyBump,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := newProjectDir(t, map[string]string{
				"CHANGELOG.md": tt.content,
				"package.json": `{"dependencies": {"left-pad": "1.1.0"}}`,
			})
			hist := newTestHistory()
			hist.commits = append([]fakeCommit{
				commit("c5", "build(deps): bump left-pad (#10)", map[string]string{"package.json": `{"dependencies": {"left-pad": "1.1.0"}}`}),
			}, hist.commits...)

			out, err := runCLI(t, dir, hist, append([]string{"validate", "--output", "json"}, tt.args...)...)

			var view reportView
			require.NoError(t, json.Unmarshal([]byte(out), &view), out)
			assert.Equal(t, tt.wantOK, view.OK)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, shared.ExitValidationFailed, shared.ExitCode(err))
			kinds := make([]validate.Kind, len(view.Violations))
			for i, v := range view.Violations {
				kinds[i] = v.Kind
			}
			assert.Contains(t, kinds, tt.wantKind)
		})
	}
}

func TestValidate_TextOutput(t *testing.T) {
	dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})

	out, err := runCLI(t, dir, newTestHistory(), "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "CHANGELOG.md is valid")
}

func TestValidate_FlagErrors(t *testing.T) {
	tests := map[string]struct {
		args []string
	}{
		"unknown output": {args: []string{"--output", "xml"}},
		"offline deps":   {args: []string{"--offline", "--deps"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})
			_, err := runCLI(t, dir, newTestHistory(), append([]string{"validate"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, shared.ExitInvalidArguments, shared.ExitCode(err))
		})
	}
}

// bumpHistory adds a commit raising left-pad to 1.1.0 in pull request #13.
func bumpHistory() *fakeHistory {
	hist := newTestHistory()
	hist.commits = append([]fakeCommit{
		commit("c5", "build(deps): bump left-pad (#13)", map[string]string{"package.json": `{"dependencies": {"left-pad": "1.1.0"}, "devDependencies": {"jest": "30.0.0"}}`}),
	}, hist.commits...)
	return hist
}

func TestDeps(t *testing.T) {
	dir := newProjectDir(t, map[string]string{
		"CHANGELOG.md": testChangelog,
		"package.json": `{"dependencies": {"left-pad": "1.1.0"}}`,
	})
	path := filepath.Join(dir, "CHANGELOG.md")

	out, err := runCLI(t, dir, bumpHistory(), "deps")
	require.Error(t, err)
	assert.Equal(t, shared.ExitValidationFailed, shared.ExitCode(err))
	assert.Contains(t, out, "left-pad")
	assert.NotContains(t, out, "jest", "dev dependencies are not tracked")

	out, err = runCLI(t, dir, bumpHistory(), "deps", "--fix", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "+- Bump left-pad from 1.0.0 to 1.1.0")
	assert.Equal(t, testChangelog, readFile(t, path))

	out, err = runCLI(t, dir, bumpHistory(), "deps", "--fix")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Recorded 1 dependency bump")
	assert.Contains(t, readFile(t, path), "Bump left-pad from 1.0.0 to 1.1.0")

	out, err = runCLI(t, dir, bumpHistory(), "deps")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 dependency bump recorded")
}

func TestDeps_NoManifest(t *testing.T) {
	dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})

	out, err := runCLI(t, dir, newTestHistory(), "deps")
	require.NoError(t, err)
	assert.Contains(t, out, "0 dependency bumps recorded")
}

func TestShow(t *testing.T) {
	tests := map[string]struct {
		args     []string
		want     []string
		wantCode int
	}{
		"last entries": {
			args: []string{"--plain"},
			want: []string{"Existing feature", "Initial release"},
		},
		"one version": {
			args: []string{"v1.0.0", "--plain"},
			want: []string{"Initial release"},
		},
		"limited entries": {
			args: []string{"--last", "1", "--plain"},
			want: []string{"Existing feature", "(1 of 2 entries shown. Use --last 2 to see all)"},
		},
		"unknown version": {
			args:     []string{"9.9.9"},
			want:     []string{"Available versions:", "Unreleased"},
			wantCode: shared.ExitInvalidArguments,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})
			out, err := runCLI(t, dir, nil, append([]string{"show"}, tt.args...)...)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, shared.ExitCode(err))
			} else {
				require.NoError(t, err, out)
			}
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestFileFlag(t *testing.T) {
	dir := newProjectDir(t, map[string]string{"docs/HISTORY.md": testChangelog})

	out, err := runCLI(t, dir, nil, "show", "--plain", "--file", "docs/HISTORY.md")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Existing feature")
}

func TestExtract(t *testing.T) {
	tests := map[string]struct {
		version  string
		want     string
		wantCode int
	}{
		"released version": {
			version: "v1.0.0",
			want:    "### Added\n- Initial release ([#1](https://github.com/acme/tool/pull/1))\n",
		},
		"unreleased": {
			version: "unreleased",
			want:    "### Added\n- Existing feature ([#10](https://github.com/acme/tool/pull/10))\n",
		},
		"unknown version": {
			version:  "3.0.0",
			wantCode: shared.ExitInvalidArguments,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := newProjectDir(t, map[string]string{"CHANGELOG.md": testChangelog})
			out, err := runCLI(t, dir, nil, "extract", tt.version)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, shared.ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}
