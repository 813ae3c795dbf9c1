package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/chlog/internal/git"
)

const testChangelog = `# Changelog

All notable changes to this project will be documented in this file.

## [Unreleased]

### Added

- Existing feature ([#10](https://github.com/acme/tool/pull/10))

## [1.0.0] - 2024-01-15

### Added

- Initial release ([#1](https://github.com/acme/tool/pull/1))

[Unreleased]: https://github.com/acme/tool/compare/v1.0.0...HEAD
[1.0.0]: https://github.com/acme/tool/releases/tag/v1.0.0
`

// fakeCommit is a commit with the files it changed.
type fakeCommit struct {
	git.Commit
	Files map[string]string
}

// fakeHistory is an in-memory git.History. Commits are newest first.
type fakeHistory struct {
	commits []fakeCommit
	tags    map[string]string
	origin  string
}

func commit(hash, subject string, files map[string]string) fakeCommit {
	return fakeCommit{
		Commit: git.Commit{Hash: hash, Subject: subject, When: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		Files:  files,
	}
}

// newTestHistory returns the history behind testChangelog: v1.0.0 is
// tagged and two pull requests were merged since.
func newTestHistory() *fakeHistory {
	return &fakeHistory{
		commits: []fakeCommit{
			commit("c4", "fix: crash on empty input (#11)", nil),
			commit("c3", "feat: existing feature (#10)", nil),
			commit("c2", "chore(release): 1.0.0", map[string]string{"package.json": `{"dependencies": {"left-pad": "1.0.0"}}`}),
			commit("c1", "feat: initial release (#1)", nil),
		},
		tags:   map[string]string{"v1.0.0": "c2"},
		origin: "git@github.com:acme/tool.git",
	}
}

func (f *fakeHistory) resolve(ref string) (int, error) {
	if hash, ok := f.tags[ref]; ok {
		ref = hash
	}
	for i, c := range f.commits {
		if c.Hash == ref {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown revision %q", ref)
}

func (f *fakeHistory) Log(_ context.Context, from, to, path string) ([]git.Commit, error) {
	start, end := 0, len(f.commits)
	var err error
	if to != "" {
		if start, err = f.resolve(to); err != nil {
			return nil, err
		}
	}
	if from != "" {
		if end, err = f.resolve(from); err != nil {
			return nil, err
		}
	}
	var out []git.Commit
	for _, c := range f.commits[start:end] {
		if path != "" {
			if _, ok := c.Files[path]; !ok {
				continue
			}
		}
		out = append(out, c.Commit)
	}
	return out, nil
}

func (f *fakeHistory) Tags(context.Context) ([]string, error) {
	tags := make([]string, 0, len(f.tags))
	for t := range f.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func (f *fakeHistory) FileAt(_ context.Context, ref, path string) ([]byte, error) {
	i, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}
	for _, c := range f.commits[i:] {
		if content, ok := c.Files[path]; ok {
			return []byte(content), nil
		}
	}
	return nil, fmt.Errorf("%s at %s: %w", path, ref, git.ErrNotFound)
}

func (f *fakeHistory) OriginURL(context.Context) (string, error) {
	if f.origin == "" {
		return "", errors.New("no origin remote")
	}
	return f.origin, nil
}

// newProjectDir writes files into a fresh directory.
func newProjectDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// runCLI executes chlog with args in dir. A nil hist behaves like a
// directory outside any repository.
func runCLI(t *testing.T, dir string, hist git.History, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("HOME", home)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("NO_COLOR", "1")

	prev := openHistory
	openHistory = func(*project) (git.History, error) {
		if hist == nil {
			return nil, errors.New("not a git repository")
		}
		return hist, nil
	}
	t.Cleanup(func() { openHistory = prev })

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--dir", dir))
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags clears flag values left by earlier runs of the global commands.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func countOf(s, sub string) int {
	return strings.Count(s, sub)
}
