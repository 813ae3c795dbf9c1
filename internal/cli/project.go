package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/cli/shared"
	"github.com/ariel-frischer/chlog/internal/config"
	"github.com/ariel-frischer/chlog/internal/depbump"
	clierrors "github.com/ariel-frischer/chlog/internal/errors"
	"github.com/ariel-frischer/chlog/internal/git"
	"github.com/ariel-frischer/chlog/internal/logger"
	"github.com/ariel-frischer/chlog/internal/runner"
)

// manifestCandidates are tried in order when no manifest is configured.
var manifestCandidates = []string{"package.json", "go.mod"}

// openHistory returns the history source of a project. Tests replace it.
var openHistory = defaultHistory

// project is the configured working context of one command.
type project struct {
	dir  string
	cfg  *config.Configuration
	path string
}

// loadProject resolves --dir, loads the configuration and applies the
// global --file override.
func loadProject(cmd *cobra.Command) (*project, error) {
	dir, err := shared.ProjectDir(cmd)
	if err != nil {
		return nil, clierrors.Wrap(err, clierrors.Argument)
	}
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ProjectDir:    dir,
		WarningWriter: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "loading configuration",
			"Inspect the effective configuration with: chlog config show")
	}
	if f := cmd.Flag("file"); f != nil && f.Changed {
		cfg.Changelog = f.Value.String()
	}

	path := cfg.Changelog
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	logger.Debug(cmd.Context(), "project loaded", "dir", dir, "changelog", path, "git_backend", cfg.GitBackend)
	return &project{dir: dir, cfg: cfg, path: path}, nil
}

// relPath shortens path for messages.
func (p *project) relPath() string {
	if rel, err := filepath.Rel(p.dir, p.path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p.path
}

func (p *project) readChangelog() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", clierrors.ChangelogNotFound(p.relPath())
		}
		return "", clierrors.WrapWithMessage(err, clierrors.Runtime, "reading "+p.relPath())
	}
	return string(data), nil
}

// parseChangelog reads and parses the changelog. It returns the original
// text alongside the document.
func (p *project) parseChangelog() (*changelog.Document, string, error) {
	text, err := p.readChangelog()
	if err != nil {
		return nil, "", err
	}
	doc, err := changelog.Parse(text)
	if err != nil {
		return nil, "", clierrors.MalformedChangelog(p.relPath(), err)
	}
	return doc, text, nil
}

func (p *project) writeChangelog(doc *changelog.Document) error {
	if err := shared.EnsureDirectory(filepath.Dir(p.path)); err != nil {
		return clierrors.FileNotWritable(p.relPath(), err)
	}
	if err := os.WriteFile(p.path, []byte(changelog.Serialize(doc)), 0o644); err != nil {
		return clierrors.FileNotWritable(p.relPath(), err)
	}
	return nil
}

// history opens the configured history source.
func (p *project) history() (git.History, error) {
	return openHistory(p)
}

func defaultHistory(p *project) (git.History, error) {
	if p.cfg.GitBackend == "cli" {
		return git.NewCLI(runner.New(p.dir, p.cfg.CommandTimeout)), nil
	}
	repo, err := git.Open(p.dir)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Collaborator, "not a git repository",
			"Run chlog inside a git repository or pass --dir",
			"Use git_backend: cli to read history with the git binary")
	}
	return repo, nil
}

// repoPath returns rel, a path relative to the project directory, relative
// to the repository root as history sources expect.
func (p *project) repoPath(rel string) string {
	root, err := git.GetRepositoryRoot(p.dir)
	if err != nil {
		return filepath.ToSlash(rel)
	}
	full, err := filepath.Rel(root, filepath.Join(p.dir, rel))
	if err != nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(full)
}

// readPackageJSON returns nil when the project has no package.json.
func (p *project) readPackageJSON() (*depbump.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, "package.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return depbump.ParsePackageJSON(data)
}

// packageRepoURL returns the web URL of a package.json repository field.
func packageRepoURL(pkg *depbump.Manifest) string {
	if pkg == nil {
		return ""
	}
	raw := strings.TrimSpace(pkg.Repository)
	if raw == "" {
		return ""
	}
	// Shorthand forms: "github:owner/repo" and "owner/repo".
	if rest, ok := strings.CutPrefix(raw, "github:"); ok {
		raw = "github.com/" + rest
	} else if !strings.Contains(raw, ":") && strings.Count(raw, "/") == 1 {
		raw = "github.com/" + raw
	}
	return git.WebURL(raw)
}

// repoURL discovers the repository web URL: configuration, then the
// package.json repository field, then the origin remote.
func (p *project) repoURL(ctx context.Context, hist git.History) (string, error) {
	if p.cfg.RepoURL != "" {
		return p.cfg.RepoURL, nil
	}
	pkg, err := p.readPackageJSON()
	if err != nil {
		logger.Warn(ctx, "ignoring package.json", "error", err)
	}
	if url := packageRepoURL(pkg); url != "" {
		logger.Debug(ctx, "repository URL from package.json", "url", url)
		return url, nil
	}
	if hist != nil {
		origin, err := hist.OriginURL(ctx)
		if err == nil && origin != "" {
			url := git.WebURL(origin)
			logger.Debug(ctx, "repository URL from origin", "url", url)
			return url, nil
		}
		logger.Debug(ctx, "no origin remote", "error", err)
	}
	return "", clierrors.RepoURLUnknown()
}

// currentVersion is the version declared by package.json, or "".
func (p *project) currentVersion(ctx context.Context) string {
	pkg, err := p.readPackageJSON()
	if err != nil {
		logger.Warn(ctx, "ignoring package.json", "error", err)
		return ""
	}
	if pkg == nil {
		return ""
	}
	return pkg.Version
}

// manifestFile returns the manifest checked for dependency bumps, relative
// to the project directory, or "" when there is none.
func (p *project) manifestFile() string {
	if p.cfg.Manifest != "" {
		return p.cfg.Manifest
	}
	for _, name := range manifestCandidates {
		if _, err := os.Stat(filepath.Join(p.dir, name)); err == nil {
			return name
		}
	}
	return ""
}

// collaboratorError marks a history failure as a collaborator failure.
func collaboratorError(op string, err error) error {
	if err == nil || clierrors.IsCLIError(err) || runner.IsTimeout(err) {
		return err
	}
	return clierrors.NewCollaboratorError("git", op, err)
}
