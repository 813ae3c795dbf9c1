// Package git reads the history the changelog is reconciled against: commits
// between refs, tags, files at a ref and the origin URL. It uses the go-git
// library by default, with a git CLI implementation for repositories go-git
// cannot handle (e.g. partial clones).
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ariel-frischer/chlog/internal/commits"
)

// debugLogger is a function that logs debug messages when debug mode is enabled.
// By default, it's a no-op. Set it via SetDebugLogger to enable debug output.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for git operations.
// Pass nil to disable debug logging. The logger function should format
// and output the message (similar to log.Printf signature).
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

// logDebug logs a debug message if the debug logger is set.
func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// ErrNotFound is wrapped by FileAt when the file does not exist at the ref.
var ErrNotFound = errors.New("file not found at ref")

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Commit is one commit of the log.
type Commit struct {
	Hash    string
	Subject string
	Body    string
	When    time.Time
}

// Record parses the commit message into a changelog commit record.
func (c Commit) Record() commits.Record {
	return commits.Parse(c.Hash, c.Subject, c.Body)
}

// Records parses every commit of the log, keeping its order.
func Records(log []Commit) []commits.Record {
	records := make([]commits.Record, len(log))
	for i, c := range log {
		records[i] = c.Record()
	}
	return records
}

// History is the version-control view the changelog commands need.
type History interface {
	// Log returns the commits reachable from to but not from from, newest
	// first. An empty from means the whole history; an empty to means HEAD.
	// When path is set only commits touching it are returned.
	Log(ctx context.Context, from, to, path string) ([]Commit, error)
	// Tags returns the tag names, sorted.
	Tags(ctx context.Context) ([]string, error)
	// FileAt returns the content of path, relative to the repository root,
	// at ref.
	FileAt(ctx context.Context, ref, path string) ([]byte, error)
	// OriginURL returns the fetch URL of the "origin" remote.
	OriginURL(ctx context.Context) (string, error)
}

// openRepo opens a git repository at the specified path or current working directory.
// It uses go-git's PlainOpenWithOptions with DetectDotGit enabled to traverse
// up the directory tree to find the repository root.
// If path is empty, the current working directory is used.
func openRepo(path string) (*git.Repository, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	logDebug("[git] opening repository at %s", path)

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	logDebug("[git] repository opened successfully")
	return repo, nil
}

// GetRepositoryRoot returns the absolute path to the root of the repository
// containing path, or the current directory when path is empty.
func GetRepositoryRoot(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	root := worktree.Filesystem.Root()
	logDebug("[git] GetRepositoryRoot: %s", root)
	return root, nil
}

// IsGitRepository checks if path is within a git repository.
func IsGitRepository(path string) bool {
	_, err := openRepo(path)
	result := err == nil
	logDebug("[git] IsGitRepository: %v", result)
	return result
}

// Repo is a History backed by go-git.
type Repo struct {
	repo *git.Repository
}

var _ History = (*Repo)(nil)

// Open opens the repository containing path.
func Open(path string) (*Repo, error) {
	repo, err := openRepo(path)
	if err != nil {
		return nil, err
	}
	return &Repo{repo: repo}, nil
}

// NewRepo wraps an already opened repository.
func NewRepo(repo *git.Repository) *Repo {
	return &Repo{repo: repo}
}

func (r *Repo) resolve(rev string) (plumbing.Hash, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving %s: %w", rev, err)
	}
	return *hash, nil
}

// Log implements History.
func (r *Repo) Log(ctx context.Context, from, to, path string) ([]Commit, error) {
	toHash, err := r.resolve(to)
	if err != nil {
		return nil, err
	}

	excluded := make(map[plumbing.Hash]bool)
	if from != "" {
		fromHash, err := r.resolve(from)
		if err != nil {
			return nil, err
		}
		iter, err := r.repo.Log(&git.LogOptions{From: fromHash})
		if err != nil {
			return nil, fmt.Errorf("reading log of %s: %w", from, err)
		}
		err = iter.ForEach(func(c *object.Commit) error {
			excluded[c.Hash] = true
			return ctx.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("reading log of %s: %w", from, err)
		}
	}

	opts := &git.LogOptions{From: toHash}
	if path != "" {
		opts.PathFilter = func(p string) bool { return p == path }
	}
	iter, err := r.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}

	var log []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if excluded[c.Hash] {
			return nil
		}
		subject, body := splitMessage(c.Message)
		log = append(log, Commit{Hash: c.Hash.String(), Subject: subject, Body: body, When: c.Committer.When})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}

	logDebug("[git] Log %s..%s (%s): %d commits", from, to, path, len(log))
	return log, nil
}

// Tags implements History.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	tags := []string{}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	sort.Strings(tags)
	logDebug("[git] Tags: found %d tags", len(tags))
	return tags, nil
}

// FileAt implements History.
func (r *Repo) FileAt(ctx context.Context, ref, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", ref, err)
	}
	f, err := commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%s at %s: %w", path, ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", path, ref, err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", path, ref, err)
	}
	return []byte(content), nil
}

// OriginURL implements History.
func (r *Repo) OriginURL(ctx context.Context) (string, error) {
	remote, err := r.repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("reading origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return urls[0], nil
}

// splitMessage separates the subject line from the body.
func splitMessage(message string) (string, string) {
	subject, body, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(subject), strings.TrimSpace(body)
}

// isSSHURL checks if a URL is an SSH URL.
// Detects git@ (SCP-style), ssh://, and git+ssh:// schemes.
func isSSHURL(url string) bool {
	return strings.HasPrefix(url, "git@") ||
		strings.HasPrefix(url, "ssh://") ||
		strings.HasPrefix(url, "git+ssh://")
}

// WebURL turns a remote URL into the https URL of the repository web page:
// "git@github.com:acme/tool.git" becomes "https://github.com/acme/tool".
func WebURL(remote string) string {
	url := strings.TrimSpace(remote)
	url = strings.TrimPrefix(url, "git+")
	if isSSHURL(url) {
		url = strings.TrimPrefix(url, "ssh://")
		url = strings.TrimPrefix(url, "git@")
		url = strings.Replace(url, ":", "/", 1)
		url = "https://" + url
	}
	url = strings.TrimPrefix(url, "git://")
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	url = strings.TrimSuffix(url, "/")
	return strings.TrimSuffix(url, ".git")
}
