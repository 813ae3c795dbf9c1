package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ariel-frischer/chlog/internal/runner"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	logFormat = "--format=%H%x1f%ct%x1f%s%x1f%b%x1e"
)

// CLI is a History that shells out to the git command.
type CLI struct {
	Runner runner.Runner
}

var _ History = (*CLI)(nil)

// NewCLI returns a git CLI history using r, which should run in the
// repository directory.
func NewCLI(r runner.Runner) *CLI {
	return &CLI{Runner: r}
}

func (c *CLI) git(ctx context.Context, args ...string) (string, error) {
	logDebug("[git] git %s", strings.Join(args, " "))
	return c.Runner.Run(ctx, "git", args...)
}

// Log implements History.
func (c *CLI) Log(ctx context.Context, from, to, path string) ([]Commit, error) {
	if to == "" {
		to = "HEAD"
	}
	rangeSpec := to
	if from != "" {
		rangeSpec = from + ".." + to
	}
	args := []string{"log", logFormat, rangeSpec}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := c.git(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("git log %s: %w", rangeSpec, err)
	}
	return parseLog(out)
}

// parseLog reads records written with logFormat.
func parseLog(out string) ([]Commit, error) {
	var log []Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if strings.TrimSpace(rec) == "" {
			continue
		}
		parts := strings.SplitN(rec, fieldSep, 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("unexpected git log record %q", rec)
		}
		secs, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing commit time %q: %w", parts[1], err)
		}
		log = append(log, Commit{
			Hash:    strings.TrimSpace(parts[0]),
			Subject: strings.TrimSpace(parts[2]),
			Body:    strings.TrimSpace(parts[3]),
			When:    time.Unix(secs, 0),
		})
	}
	return log, nil
}

// Tags implements History.
func (c *CLI) Tags(ctx context.Context) ([]string, error) {
	out, err := c.git(ctx, "tag", "--list")
	if err != nil {
		return nil, fmt.Errorf("git tag: %w", err)
	}
	tags := []string{}
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// FileAt implements History.
func (c *CLI) FileAt(ctx context.Context, ref, path string) ([]byte, error) {
	if ref == "" {
		ref = "HEAD"
	}
	out, err := c.git(ctx, "show", ref+":"+path)
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && missingPath(exitErr.Stderr) {
			return nil, fmt.Errorf("%s at %s: %w", path, ref, ErrNotFound)
		}
		return nil, fmt.Errorf("git show %s:%s: %w", ref, path, err)
	}
	return []byte(out), nil
}

func missingPath(stderr string) bool {
	return strings.Contains(stderr, "does not exist in") ||
		strings.Contains(stderr, "exists on disk, but not in")
}

// OriginURL implements History.
func (c *CLI) OriginURL(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("git remote get-url origin: %w", err)
	}
	return strings.TrimSpace(out), nil
}
