package cli

import (
	"context"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ariel-frischer/chlog/internal/changelog"
	"github.com/ariel-frischer/chlog/internal/git"
	"github.com/ariel-frischer/chlog/internal/logger"
	"github.com/ariel-frischer/chlog/internal/progress"
)

// inputs is the repository state a command works from.
type inputs struct {
	Tags    []string
	RepoURL string
	// From is the ref the log starts after; "" means the whole history.
	From string
	Log  []git.Commit
}

// logRange selects the commits gathered by gatherInputs.
type logRange struct {
	From string
	To   string
	Path string
	// Skip leaves Log empty.
	Skip bool
}

// gatherInputs reads the tags, the repository URL and the commit log. Tags
// and URL discovery run concurrently; the log waits for the tags when the
// start point is derived from the latest release.
func gatherInputs(ctx context.Context, p *project, hist git.History, doc *changelog.Document, rng logRange) (*inputs, error) {
	sp := progress.NewSpinner(os.Stderr, progress.DetectTerminalCapabilities(os.Stderr))
	sp.Start("Reading repository history")

	in, err := readInputs(ctx, p, hist, doc, rng)
	sp.Stop(err)
	return in, err
}

func readInputs(ctx context.Context, p *project, hist git.History, doc *changelog.Document, rng logRange) (*inputs, error) {
	in := &inputs{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tags, err := hist.Tags(gctx)
		if err != nil {
			return collaboratorError("listing tags", err)
		}
		in.Tags = tags
		return nil
	})
	g.Go(func() error {
		url, err := p.repoURL(gctx, hist)
		if err != nil {
			return err
		}
		in.RepoURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if rng.Skip {
		return in, nil
	}
	in.From = rng.From
	if in.From == "" {
		in.From = latestReleaseTag(doc, p.cfg.TagScheme(), in.Tags)
	}
	logger.Debug(ctx, "reading commit log", "from", in.From, "to", rng.To, "path", rng.Path)

	log, err := hist.Log(ctx, in.From, rng.To, rng.Path)
	if err != nil {
		return nil, collaboratorError("reading log", err)
	}
	in.Log = log
	logger.Info(ctx, "history gathered", "tags", len(in.Tags), "commits", len(in.Log), "from", in.From)
	return in, nil
}

// latestReleaseTag returns the tag of the newest release that has one, or
// "" when no release is tagged.
func latestReleaseTag(doc *changelog.Document, scheme changelog.TagScheme, tags []string) string {
	if doc == nil {
		return ""
	}
	for _, r := range doc.Releases {
		if r.IsUnreleased() {
			continue
		}
		if tag := scheme.TagFor(r.ID); slices.Contains(tags, tag) {
			return tag
		}
	}
	return ""
}
