// Package prsource fetches pull request descriptions from GitHub to supply
// explicit changelog entry text for commits.
package prsource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/ariel-frischer/chlog/internal/commits"
)

// maxConcurrent bounds the number of pull requests fetched at once.
const maxConcurrent = 4

// PullRequestsService is the part of the GitHub pull request API used here.
type PullRequestsService interface {
	Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error)
}

// Source reads pull request bodies of one repository.
type Source struct {
	prs   PullRequestsService
	owner string
	repo  string
}

// New returns a Source for repoURL, e.g. "https://github.com/acme/tool".
// Hosts other than github.com are treated as GitHub Enterprise servers.
// An empty token makes unauthenticated requests.
func New(repoURL, token string) (*Source, error) {
	host, owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if host != "github.com" {
		base := "https://" + host
		client, err = client.WithEnterpriseURLs(base+"/api/v3/", base+"/api/uploads/")
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub Enterprise client for %s: %w", host, err)
		}
	}
	return NewWithService(client.PullRequests, owner, repo), nil
}

// NewWithService returns a Source using prs.
func NewWithService(prs PullRequestsService, owner, repo string) *Source {
	return &Source{prs: prs, owner: owner, repo: repo}
}

// ParseRepoURL splits a repository web URL into host, owner and name.
func ParseRepoURL(repoURL string) (host, owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSuffix(repoURL, "/"))
	if err != nil {
		return "", "", "", fmt.Errorf("parsing repository URL %q: %w", repoURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("repository URL %q is not of the form https://host/owner/repo", repoURL)
	}
	return u.Host, parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// EntryText returns the changelog text declared in the body of pull request
// number, or "" when it declares none.
func (s *Source) EntryText(ctx context.Context, number int) (string, error) {
	pr, _, err := s.prs.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		return "", fmt.Errorf("fetching pull request #%d of %s/%s: %w", number, s.owner, s.repo, err)
	}
	if pr == nil {
		return "", fmt.Errorf("pull request #%d of %s/%s not found", number, s.owner, s.repo)
	}
	return commits.ExplicitEntry(pr.GetBody()), nil
}

// Enrich returns a copy of records where commits with a pull request and no
// explicit text of their own take the text from the pull request body.
func (s *Source) Enrich(ctx context.Context, records []commits.Record) ([]commits.Record, error) {
	out := make([]commits.Record, len(records))
	copy(out, records)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i := range out {
		if out[i].PR == 0 || out[i].EntryText != "" {
			continue
		}
		g.Go(func() error {
			text, err := s.EntryText(ctx, out[i].PR)
			if err != nil {
				return err
			}
			out[i].EntryText = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
