package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/klimeurt/repolens/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Collector handles the GitHub API lookups for a single repository
type Collector struct {
	config   *config.Config
	ghClient *github.Client
	logger   *zap.Logger
}

// New creates a new Collector instance
func New(cfg *config.Config, logger *zap.Logger) (*Collector, error) {
	var ghClient *github.Client
	if cfg.GitHubToken != "" {
		// Create GitHub client with OAuth2 token
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.GitHubToken},
		)
		tc := oauth2.NewClient(ctx, ts)
		ghClient = github.NewClient(tc)
	} else {
		ghClient = github.NewClient(nil)
	}

	if cfg.GitHubAPIURL != "" {
		base := cfg.GitHubAPIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GITHUB_API_URL: %w", err)
		}
		ghClient.BaseURL = u
	}

	return &Collector{
		config:   cfg,
		ghClient: ghClient,
		logger:   logger.Named("collector"),
	}, nil
}

// RepoInfo fetches repository metadata
func (c *Collector) RepoInfo(ctx context.Context, ref RepoRef) (RepoInfo, error) {
	repo, _, err := c.ghClient.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return RepoInfo{}, fmt.Errorf("failed to get repository %s: %w", ref, err)
	}

	info := RepoInfo{
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		DefaultBranch: repo.GetDefaultBranch(),
		Language:      repo.GetLanguage(),
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
		OpenIssues:    repo.GetOpenIssuesCount(),
		Fork:          repo.GetFork(),
		Archived:      repo.GetArchived(),
		PushedAt:      repo.GetPushedAt().Time,
	}

	c.logger.Debug("Fetched repository info",
		zap.String("repo", ref.String()),
		zap.Int("stars", info.Stars),
		zap.String("language", info.Language))
	return info, nil
}

// CommitCount returns the number of commits on the default branch.
// A page size of one makes the last page number equal to the commit count.
func (c *Collector) CommitCount(ctx context.Context, ref RepoRef) (int, error) {
	opt := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	}

	commits, resp, err := c.ghClient.Repositories.ListCommits(ctx, ref.Owner, ref.Name, opt)
	if err != nil {
		// GitHub answers 409 Conflict for a repository without commits
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusConflict {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list commits for %s: %w", ref, err)
	}

	count := len(commits)
	if resp.LastPage > 0 {
		count = resp.LastPage
	}

	c.logger.Debug("Counted commits", zap.String("repo", ref.String()), zap.Int("commits", count))
	return count, nil
}
