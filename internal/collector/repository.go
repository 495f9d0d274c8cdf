package collector

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRepoURL is returned when a URL does not name a GitHub repository
var ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

// RepoRef identifies a GitHub repository
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String returns owner/name
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// CloneURL returns the HTTPS clone URL
func (r RepoRef) CloneURL() string {
	return "https://github.com/" + r.Owner + "/" + r.Name + ".git"
}

// HTMLURL returns the repository web page
func (r RepoRef) HTMLURL() string {
	return "https://github.com/" + r.Owner + "/" + r.Name
}

// RepoInfo holds the repository metadata used for scoring
type RepoInfo struct {
	FullName      string    `json:"full_name"`
	Description   string    `json:"description,omitempty"`
	DefaultBranch string    `json:"default_branch,omitempty"`
	Language      string    `json:"language,omitempty"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	Fork          bool      `json:"fork"`
	Archived      bool      `json:"archived"`
	PushedAt      time.Time `json:"pushed_at"`
}

// ParseRepoURL extracts the owner and repository name from a GitHub URL.
//
// Accepted forms:
//
//	https://github.com/owner/repo(.git)(/...)
//	git@github.com:owner/repo(.git)
//	github.com/owner/repo
//	owner/repo
func ParseRepoURL(raw string) (RepoRef, error) {
	path := strings.TrimSpace(raw)

	switch {
	case hasPrefixFold(path, "git@github.com:"):
		path = path[len("git@github.com:"):]
	case strings.Contains(path, "://"):
		i := strings.Index(path, "://")
		if scheme := strings.ToLower(path[:i]); scheme != "https" && scheme != "http" {
			return RepoRef{}, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidRepoURL, raw)
		}
		path = path[i+3:]
		if !hasGitHubHost(path) {
			return RepoRef{}, fmt.Errorf("%w: %q is not hosted on github.com", ErrInvalidRepoURL, raw)
		}
		path = path[strings.Index(path, "/")+1:]
	case hasGitHubHost(path):
		path = path[strings.Index(path, "/")+1:]
	case strings.Contains(path, "@"):
		return RepoRef{}, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidRepoURL, raw)
	}

	// Drop query and fragment
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	ref := RepoRef{
		Owner: parts[0],
		Name:  strings.TrimSuffix(parts[1], ".git"),
	}
	if !validSegment(ref.Owner) || !validSegment(ref.Name) {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	return ref, nil
}

// hasGitHubHost matches the host case-insensitively, as DNS does
func hasGitHubHost(path string) bool {
	return hasPrefixFold(path, "github.com/") || hasPrefixFold(path, "www.github.com/")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// validSegment accepts the characters GitHub allows in owner and repository names
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
