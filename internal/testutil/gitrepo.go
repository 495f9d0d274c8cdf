// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RequireGit skips the test when the git binary is unavailable. Local
// clones over the file transport shell out to git-upload-pack.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found in PATH")
	}
}

// NewGitRepo creates a repository in a temp dir with one commit per entry
// in commits. Each entry maps slash-separated paths to file contents.
func NewGitRepo(t *testing.T, commits ...map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to open worktree: %v", err)
	}

	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, files := range commits {
		for name, content := range files {
			path := filepath.Join(dir, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("Failed to create dir for %s: %v", name, err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("Failed to write %s: %v", name, err)
			}
			if _, err := wt.Add(name); err != nil {
				t.Fatalf("Failed to stage %s: %v", name, err)
			}
		}

		_, err := wt.Commit("commit", &git.CommitOptions{
			AllowEmptyCommits: true,
			Author: &object.Signature{
				Name:  "RepoLens Test",
				Email: "test@repolens.local",
				When:  when.Add(time.Duration(i) * time.Hour),
			},
		})
		if err != nil {
			t.Fatalf("Failed to commit: %v", err)
		}
	}

	return dir
}
