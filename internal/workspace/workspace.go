// Package workspace clones a repository into a throwaway worktree and
// removes it again once the analysis is done.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/klimeurt/repolens/internal/config"
	"go.uber.org/zap"
)

// ErrClone wraps every clone failure
var ErrClone = errors.New("clone failed")

// Cloner makes shallow clones in disk or memory mode
type Cloner struct {
	mode    string
	workDir string
	timeout time.Duration
	token   string
	logger  *zap.Logger

	// Depth is the clone depth, 0 fetches full history
	Depth int
}

// NewCloner creates a new Cloner instance
func NewCloner(cfg *config.Config, logger *zap.Logger) *Cloner {
	return &Cloner{
		mode:    cfg.CloneMode,
		workDir: cfg.WorkDir,
		timeout: cfg.CloneTimeout,
		token:   cfg.GitHubToken,
		logger:  logger.Named("workspace"),
		Depth:   1,
	}
}

// Workspace is a cloned worktree. Close deletes it.
type Workspace struct {
	fs   billy.Filesystem
	dir  string
	once sync.Once
	err  error
}

// FS returns the worktree filesystem
func (w *Workspace) FS() billy.Filesystem {
	return w.fs
}

// Dir returns the on-disk location, empty for in-memory clones
func (w *Workspace) Dir() string {
	return w.dir
}

// Close removes the clone. It is safe to call more than once.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		if w.dir != "" {
			w.err = removeAll(w.dir)
		}
		w.fs = nil
	})
	return w.err
}

// Clone fetches url into a fresh workspace
func (c *Cloner) Clone(ctx context.Context, url string) (*Workspace, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := &git.CloneOptions{
		URL:          url,
		Depth:        c.Depth,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if c.token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: c.token}
	}

	start := time.Now()
	var (
		ws  *Workspace
		err error
	)
	if c.mode == config.CloneModeMemory {
		ws, err = c.cloneMemory(ctx, opts)
	} else {
		ws, err = c.cloneDisk(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Cloned repository",
		zap.String("url", url),
		zap.String("mode", c.mode),
		zap.Duration("took", time.Since(start)))
	return ws, nil
}

func (c *Cloner) cloneMemory(ctx context.Context, opts *git.CloneOptions) (*Workspace, error) {
	worktree := memfs.New()
	if _, err := git.CloneContext(ctx, memory.NewStorage(), worktree, opts); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrClone, opts.URL, err)
	}
	return &Workspace{fs: worktree}, nil
}

func (c *Cloner) cloneDisk(ctx context.Context, opts *git.CloneOptions) (*Workspace, error) {
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir %s: %w", c.workDir, err)
	}
	dir, err := os.MkdirTemp(c.workDir, "clone-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone dir: %w", err)
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		if rmErr := removeAll(dir); rmErr != nil {
			c.logger.Warn("Failed to remove partial clone", zap.String("dir", dir), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrClone, opts.URL, err)
	}

	// Only the worktree is analyzed
	if err := removeAll(filepath.Join(dir, git.GitDirName)); err != nil {
		c.logger.Warn("Failed to remove .git directory", zap.String("dir", dir), zap.Error(err))
	}

	return &Workspace{fs: osfs.New(dir), dir: dir}, nil
}

// removeAll deletes path, making read-only entries writable if the first
// attempt fails.
func removeAll(path string) error {
	if err := os.RemoveAll(path); err == nil {
		return nil
	}

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		mode := os.FileMode(0o600)
		if d.IsDir() {
			mode = 0o700
		}
		_ = os.Chmod(p, mode)
		return nil
	})

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// New wraps an existing worktree. A non-empty dir is removed on Close.
func New(fs billy.Filesystem, dir string) *Workspace {
	return &Workspace{fs: fs, dir: dir}
}
