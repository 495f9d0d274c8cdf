package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klimeurt/repolens/internal/analysis"
	"github.com/klimeurt/repolens/internal/collector"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/klimeurt/repolens/internal/llm"
	"github.com/klimeurt/repolens/internal/scoring"
	"github.com/klimeurt/repolens/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const readme = "# Hello\n\nA small service. Run `make` to build it and `make test` to test it.\n"

type fakeMeta struct {
	info       collector.RepoInfo
	infoErr    error
	commits    int
	commitsErr error
}

func (f *fakeMeta) RepoInfo(_ context.Context, _ collector.RepoRef) (collector.RepoInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeMeta) CommitCount(_ context.Context, _ collector.RepoRef) (int, error) {
	return f.commits, f.commitsErr
}

type fakeCloner struct {
	mu    sync.Mutex
	files map[string]string
	err   error
	urls  []string
	made  []*workspace.Workspace
	dir   string
}

func (f *fakeCloner) Clone(_ context.Context, url string) (*workspace.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}

	if f.dir != "" {
		fs := osfs.New(f.dir)
		for name, content := range f.files {
			if err := util.WriteFile(fs, name, []byte(content), 0o644); err != nil {
				return nil, err
			}
		}
		ws := workspace.New(fs, f.dir)
		f.made = append(f.made, ws)
		return ws, nil
	}

	fs := memfs.New()
	for name, content := range f.files {
		if err := util.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	ws := workspace.New(fs, "")
	f.made = append(f.made, ws)
	return ws, nil
}

type fakeProvider struct {
	text        string
	err         error
	request     llm.Request
	calls       int
	hadDeadline bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Summarize(ctx context.Context, request llm.Request) (string, error) {
	f.calls++
	f.request = request
	_, f.hadDeadline = ctx.Deadline()
	return f.text, f.err
}

func newAnalyzer(meta MetadataSource, cloner Cloner, provider llm.Provider) *Analyzer {
	cfg := &config.Config{LLMTimeout: 5 * time.Second}
	return New(cfg, meta, cloner, provider, zap.NewNop())
}

func projectFiles() map[string]string {
	return map[string]string{
		"README.md":           readme,
		"src/main.go":         "package main\n\nfunc main() {}\n",
		"tests/main_test.go":  "package main\n",
		"docs/usage.md":       "usage",
		".github/ci.yaml":     "on: push",
		"scripts/release.sh":  "#!/bin/sh\necho release\n",
		"src/server/serve.go": "package server\n",
	}
}

func TestAnalyze(t *testing.T) {
	meta := &fakeMeta{
		info:    collector.RepoInfo{FullName: "octo/hello", Stars: 42, Language: "Go"},
		commits: 120,
	}
	cloner := &fakeCloner{files: projectFiles()}

	report, err := newAnalyzer(meta, cloner, nil).Analyze(context.Background(), "https://github.com/octo/hello/tree/main")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://github.com/octo/hello.git"}, cloner.urls)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, Repository{Owner: "octo", Name: "hello", URL: "https://github.com/octo/hello"}, report.Repository)
	assert.Equal(t, 95, report.Score)
	assert.Equal(t, "Clean Go project with documentation and with tests.", report.Summary)
	assert.Equal(t, SummarySourceHeuristic, report.SummarySource)
	assert.Equal(t, []string{scoring.RoadmapOpenSource}, report.Roadmap)
	assert.Equal(t, 7, report.Signals.Files)
	assert.Equal(t, 120, report.Signals.Commits)
	assert.Equal(t, 42, report.Signals.Stars)
	require.NotNil(t, report.Info)
	assert.Equal(t, "octo/hello", report.Info.FullName)
	assert.False(t, report.AnalyzedAt.IsZero())
	assert.Empty(t, report.Error)

	require.Len(t, cloner.made, 1)
	assert.Nil(t, cloner.made[0].FS(), "workspace should be closed")
}

func TestAnalyzeMetadataFailure(t *testing.T) {
	meta := &fakeMeta{
		infoErr:    errors.New("rate limited"),
		commitsErr: errors.New("rate limited"),
	}
	cloner := &fakeCloner{files: map[string]string{
		"main.py":  "print('hello')\n",
		"util.py":  "def f():\n    return 1\n",
		"README":   "hi",
		"setup.py": "from setuptools import setup\n",
	}}

	report, err := newAnalyzer(meta, cloner, nil).Analyze(context.Background(), "octo/hello")
	require.NoError(t, err)

	assert.Nil(t, report.Info)
	assert.Equal(t, 0, report.Signals.Stars)
	assert.Equal(t, 0, report.Signals.Commits)
	assert.Equal(t, "Python", report.Signals.Language, "language falls back to detection")
	assert.Equal(t, 40, report.Score)
	assert.Equal(t, []string{
		scoring.RoadmapStructure,
		scoring.RoadmapExpandReadme,
		scoring.RoadmapTests,
		scoring.RoadmapCommits,
	}, report.Roadmap)
}

func TestAnalyzeInvalidURL(t *testing.T) {
	cloner := &fakeCloner{}
	_, err := newAnalyzer(&fakeMeta{}, cloner, nil).Analyze(context.Background(), "https://gitlab.com/octo/hello")
	require.ErrorIs(t, err, collector.ErrInvalidRepoURL)
	assert.Empty(t, cloner.urls, "nothing should be cloned")
}

func TestAnalyzeCloneFailure(t *testing.T) {
	cloner := &fakeCloner{err: fmt.Errorf("%w: https://github.com/octo/gone.git: repository not found", workspace.ErrClone)}
	_, err := newAnalyzer(&fakeMeta{}, cloner, nil).Analyze(context.Background(), "octo/gone")
	require.ErrorIs(t, err, workspace.ErrClone)
}

func TestAnalyzeRemovesDiskWorkspace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clone-1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	cloner := &fakeCloner{files: projectFiles(), dir: dir}

	_, err := newAnalyzer(&fakeMeta{}, cloner, nil).Analyze(context.Background(), "octo/hello")
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "clone dir should be removed, got %v", err)
}

func TestAnalyzeProviderSummary(t *testing.T) {
	provider := &fakeProvider{text: "A tidy Go service."}
	meta := &fakeMeta{info: collector.RepoInfo{Language: "Go"}, commits: 3}

	report, err := newAnalyzer(meta, &fakeCloner{files: projectFiles()}, provider).Analyze(context.Background(), "octo/hello")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.True(t, provider.hadDeadline, "provider call should carry a deadline")
	assert.Equal(t, "A tidy Go service.", report.Summary)
	assert.Equal(t, "fake", report.SummarySource)

	assert.Equal(t, collector.RepoRef{Owner: "octo", Name: "hello"}, provider.request.Repo)
	assert.Equal(t, analysis.StructureClean, provider.request.Signals.Structure)
	assert.Equal(t, report.Roadmap, provider.request.Feedback.Roadmap)
}

func TestAnalyzeProviderFallback(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model is loading")}
	meta := &fakeMeta{info: collector.RepoInfo{Language: "Go"}}

	report, err := newAnalyzer(meta, &fakeCloner{files: projectFiles()}, provider).Analyze(context.Background(), "octo/hello")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls, "no retry")
	assert.Equal(t, SummarySourceHeuristic, report.SummarySource)
	assert.Equal(t, "Clean Go project with documentation and with tests.", report.Summary)
}

func TestAnalyzeProviderEmptyReply(t *testing.T) {
	provider := &fakeProvider{text: "  \n"}
	meta := &fakeMeta{info: collector.RepoInfo{Language: "Go"}}

	report, err := newAnalyzer(meta, &fakeCloner{files: projectFiles()}, provider).Analyze(context.Background(), "octo/hello")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, SummarySourceHeuristic, report.SummarySource)
	assert.Equal(t, "Clean Go project with documentation and with tests.", report.Summary)
}

func TestFailedReport(t *testing.T) {
	report := FailedReport("github.com/octo/hello", workspace.ErrClone)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, Repository{Owner: "octo", Name: "hello", URL: "https://github.com/octo/hello"}, report.Repository)
	assert.Equal(t, "clone failed", report.Error)

	report = FailedReport("not a url", collector.ErrInvalidRepoURL)
	assert.Equal(t, Repository{URL: "not a url"}, report.Repository)
	assert.Zero(t, report.Score)
}

func TestNewFromConfig(t *testing.T) {
	a, err := NewFromConfig(&config.Config{CloneMode: config.CloneModeMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, a.provider)

	a, err = NewFromConfig(&config.Config{LLMProvider: config.ProviderHuggingFace, HFToken: "t"}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.provider)
	assert.Equal(t, "huggingface", a.provider.Name())

	_, err = NewFromConfig(&config.Config{LLMProvider: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}
