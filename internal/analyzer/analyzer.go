// Package analyzer runs the RepoLens pipeline: parse the URL, clone the
// repository next to the GitHub metadata lookups, collect signals, score
// them and optionally ask a language model for the summary.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klimeurt/repolens/internal/analysis"
	"github.com/klimeurt/repolens/internal/collector"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/klimeurt/repolens/internal/llm"
	"github.com/klimeurt/repolens/internal/scoring"
	"github.com/klimeurt/repolens/internal/workspace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MetadataSource looks up repository metadata on GitHub
type MetadataSource interface {
	RepoInfo(ctx context.Context, ref collector.RepoRef) (collector.RepoInfo, error)
	CommitCount(ctx context.Context, ref collector.RepoRef) (int, error)
}

// Cloner fetches a repository into a workspace
type Cloner interface {
	Clone(ctx context.Context, url string) (*workspace.Workspace, error)
}

// Analyzer produces reports for repository URLs
type Analyzer struct {
	meta       MetadataSource
	cloner     Cloner
	provider   llm.Provider
	llmTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a new Analyzer. provider may be nil to disable model
// summaries.
func New(cfg *config.Config, meta MetadataSource, cloner Cloner, provider llm.Provider, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		meta:       meta,
		cloner:     cloner,
		provider:   provider,
		llmTimeout: cfg.LLMTimeout,
		logger:     logger.Named("analyzer"),
		now:        time.Now,
	}
}

// NewFromConfig wires the GitHub collector, the cloner and the configured
// summary provider.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Analyzer, error) {
	meta, err := collector.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector: %w", err)
	}

	provider, err := llm.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary provider: %w", err)
	}
	if provider != nil {
		logger.Info("Model summaries enabled", zap.String("provider", provider.Name()))
	}

	return New(cfg, meta, workspace.NewCloner(cfg, logger), provider, logger), nil
}

// Analyze runs the full pipeline for rawURL. The clone is removed as soon
// as the signals are collected, and on every error path.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*Report, error) {
	start := a.now()

	ref, err := collector.ParseRepoURL(rawURL)
	if err != nil {
		return nil, err
	}

	log := a.logger.With(zap.String("repo", ref.String()))
	log.Info("Starting analysis")

	var (
		info       collector.RepoInfo
		infoErr    error
		commits    int
		commitsErr error
		ws         *workspace.Workspace
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, infoErr = a.meta.RepoInfo(gctx, ref)
		return nil
	})
	g.Go(func() error {
		commits, commitsErr = a.meta.CommitCount(gctx, ref)
		return nil
	})
	g.Go(func() error {
		var err error
		ws, err = a.cloner.Clone(gctx, ref.CloneURL())
		return err
	})
	if err := g.Wait(); err != nil {
		if ws != nil {
			a.closeWorkspace(log, ws)
		}
		log.Warn("Analysis failed", zap.Error(err))
		return nil, err
	}

	signals, files, err := analysis.Collect(ws.FS())
	if err != nil {
		a.closeWorkspace(log, ws)
		return nil, fmt.Errorf("failed to collect signals for %s: %w", ref, err)
	}

	var infoPtr *collector.RepoInfo
	if infoErr != nil {
		log.Warn("Repository info unavailable", zap.Error(infoErr))
	} else {
		infoPtr = &info
		signals.Stars = info.Stars
		signals.Language = info.Language
	}
	if commitsErr != nil {
		log.Warn("Commit count unavailable", zap.Error(commitsErr))
	} else {
		signals.Commits = commits
	}
	if signals.Language == "" {
		signals.Language = analysis.DetectLanguage(ws.FS(), files)
	}
	a.closeWorkspace(log, ws)

	feedback := scoring.Evaluate(signals)
	summary, source := a.summarize(ctx, log, llm.Request{Repo: ref, Signals: signals, Feedback: feedback})
	if summary != "" {
		feedback.Summary = summary
	}

	report := &Report{
		ID: uuid.NewString(),
		Repository: Repository{
			Owner: ref.Owner,
			Name:  ref.Name,
			URL:   ref.HTMLURL(),
		},
		Score:         feedback.Score,
		Summary:       feedback.Summary,
		SummarySource: source,
		Roadmap:       feedback.Roadmap,
		Signals:       signals,
		Info:          infoPtr,
		AnalyzedAt:    start.UTC(),
		DurationMS:    a.now().Sub(start).Milliseconds(),
	}

	log.Info("Analysis complete",
		zap.Int("score", report.Score),
		zap.Int("files", signals.Files),
		zap.String("summary_source", source))
	return report, nil
}

// summarize asks the provider once. It returns "" and the heuristic
// source when the provider is disabled, fails or replies with nothing.
func (a *Analyzer) summarize(ctx context.Context, log *zap.Logger, req llm.Request) (string, string) {
	if a.provider == nil {
		return "", SummarySourceHeuristic
	}

	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	text, err := a.provider.Summarize(ctx, req)
	if err != nil {
		log.Warn("Model summary failed, using heuristic summary",
			zap.String("provider", a.provider.Name()),
			zap.Error(err))
		return "", SummarySourceHeuristic
	}
	text = strings.TrimSpace(text)
	if text == "" {
		log.Warn("Model returned an empty summary, using heuristic summary",
			zap.String("provider", a.provider.Name()))
		return "", SummarySourceHeuristic
	}
	return text, a.provider.Name()
}

func (a *Analyzer) closeWorkspace(log *zap.Logger, ws *workspace.Workspace) {
	if err := ws.Close(); err != nil {
		log.Warn("Failed to remove workspace", zap.String("dir", ws.Dir()), zap.Error(err))
	}
}
