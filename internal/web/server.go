// Package web serves the RepoLens form, result pages and JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/config"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"index", "result", "error"}

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) (*analyzer.Report, error)
}

// Notifier receives every report the server produces
type Notifier interface {
	PublishReport(ctx context.Context, report *analyzer.Report) error
}

// Server is the HTTP front-end
type Server struct {
	config    *config.Config
	analyzer  Analyzer
	notifier  Notifier
	templates map[string]*template.Template
	logger    *zap.Logger
}

// NewServer creates a new Server. notifier may be nil.
func NewServer(cfg *config.Config, a Analyzer, notifier Notifier, logger *zap.Logger) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		config:    cfg,
		analyzer:  a,
		notifier:  notifier,
		templates: templates,
		logger:    logger.Named("web"),
	}, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout template: %w", err)
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout template: %w", err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+page+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}

// Handler returns the routed handler with request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/analyze", s.handleAPIAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// ListenAndServe serves on cfg.ListenAddr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("RepoLens listening", zap.String("addr", s.config.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// analyze runs one bounded analysis and forwards the report to the
// notifier. Notification failures are logged only.
func (s *Server) analyze(ctx context.Context, rawURL string) (*analyzer.Report, error) {
	if s.config.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.AnalyzeTimeout)
		defer cancel()
	}

	report, err := s.analyzer.Analyze(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.PublishReport(notifyCtx, report); err != nil {
			s.logger.Warn("Failed to publish report", zap.String("id", report.ID), zap.Error(err))
		}
	}
	return report, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
