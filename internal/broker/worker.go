package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// QueueGroup lets several workers share the request subject
const QueueGroup = "repolens-workers"

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) (*analyzer.Report, error)
}

// Worker is the NATS analysis service
type Worker struct {
	config    *config.Config
	analyzer  Analyzer
	publisher *Publisher
	nc        *nats.Conn
	sub       *nats.Subscription
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	stopping  bool
	stopOnce  sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(cfg *config.Config, a Analyzer, logger *zap.Logger) (*Worker, error) {
	nc, err := Connect(cfg, "repolens-worker")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		config:    cfg,
		analyzer:  a,
		publisher: newPublisher(cfg, nc, logger),
		nc:        nc,
		logger:    logger.Named("worker"),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start subscribes to the request subject
func (w *Worker) Start() error {
	w.logger.Info("Starting worker service",
		zap.String("request_subject", w.config.RequestSubject),
		zap.String("report_subject", w.config.ReportSubject))

	sub, err := w.nc.QueueSubscribe(w.config.RequestSubject, QueueGroup, func(msg *nats.Msg) {
		w.mu.Lock()
		if w.stopping {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()

		go func() {
			defer w.wg.Done()

			if err := w.ProcessMessage(w.ctx, msg); err != nil {
				w.logger.Error("Error processing message", zap.Error(err))
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.config.RequestSubject, err)
	}
	if err := w.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to flush subscription: %w", err)
	}

	w.sub = sub
	w.logger.Info("Worker service started successfully")
	return nil
}

// ProcessMessage analyzes the requested repository and publishes the
// report. A failed analysis still publishes a report carrying the error.
func (w *Worker) ProcessMessage(ctx context.Context, msg *nats.Msg) error {
	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return fmt.Errorf("failed to unmarshal request message: %w", err)
	}

	log := w.logger.With(zap.String("repo_url", req.RepoURL))
	log.Info("Processing analysis request")

	if w.config.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.AnalyzeTimeout)
		defer cancel()
	}

	report, err := w.analyzer.Analyze(ctx, req.RepoURL)
	if err != nil {
		log.Warn("Analysis failed", zap.Error(err))
		report = analyzer.FailedReport(req.RepoURL, err)
	}

	// The request context may already be spent by a slow analysis
	pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.publisher.PublishReport(pubCtx, report); err != nil {
		return fmt.Errorf("failed to publish report for %s: %w", req.RepoURL, err)
	}
	return nil
}

// Stop gracefully shuts down the worker service
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker service")

		w.mu.Lock()
		w.stopping = true
		w.mu.Unlock()

		// Cancel in-flight analyses; they still publish a failed report
		// before the connection closes.
		w.cancel()

		if w.sub != nil {
			if err := w.sub.Unsubscribe(); err != nil {
				w.logger.Warn("Failed to unsubscribe", zap.Error(err))
			}
		}

		w.wg.Wait()

		if w.nc != nil {
			w.nc.Close()
		}

		w.logger.Info("Worker service stopped")
	})
}

// Wait blocks until the service is stopped
func (w *Worker) Wait() {
	<-w.ctx.Done()
}
