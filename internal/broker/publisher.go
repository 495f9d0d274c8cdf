// Package broker moves analysis requests and reports over NATS.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Request asks a worker to analyze one repository
type Request struct {
	RepoURL     string    `json:"repo_url"`
	RequestedAt time.Time `json:"requested_at"`
}

// Publisher sends requests and reports to their subjects
type Publisher struct {
	nc             *nats.Conn
	requestSubject string
	reportSubject  string
	logger         *zap.Logger
}

// Connect opens a NATS connection for cfg.NATSUrl
func Connect(cfg *config.Config, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.NATSUrl, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NewPublisher creates a new Publisher with its own connection
func NewPublisher(cfg *config.Config, logger *zap.Logger) (*Publisher, error) {
	nc, err := Connect(cfg, "repolens-publisher")
	if err != nil {
		return nil, err
	}
	return newPublisher(cfg, nc, logger), nil
}

func newPublisher(cfg *config.Config, nc *nats.Conn, logger *zap.Logger) *Publisher {
	return &Publisher{
		nc:             nc,
		requestSubject: cfg.RequestSubject,
		reportSubject:  cfg.ReportSubject,
		logger:         logger.Named("publisher"),
	}
}

// PublishRequest queues an analysis of req.RepoURL
func (p *Publisher) PublishRequest(ctx context.Context, req Request) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if err := p.publish(ctx, p.requestSubject, req); err != nil {
		return err
	}

	p.logger.Debug("Published analysis request", zap.String("repo_url", req.RepoURL))
	return nil
}

// PublishReport sends a finished report
func (p *Publisher) PublishReport(ctx context.Context, report *analyzer.Report) error {
	if err := p.publish(ctx, p.reportSubject, report); err != nil {
		return err
	}

	p.logger.Debug("Published report",
		zap.String("id", report.ID),
		zap.String("repo", report.Repository.URL))
	return nil
}

func (p *Publisher) publish(ctx context.Context, subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return p.flush(ctx)
}

// flush waits for the server to acknowledge buffered messages. nats.go
// rejects contexts without a deadline, so those use the default timeout.
func (p *Publisher) flush(ctx context.Context) error {
	var err error
	if _, ok := ctx.Deadline(); ok {
		err = p.nc.FlushWithContext(ctx)
	} else {
		err = p.nc.Flush()
	}
	if err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
