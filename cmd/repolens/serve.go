package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/broker"
	"github.com/klimeurt/repolens/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the RepoLens web front-end",
		Long: `Serves the analysis form on LISTEN_ADDR. When NATS_URL is set every
report is also published to REPORT_SUBJECT, and --worker additionally
consumes analysis requests from REQUEST_SUBJECT in the same process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runServe(ctx, withWorker)
		},
	}

	cmd.Flags().BoolVar(&withWorker, "worker", false, "Also run a NATS analysis worker")

	return cmd
}

func runServe(ctx context.Context, withWorker bool) error {
	if withWorker && cfg.NATSUrl == "" {
		return errors.New("--worker requires NATS_URL")
	}

	a, err := analyzer.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	var notifier web.Notifier
	if cfg.NATSUrl != "" {
		publisher, err := broker.NewPublisher(cfg, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		notifier = publisher
		logger.Info("Publishing reports", zap.String("subject", cfg.ReportSubject))
	}

	server, err := web.NewServer(cfg, a, notifier, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	if withWorker {
		worker, err := broker.NewWorker(cfg, a, logger)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		if err := worker.Start(); err != nil {
			worker.Stop()
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			worker.Stop()
			return nil
		})
	}

	return g.Wait()
}
