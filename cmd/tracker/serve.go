package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-holder-tracker/internal/api"
	"solana-holder-tracker/internal/ingestion"
	"solana-holder-tracker/internal/solana"
)

// forceExitAfter bounds graceful shutdown after the first signal.
const forceExitAfter = 30 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh scheduler, monitor, live feed and HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(parent context.Context) error {
	logger := c.logger.Named("server")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	done := make(chan struct{})
	defer close(done)
	go handleSignals(logger, cancel, done)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.orchestrator.Run(gctx)
	})

	if c.cfg.LiveFeed.Enabled {
		g.Go(func() error {
			c.runLiveFeed(gctx, a)
			return nil
		})
	}

	srv := &http.Server{
		Addr:              c.cfg.HTTP.Addr,
		Handler:           api.NewServer(a.orchestrator, c.logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// runLiveFeed keeps the log subscription alive until ctx is done. A closed
// subscription is re-established after a pause.
func (c *cli) runLiveFeed(ctx context.Context, a *app) {
	logger := c.logger.Named("livefeed")

	ws, err := solana.NewWSClient(ctx, c.cfg.RPC.WSEndpoint, nil, c.logger)
	if err != nil {
		logger.Error("websocket connect failed, live feed disabled", zap.Error(err))
		return
	}
	defer ws.Close()

	feed := ingestion.NewLiveFeed(ingestion.LiveFeedOptions{
		WS:       ws,
		Gateway:  a.gateway,
		Recorder: a.recorder,
		Mint:     c.cfg.Mint,
		Workers:  c.cfg.LiveFeed.Workers,
		Logger:   c.logger,
	})

	for {
		err := feed.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("live feed stopped, resubscribing", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// handleSignals cancels on SIGINT or SIGTERM. A second signal, or a
// shutdown that outlasts forceExitAfter, exits immediately.
func handleSignals(logger *zap.Logger, cancel context.CancelFunc, done <-chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()
	case <-done:
		return
	}

	select {
	case sig := <-sigCh:
		logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
		os.Exit(1)
	case <-time.After(forceExitAfter):
		logger.Warn("graceful shutdown timed out, forcing exit", zap.Duration("after", forceExitAfter))
		os.Exit(1)
	case <-done:
	}
}
