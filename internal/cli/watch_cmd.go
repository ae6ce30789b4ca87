package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/worker"
)

type watchOptions struct {
	scopes          []string
	warm            int
	maxAge          time.Duration
	refreshInterval time.Duration
	cleanupInterval time.Duration
	shutdownTimeout time.Duration
}

func newWatchCmd(app *App) *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep loaded scopes fresh from other sessions' mutation events",
		Long: "Loads the given scopes, then refetches them whenever another session reports a\n" +
			"successful mutation over AMQP. Scopes not refreshed within --max-age are reloaded\n" +
			"periodically. Serves /metrics when METRICS_ADDR is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, app, opts)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.scopes, "scope", nil, "scope key to load, e.g. projects/client/42 (repeatable)")
	f.IntVar(&opts.warm, "warm", 10, "reload this many recently used scopes at startup (0 disables)")
	f.DurationVar(&opts.maxAge, "max-age", 15*time.Minute, "refetch loaded scopes older than this")
	f.DurationVar(&opts.refreshInterval, "refresh-interval", time.Minute, "how often to look for stale scopes")
	f.DurationVar(&opts.cleanupInterval, "cleanup-interval", 5*time.Minute, "how often expired state is purged")
	f.DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period on shutdown")
	return cmd
}

func runWatch(cmd *cobra.Command, app *App, opts watchOptions) error {
	logger := app.Logger.WithComponent(log.ComponentWorker)

	parent, cancel := context.WithCancel(cmd.Context())
	ctx, done := GracefulShutdown(parent, logger, opts.shutdownTimeout, nil)
	defer func() { <-done }()
	defer cancel()

	scopes := make([]core.Scope, 0, len(opts.scopes))
	for _, key := range opts.scopes {
		scope, err := core.ParseScopeKey(key)
		if err != nil {
			return fmt.Errorf("invalid --scope %q: %w", key, err)
		}
		scopes = append(scopes, scope)
	}

	w := worker.NewEventWorker(app.State, app.Syncer, app.Ledger, app.Metrics, app.SessionID, logger)

	if opts.warm > 0 {
		if _, err := w.Warm(ctx, opts.warm); err != nil {
			logger.Warn("Startup warm-up failed", log.FieldError, err.Error())
		}
	}
	if len(scopes) > 0 {
		if err := app.Syncer.LoadAll(ctx, scopes...); err != nil {
			return userError("load scopes", err)
		}
	}

	app.Cache.StartCleanup(ctx, opts.cleanupInterval)

	g, gctx := errgroup.WithContext(ctx)
	if addr := app.Config.MetricsAddr; addr != "" {
		g.Go(func() error {
			return app.Metrics.Serve(gctx, addr, logger)
		})
	}
	if app.AMQP != nil {
		g.Go(func() error {
			return app.AMQP.ConsumeMutations(gctx, w.HandleMutation)
		})
	} else {
		logger.Info("AMQP not configured, relying on periodic refresh only")
	}
	g.Go(func() error {
		ticker := time.NewTicker(opts.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.RefreshStale(gctx, opts.maxAge); err != nil {
					logger.Error("Stale refresh failed", log.FieldError, err.Error())
				}
			}
		}
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Watching (session %s). Press Ctrl+C to stop.\n", app.SessionID)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
