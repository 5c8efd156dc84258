package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/foodrescue/foodrescue/internal/app"
	"github.com/foodrescue/foodrescue/internal/config"
	"github.com/foodrescue/foodrescue/internal/logger"
	"github.com/spf13/cobra"
)

func DigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Send the daily digest email to every user now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Scheduler.RunDigest(ctx)
				if err != nil {
					return fmt.Errorf("digest failed: %w", err)
				}
				fmt.Printf("digest: %d sent, %d failed\n", res.Sent, res.Failed)
				return nil
			})
		},
	}
}

func SweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire open posts whose pickup window has ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.ExpiryService.Sweep(ctx)
				if err != nil {
					return fmt.Errorf("sweep failed: %w", err)
				}
				fmt.Printf("sweep: %d posts expired\n", n)
				return nil
			})
		},
	}
}

func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(logger.Options{
		Development: cfg.IsDevelopment(),
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.AppEnv,
		Service:     "foodrescue-do",
	})
	return cfg
}

// withApp builds the full app, runs fn, then tears everything down.
func withApp(parent context.Context, fn func(ctx context.Context, a *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	defer logger.Flush()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		closeErr := a.Close(closeCtx)
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}
