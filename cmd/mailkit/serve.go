package main

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shineum/mailkit-lite/internal/config"
	"github.com/shineum/mailkit-lite/internal/pop3"
	"github.com/shineum/mailkit-lite/internal/statusapi"
)

// serve runs the POP3 server, and the status API when enabled, until ctx is
// cancelled or either server fails.
func serve(ctx context.Context, cfg *config.Config) error {
	server := pop3.NewServer(pop3.ServerConfig{
		ListenAddr: cfg.POP3.Listen,
		MailDir:    cfg.POP3.MailDir,
	})

	slog.Info("starting mailkit",
		"pop3_listen", cfg.POP3.Listen,
		"mail_dir", cfg.POP3.MailDir,
		"metrics_listen", cfg.Metrics.Listen,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})

	if cfg.MetricsEnabled() {
		status := statusapi.New(cfg.Metrics.Listen, func(context.Context) error {
			if server.Addr() == "" {
				return errors.New("pop3 server not listening")
			}
			return nil
		})
		g.Go(func() error {
			return status.ListenAndServe(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("mailkit stopped")
	return nil
}
