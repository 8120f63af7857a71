package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholhewres/nene/pkg/nene/bot"
	"github.com/jholhewres/nene/pkg/nene/channels/line"
)

// newServeCmd creates the `nene serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the responder daemon",
		Long: `Start nene as a daemon: the LINE webhook server, the message
processing loop, and the daily broadcast scheduler.

Examples:
  nene serve
  nene serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)

	// Resolve from keyring → env → config.
	bot.ResolveSecrets(cfg, logger)

	b, err := bot.New(cfg, bot.Capabilities{}, logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LINE is the core channel.
	lineCh := line.New(cfg.Channels.Line, logger)
	if err := b.ChannelManager().Register(lineCh); err != nil {
		return fmt.Errorf("failed to register LINE channel: %w", err)
	}

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	logger.Info("nene running. Press Ctrl+C to stop.",
		"name", cfg.Name,
		"webhook", cfg.Channels.Line.WebhookPath,
		"slots", len(cfg.Slots),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	// Graceful shutdown with timeout.
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out, exiting anyway")
	}

	return nil
}
