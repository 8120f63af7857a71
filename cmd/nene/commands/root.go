// Package commands implements the nene CLI commands using cobra.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jholhewres/nene/pkg/nene/bot"
)

// NewRootCmd creates the CLI root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nene",
		Short: "Nene - LINE persona auto-responder",
		Long: `Nene is an automated LINE responder with a fixed persona: inbound
messages are routed to an intent group and answered with freshly generated
text, and daily broadcast slots push a new message to everyone who has
talked to the bot.

Examples:
  nene serve
  nene chat "ร้านเปิดกี่โมงคะ"
  nene config set-key`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// resolveConfig loads the configuration from --config, a standard location,
// or built-in defaults.
func resolveConfig(cmd *cobra.Command) (*bot.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path == "" {
		path = bot.FindConfigFile()
	}
	if path == "" {
		return bot.DefaultConfig(), nil
	}

	cfg, err := bot.LoadConfigFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	return cfg, nil
}

// newLogger builds the slog logger from config and the --verbose flag.
func newLogger(cmd *cobra.Command, cfg *bot.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}
