package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jholhewres/nene/pkg/nene/bot"
)

// newChatCmd creates the `nene chat` command for testing the responder
// pipeline locally, without any channel attached.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message through the responder pipeline",
		Long: `Run a single message through route → synthesize and print the
reply. Useful for tuning the reply table and persona without LINE.

Examples:
  nene chat "สวัสดีครับ"
  nene chat --model gpt-4o "ร้านเปิดกี่โมง"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runChat,
	}

	cmd.Flags().StringP("model", "m", "", "override the LLM model")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model = model
	}

	logger := newLogger(cmd, cfg)
	bot.ResolveSecrets(cfg, logger)

	if cfg.API.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (nene config set-key, or NENE_API_KEY)")
	}

	b, err := bot.New(cfg, bot.Capabilities{}, logger)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	reply := b.Respond(context.Background(), strings.Join(args, " "))
	fmt.Println(reply)
	return nil
}
