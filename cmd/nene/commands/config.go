package commands

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jholhewres/nene/pkg/nene/bot"
)

// newConfigCmd creates the `nene config` command group for managing
// credentials in the OS keyring.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and credentials",
	}

	cmd.AddCommand(
		newSetKeyCmd(),
		newSetLineCmd(),
		newClearKeysCmd(),
	)
	return cmd
}

func newSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the LLM API key in the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			key, err := readSecret("API key: ")
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("empty key")
			}

			if err := bot.StoreKeyring(bot.KeyAPIKey, key); err != nil {
				return err
			}
			fmt.Println("API key stored in OS keyring.")
			return nil
		},
	}
}

func newSetLineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-line",
		Short: "Store the LINE channel token and secret in the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			token, err := readSecret("LINE channel access token: ")
			if err != nil {
				return err
			}
			secret, err := readSecret("LINE channel secret: ")
			if err != nil {
				return err
			}

			if token != "" {
				if err := bot.StoreKeyring(bot.KeyLineToken, token); err != nil {
					return err
				}
			}
			if secret != "" {
				if err := bot.StoreKeyring(bot.KeyLineSecret, secret); err != nil {
					return err
				}
			}
			fmt.Println("LINE credentials stored in OS keyring.")
			return nil
		},
	}
}

func newClearKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-keys",
		Short: "Remove all stored credentials from the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, key := range []string{bot.KeyAPIKey, bot.KeyLineToken, bot.KeyLineSecret} {
				// Missing entries are fine; only report real keyring failures.
				if err := bot.DeleteKeyring(key); err != nil && !strings.Contains(err.Error(), "not found") {
					fmt.Fprintf(os.Stderr, "warning: %s: %v\n", key, err)
				}
			}
			fmt.Println("Stored credentials cleared.")
			return nil
		},
	}
}

// readSecret prompts for a secret without echoing it.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
