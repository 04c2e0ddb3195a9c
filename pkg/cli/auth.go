package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/milkyway-analytics/milkyway/pkg/config"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage LLM API keys in the OS keyring",
	}

	var provider string
	setKey := &cobra.Command{
		Use:   "set-key",
		Short: "Store an API key (prompted, or read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(cmd.InOrStdin(), provider)
			if err != nil {
				return err
			}
			if err := config.SetLLMKey(provider, key); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Stored %s key in the %q keyring", provider, config.KeyringService)
			return nil
		},
	}

	deleteKey := &cobra.Command{
		Use:   "delete-key",
		Short: "Remove a stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteLLMKey(provider); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Removed %s key", provider)
			return nil
		},
	}

	for _, sub := range []*cobra.Command{setKey, deleteKey} {
		sub.Flags().StringVarP(&provider, "provider", "p", "anthropic", "LLM provider: anthropic or openai")
		sub.PreRunE = func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(strings.TrimSpace(provider))
			if provider != "anthropic" && provider != "openai" {
				return fmt.Errorf("unknown provider %q: must be anthropic or openai", provider)
			}
			return nil
		}
	}

	cmd.AddCommand(setKey, deleteKey)
	return cmd
}

// readKey prompts on a terminal and reads the first line of in otherwise.
func readKey(in io.Reader, provider string) (string, error) {
	var key string
	if interactive() {
		if err := survey.AskOne(&survey.Password{
			Message: fmt.Sprintf("%s API key:", provider),
		}, &key, survey.WithValidator(survey.Required)); err != nil {
			return "", err
		}
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		key = line
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("no key given")
	}
	return key, nil
}
