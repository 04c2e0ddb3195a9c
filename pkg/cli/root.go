// Package cli implements the milkyway command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/milkyway-analytics/milkyway/pkg/config"
)

// rootOptions carries persistent flags and build info to the subcommands.
type rootOptions struct {
	configPath string
	version    string
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	root := &cobra.Command{
		Use:           "milkyway",
		Short:         "Configure and run pre-built dbt analytics patterns",
		Long:          "milkyway turns a warehouse table into growth accounting, retention and cumulative models through a web UI, a CLI and a chat assistant.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath,
		`Config file (use "" to read the environment only)`)

	root.AddCommand(
		newServeCmd(opts),
		newCompileCmd(opts),
		newRunCmd(opts),
		newPreviewCmd(opts),
		newQueryCmd(opts),
		newChatCmd(opts),
		newConfigureCmd(opts),
		newAuthCmd(opts),
		newMCPCmd(opts),
		newPatternsCmd(),
		newSampleDataCmd(opts),
	)
	return root
}

// Execute runs the CLI and reports a failure on stderr.
func Execute(version string) error {
	root := NewRootCmd(version)
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return err
}
