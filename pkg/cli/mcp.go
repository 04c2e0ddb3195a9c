package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/milkyway-analytics/milkyway/pkg/agent"
	"github.com/milkyway-analytics/milkyway/pkg/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := mcp.NewServer("milkyway", opts.version, agent.NewToolExecutor(a.schema, a.memory, a.logger), a.logger)
			if err != nil {
				return err
			}
			return server.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
