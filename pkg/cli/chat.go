package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/milkyway-analytics/milkyway/pkg/agent"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
)

const chatBanner = `Ask about your warehouse or describe the analysis you want.
Commands: clear (forget the conversation), memory (show what is remembered), exit`

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the analytics assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			orch := a.orchestratorFactory(a.chatClient())()
			return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), orch, a.memory)
		},
	}
}

// chatLoop reads one message per line until EOF or exit.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, orch *agent.Orchestrator, mem *memory.Store) error {
	mode := "LLM"
	if !orch.LLMEnabled() {
		mode = "basic"
	}
	heading.Fprintf(out, "milkyway assistant (%s mode)\n", mode)
	fmt.Fprintln(out, chatBanner)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "clear":
			orch.ClearHistory()
			printSuccess(out, "Conversation cleared")
			continue
		case "memory":
			fmt.Fprintln(out, mem.ContextSummary())
			continue
		}

		reply, err := orch.ProcessMessage(ctx, line)
		if err != nil {
			printError(out, err)
			continue
		}
		printReply(out, reply)
	}
}

func printReply(out io.Writer, reply *agent.Reply) {
	if reply.Degraded && len(reply.ToolResults) == 0 {
		warning.Fprintln(out, "[basic mode]")
	}
	for _, result := range reply.ToolResults {
		status := success.Sprint("ok")
		if !result.Success() {
			status = failure.Sprint("failed")
		}
		fmt.Fprintf(out, "  · %s %s\n", result.Tool, status)
	}
	fmt.Fprintln(out, reply.Text)

	if cfg := reply.SuggestedConfig; cfg != nil {
		fmt.Fprintln(out)
		heading.Fprintf(out, "Suggested %s configuration\n", cfg.Pattern)
		renderVariables(out, cfg.Variables)
		fmt.Fprintf(out, "Run it with: milkyway run %s %s\n", cfg.Pattern, varFlags(cfg.Variables))
	}
}
