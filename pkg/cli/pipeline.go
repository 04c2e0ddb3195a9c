package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

type patternFlags struct {
	vars   []string
	detect string
}

func (f *patternFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.vars, "var", nil, "Pattern variable as key=value (repeatable)")
	cmd.Flags().StringVar(&f.detect, "detect", "", "Fill columns by auto-detection on dataset.table")
}

// parseVars reads key=value pairs. Later pairs win.
func parseVars(pairs []string) (models.RawConfig, error) {
	raw := models.RawConfig{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: --var %q must be key=value", apperrors.ErrInvalidRequest, pair)
		}
		raw[key] = value
	}
	return raw, nil
}

func (f *patternFlags) resolve(ctx context.Context, a *app, name string) (models.Pattern, models.ResolvedVariables, error) {
	pattern, err := models.ParsePattern(name)
	if err != nil {
		return "", nil, err
	}
	user, err := parseVars(f.vars)
	if err != nil {
		return "", nil, err
	}
	vars, err := services.ResolveForTable(ctx, a.schema, pattern, f.detect, user)
	if err != nil {
		return "", nil, err
	}
	return pattern, vars, nil
}

func newCompileCmd(opts *rootOptions) *cobra.Command {
	var flags patternFlags
	cmd := &cobra.Command{
		Use:   "compile <pattern>",
		Short: "Resolve a pattern's variables and print the compiled SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			pattern, vars, err := flags.resolve(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			compiled, err := a.bridge.Compile(cmd.Context(), pattern, vars)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), compiled)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flags patternFlags
	cmd := &cobra.Command{
		Use:   "run <pattern>",
		Short: "Resolve a pattern's variables and run its dbt model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			pattern, vars, err := flags.resolve(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading.Fprintf(out, "Running %s\n", pattern)
			renderVariables(out, vars)

			outcome, err := a.bridge.Run(cmd.Context(), pattern, vars)
			if err != nil {
				return err
			}
			fmt.Fprint(out, outcome.Stdout)
			if !outcome.Success {
				fmt.Fprint(cmd.ErrOrStderr(), outcome.Stderr)
				a.logger.Debug("dbt run failed", zap.Int("exit_code", outcome.ExitCode))
				return fmt.Errorf("dbt run failed with exit code %d", outcome.ExitCode)
			}
			printSuccess(out, "%s finished in %s", pattern, outcome.Duration.Round(time.Millisecond))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
