package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

const (
	actionCompile = "Compile SQL"
	actionRun     = "Run model"
	actionPrint   = "Print the command and exit"
)

func newConfigureCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactively configure a pattern, then compile or run it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive() {
				return errors.New("configure needs an interactive terminal; use compile or run with --var instead")
			}
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return (&wizard{app: a, out: cmd.OutOrStdout()}).run(cmd.Context())
		},
	}
}

type wizard struct {
	app *app
	out io.Writer
}

func (w *wizard) run(ctx context.Context) error {
	pattern, err := w.askPattern()
	if err != nil {
		return err
	}

	table := ""
	if err := survey.AskOne(&survey.Input{
		Message: "Source table (dataset.table), blank to skip detection:",
		Default: w.defaultTable(),
	}, &table); err != nil {
		return err
	}

	detected, note := detectPrefill(ctx, w.app.schema, pattern, strings.TrimSpace(table))
	if note != "" {
		printWarning(w.out, "%s", note)
	}
	prefill := wizardPrefill(pattern, detected, note != "")

	user, err := w.askVariables(pattern, prefill)
	if err != nil {
		return err
	}

	vars, err := services.Resolve(pattern, user)
	if err != nil {
		return err
	}
	if table != "" {
		if err := w.app.memory.AddRecentTable(table); err != nil {
			w.app.logger.Warn("Failed to persist recent table", zap.Error(err))
		}
	}

	heading.Fprintf(w.out, "\n%s configuration\n", pattern)
	renderVariables(w.out, vars)
	return w.act(ctx, pattern, vars)
}

func (w *wizard) askPattern() (models.Pattern, error) {
	contracts := models.Contracts()
	names := make([]string, len(contracts))
	for i, c := range contracts {
		names[i] = string(c.Pattern)
	}

	var choice string
	err := survey.AskOne(&survey.Select{
		Message: "Pattern:",
		Options: names,
		Description: func(_ string, index int) string {
			return contracts[index].Title
		},
	}, &choice)
	if err != nil {
		return "", err
	}
	return models.ParsePattern(choice)
}

func (w *wizard) defaultTable() string {
	if recent := w.app.memory.Snapshot().RecentTables; len(recent) > 0 {
		return recent[0]
	}
	return services.SampleDataset + "." + services.SampleTable
}

// askVariables prompts for each variable in declared order. Optional groups
// are offered with one yes/no question.
func (w *wizard) askVariables(pattern models.Pattern, prefill models.RawConfig) (models.RawConfig, error) {
	contract, err := models.Contract(pattern)
	if err != nil {
		return nil, err
	}

	answers := models.RawConfig{}
	groups := map[string]bool{}
	for _, v := range contract.Variables {
		if v.Group != "" {
			include, asked := groups[v.Group]
			if !asked {
				if err := survey.AskOne(&survey.Confirm{
					Message: fmt.Sprintf("Configure the optional %s source?", strings.ReplaceAll(v.Group, "_", " ")),
				}, &include); err != nil {
					return nil, err
				}
				groups[v.Group] = include
			}
			if !include {
				continue
			}
		}

		var value string
		current, _ := prefill.Get(v.Name)
		var askOpts []survey.AskOpt
		if v.Required || v.Group != "" {
			askOpts = append(askOpts, survey.WithValidator(survey.Required))
		}
		if err := survey.AskOne(&survey.Input{
			Message: v.Label + ":",
			Default: current,
			Help:    v.Description,
		}, &value, askOpts...); err != nil {
			return nil, err
		}
		answers[v.Name] = value
	}
	return answers, nil
}

func (w *wizard) act(ctx context.Context, pattern models.Pattern, vars models.ResolvedVariables) error {
	var action string
	if err := survey.AskOne(&survey.Select{
		Message: "Next:",
		Options: []string{actionCompile, actionRun, actionPrint},
		Default: actionCompile,
	}, &action); err != nil {
		return err
	}

	switch action {
	case actionCompile:
		compiled, err := w.app.bridge.Compile(ctx, pattern, vars)
		if err != nil {
			return err
		}
		fmt.Fprintln(w.out, compiled)
	case actionRun:
		outcome, err := w.app.bridge.Run(ctx, pattern, vars)
		if err != nil {
			return err
		}
		fmt.Fprint(w.out, outcome.Stdout)
		if !outcome.Success {
			fmt.Fprint(w.out, outcome.Stderr)
			return fmt.Errorf("dbt run failed with exit code %d", outcome.ExitCode)
		}
		printSuccess(w.out, "%s finished", pattern)
	default:
		fmt.Fprintf(w.out, "milkyway run %s %s\n", pattern, varFlags(vars))
	}
	return nil
}

// detectPrefill looks table up and maps the detected columns onto the
// pattern. A non-empty note means detection failed or was partial and the
// user is filling fields by hand.
func detectPrefill(ctx context.Context, schema services.SchemaService, pattern models.Pattern, table string) (models.RawConfig, string) {
	if table == "" {
		return models.RawConfig{}, ""
	}

	ref := models.ParseTableRef(table)
	columns, err := schema.GetSchema(ctx, ref.Dataset, ref.Table)
	if err != nil {
		var lookup *apperrors.SchemaLookupError
		if errors.As(err, &lookup) {
			return models.RawConfig{}, fmt.Sprintf("Couldn't read %s (%s); enter the columns manually.", ref, lookup.Kind)
		}
		return models.RawConfig{}, fmt.Sprintf("Couldn't read %s; enter the columns manually.", ref)
	}

	detected := services.DetectColumns(columns)
	raw := services.DetectedRawConfig(pattern, ref, detected)
	if !detected.Complete() {
		return raw, fmt.Sprintf("Couldn't detect every column of %s; check the suggested values.", ref)
	}
	return raw, ""
}

// wizardPrefill layers declared defaults, manual-entry examples for required
// fields when detection did not succeed, and detected values.
func wizardPrefill(pattern models.Pattern, detected models.RawConfig, manual bool) models.RawConfig {
	examples := models.RawConfig{}
	if manual {
		if contract, err := models.Contract(pattern); err == nil {
			all := models.Examples(pattern)
			for _, name := range contract.RequiredVariables() {
				if v, ok := all.Get(name); ok {
					examples[name] = v
				}
			}
		}
	}
	return models.MergeRawConfig(models.Defaults(pattern), examples, detected)
}
