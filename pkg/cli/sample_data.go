package cli

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/milkyway-analytics/milkyway/pkg/services"
)

func newSampleDataCmd(opts *rootOptions) *cobra.Command {
	var (
		seed uint64
		yes  bool
	)
	cmd := &cobra.Command{
		Use:   "sample-data",
		Short: "Create the sessions.user_activity sample table in the configured warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			target, ok := a.warehouse.(services.SampleTarget)
			if !ok {
				return fmt.Errorf("the %s adapter cannot write tables", a.cfg.Warehouse.Type)
			}

			table := services.SampleDataset + "." + services.SampleTable
			if !yes {
				if !interactive() {
					return fmt.Errorf("refusing to replace %s without --yes", table)
				}
				confirmed := false
				if err := survey.AskOne(&survey.Confirm{
					Message: fmt.Sprintf("Replace %s in the %s warehouse?", table, a.cfg.Warehouse.Type),
				}, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			events := services.GenerateSampleActivity(time.Now(), seed)
			if err := services.LoadSampleActivity(cmd.Context(), target, events, a.logger); err != nil {
				return err
			}

			users := map[string]struct{}{}
			counts := map[string]int{}
			for _, e := range events {
				users[e.UserID] = struct{}{}
				counts[e.EventType]++
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Generated %d events for %d users in %s", len(events), len(users), table)
			t := newTable(out, []string{"Event type", "Events"})
			for _, name := range []string{"view", "login", "logout", "purchase", "signup"} {
				t.Append([]string{name, fmt.Sprint(counts[name])})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", services.SampleSeed, "Generator seed")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Replace the table without asking")
	return cmd
}
