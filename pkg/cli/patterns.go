package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/milkyway-analytics/milkyway/pkg/models"
)

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns [pattern]",
		Short: "List patterns, or the variables of one pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				listPatterns(out)
				return nil
			}
			pattern, err := models.ParsePattern(args[0])
			if err != nil {
				return err
			}
			contract, err := models.Contract(pattern)
			if err != nil {
				return err
			}
			describePattern(out, contract)
			return nil
		},
	}
}

func listPatterns(out io.Writer) {
	table := newTable(out, []string{"Pattern", "Title", "Description"})
	for _, c := range models.Contracts() {
		table.Append([]string{string(c.Pattern), c.Title, c.Description})
	}
	table.Render()
}

func describePattern(out io.Writer, c models.PatternContract) {
	heading.Fprintf(out, "%s (%s)\n", c.Title, c.Pattern)
	fmt.Fprintln(out, c.Description)
	fmt.Fprintln(out)

	table := newTable(out, []string{"Variable", "Label", "Required", "Default", "Example"})
	for _, v := range c.Variables {
		required := ""
		switch {
		case v.Required:
			required = "yes"
		case v.Group != "":
			required = "group: " + v.Group
		}
		table.Append([]string{v.Name, v.Label, required, v.Default, v.Example})
	}
	table.Render()
}
