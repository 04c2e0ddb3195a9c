package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/models"
)

// rowLimit caps a requested limit at the configured preview limit. Zero
// means the cap itself.
func rowLimit(requested, ceiling int) int {
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "preview <dataset.table>",
		Short: "Show the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ref := models.ParseTableRef(args[0])
			result, err := a.schema.Preview(cmd.Context(), ref.Dataset, ref.Table,
				rowLimit(limit, a.cfg.Warehouse.PreviewLimit))
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum rows")
	return cmd
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <sql | ->",
		Short: "Run a read-only query, from the argument or stdin with -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlText, err := readQuery(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.schema.Query(cmd.Context(), sqlText, rowLimit(limit, a.cfg.Warehouse.PreviewLimit))
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum rows (default: warehouse.preview_limit)")
	return cmd
}

func readQuery(stdin io.Reader, arg string) (string, error) {
	text := arg
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: query is empty", apperrors.ErrInvalidRequest)
	}
	return text, nil
}
