package cli

import (
	"fmt"

	"github.com/jionychiow/cmss/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newSchemaCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect record schemas",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List record variants",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatVariantList(app.Catalog))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show VARIANT",
			Short: "Show the fields of a record variant",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := app.Catalog.Variant(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSchema(v))
				return nil
			},
		},
	)

	return cmd
}
