package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jionychiow/cmss/internal/cli/formatter"
	"github.com/jionychiow/cmss/internal/service"
	"github.com/jionychiow/cmss/internal/spreadsheet"
	"github.com/spf13/cobra"
)

func newSheetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Spreadsheet templates, imports and exports",
	}

	cmd.AddCommand(
		newSheetTemplateCmd(app),
		newSheetImportCmd(app),
		newSheetExportCmd(app),
	)

	return cmd
}

func newSheetTemplateCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template VARIANT",
		Short: "Write an empty import template for a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.Templates.Template(args[0])
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = args[0] + "_template.xlsx"
			}
			return writeWorkbook(cmd, path, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: VARIANT_template.xlsx)")

	return cmd
}

func newSheetImportCmd(app *App) *cobra.Command {
	var scope scopeFlags

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a workbook and upload its valid rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Checked before the backend is contacted.
			if err := spreadsheet.CheckExtension(args[0]); err != nil {
				return err
			}
			s, err := app.begin(cmd)
			if err != nil {
				return err
			}
			v, err := scope.resolve(app, s.actor)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening workbook: %w", err)
			}
			defer f.Close()

			stop := app.spin(cmd.ErrOrStderr(), "Importing "+filepath.Base(args[0]))
			result, err := app.Import.Import(cmd.Context(), service.ImportRequest{
				Variant:   v.Code,
				Filename:  filepath.Base(args[0]),
				Body:      f,
				Phase:     scope.phase,
				ShiftType: scope.shift,
				Actor:     s.actor,
			})
			stop()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatImportResult(result))
			if !result.Uploaded {
				return errors.New("no rows were imported")
			}
			return nil
		},
	}

	scope.register(cmd)

	return cmd
}

func newSheetExportCmd(app *App) *cobra.Command {
	var scope scopeFlags
	var output string
	month := &monthValue{month: "all"}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download records as a workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.begin(cmd)
			if err != nil {
				return err
			}
			v, err := scope.resolve(app, s.actor)
			if err != nil {
				return err
			}

			stop := app.spin(cmd.ErrOrStderr(), "Exporting "+v.Name)
			data, err := app.Export.Export(cmd.Context(), service.ExportRequest{
				Variant:   v.Code,
				Filter:    spreadsheet.ExportFilter{PhaseCode: scope.phase, Month: month.String()},
				ShiftType: scope.shift,
				Actor:     s.actor,
			})
			stop()
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = fmt.Sprintf("%s_%s.xlsx", v.Code, month)
			}
			return writeWorkbook(cmd, path, data)
		},
	}

	scope.register(cmd)
	cmd.Flags().Var(month, "month", "Month as YYYY-MM, or all")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: VARIANT_MONTH.xlsx)")

	return cmd
}

func writeWorkbook(cmd *cobra.Command, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
		formatter.StyleGreen.Render("✔"), path, formatter.Dim(fmt.Sprintf("(%d bytes)", len(data))))
	return nil
}
