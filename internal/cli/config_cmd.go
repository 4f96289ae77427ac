package cli

import (
	"fmt"

	"github.com/jionychiow/cmss/internal/cli/formatter"
	"github.com/jionychiow/cmss/internal/hierarchy"
	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the plant configuration data",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	var phase, line string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show phases, production lines, processes and shift types",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.begin(cmd)
			if err != nil {
				return err
			}

			sel := hierarchy.Selection{Phase: phase}
			lines := sel.ProductionLineOptions(s.data)
			if line != "" {
				sel.ProductionLine = line
				if err := sel.Validate(s.data); err != nil {
					return err
				}
				lines = filterOptions(lines, line)
				if len(lines) == 0 {
					return fmt.Errorf("unknown production line %q", line)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", formatter.StatePill(app.Registry.State()), formatter.Dim(actorSummary(s)))
			fmt.Fprintln(out, formatter.FormatReferenceData(s.data, lines))
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "Only list production lines of this phase code")
	cmd.Flags().StringVar(&line, "line", "", "Only list this production line code")

	return cmd
}

func filterOptions(opts []hierarchy.Option, code string) []hierarchy.Option {
	var out []hierarchy.Option
	for _, o := range opts {
		if o.Code == code {
			out = append(out, o)
		}
	}
	return out
}

func actorSummary(s *session) string {
	if s.actor == nil {
		return "anonymous"
	}
	role := string(s.actor.Type)
	if s.actor.IsAdmin() {
		return fmt.Sprintf("%s (%s)", s.actor.Username, role)
	}
	return fmt.Sprintf("%s (%s, %s / %s)", s.actor.Username, role,
		s.actor.EffectivePhase(""), s.actor.EffectiveShiftType(""))
}
