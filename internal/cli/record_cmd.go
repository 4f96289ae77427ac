package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jionychiow/cmss/internal/cli/formatter"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/hierarchy"
	"github.com/jionychiow/cmss/internal/implementer"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/service"
	"github.com/spf13/cobra"
)

// scopeFlags are the variant and phase/shift flags shared by record and
// sheet commands.
type scopeFlags struct {
	variant string
	phase   string
	shift   string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.variant, "variant", "", "Record variant (default: the effective shift type)")
	cmd.Flags().StringVar(&f.phase, "phase", "", "Phase code (non-admin users are pinned to their own)")
	cmd.Flags().StringVar(&f.shift, "shift", "", "Shift type code (non-admin users are pinned to their own)")
}

// resolve returns the variant to act on. Without --variant the shift record
// variant of the effective shift type is used.
func (f *scopeFlags) resolve(app *App, actor *domain.UserProfile) (*schema.Variant, error) {
	code := f.variant
	if code == "" {
		code = actor.EffectiveShiftType(f.shift)
	}
	return app.Catalog.Variant(code)
}

func (f *scopeFlags) filter(actor *domain.UserProfile) service.Filter {
	return service.Filter{Phase: f.phase, ShiftType: f.shift, Actor: actor}
}

func newRecordCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "List, add, edit and delete records",
	}

	cmd.AddCommand(
		newRecordListCmd(app),
		newRecordAddCmd(app),
		newRecordEditCmd(app),
		newRecordDeleteCmd(app),
	)

	return cmd
}

func newRecordListCmd(app *App) *cobra.Command {
	var scope scopeFlags
	var search, line, process string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records of a variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.begin(cmd)
			if err != nil {
				return err
			}
			v, err := scope.resolve(app, s.actor)
			if err != nil {
				return err
			}

			filter := scope.filter(s.actor)
			filter.Search = search
			filter.ProductionLine = line
			filter.Process = process
			records, err := app.Records.List(cmd.Context(), v.Code, filter)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatRecordTable(v.Name, app.view(), records, v.Fields, projection.DefaultLayout()))
			return nil
		},
	}

	scope.register(cmd)
	cmd.Flags().StringVar(&search, "search", "", "Only show records containing this text")
	cmd.Flags().StringVar(&line, "line", "", "Only show records on this production line (must belong to the phase)")
	cmd.Flags().StringVar(&process, "process", "", "Only show records of this process")

	return cmd
}

func newRecordAddCmd(app *App) *cobra.Command {
	var scope scopeFlags
	var implementers []string
	sets := newSetValue()

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record",
		Long: "Create a record. On a terminal a form built from the variant's schema is shown,\n" +
			"seeded with any --set values; otherwise the record is taken from the flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.begin(cmd)
			if err != nil {
				return err
			}
			if !s.actor.CanAddRecords() {
				return fmt.Errorf("adding records: %w", service.ErrPermissionDenied)
			}
			v, err := scope.resolve(app, s.actor)
			if err != nil {
				return err
			}
			fields, err := app.Catalog.FormFieldsFor(v.Code)
			if err != nil {
				return err
			}

			seed := projection.InitialValues(fields, projection.Defaults{
				Phase:       s.actor.EffectivePhase(scope.phase),
				ShiftType:   s.actor.EffectiveShiftType(scope.shift),
				Implementer: s.actor.Username,
				Now:         app.now(),
			})
			merge(seed, sets.values)
			setImplementers(seed, v, implementers)

			r, err := app.fill(cmd, s, v, seed)
			if err != nil {
				return err
			}

			created, err := app.Records.Create(cmd.Context(), v.Code, r, s.actor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatRecord("Created "+v.Name, app.view(), created, v.Fields))
			return nil
		},
	}

	scope.register(cmd)
	cmd.Flags().Var(sets, "set", "Field value as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&implementers, "implementer", nil, "Additional implementers (you are always first)")

	return cmd
}

func newRecordEditCmd(app *App) *cobra.Command {
	var scope scopeFlags
	var implementers []string
	sets := newSetValue()

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.begin(cmd)
			if err != nil {
				return err
			}
			if !s.actor.CanEditRecords() {
				return fmt.Errorf("editing records: %w", service.ErrPermissionDenied)
			}
			v, err := scope.resolve(app, s.actor)
			if err != nil {
				return err
			}

			current, err := app.find(cmd, v, args[0], scope.filter(s.actor))
			if err != nil {
				return err
			}
			merge(current, sets.values)
			setImplementers(current, v, implementers)
			projection.ApplyDerived(current)

			r := current
			if len(sets.values) == 0 && len(implementers) == 0 {
				if r, err = app.fill(cmd, s, v, current); err != nil {
					return err
				}
			}

			updated, err := app.Records.Update(cmd.Context(), v.Code, args[0], r, s.actor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatRecord("Updated "+v.Name, app.view(), updated, v.Fields))
			return nil
		},
	}

	scope.register(cmd)
	cmd.Flags().Var(sets, "set", "Field value as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&implementers, "implementer", nil, "Replace the implementers (you are always first)")

	return cmd
}

func newRecordDeleteCmd(app *App) *cobra.Command {
	var scope scopeFlags
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete one or more records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.begin(cmd)
			if err != nil {
				return err
			}
			if !s.actor.CanDeleteRecords() {
				return fmt.Errorf("deleting records: %w", service.ErrPermissionDenied)
			}
			v, err := scope.resolve(app, s.actor)
			if err != nil {
				return err
			}

			if !yes {
				if !app.interactive() {
					return errors.New("refusing to delete without --yes outside a terminal")
				}
				var ok bool
				form := confirmDelete(v.Name, args, &ok).WithInput(cmd.InOrStdin()).WithOutput(cmd.ErrOrStderr())
				if err := form.RunWithContext(cmd.Context()); err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Nothing deleted."))
					return nil
				}
			}

			stop := app.spin(cmd.ErrOrStderr(), fmt.Sprintf("Deleting %d record(s)", len(args)))
			result, err := app.Records.DeleteBatch(cmd.Context(), v.Code, args, scope.filter(s.actor))
			stop()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatBatchResult(result))
			if len(result.Failed) > 0 {
				return fmt.Errorf("%d of %d deletes failed", len(result.Failed), len(result.Failed)+len(result.Succeeded))
			}
			return nil
		},
	}

	scope.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")

	return cmd
}

// fill shows the record form on a terminal and returns the record it
// produced. Outside a terminal seed is returned as is.
func (a *App) fill(cmd *cobra.Command, s *session, v *schema.Variant, seed domain.Record) (domain.Record, error) {
	if !a.interactive() {
		return seed, nil
	}
	form, rf, err := newRecordForm(formInput{
		catalog:     a.Catalog,
		variant:     v,
		seed:        seed,
		data:        s.data,
		users:       a.users(cmd),
		currentUser: s.actor.Username,
	})
	if err != nil {
		return nil, err
	}
	form = form.WithInput(cmd.InOrStdin()).WithOutput(cmd.ErrOrStderr())
	if err := form.RunWithContext(cmd.Context()); err != nil {
		return nil, err
	}
	return rf.record(), nil
}

// find returns the record with id from the list the filter selects.
func (a *App) find(cmd *cobra.Command, v *schema.Variant, id string, filter service.Filter) (domain.Record, error) {
	records, err := a.Records.List(cmd.Context(), v.Code, filter)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Identifier() == id {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%s record %s not found", v.Code, id)
}

// merge writes src over dst. Phase, line and process are applied first and
// in that order through hierarchy.Selection, so a new phase clears a line
// and process that --set does not name again.
func merge(dst, src domain.Record) {
	sel := hierarchy.SelectionFrom(dst)
	touched := false
	for _, key := range cascadeKeys {
		if val, ok := src[key]; ok {
			sel = sel.Set(hierarchy.Field(key), val)
			touched = true
		}
	}
	if touched {
		sel.Apply(dst)
	}
	for k, val := range src {
		if !slices.Contains(cascadeKeys, k) {
			dst.Set(k, val)
		}
	}
}

// setImplementers writes names into every implementer field of v. The
// acting user is put first by the record service.
func setImplementers(r domain.Record, v *schema.Variant, names []string) {
	if len(names) == 0 {
		return
	}
	for _, f := range v.Fields {
		if f.Kind == schema.KindImplementer {
			r.Set(f.Key, implementer.Join(implementer.Apply(names, "")))
		}
	}
}
