package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jionychiow/cmss/internal/cli/formatter"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/service"
	"github.com/spf13/cobra"
)

// App holds everything the CLI commands use.
type App struct {
	Catalog   *schema.Catalog
	Registry  *registry.Registry
	Records   service.RecordService
	Import    service.ImportService
	Export    service.ExportService
	Templates service.TemplateService

	// Profile returns the acting user. Users lists implementer candidates.
	Profile func(ctx context.Context) (*domain.UserProfile, error)
	Users   func(ctx context.Context) ([]string, error)

	// IsInteractive reports whether forms and spinners may be shown.
	// Nil means never.
	IsInteractive func() bool

	// Location is the display time zone. Nil means local time.
	Location *time.Location
	Now      func() time.Time
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) view() projection.View {
	return projection.View{Enums: a.Catalog, Names: a.Registry, Location: a.Location}
}

// session is the state a backend command needs: the loaded reference data
// and the acting user.
type session struct {
	data  *domain.ReferenceData
	actor *domain.UserProfile
}

// begin loads the reference data and the acting user's profile.
func (a *App) begin(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	data, err := a.loadReference(ctx, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if a.Profile == nil {
		return nil, fmt.Errorf("no profile source configured")
	}
	actor, err := a.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching user profile: %w", err)
	}
	return &session{data: data, actor: actor}, nil
}

// users returns the implementer candidates. A failure is noted on stderr
// and leaves only the acting user selectable rather than blocking the form.
func (a *App) users(cmd *cobra.Command) []string {
	if a.Users == nil {
		return nil
	}
	users, err := a.Users(cmd.Context())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), formatter.Dim("User list unavailable ("+err.Error()+"); only you can be picked as implementer."))
		return nil
	}
	return users
}

// spin shows a spinner on w for an interactive session and returns its stop
// function.
func (a *App) spin(w io.Writer, message string) func() {
	if !a.interactive() {
		return func() {}
	}
	return formatter.StartSpinner(w, message)
}

// NewRootCmd creates the top-level "cmss" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "cmss",
		Short:         "Plant maintenance records: configuration, schemas, records and spreadsheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newConfigCmd(app),
		newSchemaCmd(app),
		newRecordCmd(app),
		newSheetCmd(app),
	)

	return root
}
