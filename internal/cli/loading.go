package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jionychiow/cmss/internal/cli/formatter"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/registry"
)

// errLoadCanceled is returned when the user quits the loading view.
var errLoadCanceled = errors.New("loading canceled")

// referenceLoader is the registry surface the loading view drives.
type referenceLoader interface {
	Load(ctx context.Context) (*domain.ReferenceData, error)
	Reload(ctx context.Context) (*domain.ReferenceData, error)
}

type referenceLoadedMsg struct {
	data *domain.ReferenceData
}

type referenceFailedMsg struct {
	err error
}

// loadingModel shows a spinner while the reference data loads. A failure
// replaces the spinner with the reason and, when the failure is retryable,
// waits for r to try again.
type loadingModel struct {
	ctx      context.Context
	loader   referenceLoader
	spinner  spinner.Model
	attempts int

	data     *domain.ReferenceData
	err      error
	canceled bool
}

func newLoadingModel(ctx context.Context, loader referenceLoader) loadingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = formatter.StyleHeader
	return loadingModel{ctx: ctx, loader: loader, spinner: s}
}

func (m loadingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(false))
}

func (m loadingModel) fetch(reload bool) tea.Cmd {
	ctx, loader := m.ctx, m.loader
	return func() tea.Msg {
		load := loader.Load
		if reload {
			load = loader.Reload
		}
		data, err := load(ctx)
		if err != nil {
			return referenceFailedMsg{err: err}
		}
		return referenceLoadedMsg{data: data}
	}
}

func (m loadingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case referenceLoadedMsg:
		m.data, m.err = msg.data, nil
		return m, tea.Quit

	case referenceFailedMsg:
		m.err = msg.err
		m.attempts++
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.canceled = true
			return m, tea.Quit
		case "r":
			if m.err != nil && retryable(m.err) {
				m.err = nil
				return m, tea.Batch(m.spinner.Tick, m.fetch(true))
			}
		}
		return m, nil

	case spinner.TickMsg:
		if m.err != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m loadingModel) View() string {
	if m.data != nil || m.canceled {
		return ""
	}
	if m.err == nil {
		return fmt.Sprintf("%s %s\n", m.spinner.View(), formatter.Dim("Loading configuration data..."))
	}
	hint := "q quit"
	if retryable(m.err) {
		hint = "r retry · q quit"
	}
	return fmt.Sprintf("%s %s\n\n  %s\n",
		formatter.StyleRed.Render("✖"), m.err.Error(), formatter.Dim(hint))
}

// retryable reports whether a load failure may clear on a second try.
func retryable(err error) bool {
	var loadErr *registry.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Retryable()
	}
	return true
}

// loadReference loads the registry, through the loading view when the
// session is interactive.
func (a *App) loadReference(ctx context.Context, in io.Reader, out io.Writer) (*domain.ReferenceData, error) {
	if !a.interactive() {
		return a.Registry.Load(ctx)
	}
	if a.Registry.State() == registry.StateReady {
		return a.Registry.Snapshot()
	}

	final, err := tea.NewProgram(newLoadingModel(ctx, a.Registry), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return nil, fmt.Errorf("running loading view: %w", err)
	}
	m := final.(loadingModel)
	switch {
	case m.data != nil:
		return m.data, nil
	case m.err != nil:
		return nil, m.err
	default:
		return nil, errLoadCanceled
	}
}
