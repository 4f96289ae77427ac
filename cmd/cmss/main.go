package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/cli"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/service"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := api.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuring backend: %w", err)
	}

	// Schema catalog: embedded, or CMSS_SCHEMA_FILE when set.
	catalog, err := schema.FromEnv()
	if err != nil {
		return fmt.Errorf("loading schema catalog: %w", err)
	}

	var observer api.Observer = api.NoopObserver{}
	var useCases []service.UseCaseObserver
	if cfg.LogCalls {
		observer = api.NewLogObserver(os.Stderr)
		useCases = append(useCases, service.NewLogUseCaseObserver(os.Stderr))
	}
	client := api.NewClient(cfg, observer)

	// A rejected token will not fix itself on retry.
	refs := registry.New(client, registry.WithRetryPolicy(func(err error) bool {
		return !errors.Is(err, api.ErrUnauthorized)
	}))

	app := &cli.App{
		Catalog:   catalog,
		Registry:  refs,
		Records:   service.NewRecordService(client, refs, catalog, useCases...),
		Import:    service.NewImportService(client, refs, catalog, useCases...),
		Export:    service.NewExportService(client, refs, catalog, useCases...),
		Templates: service.NewTemplateService(catalog),
		Profile:   client.CurrentProfile,
		Users:     client.ListUsers,
	}

	// Forms and spinners only on an interactive terminal.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}
