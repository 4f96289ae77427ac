package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
)

type exportService struct {
	backend  Backend
	refs     References
	catalog  *schema.Catalog
	observer UseCaseObserver
}

func NewExportService(
	backend Backend,
	refs References,
	catalog *schema.Catalog,
	observers ...UseCaseObserver,
) ExportService {
	return &exportService{
		backend:  backend,
		refs:     refs,
		catalog:  catalog,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Export downloads the backend's workbook for a filter. The phase is sent in
// whatever form the resource's export endpoint expects.
func (s *exportService) Export(ctx context.Context, req ExportRequest) (data []byte, err error) {
	ev := beginUseCase("export-records", req.Variant, req.Actor)
	ev.Fields["month"] = req.Filter.MonthParam()
	defer func() {
		ev.Fields["bytes"] = len(data)
		ev.finish(ctx, s.observer, err)
	}()

	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}
	v, res, err := resolveVariant(s.catalog, req.Variant)
	if err != nil {
		return nil, err
	}
	if !res.HasSpreadsheet() {
		return nil, fmt.Errorf("%w: %s", api.ErrNoSpreadsheetEndpoint, res.Name)
	}

	phase := req.Filter.PhaseCode
	if slices.Contains(v.Context, domain.KeyPhase) {
		phase = scoped(req.Actor, domain.KeyPhase, phase)
	}
	switch res.ExportPhase {
	case api.PhaseIgnored:
		phase = ""
	case api.PhaseByName:
		if phase != "" {
			if phase, err = s.refs.Resolve(registry.CollectionPhase, phase); err != nil {
				return nil, fmt.Errorf("exporting %s: %w", res.Name, err)
			}
		}
	}
	var shift string
	if res.ExportShift {
		shift = scoped(req.Actor, domain.KeyShiftType, req.ShiftType)
	}
	ev.Fields["phase"] = phase

	data, err = s.backend.Export(ctx, res, api.ExportRequest{
		Phase:     phase,
		ShiftType: shift,
		Month:     req.Filter.MonthParam(),
	})
	if err != nil {
		return nil, fmt.Errorf("exporting %s: %w", res.Name, err)
	}
	return data, nil
}
