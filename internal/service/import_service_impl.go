package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/spreadsheet"
)

type importService struct {
	backend  Backend
	codec    *spreadsheet.Codec
	catalog  *schema.Catalog
	observer UseCaseObserver
}

func NewImportService(
	backend Backend,
	refs References,
	catalog *schema.Catalog,
	observers ...UseCaseObserver,
) ImportService {
	return &importService{
		backend:  backend,
		codec:    spreadsheet.NewCodec(catalog, refs),
		catalog:  catalog,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Import parses the workbook locally and uploads only the rows that passed.
// Rejected rows are reported with their spreadsheet row number and never
// leave the machine; a file with no accepted row is not uploaded at all.
func (s *importService) Import(ctx context.Context, req ImportRequest) (result *ImportResult, err error) {
	ev := beginUseCase("import-records", req.Variant, req.Actor)
	ev.Fields["file"] = req.Filename
	defer func() {
		if result != nil {
			ev.Fields["batch_id"] = result.BatchID
			ev.Fields["accepted"] = result.Accepted
			ev.Fields["rejected"] = result.Rejected
		}
		ev.finish(ctx, s.observer, err)
	}()

	if !req.Actor.CanAddRecords() {
		return nil, fmt.Errorf("importing %s: %w", req.Filename, ErrPermissionDenied)
	}
	if err := spreadsheet.CheckExtension(req.Filename); err != nil {
		return nil, err
	}
	v, res, err := resolveVariant(s.catalog, req.Variant)
	if err != nil {
		return nil, err
	}
	if !res.HasSpreadsheet() {
		return nil, fmt.Errorf("%w: %s", api.ErrNoSpreadsheetEndpoint, res.Name)
	}

	var scope spreadsheet.Scope
	form := make(map[string]string, len(v.Context))
	for _, key := range v.Context {
		switch key {
		case domain.KeyPhase:
			scope.Phase = scoped(req.Actor, key, req.Phase)
			form[key] = scope.Phase
		case domain.KeyShiftType:
			scope.ShiftType = scoped(req.Actor, key, req.ShiftType)
			form[key] = scope.ShiftType
		}
	}

	parsed, err := s.codec.ParseUpload(req.Body, v, scope)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", req.Filename, err)
	}
	summary := parsed.Summary()
	result = &ImportResult{
		BatchID:   uuid.New().String(),
		Accepted:  summary.Accepted,
		Rejected:  summary.Rejected,
		RowErrors: parsed.RowErrors,
	}
	if summary.Accepted == 0 {
		return result, nil
	}

	data, err := s.codec.Records(v, parsed.ValidRows)
	if err != nil {
		return nil, fmt.Errorf("repacking accepted rows: %w", err)
	}
	uploaded, err := s.backend.Upload(ctx, res, req.Filename, data, form)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", req.Filename, err)
	}
	result.Uploaded = true
	result.ServerMessage = uploaded.Message
	result.ServerErrors = uploaded.Errors
	return result, nil
}
