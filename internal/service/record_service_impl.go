package service

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/hierarchy"
	"github.com/jionychiow/cmss/internal/implementer"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/schema"
)

// deleteConcurrency bounds the deletes a batch keeps in flight. Batch
// mutations are serialized, so one delete settles before the next is sent.
const deleteConcurrency = 1

type recordService struct {
	backend  Backend
	refs     References
	catalog  *schema.Catalog
	observer UseCaseObserver
}

func NewRecordService(
	backend Backend,
	refs References,
	catalog *schema.Catalog,
	observers ...UseCaseObserver,
) RecordService {
	return &recordService{
		backend:  backend,
		refs:     refs,
		catalog:  catalog,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *recordService) List(ctx context.Context, variant string, f Filter) ([]domain.Record, error) {
	v, res, err := resolveVariant(s.catalog, variant)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, v, res, f)
}

func (s *recordService) list(ctx context.Context, v *schema.Variant, res api.Resource, f Filter) ([]domain.Record, error) {
	query := url.Values{}
	for _, key := range v.Context {
		var requested string
		switch key {
		case domain.KeyPhase:
			requested = f.Phase
		case domain.KeyShiftType:
			requested = f.ShiftType
		}
		if value := scoped(f.Actor, key, requested); value != "" {
			query.Set(key, value)
		}
	}

	sel := hierarchy.Selection{}.
		Set(hierarchy.FieldPhase, query.Get(domain.KeyPhase)).
		Set(hierarchy.FieldProductionLine, f.ProductionLine).
		Set(hierarchy.FieldProcess, f.Process)
	if sel.ProductionLine != "" {
		data, err := s.refs.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("reference data unavailable: %w", err)
		}
		if err := sel.Validate(data); err != nil {
			return nil, err
		}
	}

	raw, err := s.backend.List(ctx, res, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", res.Name, err)
	}
	records := make([]domain.Record, 0, len(raw))
	for _, r := range raw {
		rec := projection.FromResponse(r, v, s.refs)
		if matchesHierarchy(rec, v, sel) {
			records = append(records, rec)
		}
	}
	return projection.Search(records, f.Search), nil
}

// matchesHierarchy reports whether rec carries the selected line and
// process. Phase is left to the backend query, and a key the variant has
// no field for never excludes a record.
func matchesHierarchy(rec domain.Record, v *schema.Variant, sel hierarchy.Selection) bool {
	for key, want := range map[string]string{
		domain.KeyProductionLine: sel.ProductionLine,
		domain.KeyProcess:        sel.Process,
	} {
		if want == "" {
			continue
		}
		if _, ok := v.Field(key); ok && rec.Get(key) != want {
			return false
		}
	}
	return true
}

func (s *recordService) Create(ctx context.Context, variant string, r domain.Record, actor *domain.UserProfile) (created domain.Record, err error) {
	ev := beginUseCase("create-record", variant, actor)
	defer func() { ev.finish(ctx, s.observer, err) }()

	if !actor.CanAddRecords() {
		return nil, fmt.Errorf("creating record: %w", ErrPermissionDenied)
	}
	v, res, err := resolveVariant(s.catalog, variant)
	if err != nil {
		return nil, err
	}
	rec, err := s.prepare(v, r, actor)
	if err != nil {
		return nil, err
	}
	payload, err := projection.SubmitPayload(rec, v, projection.ModeCreate, s.refs)
	if err != nil {
		return nil, err
	}
	stored, err := s.backend.Create(ctx, res, payload)
	if err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}
	created = projection.FromResponse(stored, v, s.refs)
	ev.Fields["id"] = created.Identifier()
	return created, nil
}

func (s *recordService) Update(ctx context.Context, variant, id string, r domain.Record, actor *domain.UserProfile) (updated domain.Record, err error) {
	ev := beginUseCase("update-record", variant, actor)
	ev.Fields["id"] = id
	defer func() { ev.finish(ctx, s.observer, err) }()

	if !actor.CanEditRecords() {
		return nil, fmt.Errorf("updating record %s: %w", id, ErrPermissionDenied)
	}
	v, res, err := resolveVariant(s.catalog, variant)
	if err != nil {
		return nil, err
	}
	rec, err := s.prepare(v, r, actor)
	if err != nil {
		return nil, err
	}
	payload, err := projection.SubmitPayload(rec, v, projection.ModeUpdate, s.refs)
	if err != nil {
		return nil, err
	}
	stored, err := s.backend.Update(ctx, res, id, payload)
	if err != nil {
		return nil, fmt.Errorf("updating record %s: %w", id, err)
	}
	return projection.FromResponse(stored, v, s.refs), nil
}

// prepare scopes the context keys to the actor, puts the actor first among
// the implementers, recomputes derived values and validates the result.
// Nothing that fails here reaches the backend.
func (s *recordService) prepare(v *schema.Variant, r domain.Record, actor *domain.UserProfile) (domain.Record, error) {
	out := r.Clone()
	for _, key := range v.Context {
		out.Set(key, scoped(actor, key, out.Get(key)))
	}
	for _, f := range v.Fields {
		if f.Kind == schema.KindImplementer {
			names := implementer.Apply(implementer.Split(out.Get(f.Key)), username(actor))
			out.Set(f.Key, implementer.Join(names))
		}
	}
	projection.ApplyDerived(out)

	form, err := s.catalog.FormFieldsFor(v.Code)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, f := range projection.Validate(out, form, nil).Missing {
		errs = append(errs, fmt.Errorf("%w: %s", projection.ErrMissingField, f.Label))
	}

	data, err := s.refs.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("reference data unavailable: %w", err)
	}
	if err := hierarchy.SelectionFrom(out).Validate(data); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}
	return out, nil
}

func (s *recordService) Delete(ctx context.Context, variant, id string, actor *domain.UserProfile) (err error) {
	ev := beginUseCase("delete-record", variant, actor)
	ev.Fields["id"] = id
	defer func() { ev.finish(ctx, s.observer, err) }()

	if !actor.CanDeleteRecords() {
		return fmt.Errorf("deleting record %s: %w", id, ErrPermissionDenied)
	}
	_, res, err := resolveVariant(s.catalog, variant)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, res, id); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return nil
}

// DeleteBatch deletes ids one after another in the order given and waits for
// every delete to settle before fetching the list once. A failed delete
// never stops the others.
func (s *recordService) DeleteBatch(ctx context.Context, variant string, ids []string, refresh Filter) (result *BatchResult, err error) {
	ev := beginUseCase("delete-batch", variant, refresh.Actor)
	ev.Fields["requested"] = len(ids)
	defer func() {
		if result != nil {
			ev.Fields["succeeded"] = len(result.Succeeded)
			ev.Fields["failed"] = len(result.Failed)
		}
		ev.finish(ctx, s.observer, err)
	}()

	if !refresh.Actor.CanDeleteRecords() {
		return nil, fmt.Errorf("deleting records: %w", ErrPermissionDenied)
	}
	v, res, err := resolveVariant(s.catalog, variant)
	if err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrNoSelection
	}

	result = &BatchResult{Failed: make(map[string]error)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(deleteConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			derr := s.backend.Delete(ctx, res, id)
			mu.Lock()
			defer mu.Unlock()
			if derr != nil {
				result.Failed[id] = derr
			} else {
				result.Succeeded = append(result.Succeeded, id)
			}
			return nil
		})
	}
	_ = g.Wait()
	slices.SortFunc(result.Succeeded, func(a, b string) int {
		return slices.Index(ids, a) - slices.Index(ids, b)
	})

	result.Records, result.RefreshErr = s.list(ctx, v, res, refresh)
	return result, nil
}
