package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
)

// UseCaseEvent is one finished record, import or export operation.
type UseCaseEvent struct {
	Name      string
	Variant   string
	User      string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	Err       error

	// Fields carries per-operation counts and ids (batch_id, accepted,
	// succeeded, bytes...). Set them before the deferred finish runs.
	Fields map[string]any
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver logs one "cmss_op" line per operation to w. Denied
// and invalid operations are warnings; backend and transport failures are
// errors. A nil writer disables logging.
func NewLogUseCaseObserver(w io.Writer) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := []any{
		slog.String("op", event.Name),
		slog.String("variant", event.Variant),
		slog.Int64("elapsed_ms", event.Duration.Milliseconds()),
	}
	if event.User != "" {
		attrs = append(attrs, slog.String("user", event.User))
	}
	for _, k := range slices.Sorted(maps.Keys(event.Fields)) {
		attrs = append(attrs, slog.Any(k, event.Fields[k]))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	o.logger.Log(ctx, levelFor(event.Err), "cmss_op", attrs...)
}

// levelFor grades an operation outcome. A refused or incomplete record is
// the user's to fix and is not an error of the tool.
func levelFor(err error) slog.Level {
	var verr *ValidationError
	switch {
	case err == nil:
		return slog.LevelInfo
	case errors.Is(err, ErrPermissionDenied), errors.As(err, &verr):
		return slog.LevelWarn
	}
	return slog.LevelError
}

// beginUseCase stamps the start of an operation by actor on variant.
func beginUseCase(name, variant string, actor *domain.UserProfile) UseCaseEvent {
	return UseCaseEvent{
		Name:      name,
		Variant:   variant,
		User:      username(actor),
		StartedAt: time.Now().UTC(),
		Fields:    map[string]any{},
	}
}

// finish reports the operation to obs. Call it from a defer so the named
// error result is final.
func (e UseCaseEvent) finish(ctx context.Context, obs UseCaseObserver, err error) {
	e.Duration = time.Since(e.StartedAt)
	e.Success = err == nil
	e.Err = err
	obs.ObserveUseCase(ctx, e)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}
