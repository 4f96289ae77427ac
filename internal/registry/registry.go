// Package registry holds the session-scoped reference data (phases,
// production lines, processes, shift types) and translates between the codes,
// names and ids that different endpoints expect.
package registry

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/jionychiow/cmss/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the reference data payload from the backend.
type Loader interface {
	FetchReferenceData(ctx context.Context) (*domain.ReferenceData, error)
}

// State is the lifecycle of the cached reference data.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

// Option configures a Registry.
type Option func(*Registry)

// WithRetryPolicy sets the classifier deciding whether a load failure is
// worth retrying. By default every failure is retryable.
func WithRetryPolicy(retryable func(error) bool) Option {
	return func(r *Registry) {
		if retryable != nil {
			r.retryable = retryable
		}
	}
}

// Registry caches reference data for the session. It is safe for concurrent
// use; the cache is written only by a load.
type Registry struct {
	loader    Loader
	retryable func(error) bool
	group     singleflight.Group

	mu      sync.RWMutex
	data    *domain.ReferenceData
	state   State
	lastErr *LoadError
}

// New creates a Registry that loads through loader on first use.
func New(loader Loader, opts ...Option) *Registry {
	r := &Registry{
		loader:    loader,
		retryable: func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewStatic returns a Registry already holding data. Used where the reference
// data is known up front, such as offline template generation and tests.
func NewStatic(data *domain.ReferenceData) *Registry {
	return &Registry{
		retryable: func(error) bool { return false },
		data:      data.Clone(),
		state:     StateReady,
	}
}

// Load returns the cached reference data, fetching it on first call.
// Concurrent callers share a single in-flight request.
func (r *Registry) Load(ctx context.Context) (*domain.ReferenceData, error) {
	r.mu.RLock()
	if r.state == StateReady {
		data := r.data.Clone()
		r.mu.RUnlock()
		return data, nil
	}
	r.mu.RUnlock()
	return r.fetch(ctx, false)
}

// Reload discards the cache and fetches again. Used to retry after a failure.
func (r *Registry) Reload(ctx context.Context) (*domain.ReferenceData, error) {
	return r.fetch(ctx, true)
}

func (r *Registry) fetch(ctx context.Context, force bool) (*domain.ReferenceData, error) {
	if r.loader == nil {
		return r.Snapshot()
	}
	v, err, _ := r.group.Do("reference-data", func() (any, error) {
		r.mu.Lock()
		if !force && r.state == StateReady {
			data := r.data
			r.mu.Unlock()
			return data, nil
		}
		r.state = StateLoading
		r.mu.Unlock()

		data, err := r.loader.FetchReferenceData(ctx)
		if err == nil && !data.Complete() {
			err = ErrIncomplete
		}
		if err != nil {
			loadErr := &LoadError{Err: err, retryable: r.retryable(err)}
			r.mu.Lock()
			r.state = StateFailed
			r.lastErr = loadErr
			r.mu.Unlock()
			return nil, loadErr
		}

		r.mu.Lock()
		r.data = data.Clone()
		r.state = StateReady
		r.lastErr = nil
		r.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ReferenceData).Clone(), nil
}

// State reports where the registry is in its load lifecycle.
func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Err returns the last load failure, or nil.
func (r *Registry) Err() *LoadError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Snapshot returns the cached data without fetching. Before a successful
// load it returns ErrNotLoaded; after a failed load it returns the LoadError.
func (r *Registry) Snapshot() (*domain.ReferenceData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch r.state {
	case StateReady:
		return r.data.Clone(), nil
	case StateFailed:
		return nil, r.lastErr
	default:
		return nil, ErrNotLoaded
	}
}

// Resolve returns the display name for code in collection c.
func (r *Registry) Resolve(c Collection, code string) (string, error) {
	e, err := r.find(c, code, func(e entry) string { return e.code }, ErrUnknownCode)
	if err != nil {
		return "", err
	}
	return e.name, nil
}

// ResolveCodeByName returns the code for a display name in collection c.
// Surrounding whitespace in name is ignored.
func (r *Registry) ResolveCodeByName(c Collection, name string) (string, error) {
	e, err := r.find(c, strings.TrimSpace(name), func(e entry) string { return e.name }, ErrUnknownName)
	if err != nil {
		return "", err
	}
	return e.code, nil
}

// IDByCode returns the numeric id for code in collection c. Some create
// endpoints take ids instead of codes.
func (r *Registry) IDByCode(c Collection, code string) (int64, error) {
	e, err := r.find(c, code, func(e entry) string { return e.code }, ErrUnknownCode)
	if err != nil {
		return 0, err
	}
	return e.id, nil
}

// CodeByID maps a backend id back to its code. Read endpoints return foreign
// keys as ids.
func (r *Registry) CodeByID(c Collection, id int64) (string, error) {
	e, err := r.find(c, strconv.FormatInt(id, 10), func(e entry) string { return strconv.FormatInt(e.id, 10) }, ErrUnknownID)
	if err != nil {
		return "", err
	}
	return e.code, nil
}

func (r *Registry) find(c Collection, value string, key func(entry) string, notFound error) (entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != StateReady {
		if r.state == StateFailed && r.lastErr != nil {
			return entry{}, r.lastErr
		}
		return entry{}, ErrNotLoaded
	}
	if value != "" {
		for _, e := range entries(r.data, c) {
			if key(e) == value {
				return e, nil
			}
		}
	}
	return entry{}, &TranslationError{Collection: c, Value: value, Err: notFound}
}

// IsTranslationError reports whether err is a failed code/name translation.
func IsTranslationError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}
