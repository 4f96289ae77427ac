package registry

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
	err   error
	data  *domain.ReferenceData
	gate  chan struct{}
}

func (f *fakeLoader) FetchReferenceData(ctx context.Context) (*domain.ReferenceData, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.fail.Load() {
		return nil, f.err
	}
	return f.data, nil
}

func newLoader() *fakeLoader {
	return &fakeLoader{data: testutil.ReferenceData(), err: errors.New("connection refused")}
}

func TestRegistry_LoadCachesForSession(t *testing.T) {
	loader := newLoader()
	reg := New(loader)

	first, err := reg.Load(context.Background())
	require.NoError(t, err)
	second, err := reg.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, StateReady, reg.State())
}

func TestRegistry_ConcurrentLoadsShareOneFetch(t *testing.T) {
	loader := newLoader()
	loader.gate = make(chan struct{})
	reg := New(loader)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Load(context.Background())
			assert.NoError(t, err)
		}()
	}
	// Let every goroutine reach the singleflight group before releasing.
	for reg.State() != StateLoading {
		runtime.Gosched()
	}
	close(loader.gate)
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, StateReady, reg.State())
}

func TestRegistry_SnapshotReturnsCopy(t *testing.T) {
	reg := NewStatic(testutil.ReferenceData())

	snap, err := reg.Snapshot()
	require.NoError(t, err)
	snap.Phases[0].Name = "mutated"

	again, err := reg.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "一期", again.Phases[0].Name)
}

func TestRegistry_SnapshotBeforeLoad(t *testing.T) {
	reg := New(newLoader())
	_, err := reg.Snapshot()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, StateUnloaded, reg.State())
}

func TestRegistry_FailureIsVisibleAndRetryable(t *testing.T) {
	loader := newLoader()
	loader.fail.Store(true)
	reg := New(loader)

	_, err := reg.Load(context.Background())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, loadErr.Retryable())
	assert.Equal(t, StateFailed, reg.State())
	assert.Same(t, loadErr, reg.Err())

	_, snapErr := reg.Snapshot()
	assert.ErrorAs(t, snapErr, &loadErr)

	_, resolveErr := reg.Resolve(CollectionPhase, domain.PhaseOne)
	assert.ErrorAs(t, resolveErr, &loadErr)

	loader.fail.Store(false)
	data, err := reg.Reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Phases, 2)
	assert.Nil(t, reg.Err())
	assert.Equal(t, StateReady, reg.State())
}

func TestRegistry_RetryPolicy(t *testing.T) {
	loader := newLoader()
	loader.fail.Store(true)
	reg := New(loader, WithRetryPolicy(func(error) bool { return false }))

	_, err := reg.Load(context.Background())
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.False(t, loadErr.Retryable())
}

func TestRegistry_IncompletePayload(t *testing.T) {
	loader := newLoader()
	loader.data = &domain.ReferenceData{Phases: []domain.Phase{}}
	reg := New(loader)

	_, err := reg.Load(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewStatic(testutil.ReferenceData())

	tests := []struct {
		collection Collection
		code       string
		name       string
	}{
		{CollectionPhase, domain.PhaseOne, "一期"},
		{CollectionPhase, domain.PhaseTwo, "二期"},
		{CollectionProductionLine, "line_2_1", "2-1#"},
		{CollectionProcess, "winding", "卷绕"},
		{CollectionShiftType, domain.RotatingShift, "倒班"},
	}
	for _, tt := range tests {
		t.Run(string(tt.collection)+"/"+tt.code, func(t *testing.T) {
			name, err := reg.Resolve(tt.collection, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)

			code, err := reg.ResolveCodeByName(tt.collection, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRegistry_ResolveCodeByNameTrims(t *testing.T) {
	reg := NewStatic(testutil.ReferenceData())
	code, err := reg.ResolveCodeByName(CollectionProductionLine, "  N1 ")
	require.NoError(t, err)
	assert.Equal(t, "line_2_2", code)
}

func TestRegistry_UnknownValues(t *testing.T) {
	reg := NewStatic(testutil.ReferenceData())

	_, err := reg.Resolve(CollectionPhase, "phase_9")
	assert.ErrorIs(t, err, ErrUnknownCode)
	assert.True(t, IsTranslationError(err))

	_, err = reg.ResolveCodeByName(CollectionProductionLine, "9#")
	assert.ErrorIs(t, err, ErrUnknownName)
	assert.EqualError(t, err, `unknown production line "9#"`)

	_, err = reg.Resolve(CollectionProcess, "")
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestRegistry_IDByCode(t *testing.T) {
	reg := NewStatic(testutil.ReferenceData())

	id, err := reg.IDByCode(CollectionShiftType, domain.RotatingShift)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	_, err = reg.IDByCode(CollectionPhase, "nope")
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestRegistry_CodeByID(t *testing.T) {
	reg := NewStatic(testutil.ReferenceData())

	code, err := reg.CodeByID(CollectionProductionLine, 22)
	require.NoError(t, err)
	assert.Equal(t, "line_2_2", code)

	_, err = reg.CodeByID(CollectionProcess, 999)
	assert.ErrorIs(t, err, ErrUnknownID)
	assert.EqualError(t, err, `unknown process "999"`)
}

func TestCollectionForKey(t *testing.T) {
	c, ok := CollectionForKey(domain.KeyProductionLine)
	assert.True(t, ok)
	assert.Equal(t, CollectionProductionLine, c)

	_, ok = CollectionForKey("equipment_name")
	assert.False(t, ok)
}
