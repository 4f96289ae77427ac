package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// slowBackend records how many deletes overlap. Only the calls the batch path
// makes are implemented.
type slowBackend struct {
	Backend

	mu       sync.Mutex
	inFlight int
	peak     int
	deleted  []string
	lists    int
	fail     map[string]error
}

func (b *slowBackend) Delete(ctx context.Context, _ api.Resource, id string) error {
	b.mu.Lock()
	b.inFlight++
	b.peak = max(b.peak, b.inFlight)
	b.mu.Unlock()

	select {
	case <-time.After(5 * time.Millisecond):
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--
	if err := b.fail[id]; err != nil {
		return err
	}
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *slowBackend) List(context.Context, api.Resource, url.Values) ([]domain.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	return nil, nil
}

func TestDeleteBatch_SerialAndLeakFree(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := &slowBackend{fail: map[string]error{"7": errors.New("boom")}}
	svc := NewRecordService(backend, registry.NewStatic(testutil.ReferenceData()), schema.Builtin())

	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	result, err := svc.DeleteBatch(context.Background(), domain.LongDayShift, ids, Filter{Actor: testutil.AdminProfile("admin")})
	require.NoError(t, err)

	assert.Len(t, result.Succeeded, 9)
	assert.EqualError(t, result.Failed["7"], "boom")
	assert.Equal(t, 1, backend.lists)
	assert.Equal(t, 1, backend.peak, "one delete in flight at a time")
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "8", "9", "10"}, backend.deleted, "deletes follow the selection order")
	assert.Zero(t, backend.inFlight, "every delete settled before the refresh")
}

func TestDeleteBatch_RefreshFailureIsReported(t *testing.T) {
	backend := &refreshFailingBackend{slowBackend: &slowBackend{}}
	svc := NewRecordService(backend, registry.NewStatic(testutil.ReferenceData()), schema.Builtin())

	result, err := svc.DeleteBatch(context.Background(), domain.LongDayShift, []string{"1"}, Filter{Actor: testutil.AdminProfile("admin")})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, result.Succeeded)
	assert.ErrorIs(t, result.RefreshErr, api.ErrUnavailable)
}

type refreshFailingBackend struct {
	*slowBackend
}

func (b *refreshFailingBackend) List(context.Context, api.Resource, url.Values) ([]domain.Record, error) {
	return nil, api.ErrUnavailable
}
