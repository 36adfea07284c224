package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) SaveResult(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	return m.Called(ctx, key, result, ttl).Error(0)
}

func (m *mockStore) LoadResult(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Bool(1), args.Error(2)
}

func (m *mockStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) Close() error { return nil }

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	defer store.Close()
	inner := newTestHandler("E")
	h := NewIdempotentHandler(inner, store, nil)

	ev := newTestEvent("E")
	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), newTestEvent("E")))

	assert.Equal(t, 2, inner.count())
	assert.Equal(t, IdempotencyStats{EventsProcessed: 2, EventsDuplicate: 1}, h.Stats())
	assert.Equal(t, []string{"E"}, h.EventTypes())
}

func TestIdempotentHandler_FailureAllowsRetry(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	defer store.Close()
	inner := newTestHandler("E")
	inner.err = errors.New("transient")
	h := NewIdempotentHandler(inner, store, nil)

	ev := newTestEvent("E")
	require.Error(t, h.Handle(context.Background(), ev))

	inner.err = nil
	require.NoError(t, h.Handle(context.Background(), ev))
	assert.Equal(t, 2, inner.count())
	assert.Equal(t, int64(1), h.Stats().EventsFailed)
}

func TestIdempotentHandler_StoreErrorStillDelivers(t *testing.T) {
	store := new(mockStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	inner := newTestHandler("E")
	h := NewIdempotentHandler(inner, store, nil)

	require.NoError(t, h.Handle(context.Background(), newTestEvent("E")))
	assert.Equal(t, 1, inner.count())
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(mockStore)
	inner := newTestHandler("E")
	h := NewIdempotentHandler(inner, store, nil, WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))

	ev := newTestEvent("E")
	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Equal(t, 2, inner.count())
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_UsesEventKeyPrefix(t *testing.T) {
	store := new(mockStore)
	ev := newTestEvent("E")
	store.On("MarkProcessed", mock.Anything, "event:"+ev.EventID().String(), 24*time.Hour).Return(true, nil)
	h := NewIdempotentHandler(newTestHandler("E"), store, nil)

	require.NoError(t, h.Handle(context.Background(), ev))
	store.AssertExpectations(t)
}
