package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/cache"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idempotencyFixture struct {
	router *gin.Engine
	locker *cache.InMemoryLocker
	scope  shared.Scope
	calls  atomic.Int32
}

func newIdempotencyFixture(t *testing.T, status int) *idempotencyFixture {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	f := &idempotencyFixture{
		locker: cache.NewInMemoryLocker(),
		scope:  shared.NewTenantScope(uuid.New(), uuid.New()),
	}
	f.router = gin.New()
	f.router.Use(RequestID(), withScope(f.scope), Idempotency(IdempotencyConfig{
		Header:  "Idempotency-Key",
		Store:   store,
		Locker:  f.locker,
		TTL:     time.Hour,
		LockTTL: 30 * time.Second,
	}))
	f.router.POST("/api/v1/ledgers", func(c *gin.Context) {
		n := f.calls.Add(1)
		c.JSON(status, gin.H{"call": n})
	})
	f.router.GET("/api/v1/ledgers", func(c *gin.Context) {
		f.calls.Add(1)
		c.Status(http.StatusOK)
	})
	return f
}

func (f *idempotencyFixture) send(method, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/ledgers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysCompletedRequest(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	first := f.send(http.MethodPost, "key-1", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplayHeader))

	second := f.send(http.MethodPost, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestIdempotency_KeyReuseWithDifferentBody(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	require.Equal(t, http.StatusCreated, f.send(http.MethodPost, "key-1", `{"a":1}`).Code)
	w := f.send(http.MethodPost, "key-1", `{"a":2}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeIdempotencyReused, decodeResponse(t, w).Error.Code)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusConflict)

	assert.Equal(t, http.StatusConflict, f.send(http.MethodPost, "key-1", `{}`).Code)
	assert.Equal(t, http.StatusConflict, f.send(http.MethodPost, "key-1", `{}`).Code)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestIdempotency_InProgress(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	key := "http:" + f.scope.TenantID.String() + ":" + f.scope.UserID.String() + ":POST:/api/v1/ledgers:key-1"
	lock, err := f.locker.TryLock(context.Background(), key, time.Minute)
	require.NoError(t, err)
	defer func() { _ = lock.Release(context.Background()) }()

	w := f.send(http.MethodPost, "key-1", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeIdempotencyPending, decodeResponse(t, w).Error.Code)
	assert.Zero(t, f.calls.Load())
}

func TestIdempotency_PassThrough(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	f.send(http.MethodPost, "", `{}`)
	f.send(http.MethodPost, "", `{}`)
	f.send(http.MethodGet, "key-1", "")
	f.send(http.MethodGet, "key-1", "")
	assert.EqualValues(t, 4, f.calls.Load())
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	f := newIdempotencyFixture(t, http.StatusCreated)

	w := f.send(http.MethodPost, strings.Repeat("k", 256), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.calls.Load())
}
