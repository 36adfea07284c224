package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by TryLock when another holder owns the key
var ErrLockHeld = errors.New("lock is held by another owner")

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out short-lived exclusive locks
type Locker interface {
	// TryLock obtains key without waiting. It returns ErrLockHeld if the key is taken.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker implements Locker with redislock
type RedisLocker struct {
	client    *redislock.Client
	keyPrefix string
}

// NewRedisLocker creates a locker on client
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(client), keyPrefix: "cashledger:lock:"}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, l.keyPrefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return redisLock{lock: lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (r redisLock) Release(ctx context.Context) error {
	err := r.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// InMemoryLocker implements Locker inside one process
type InMemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLockState
	clock func() time.Time
}

type memoryLockState struct {
	token     uint64
	expiresAt time.Time
}

// NewInMemoryLocker creates an in-process locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{held: make(map[string]memoryLockState), clock: time.Now}
}

var lockTokens struct {
	sync.Mutex
	next uint64
}

func nextLockToken() uint64 {
	lockTokens.Lock()
	defer lockTokens.Unlock()
	lockTokens.next++
	return lockTokens.next
}

func (l *InMemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if st, ok := l.held[key]; ok && now.Before(st.expiresAt) {
		return nil, ErrLockHeld
	}
	st := memoryLockState{token: nextLockToken(), expiresAt: now.Add(ttl)}
	l.held[key] = st
	return &memoryLock{locker: l, key: key, token: st.token}, nil
}

type memoryLock struct {
	locker *InMemoryLocker
	key    string
	token  uint64
}

// Release only drops the key if this lock still owns it
func (m *memoryLock) Release(_ context.Context) error {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()
	if st, ok := m.locker.held[m.key]; ok && st.token == m.token {
		delete(m.locker.held, m.key)
	}
	return nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*InMemoryLocker)(nil)
)
