package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/insights/internal/domain"
	store "github.com/xiaot623/gogo/insights/internal/repository"
)

type countingCreator struct {
	calls int32
	delay time.Duration
	err   error

	// started is closed when the first call begins; gate, when set, holds every
	// call until it is closed.
	started chan struct{}
	gate    chan struct{}
}

func (c *countingCreator) CreateThread(ctx context.Context) (*domain.Thread, error) {
	n := atomic.AddInt32(&c.calls, 1)
	if n == 1 && c.started != nil {
		close(c.started)
	}
	if c.gate != nil {
		<-c.gate
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	return &domain.Thread{ID: fmt.Sprintf("thread_%d", n)}, nil
}

func TestRegistryGetOrCreateReuses(t *testing.T) {
	ctx := context.Background()
	creator := &countingCreator{}
	r := NewRegistry(store.NewMemoryStore(), creator)

	first, created, err := r.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := r.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&creator.calls))
}

func TestRegistryGetNeverCreates(t *testing.T) {
	creator := &countingCreator{}
	r := NewRegistry(store.NewMemoryStore(), creator)

	threadID, ok, err := r.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, threadID)
	assert.Equal(t, int32(0), atomic.LoadInt32(&creator.calls))
}

func TestRegistryConcurrentFirstUseConverges(t *testing.T) {
	creator := &countingCreator{delay: 20 * time.Millisecond}
	r := NewRegistry(store.NewMemoryStore(), creator)
	var hooks int32
	r.OnCreate = func(userID, threadID string) { atomic.AddInt32(&hooks, 1) }

	const n = 16
	var wg sync.WaitGroup
	ids := make([]string, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			id, _, err := r.GetOrCreate(context.Background(), "u1")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&creator.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hooks))
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegistryDistinctUsersGetDistinctThreads(t *testing.T) {
	creator := &countingCreator{delay: 5 * time.Millisecond}
	r := NewRegistry(store.NewMemoryStore(), creator)

	var wg sync.WaitGroup
	var a, b string
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		a, _, err = r.GetOrCreate(context.Background(), "alice")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		var err error
		b, _, err = r.GetOrCreate(context.Background(), "bob")
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)

	gotA, ok, err := r.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, gotA)
}

func TestRegistryCreateFailureStoresNothing(t *testing.T) {
	creator := &countingCreator{err: errors.New("upstream down")}
	r := NewRegistry(store.NewMemoryStore(), creator)

	_, _, err := r.GetOrCreate(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorContains(t, err, "upstream down")

	_, ok, err := r.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistrySetReplaces(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemoryStore(), &countingCreator{})

	require.NoError(t, r.Set(ctx, "u1", "thread_a"))
	require.NoError(t, r.Set(ctx, "u1", "thread_b"))

	threadID, ok, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "thread_b", threadID)

	sessions, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestRegistryCancelledCallerDoesNotFailOthers(t *testing.T) {
	creator := &countingCreator{started: make(chan struct{}), gate: make(chan struct{})}
	r := NewRegistry(store.NewMemoryStore(), creator)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := r.GetOrCreate(firstCtx, "u1")
		firstErr <- err
	}()
	<-creator.started

	type result struct {
		threadID string
		err      error
	}
	second := make(chan result, 1)
	go func() {
		id, _, err := r.GetOrCreate(context.Background(), "u1")
		second <- result{threadID: id, err: err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(creator.gate)

	got := <-second
	require.NoError(t, got.err)
	assert.NotEmpty(t, got.threadID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&creator.calls))

	stored, ok, err := r.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got.threadID, stored)
}
