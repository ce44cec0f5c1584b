package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdf-chat-be/repository"
	"github.com/tieubaoca/pdf-chat-be/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker() (*StatusTracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStatusTracker(repository.NewMemoryStatusRepo(), WithClock(clock.Now)), clock
}

func TestStatusTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	tracker, clock := newTestTracker()

	require.NoError(t, tracker.Init(ctx, "a.pdf"))
	rec, err := tracker.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, types.STATUS_PENDING, rec.Status)
	assert.Equal(t, 0, rec.Progress)
	start := rec.StartTime

	clock.Advance(time.Minute)
	require.NoError(t, tracker.Update(ctx, "a.pdf", types.STATUS_PROCESSING, 30, ""))
	rec, err = tracker.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, types.STATUS_PROCESSING, rec.Status)
	assert.Equal(t, 30, rec.Progress)
	assert.True(t, rec.StartTime.Equal(start))

	require.NoError(t, tracker.Update(ctx, "a.pdf", types.STATUS_ERROR, 30, "bad things"))
	rec, err = tracker.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, types.STATUS_ERROR, rec.Status)
	assert.Equal(t, "bad things", rec.ErrorMessage)
	assert.True(t, rec.Terminal())
}

func TestStatusTrackerInitOverwrites(t *testing.T) {
	ctx := context.Background()
	tracker, clock := newTestTracker()

	require.NoError(t, tracker.Init(ctx, "a.pdf"))
	require.NoError(t, tracker.Update(ctx, "a.pdf", types.STATUS_COMPLETE, 100, ""))
	clock.Advance(10 * time.Minute)
	require.NoError(t, tracker.Init(ctx, "a.pdf"))

	rec, err := tracker.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, types.STATUS_PENDING, rec.Status)
	assert.Equal(t, 0, rec.Progress)
	assert.True(t, rec.StartTime.Equal(clock.Now()))
}

func TestStatusTrackerUpdateUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker()

	require.NoError(t, tracker.Update(ctx, "ghost.pdf", types.STATUS_COMPLETE, 100, ""))
	_, err := tracker.Get(ctx, "ghost.pdf")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStatusTrackerExpiry(t *testing.T) {
	ctx := context.Background()
	tracker, clock := newTestTracker()

	require.NoError(t, tracker.Init(ctx, "old.pdf"))
	clock.Advance(30 * time.Minute)
	require.NoError(t, tracker.Init(ctx, "new.pdf"))

	clock.Advance(30 * time.Minute)
	_, err := tracker.Get(ctx, "old.pdf")
	require.NoError(t, err, "exactly at the retention window the record is kept")

	clock.Advance(time.Second)
	_, err = tracker.Get(ctx, "old.pdf")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = tracker.Get(ctx, "new.pdf")
	assert.NoError(t, err)
}

func TestStatusTrackerClampsProgress(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker()
	require.NoError(t, tracker.Init(ctx, "a.pdf"))

	require.NoError(t, tracker.Update(ctx, "a.pdf", types.STATUS_PROCESSING, 140, ""))
	rec, err := tracker.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Progress)
}

func TestStatusTrackerConcurrentFiles(t *testing.T) {
	ctx := context.Background()
	tracker, _ := newTestTracker()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d.pdf", i)
			assert.NoError(t, tracker.Init(ctx, id))
			for p := 0; p <= 100; p += 10 {
				assert.NoError(t, tracker.Update(ctx, id, types.STATUS_PROCESSING, p, ""))
				_, err := tracker.Get(ctx, id)
				assert.NoError(t, err)
			}
			assert.NoError(t, tracker.Update(ctx, id, types.STATUS_COMPLETE, 100, ""))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		rec, err := tracker.Get(ctx, fmt.Sprintf("doc-%d.pdf", i))
		require.NoError(t, err)
		assert.Equal(t, types.STATUS_COMPLETE, rec.Status)
		assert.Equal(t, 100, rec.Progress)
	}
}
