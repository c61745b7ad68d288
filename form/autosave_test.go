package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/surveyflow/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestAutosaverStatus(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	saved := &recorder{}
	a := NewAutosaver(time.Hour, saved.record, WithClock(clock.Now))
	defer a.Close(context.Background())

	status, last := a.Status()
	assert.Equal(t, StatusIdle, status)
	assert.True(t, last.IsZero())

	a.Schedule(model.Answers{"q1": "x"})
	require.NoError(t, a.Flush(context.Background()))

	status, last = a.Status()
	assert.Equal(t, StatusSaved, status)
	assert.Equal(t, clock.Now(), last)

	clock.Advance(savedDisplay)
	status, last = a.Status()
	assert.Equal(t, StatusIdle, status)
	assert.Equal(t, clock.Now().Add(-savedDisplay), last)
}

func TestAutosaverDoesNotRetry(t *testing.T) {
	boom := errors.New("offline")
	saved := &recorder{err: boom}
	a := NewAutosaver(10*time.Millisecond, saved.record)

	a.Schedule(model.Answers{"q1": "x"})
	require.Eventually(t, func() bool {
		status, _ := a.Status()
		return status == StatusError
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, a.Err(), boom)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, saved.Calls(), 1)

	require.NoError(t, a.Close(context.Background()))
}

func TestAutosaverFlushWithoutPending(t *testing.T) {
	saved := &recorder{}
	a := NewAutosaver(time.Hour, saved.record)

	require.NoError(t, a.Flush(context.Background()))
	require.NoError(t, a.Close(context.Background()))
	assert.Empty(t, saved.Calls())
}

func TestAutosaverIgnoresScheduleAfterClose(t *testing.T) {
	saved := &recorder{}
	a := NewAutosaver(time.Millisecond, saved.record)
	require.NoError(t, a.Close(context.Background()))

	a.Schedule(model.Answers{"q1": "late"})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, saved.Calls())
}

func TestAutosaverSeedsLastSaved(t *testing.T) {
	a := NewAutosaver(time.Hour, (&recorder{}).record)
	defer a.Close(context.Background())

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	a.SetLastSaved(at)
	_, last := a.Status()
	assert.Equal(t, at, last)
}
