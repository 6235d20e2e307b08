package timingtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fired(c <-chan time.Time) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

func TestClock_TimersFireOnlyOnAdvance(t *testing.T) {
	clock := NewClock()

	zero := clock.NewTimer(0)
	later := clock.NewTimer(10 * time.Millisecond)
	assert.Equal(t, 2, clock.Pending())
	assert.False(t, fired(zero.C()), "zero timer must wait for Advance")

	clock.Advance(0)
	assert.True(t, fired(zero.C()))
	assert.False(t, fired(later.C()))

	clock.Advance(9 * time.Millisecond)
	assert.False(t, fired(later.C()))

	clock.Advance(time.Millisecond)
	assert.True(t, fired(later.C()))
	assert.Equal(t, 0, clock.Pending())
}

func TestClock_Stop(t *testing.T) {
	clock := NewClock()

	timer := clock.NewTimer(time.Millisecond)
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clock.Advance(time.Second)
	assert.False(t, fired(timer.C()))

	timer = clock.NewTimer(time.Millisecond)
	clock.Advance(time.Millisecond)
	assert.False(t, timer.Stop(), "already fired")
}

func TestClock_WaitForTimers(t *testing.T) {
	clock := NewClock()

	go func() {
		time.Sleep(5 * time.Millisecond)
		clock.NewTimer(time.Second)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.WaitForTimers(ctx, 1))

	remaining, ok := clock.LastDeadline()
	assert.True(t, ok)
	assert.Equal(t, time.Second, remaining)

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, clock.WaitForTimers(short, 2), context.DeadlineExceeded)
}
