package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerFiresOnce(t *testing.T) {
	r := NewTimerRegistry()
	var fired int32

	r.Start("t", 20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestTimerCancelPreventsCallback(t *testing.T) {
	r := NewTimerRegistry()
	var fired int32

	r.Start("t", 30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	r.Cancel("t")
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestTimerCancelIsIdempotent(t *testing.T) {
	r := NewTimerRegistry()

	r.Cancel("never-started")

	r.Start("t", 20*time.Millisecond, func() {})
	r.Cancel("t")
	r.Cancel("t")
	time.Sleep(50 * time.Millisecond)
	r.Cancel("t")
}

func TestTimerStartReplacesExisting(t *testing.T) {
	r := NewTimerRegistry()
	var firstFired, secondFired int32

	r.Start("t", 30*time.Millisecond, func() { atomic.AddInt32(&firstFired, 1) })
	r.Start("t", 30*time.Millisecond, func() { atomic.AddInt32(&secondFired, 1) })
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&firstFired))
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondFired))
}

func TestTimerIndependentSlots(t *testing.T) {
	r := NewTimerRegistry()
	var ronFired, doubtFired int32

	r.Start(TimerRon, 20*time.Millisecond, func() { atomic.AddInt32(&ronFired, 1) })
	r.Start(TimerDoubt, 20*time.Millisecond, func() { atomic.AddInt32(&doubtFired, 1) })
	r.Cancel(TimerRon)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&ronFired))
	assert.Equal(t, int32(1), atomic.LoadInt32(&doubtFired))
}

func TestTimerCancelAll(t *testing.T) {
	r := NewTimerRegistry()
	var fired int32

	r.Start(TimerRon, 30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	r.Start(TimerDoubt, 30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	r.CancelAll()
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
