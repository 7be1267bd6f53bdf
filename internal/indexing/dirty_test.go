package indexing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the tracker deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func trackerWithClock(window time.Duration) (*DirtyTracker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	d := NewDirtyTracker(window)
	d.SetNowFunc(func() time.Time { return clock.now })
	return d, clock
}

func TestShouldFlushFalseImmediatelyAfterMark(t *testing.T) {
	d, _ := trackerWithClock(100 * time.Millisecond)
	d.MarkDirty("file:///ws/a.rho", PriorityBackground, ReasonEdit)
	assert.False(t, d.ShouldFlush())
}

func TestShouldFlushAfterWindow(t *testing.T) {
	d, clock := trackerWithClock(100 * time.Millisecond)
	d.MarkDirty("file:///ws/a.rho", PriorityBackground, ReasonEdit)

	clock.advance(99 * time.Millisecond)
	assert.False(t, d.ShouldFlush())

	clock.advance(1 * time.Millisecond)
	assert.True(t, d.ShouldFlush())
}

func TestDebouncedRapidEdits(t *testing.T) {
	// Edits at t, t+20, t+40, t+60 coalesce into one entry. Re-marks
	// refresh marked_at, so the batch flushes only once the burst ends.
	d, clock := trackerWithClock(100 * time.Millisecond)
	d.MarkDirty("file:///ws/bar.rho", PriorityBackground, ReasonEdit)
	for i := 0; i < 3; i++ {
		clock.advance(20 * time.Millisecond)
		d.MarkDirty("file:///ws/bar.rho", PriorityBackground, ReasonEdit)
	}

	clock.advance(39 * time.Millisecond) // t+99
	assert.False(t, d.ShouldFlush())
	clock.advance(61 * time.Millisecond) // last mark + 100ms
	assert.True(t, d.ShouldFlush())

	entries := d.Drain()
	require.Len(t, entries, 1, "repeated marks coalesce to one entry")
	assert.Equal(t, "file:///ws/bar.rho", entries[0].URI)
}

func TestDrainEmptiesTracker(t *testing.T) {
	d, clock := trackerWithClock(50 * time.Millisecond)
	d.MarkDirty("file:///ws/a.rho", PriorityBackground, ReasonSave)
	clock.advance(time.Second)

	first := d.Drain()
	assert.Len(t, first, 1)
	assert.Zero(t, d.Pending())
	assert.False(t, d.ShouldFlush())
	assert.Empty(t, d.Drain())
}

func TestDrainOrdersByPriorityThenAge(t *testing.T) {
	d, clock := trackerWithClock(10 * time.Millisecond)

	d.MarkDirty("file:///ws/bg-old.rho", PriorityBackground, ReasonFileWatcher)
	clock.advance(5 * time.Millisecond)
	d.MarkDirty("file:///ws/open.rho", PriorityOpen, ReasonEdit)
	clock.advance(5 * time.Millisecond)
	d.MarkDirty("file:///ws/bg-new.rho", PriorityBackground, ReasonFileWatcher)

	entries := d.Drain()
	require.Len(t, entries, 3)
	assert.Equal(t, "file:///ws/open.rho", entries[0].URI, "open documents first")
	assert.Equal(t, "file:///ws/bg-old.rho", entries[1].URI)
	assert.Equal(t, "file:///ws/bg-new.rho", entries[2].URI)
}

func TestRemarkKeepsStrongestPriority(t *testing.T) {
	d, _ := trackerWithClock(10 * time.Millisecond)
	d.MarkDirty("file:///ws/a.rho", PriorityOpen, ReasonEdit)
	d.MarkDirty("file:///ws/a.rho", PriorityBackground, ReasonFileWatcher)

	entries := d.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, PriorityOpen, entries[0].Priority)
	assert.Equal(t, ReasonFileWatcher, entries[0].Reason, "latest reason wins")
}

func TestEmptyTrackerNeverFlushes(t *testing.T) {
	d, clock := trackerWithClock(10 * time.Millisecond)
	clock.advance(time.Hour)
	assert.False(t, d.ShouldFlush())
}

func TestDefaultWindow(t *testing.T) {
	d := NewDirtyTracker(0)
	assert.Equal(t, DefaultDebounceWindow, d.Window())
}
