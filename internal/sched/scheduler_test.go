package sched

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextbot/internal/store"
)

// fakeClock drives AfterFunc timers manually via Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// Advance moves the clock and fires due timers in deadline order, outside
// the clock lock the way time.AfterFunc does.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.deadline.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, t := range due {
		t.f()
	}
}

// live counts timers that are neither stopped nor fired.
func (c *fakeClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type memStore struct {
	mu        sync.Mutex
	reminders []store.Reminder
}

func (m *memStore) Reminders() []store.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Reminder(nil), m.reminders...)
}

func (m *memStore) SaveReminders(rems []store.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = rems
	return nil
}

type delivery struct {
	mu    sync.Mutex
	fired []store.Reminder
}

func (d *delivery) deliver(r store.Reminder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired = append(d.fired, r)
}

func (d *delivery) ids() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.fired))
	for _, r := range d.fired {
		out = append(out, r.ID)
	}
	return out
}

var t0 = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) int64 { return t0.Add(d).UnixMilli() }

func newScheduler(t *testing.T) (*Scheduler, *fakeClock, *memStore, *delivery) {
	t.Helper()
	clock := newFakeClock(t0)
	st := &memStore{}
	del := &delivery{}
	return New(clock, st, del.deliver), clock, st, del
}

func seed(st *memStore, rems ...store.Reminder) {
	st.SaveReminders(rems)
}

func TestScheduleAndFire(t *testing.T) {
	s, clock, st, del := newScheduler(t)
	r := store.Reminder{ID: "a", Text: "call mom", Time: at(2 * time.Minute)}
	seed(st, r)
	s.Schedule(r)

	assert.Equal(t, 1, s.Pending())
	clock.Advance(time.Minute)
	assert.Empty(t, del.ids(), "must not fire early")

	clock.Advance(time.Minute)
	require.Equal(t, []string{"a"}, del.ids())
	assert.Empty(t, st.Reminders(), "fired reminder leaves the store")
	assert.Equal(t, 0, s.Pending())
}

func TestRescheduleKeepsOneTimer(t *testing.T) {
	s, clock, st, del := newScheduler(t)
	r := store.Reminder{ID: "a", Text: "x", Time: at(time.Minute)}
	seed(st, r)

	s.Schedule(r)
	s.Schedule(r)
	s.Schedule(r)

	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, clock.live())

	clock.Advance(time.Hour)
	assert.Equal(t, []string{"a"}, del.ids(), "exactly one delivery")
}

func TestRescheduleMovesDeadline(t *testing.T) {
	s, clock, st, del := newScheduler(t)
	r := store.Reminder{ID: "a", Text: "x", Time: at(time.Minute)}
	seed(st, r)
	s.Schedule(r)

	r.Time = at(5 * time.Minute)
	seed(st, r)
	s.Schedule(r)

	clock.Advance(2 * time.Minute)
	assert.Empty(t, del.ids(), "old deadline is dead")

	clock.Advance(3 * time.Minute)
	assert.Equal(t, []string{"a"}, del.ids())
}

func TestCancel(t *testing.T) {
	s, clock, st, del := newScheduler(t)
	r := store.Reminder{ID: "a", Text: "x", Time: at(time.Minute)}
	seed(st, r)
	s.Schedule(r)

	s.Cancel("a")
	assert.Equal(t, 0, s.Pending())

	clock.Advance(time.Hour)
	assert.Empty(t, del.ids())
}

func TestCancelAll(t *testing.T) {
	s, clock, st, del := newScheduler(t)
	rems := []store.Reminder{
		{ID: "a", Text: "x", Time: at(time.Minute)},
		{ID: "b", Text: "y", Time: at(2 * time.Minute)},
		{ID: "c", Text: "z", Time: at(3 * time.Minute)},
	}
	seed(st, rems...)
	for _, r := range rems {
		s.Schedule(r)
	}
	require.Equal(t, 3, s.Pending())

	s.CancelAll()
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, clock.live())

	clock.Advance(time.Hour)
	assert.Empty(t, del.ids())
}

func TestOverdueFiresSynchronously(t *testing.T) {
	s, _, st, del := newScheduler(t)
	r := store.Reminder{ID: "a", Text: "x", Time: at(-time.Minute)}
	seed(st, r)

	s.Schedule(r)

	assert.Equal(t, []string{"a"}, del.ids(), "overdue fires before Schedule returns")
	assert.Empty(t, st.Reminders())
	assert.Equal(t, 0, s.Pending())
}

func TestRearmExactlyOnce(t *testing.T) {
	s, clock, st, del := newScheduler(t)
	seed(st,
		store.Reminder{ID: "late", Text: "x", Time: at(-time.Hour)},
		store.Reminder{ID: "soon", Text: "y", Time: at(time.Minute)},
		store.Reminder{ID: "later", Text: "z", Time: at(time.Hour)},
	)

	s.Rearm()

	assert.Equal(t, []string{"late"}, del.ids(), "overdue fires during rearm, in store order")
	assert.Equal(t, 2, s.Pending())

	clock.Advance(2 * time.Hour)
	assert.Equal(t, []string{"late", "soon", "later"}, del.ids())
	assert.Empty(t, st.Reminders())
}

func TestFireDropsReminderClearedMidFlight(t *testing.T) {
	s, clock, st, del := newScheduler(t)
	r := store.Reminder{ID: "a", Text: "x", Time: at(time.Minute)}
	seed(st, r)
	s.Schedule(r)

	// cleared behind the scheduler's back, timer still armed
	st.SaveReminders(nil)

	clock.Advance(time.Hour)
	assert.Empty(t, del.ids(), "a reminder no longer in the store is not delivered")
}
