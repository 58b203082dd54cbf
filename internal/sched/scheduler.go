// Package sched arms exactly one timer per live reminder and delivers them
// when due.
package sched

import (
	log "log/slog"
	"sync"
	"time"

	"nextbot/internal/store"
)

// ReminderStore is the slice of the persistence layer the scheduler needs.
type ReminderStore interface {
	Reminders() []store.Reminder
	SaveReminders([]store.Reminder) error
}

// Scheduler maps each reminder id to at most one pending timer. The timer
// table is a non-owning index over the store; a fired or cancelled reminder
// never keeps a handle behind.
type Scheduler struct {
	clock   Clock
	store   ReminderStore
	deliver func(store.Reminder)

	mu     sync.Mutex
	timers map[string]Timer
}

// New creates a Scheduler. deliver is invoked once per fired reminder, after
// the reminder has been removed from the store.
func New(clock Clock, st ReminderStore, deliver func(store.Reminder)) *Scheduler {
	return &Scheduler{
		clock:   clock,
		store:   st,
		deliver: deliver,
		timers:  make(map[string]Timer),
	}
}

// Schedule arms a timer for the reminder, replacing any pending timer for
// the same id. A reminder already due fires before Schedule returns.
func (s *Scheduler) Schedule(r store.Reminder) {
	s.mu.Lock()
	s.stopLocked(r.ID)

	delay := time.UnixMilli(r.Time).Sub(s.clock.Now())
	if delay <= 0 {
		s.mu.Unlock()
		s.fire(r)
		return
	}

	s.timers[r.ID] = s.clock.AfterFunc(delay, func() { s.fire(r) })
	s.mu.Unlock()
}

// Cancel disarms the pending timer for id, if any.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	s.stopLocked(id)
	s.mu.Unlock()
}

// CancelAll disarms every pending timer. No timer is live once it returns.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

// Rearm schedules every reminder currently in the store, in store order.
// Reminders already overdue fire immediately. Called on process start.
func (s *Scheduler) Rearm() {
	for _, r := range s.store.Reminders() {
		s.Schedule(r)
	}
}

// Pending reports the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) stopLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// fire removes the reminder from the store and hands it to the delivery
// callback. A reminder cleared while its timer was in flight is dropped.
func (s *Scheduler) fire(r store.Reminder) {
	s.mu.Lock()
	s.stopLocked(r.ID)

	rems := s.store.Reminders()
	kept := make([]store.Reminder, 0, len(rems))
	found := false
	for _, x := range rems {
		if x.ID == r.ID {
			found = true
			continue
		}
		kept = append(kept, x)
	}
	if !found {
		s.mu.Unlock()
		return
	}
	if err := s.store.SaveReminders(kept); err != nil {
		log.Warn("failed to drop fired reminder", "id", r.ID, "err", err)
	}
	s.mu.Unlock()

	s.deliver(r)
}
