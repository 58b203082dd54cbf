package sched

import "time"

// Timer is a cancelable one-shot timer handle.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time and timer creation so reminder firing can be
// driven by a fake clock in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the wall clock backed by time.AfterFunc.
func RealClock() Clock { return realClock{} }
