package drafts

import "time"

// Timer is a cancellable deferred call.
type Timer interface {
	Stop() bool
}

// Scheduler arms deferred calls.
type Scheduler interface {
	AfterFunc(delay time.Duration, fn func()) Timer
}

// RealScheduler schedules on the runtime timer wheel.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(delay time.Duration, fn func()) Timer {
	return time.AfterFunc(delay, fn)
}
