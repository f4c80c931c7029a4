package session

import "time"

// Timer is the handle for a scheduled continuation. Nothing in the
// session cancels one today, but the state machine stays testable only
// because the clock is injected and stoppable.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real one is time.AfterFunc; tests
// substitute their own so rounds settle without wall-clock delays.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func RealClock() Clock { return realClock{} }
