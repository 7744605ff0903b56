package service

import "time"

// Clock abstracts wall-clock time. All window and overlap decisions flow
// through it so tests can pin the time of day.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
