// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import "time"

// Clock abstracts wall-clock reads and blocking sleeps so the poll loops
// can be driven by a fake clock in tests instead of real delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }
