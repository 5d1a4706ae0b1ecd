// Package window assigns timestamps to epoch-aligned tumbling windows.
package window

import (
	"time"

	"github.com/muhammadchandra19/exchange/pkg/util"
)

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Tumbling assigns timestamps to fixed, non-overlapping windows of Size aligned to the Unix epoch.
type Tumbling struct {
	Size time.Duration
}

// NewTumbling creates a Tumbling window of the given size. Size must be positive.
func NewTumbling(size time.Duration) Tumbling {
	return Tumbling{Size: size}
}

// Assign returns the window containing t. It handles timestamps before the epoch.
// Sizes that are whole seconds or divide a second evenly are exact for any year;
// other sizes go through nanoseconds and are limited to years 1678 to 2262.
func (w Tumbling) Assign(t time.Time) Window {
	var s time.Time
	switch size := w.Size; {
	case size%time.Second == 0:
		secs := int64(size / time.Second)
		s = time.Unix(util.FloorDiv(t.Unix(), secs)*secs, 0)
	case time.Second%size == 0:
		n := int64(t.Nanosecond())
		s = time.Unix(t.Unix(), n-n%int64(size))
	default:
		s = time.Unix(0, util.FloorDiv(t.UnixNano(), int64(size))*int64(size))
	}
	s = s.UTC()
	return Window{Start: s, End: s.Add(w.Size)}
}

// StartOf returns the start of the window containing t.
func (w Tumbling) StartOf(t time.Time) time.Time {
	return w.Assign(t).Start
}

// Contains reports whether t falls in the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ClosedBy reports whether the window is complete once the watermark reached wm,
// allowing grace for late arrivals.
func (w Window) ClosedBy(wm time.Time, grace time.Duration) bool {
	return !w.End.Add(grace).After(wm)
}
