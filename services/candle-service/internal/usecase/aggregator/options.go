package aggregator

import "time"

// Options represents configuration options for the Aggregator.
type Options struct {
	// Seconds is the window duration.
	Seconds int
	// GracePeriod is how far the watermark must pass a window's end before it closes.
	GracePeriod time.Duration
	// EmitIntermediate emits the running snapshot after every trade. When false a
	// window is emitted once, when it closes.
	EmitIntermediate bool
}

// DefaultOptions returns the default aggregator options.
func DefaultOptions() *Options {
	return &Options{
		Seconds:          60,
		GracePeriod:      5 * time.Second,
		EmitIntermediate: true,
	}
}
