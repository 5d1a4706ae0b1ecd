package engine

import (
	"time"

	"github.com/muhammadchandra19/exchange/services/candle-service/pkg/config"
)

// Options represents configuration options for the Engine.
type Options struct {
	// TimeBasis selects the trade timestamp (event) or the log message time (ingest) for windowing.
	TimeBasis config.TimeBasis
	// WriteTimeout bounds a publish that outlives shutdown.
	WriteTimeout time.Duration
	// Symbols are the symbols whose open windows are restored at start.
	Symbols []string
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		TimeBasis:    config.EventTime,
		WriteTimeout: 10 * time.Second,
	}
}
