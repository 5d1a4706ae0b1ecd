package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTumbling_Assign(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()

	testCases := []struct {
		name      string
		size      time.Duration
		ts        time.Time
		wantStart time.Time
	}{
		{
			name:      "epoch is a window start",
			size:      time.Minute,
			ts:        epoch,
			wantStart: epoch,
		},
		{
			name:      "last instant stays in window",
			size:      time.Minute,
			ts:        epoch.Add(59*time.Second + 999*time.Millisecond),
			wantStart: epoch,
		},
		{
			name:      "end belongs to next window",
			size:      time.Minute,
			ts:        epoch.Add(time.Minute),
			wantStart: epoch.Add(time.Minute),
		},
		{
			name:      "odd duration",
			size:      7 * time.Second,
			ts:        epoch.Add(22 * time.Second),
			wantStart: epoch.Add(21 * time.Second),
		},
		{
			name:      "before epoch rounds down",
			size:      time.Minute,
			ts:        epoch.Add(-time.Second),
			wantStart: epoch.Add(-time.Minute),
		},
		{
			name:      "hour window on a real date",
			size:      time.Hour,
			ts:        time.Date(2024, 5, 1, 13, 45, 10, 0, time.UTC),
			wantStart: time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
		},
		{
			name:      "year 2500 minute window",
			size:      time.Minute,
			ts:        time.Date(2500, 3, 1, 10, 15, 42, 500, time.UTC),
			wantStart: time.Date(2500, 3, 1, 10, 15, 0, 0, time.UTC),
		},
		{
			name:      "year 1500 minute window",
			size:      time.Minute,
			ts:        time.Date(1500, 7, 9, 23, 59, 59, 0, time.UTC),
			wantStart: time.Date(1500, 7, 9, 23, 59, 0, 0, time.UTC),
		},
		{
			name:      "year 2500 sub second window",
			size:      250 * time.Millisecond,
			ts:        time.Date(2500, 1, 1, 0, 0, 1, 600_000_000, time.UTC),
			wantStart: time.Date(2500, 1, 1, 0, 0, 1, 500_000_000, time.UTC),
		},
		{
			name:      "year 1500 sub second window",
			size:      100 * time.Millisecond,
			ts:        time.Date(1500, 1, 1, 0, 0, 0, 950_000_000, time.UTC),
			wantStart: time.Date(1500, 1, 1, 0, 0, 0, 900_000_000, time.UTC),
		},
		{
			name:      "non utc input",
			size:      time.Minute,
			ts:        time.Date(2024, 5, 1, 15, 45, 10, 0, time.FixedZone("CEST", 2*3600)),
			wantStart: time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := NewTumbling(tc.size).Assign(tc.ts)

			assert.True(t, tc.wantStart.Equal(w.Start), "start %s, want %s", w.Start, tc.wantStart)
			assert.Equal(t, tc.size, w.End.Sub(w.Start))
			assert.True(t, w.Contains(tc.ts))
			assert.False(t, w.Contains(w.End))
		})
	}
}

func TestWindow_ClosedBy(t *testing.T) {
	w := NewTumbling(time.Minute).Assign(time.Unix(0, 0))

	assert.False(t, w.ClosedBy(time.Unix(64, 0), 5*time.Second))
	assert.True(t, w.ClosedBy(time.Unix(65, 0), 5*time.Second))
	assert.True(t, w.ClosedBy(time.Unix(60, 0), 0))
}
