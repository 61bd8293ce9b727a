package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		since     string
		until     string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "defaults to last day",
			wantStart: now.Add(-24 * time.Hour),
			wantEnd:   now,
		},
		{
			name:      "dates",
			since:     "2025-03-01",
			until:     "2025-03-04",
			wantStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "rfc3339 with offset",
			since:     "2025-03-01T10:00:00+02:00",
			wantStart: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
			wantEnd:   now,
		},
		{name: "inverted", since: "2025-03-05", until: "2025-03-04", wantErr: true},
		{name: "garbage", since: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRange(tt.since, tt.until, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(start), "start %s", start)
			assert.True(t, tt.wantEnd.Equal(end), "end %s", end)
		})
	}
}
