package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 8, 12, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now, "1 second ago"},
		{"seconds", now.Add(-42 * time.Second), "42 seconds ago"},
		{"one minute", now.Add(-61 * time.Second), "1 minute ago"},
		{"hours", now.Add(-3 * time.Hour), "3 hours ago"},
		{"days", now.Add(-49 * time.Hour), "2 days ago"},
		{"future", now.Add(2 * time.Hour), "2 hours from now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(tt.t, now))
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "250ms", FormatElapsed(250*time.Millisecond))
	assert.Equal(t, "1m12s", FormatElapsed(72*time.Second+300*time.Millisecond))
}
