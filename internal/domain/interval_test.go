package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalMillis(t *testing.T) {
	tests := []struct {
		interval Interval
		want     int64
	}{
		{Interval1m, 60_000},
		{Interval5m, 300_000},
		{Interval15m, 900_000},
		{Interval1h, 3_600_000},
		{Interval4h, 14_400_000},
		{Interval1d, 86_400_000},
	}
	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Millis())
			assert.True(t, tt.interval.IsValid())
			assert.Equal(t, string(tt.interval), tt.interval.APIToken())
		})
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("4h")
	require.NoError(t, err)
	assert.Equal(t, Interval4h, iv)

	for _, bad := range []string{"", "2h", "1w", "60", "1M"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestIntervalsCoversTable(t *testing.T) {
	assert.Len(t, Intervals(), len(intervalMillis))
	for _, iv := range Intervals() {
		assert.True(t, iv.IsValid())
	}
}
