package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBar() *Bar {
	return &Bar{
		Source:     SourceBinance,
		Asset:      "BTC",
		Interval:   Interval1h,
		OpenTime:   1_700_000_000_000,
		CloseTime:  1_700_003_599_999,
		Open:       35000, High: 35100, Low: 34900, Close: 35050,
		Volume:     123.45,
		TradeCount: 678,
	}
}

func TestBarValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Bar)
		wantErr bool
	}{
		{name: "valid bar", mutate: func(b *Bar) {}},
		{name: "empty asset", mutate: func(b *Bar) { b.Asset = "" }, wantErr: true},
		{name: "empty source", mutate: func(b *Bar) { b.Source = "" }, wantErr: true},
		{name: "unknown interval", mutate: func(b *Bar) { b.Interval = "2h" }, wantErr: true},
		{name: "open equals close time", mutate: func(b *Bar) { b.CloseTime = b.OpenTime }, wantErr: true},
		{name: "open after close time", mutate: func(b *Bar) { b.CloseTime = b.OpenTime - 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBar()
			tt.mutate(b)
			err := b.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUTCDateOf(t *testing.T) {
	// 1700000000000 ms = 2023-11-14T22:13:20Z
	assert.Equal(t, "2023-11-14", UTCDateOf(1_700_000_000_000))
	// One millisecond before midnight stays on the previous day.
	assert.Equal(t, "2023-11-14", UTCDateOf(1_700_006_399_999))
	assert.Equal(t, "2023-11-15", UTCDateOf(1_700_006_400_000))
	assert.Equal(t, "1970-01-01", UTCDateOf(0))
}

func TestGroupByUTCDay(t *testing.T) {
	// Hourly bars crossing midnight 2023-11-15T00:00:00Z (= 1700006400000 ms).
	midnight := int64(1_700_006_400_000)
	var bars []*Bar
	for i := int64(-2); i < 3; i++ {
		b := validBar()
		b.OpenTime = midnight + i*Interval1h.Millis()
		b.CloseTime = b.OpenTime + Interval1h.Millis() - 1
		bars = append(bars, b)
	}

	groups := GroupByUTCDay(bars)
	require.Len(t, groups, 2)
	assert.Len(t, groups["2023-11-14"], 2)
	assert.Len(t, groups["2023-11-15"], 3)

	// Input order is preserved within each group.
	day15 := groups["2023-11-15"]
	for i := 1; i < len(day15); i++ {
		assert.Less(t, day15[i-1].OpenTime, day15[i].OpenTime)
	}
}

func TestGroupByUTCDay_SingleDay(t *testing.T) {
	b := validBar()
	groups := GroupByUTCDay([]*Bar{b})
	require.Len(t, groups, 1)
	assert.Equal(t, []*Bar{b}, groups[b.UTCDate()])
}
