package domain

import (
	"fmt"
	"time"
)

// Source tags identify where archived bars originated. The backfill extends
// the baseline series backward and tags its own output with a distinct source
// so that boundaries between the two series can be recomputed on every run.
const (
	SourceBinance     = "binance"
	SourceHyperliquid = "hyperliquid"
)

// Bar represents a single OHLCV candlestick for one asset, one interval and
// one time bucket. Bars are created only by translating exchange responses
// and are never mutated afterwards.
type Bar struct {
	Source     string   // Data origin tag (e.g., "binance")
	Asset      string   // Internal asset code (e.g., "BTC")
	Interval   Interval // Bucket duration (e.g., Interval1h)
	OpenTime   int64    // Bucket start, epoch milliseconds UTC
	CloseTime  int64    // Bucket end, epoch milliseconds UTC
	Open       float64  // Opening price
	High       float64  // Highest price
	Low        float64  // Lowest price
	Close      float64  // Closing price
	Volume     float64  // Base asset volume
	TradeCount int64    // Number of trades in the bucket
	VWAP       *float64 // Volume-weighted average price; nil when the source does not compute it
}

// Validate checks the structural invariants of a bar.
func (b *Bar) Validate() error {
	if b.Asset == "" {
		return fmt.Errorf("bar has empty asset")
	}
	if b.Source == "" {
		return fmt.Errorf("bar has empty source")
	}
	if !b.Interval.IsValid() {
		return fmt.Errorf("bar has unknown interval %q", b.Interval)
	}
	if b.OpenTime >= b.CloseTime {
		return fmt.Errorf("bar open time %d is not before close time %d", b.OpenTime, b.CloseTime)
	}
	return nil
}

// UTCDate returns the UTC calendar date of the bar's open time in YYYY-MM-DD
// form. This is the day-partition key, independent of the interval.
func (b *Bar) UTCDate() string {
	return UTCDateOf(b.OpenTime)
}

// UTCDateOf formats an epoch-millisecond timestamp as a UTC YYYY-MM-DD date.
func UTCDateOf(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

// GroupByUTCDay splits bars into day-partition groups keyed by the UTC
// calendar date of each bar's open time. A page spanning a day boundary yields
// exactly one group per day spanned. Order within a group follows input order.
func GroupByUTCDay(bars []*Bar) map[string][]*Bar {
	groups := make(map[string][]*Bar)
	for _, b := range bars {
		date := b.UTCDate()
		groups[date] = append(groups[date], b)
	}
	return groups
}
