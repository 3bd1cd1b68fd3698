package domain

import "fmt"

// Interval represents the fixed bucket duration of a bar.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// intervalMillis maps each interval to its exact millisecond length. All time
// arithmetic is UTC-anchored epoch milliseconds, so there is no daylight
// saving or calendar drift in these values.
var intervalMillis = map[Interval]int64{
	Interval1m:  60_000,
	Interval5m:  300_000,
	Interval15m: 900_000,
	Interval1h:  3_600_000,
	Interval4h:  14_400_000,
	Interval1d:  86_400_000,
}

// apiToken maps each interval to the token the exchange klines API expects.
// For Binance the tokens happen to match the internal names, but the mapping
// stays table-driven so the two namespaces never silently diverge.
var apiToken = map[Interval]string{
	Interval1m:  "1m",
	Interval5m:  "5m",
	Interval15m: "15m",
	Interval1h:  "1h",
	Interval4h:  "4h",
	Interval1d:  "1d",
}

// Intervals lists every supported interval in ascending duration order.
func Intervals() []Interval {
	return []Interval{Interval1m, Interval5m, Interval15m, Interval1h, Interval4h, Interval1d}
}

// IsValid reports whether the interval is one of the supported set.
func (i Interval) IsValid() bool {
	_, ok := intervalMillis[i]
	return ok
}

// Millis returns the exact duration of the interval in milliseconds.
// It panics on an unknown interval; callers validate intervals at config time.
func (i Interval) Millis() int64 {
	ms, ok := intervalMillis[i]
	if !ok {
		panic(fmt.Sprintf("unknown interval %q", i))
	}
	return ms
}

// APIToken returns the exchange API token for the interval.
func (i Interval) APIToken() string {
	tok, ok := apiToken[i]
	if !ok {
		panic(fmt.Sprintf("unknown interval %q", i))
	}
	return tok
}

// ParseInterval converts a string to an Interval, rejecting unknown values.
func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if !i.IsValid() {
		return "", fmt.Errorf("unsupported interval %q (use: 1m, 5m, 15m, 1h, 4h, 1d)", s)
	}
	return i, nil
}
