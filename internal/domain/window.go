package domain

// PageCap is the maximum number of bars a single klines request may return.
const PageCap = 1000

// Window is a closed interval of epoch-millisecond open times to request from
// the exchange. Windows are derived state, recomputed while walking backward,
// and are never persisted.
type Window struct {
	Start int64 // Inclusive lower bound
	End   int64 // Inclusive upper bound
}

// PageWindow computes the request window ending at cursor for the given
// interval: [max(0, cursor - millis*PageCap + 1), cursor]. A full page of
// PageCap bars exactly covers the window.
func PageWindow(cursor int64, interval Interval) Window {
	start := cursor - interval.Millis()*PageCap + 1
	if start < 0 {
		start = 0
	}
	return Window{Start: start, End: cursor}
}

// NextCursor returns the cursor for the window preceding w.
func (w Window) NextCursor() int64 {
	return w.Start - 1
}

// Boundaries holds the backfill limits for one (asset, interval) pair,
// computed fresh from the archive at the start of the pair.
type Boundaries struct {
	// End is one millisecond before the earliest baseline bar. The driver
	// never requests or writes bars with OpenTime > End.
	End int64
	// Stop is one millisecond before the earliest bar this backfill's own
	// source already wrote; HasStop is false when no such data exists yet.
	// When set, the driver never walks to OpenTime <= Stop, which prevents
	// re-fetching time a prior run already covered.
	Stop    int64
	HasStop bool
}

// Exhausted reports whether the cursor has nothing left to fill: either epoch
// zero was reached or the cursor is at or behind the stop boundary.
func (b Boundaries) Exhausted(cursor int64) bool {
	if cursor <= 0 {
		return true
	}
	return b.HasStop && cursor <= b.Stop
}
