package ports

import (
	"context"

	"hyperfill/internal/domain"
)

// ArchiveReader answers boundary queries against the persisted bar archive.
type ArchiveReader interface {
	// EarliestOpenTime returns the minimum open time (epoch ms) stored for
	// the given source, asset and interval. ok is false when no matching
	// bars exist, which is distinct from an earliest bar at time zero.
	// An empty or not-yet-created archive is not an error.
	EarliestOpenTime(ctx context.Context, source, asset string, interval domain.Interval) (ms int64, ok bool, err error)
}

// BarWriter durably persists one day-partition batch of bars. All bars in a
// single call share asset, interval and UTC day. Writes are append-style:
// each call produces one new artifact named after the batch's open-time range,
// so runs covering disjoint windows never collide. The call is a no-op on
// empty input.
type BarWriter interface {
	WriteDay(ctx context.Context, asset string, interval domain.Interval, date string, bars []*domain.Bar) error
}
