package ports

import (
	"context"

	"hyperfill/internal/domain"
)

// KlineSource defines the narrow interface to the exchange's historical bar
// API. Given a symbol, an interval and a closed epoch-millisecond time window,
// it returns at most limit bars whose open time falls inside the window,
// ordered oldest to newest. A successful call with zero bars means the window
// lies entirely before the start of available history (or holds no data) and
// is not an error.
//
// Errors are wrapped with the sentinel taxonomy in errors.go; callers use
// IsTransient to decide between retry and failure.
// The asset argument is the internal asset code stamped onto translated bars;
// symbol is the exchange-specific ticker the API is queried with.
type KlineSource interface {
	Klines(ctx context.Context, asset, symbol string, interval domain.Interval, startMS, endMS int64, limit int) ([]*domain.Bar, error)
}

// PageFetcher is the retrying wrapper the driver consumes: transient failures
// are absorbed with backoff, fatal failures surface immediately, and an
// inter-call delay is observed between successful requests.
type PageFetcher interface {
	FetchPage(ctx context.Context, asset, symbol string, interval domain.Interval, window domain.Window) ([]*domain.Bar, error)
}
