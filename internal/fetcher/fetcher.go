// Package fetcher wraps the exchange kline source with the retry and pacing
// policy of the backfill: transient failures are retried on the same window
// with exponential backoff for as long as the context lives, fatal failures
// surface immediately, and calls are spaced by a configurable delay so a
// healthy run stays under the provider's rate limits.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"hyperfill/internal/domain"
	"hyperfill/internal/ports"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"
)

const (
	defaultRetryFloor = time.Second
	defaultRetryCeil  = 5 * time.Second
)

// Fetcher implements ports.PageFetcher on top of a ports.KlineSource.
type Fetcher struct {
	source     ports.KlineSource
	logger     ports.Logger
	limiter    *rate.Limiter
	retryFloor time.Duration
	retryCeil  time.Duration
}

// Config holds the fetcher's dependencies and tuning.
type Config struct {
	Source ports.KlineSource
	Logger ports.Logger
	// CallDelay is the minimum spacing between requests. Zero disables pacing.
	CallDelay time.Duration
	// RetryFloor and RetryCeil bound the exponential backoff applied after a
	// transient failure. Defaults: 1s floor, 5s ceiling.
	RetryFloor time.Duration
	RetryCeil  time.Duration
}

// New creates a page fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Source == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Fetcher")
	}
	floor := cfg.RetryFloor
	if floor <= 0 {
		floor = defaultRetryFloor
	}
	ceil := cfg.RetryCeil
	if ceil < floor {
		ceil = defaultRetryCeil
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.CallDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.CallDelay), 1)
	}

	return &Fetcher{
		source:     cfg.Source,
		logger:     cfg.Logger,
		limiter:    limiter,
		retryFloor: floor,
		retryCeil:  ceil,
	}, nil
}

// FetchPage requests one page of bars for the window. Zero returned bars with
// a nil error is the terminal-empty signal: the window lies fully behind the
// start of available history. A non-nil error is always fatal for the pair;
// transient conditions never escape this method, they only add delay.
func (f *Fetcher) FetchPage(ctx context.Context, asset, symbol string, interval domain.Interval, window domain.Window) ([]*domain.Bar, error) {
	b := &backoff.Backoff{
		Min:    f.retryFloor,
		Max:    f.retryCeil,
		Factor: 2,
	}

	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
		}

		bars, err := f.source.Klines(ctx, asset, symbol, interval, window.Start, window.End, domain.PageCap)
		if err == nil {
			return bars, nil
		}
		if !ports.IsTransient(err) {
			return nil, err
		}

		delay := b.Duration()
		f.logger.Warn(ctx, "transient fetch failure, backing off", map[string]interface{}{
			"asset":    asset,
			"symbol":   symbol,
			"interval": interval,
			"start":    window.Start,
			"end":      window.End,
			"backoff":  delay.String(),
			"cause":    err.Error(),
		})
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// sleep blocks for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ports.ErrContextCanceled, ctx.Err())
	}
}
