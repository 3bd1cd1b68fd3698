package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"hyperfill/internal/domain"
	"hyperfill/internal/ports"
)

// PairStatus is the terminal state of one (asset, interval) pair.
type PairStatus string

const (
	// StatusSkipped: no baseline data exists for the pair, so there is no
	// boundary to extend backward from.
	StatusSkipped PairStatus = "SKIPPED"
	// StatusEmptyTerminated: the exchange returned zero bars for a window,
	// meaning the cursor walked past the start of available history.
	StatusEmptyTerminated PairStatus = "EMPTY_TERMINATED"
	// StatusExhaustedTerminated: a page smaller than the cap (or the epoch
	// itself) ended the walk; the last page was still written.
	StatusExhaustedTerminated PairStatus = "EXHAUSTED_TERMINATED"
	// StatusStopBoundaryReached: the walk reached data a previous run of this
	// backfill already collected.
	StatusStopBoundaryReached PairStatus = "STOP_BOUNDARY_REACHED"
	// StatusFailed: a fatal (non-transient) fetch error ended the pair.
	StatusFailed PairStatus = "FAILED"
	// StatusAborted: the run stopped mid-pair (write failure, cancellation or
	// a boundary read error); the next run recomputes boundaries and resumes.
	StatusAborted PairStatus = "ABORTED"
)

// PairResult summarizes the outcome of one pair.
type PairResult struct {
	Asset    string
	Interval domain.Interval
	Symbol   string
	Status   PairStatus
	Pages    int
	Rows     int
	Err      error // Set only when Status is StatusFailed
}

// BackfillService walks every configured (asset, interval) pair backward
// through exchange history, writing day-partitioned pages into the archive
// until it reaches the start of history or data collected by a prior run.
// Pairs are drained strictly one at a time: each window's start depends on the
// previous window's result, and the provider rate limit is shared.
type BackfillService struct {
	cfg     Config
	logger  ports.Logger
	archive ports.ArchiveReader
	writer  ports.BarWriter
	fetcher ports.PageFetcher
}

// Config holds the driver's dependencies and resolved inputs.
type Config struct {
	Logger  ports.Logger
	Archive ports.ArchiveReader
	Writer  ports.BarWriter
	Fetcher ports.PageFetcher

	// BaselineSource tags the archive series this backfill extends backward.
	BaselineSource string
	// Source tags the bars this backfill writes.
	Source string

	Assets    []string
	Intervals []domain.Interval
	// SymbolMap maps internal asset codes to exchange tickers; assets not in
	// the map default to {ASSET}USDT.
	SymbolMap map[string]string
}

// NewBackfillService creates the driver.
func NewBackfillService(cfg Config) (*BackfillService, error) {
	if cfg.Logger == nil || cfg.Archive == nil || cfg.Writer == nil || cfg.Fetcher == nil {
		return nil, fmt.Errorf("missing required dependencies for BackfillService")
	}
	if cfg.BaselineSource == "" || cfg.Source == "" {
		return nil, fmt.Errorf("baseline source and backfill source must be set")
	}
	if cfg.BaselineSource == cfg.Source {
		return nil, fmt.Errorf("baseline source and backfill source must differ")
	}
	if len(cfg.Assets) == 0 || len(cfg.Intervals) == 0 {
		return nil, fmt.Errorf("at least one asset and one interval are required")
	}
	for _, iv := range cfg.Intervals {
		if !iv.IsValid() {
			return nil, fmt.Errorf("unsupported interval %q", iv)
		}
	}
	return &BackfillService{
		cfg:     cfg,
		logger:  cfg.Logger,
		archive: cfg.Archive,
		writer:  cfg.Writer,
		fetcher: cfg.Fetcher,
	}, nil
}

// SymbolFor resolves the exchange ticker for an internal asset code.
func (s *BackfillService) SymbolFor(asset string) string {
	if sym, ok := s.cfg.SymbolMap[asset]; ok {
		return sym
	}
	return asset + "USDT"
}

// Run processes every pair and returns per-pair results. It returns an error
// when the run itself must be considered failed: a write failure or context
// cancellation aborts immediately, and fatal per-pair fetch errors are
// reported in an aggregate error after all remaining pairs have run.
func (s *BackfillService) Run(ctx context.Context) ([]PairResult, error) {
	results := make([]PairResult, 0, len(s.cfg.Assets)*len(s.cfg.Intervals))
	failed := 0

	for _, asset := range s.cfg.Assets {
		for _, interval := range s.cfg.Intervals {
			res, err := s.runPair(ctx, asset, interval)
			results = append(results, res)
			if err != nil {
				// Write failure or cancellation: boundaries are recomputed
				// from the archive on the next run, so aborting here is safe.
				return results, err
			}
			if res.Status == StatusFailed {
				failed++
			}
		}
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d pairs failed", failed, len(results))
	}
	return results, nil
}

// runPair drains one (asset, interval) pair. The returned error aborts the
// whole run; pair-level fetch failures are recorded in the result instead.
func (s *BackfillService) runPair(ctx context.Context, asset string, interval domain.Interval) (PairResult, error) {
	res := PairResult{Asset: asset, Interval: interval, Symbol: s.SymbolFor(asset)}
	fields := map[string]interface{}{"asset": asset, "interval": interval, "symbol": res.Symbol}

	baseMin, ok, err := s.archive.EarliestOpenTime(ctx, s.cfg.BaselineSource, asset, interval)
	if err != nil {
		res.Status = StatusAborted
		return res, fmt.Errorf("reading baseline boundary for %s %s: %w", asset, interval, err)
	}
	if !ok {
		// Only extend backward from an existing baseline; the baseline's own
		// ingestion must run first. Not an error.
		s.logger.Info(ctx, "skip: no baseline data", fields)
		res.Status = StatusSkipped
		return res, nil
	}

	ownMin, hasOwn, err := s.archive.EarliestOpenTime(ctx, s.cfg.Source, asset, interval)
	if err != nil {
		res.Status = StatusAborted
		return res, fmt.Errorf("reading stop boundary for %s %s: %w", asset, interval, err)
	}

	bounds := domain.Boundaries{End: baseMin - 1, Stop: ownMin - 1, HasStop: hasOwn}
	startFields := map[string]interface{}{
		"asset": asset, "interval": interval, "symbol": res.Symbol, "end": bounds.End,
	}
	if bounds.HasStop {
		startFields["stop"] = bounds.Stop
	} else {
		startFields["stop"] = "unbounded"
	}
	s.logger.Info(ctx, "start", startFields)

	cursor := bounds.End
	for !bounds.Exhausted(cursor) {
		window := domain.PageWindow(cursor, interval)
		bars, err := s.fetcher.FetchPage(ctx, asset, res.Symbol, interval, window)
		if err != nil {
			if errors.Is(err, ports.ErrContextCanceled) {
				res.Status = StatusAborted
				return res, err
			}
			s.logger.Error(ctx, err, "fatal fetch error, abandoning pair", fields)
			res.Status = StatusFailed
			res.Err = err
			return res, nil
		}

		if len(bars) == 0 {
			// Reached the start of available history for this symbol.
			s.logger.Info(ctx, "empty window, reached start of history", map[string]interface{}{
				"asset": asset, "interval": interval, "start": window.Start, "end": window.End,
			})
			res.Status = StatusEmptyTerminated
			return res, nil
		}

		written, err := s.writePage(ctx, asset, interval, bars)
		if err != nil {
			res.Status = StatusAborted
			return res, err
		}
		res.Pages++
		res.Rows += written
		s.logger.Info(ctx, "write", map[string]interface{}{
			"asset": asset, "interval": interval, "rows": written,
			"start": window.Start, "end": window.End,
		})

		if len(bars) < domain.PageCap {
			// Likely at start of history; the short page was still written.
			s.logger.Info(ctx, "done: short page", map[string]interface{}{
				"asset": asset, "interval": interval, "rows": len(bars), "cap": domain.PageCap,
			})
			res.Status = StatusExhaustedTerminated
			return res, nil
		}
		cursor = window.NextCursor()
	}

	if bounds.HasStop && cursor <= bounds.Stop {
		s.logger.Info(ctx, "done: reached stop boundary", map[string]interface{}{
			"asset": asset, "interval": interval, "cursor": cursor, "stop": bounds.Stop,
		})
		res.Status = StatusStopBoundaryReached
	} else {
		// cursor walked to (or started at) epoch zero.
		s.logger.Info(ctx, "done: reached epoch start", fields)
		res.Status = StatusExhaustedTerminated
	}
	return res, nil
}

// writePage groups a page by UTC day and writes each group as one partition
// chunk, in ascending date order so log output and file creation are
// deterministic.
func (s *BackfillService) writePage(ctx context.Context, asset string, interval domain.Interval, bars []*domain.Bar) (int, error) {
	groups := domain.GroupByUTCDay(bars)
	dates := make([]string, 0, len(groups))
	for date := range groups {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	total := 0
	for _, date := range dates {
		group := groups[date]
		if err := s.writer.WriteDay(ctx, asset, interval, date, group); err != nil {
			return total, fmt.Errorf("writing %s %s %s: %w", asset, interval, date, err)
		}
		total += len(group)
	}
	return total, nil
}
