package parquetarchive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hyperfill/internal/domain"
	"hyperfill/internal/ports"

	"github.com/parquet-go/parquet-go"
)

// barRow is the on-disk schema of one archived bar. Field order fixes the
// column order; physical types must stay compatible with every other writer
// of the same archive, so they are spelled out here rather than derived from
// the domain type.
type barRow struct {
	Src        string   `parquet:"src"`
	Coin       string   `parquet:"coin"`
	Interval   string   `parquet:"interval"`
	OpenTime   int64    `parquet:"open_time"`
	CloseTime  int64    `parquet:"close_time"`
	Open       float64  `parquet:"open"`
	High       float64  `parquet:"high"`
	Low        float64  `parquet:"low"`
	Close      float64  `parquet:"close"`
	Volume     float64  `parquet:"volume"`
	TradeCount int64    `parquet:"trade_count"`
	VWAP       *float64 `parquet:"vwap,optional"`
	Date       string   `parquet:"date"`
}

// Archive implements ports.ArchiveReader and ports.BarWriter over a
// day-partitioned parquet tree. It holds no open handles and no mutable
// state; every operation works directly against the filesystem, which is what
// makes re-runs able to recompute boundaries from actual archive contents.
type Archive struct {
	layout Layout
	logger ports.Logger
}

// Config holds configuration for the parquet archive adapter.
type Config struct {
	Root   string // Storage root; bar files live under {Root}/parquet
	Logger ports.Logger
}

// New creates a parquet archive adapter rooted at cfg.Root.
func New(cfg Config) (*Archive, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("archive root is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for parquet archive")
	}
	return &Archive{
		layout: Layout{Root: cfg.Root},
		logger: cfg.Logger,
	}, nil
}

// Layout exposes the adapter's path resolution, mainly for tooling.
func (a *Archive) Layout() Layout {
	return a.layout
}

// EarliestOpenTime scans the pair's day partitions in ascending date order and
// returns the minimum open time recorded for the given source. Because bars
// are partitioned by the UTC date of their open time, the first partition
// containing a matching row necessarily holds the global minimum, so the scan
// stops there. An absent pair directory (archive not created yet, or pair
// never written) yields ok=false without an error.
func (a *Archive) EarliestOpenTime(ctx context.Context, source, asset string, interval domain.Interval) (int64, bool, error) {
	pairDir := a.layout.PairDir(asset, interval)
	entries, err := os.ReadDir(pairDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reading pair dir %s: %w", pairDir, err)
	}

	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), datePrefix) {
			dates = append(dates, e.Name())
		}
	}
	// date=YYYY-MM-DD sorts chronologically.
	sort.Strings(dates)

	for _, dateDir := range dates {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		min, found, err := a.partitionMin(filepath.Join(pairDir, dateDir), source)
		if err != nil {
			return 0, false, err
		}
		if found {
			return min, true, nil
		}
	}
	return 0, false, nil
}

// partitionMin returns the minimum open time for source among all chunk files
// in one day-partition directory.
func (a *Archive) partitionMin(dir, source string) (int64, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("reading partition dir %s: %w", dir, err)
	}

	var min int64
	found := false
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		rows, err := parquet.ReadFile[barRow](path)
		if err != nil {
			return 0, false, fmt.Errorf("reading parquet file %s: %w", path, err)
		}
		for i := range rows {
			if rows[i].Src != source {
				continue
			}
			if !found || rows[i].OpenTime < min {
				min = rows[i].OpenTime
				found = true
			}
		}
	}
	return min, found, nil
}

// WriteDay persists one day-partition batch as a single new chunk file. All
// bars must share asset, interval and the UTC date given. Empty input is a
// no-op. The write is a whole-file create, so a killed run never leaves a
// partially written chunk behind an existing name.
func (a *Archive) WriteDay(ctx context.Context, asset string, interval domain.Interval, date string, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	minOpen, maxOpen := bars[0].OpenTime, bars[0].OpenTime
	rows := make([]barRow, 0, len(bars))
	for _, b := range bars {
		if b.Asset != asset || b.Interval != interval || b.UTCDate() != date {
			return fmt.Errorf("%w: bar %s/%s open_time=%d does not belong to partition %s/%s/%s",
				ports.ErrWriteFailed, b.Asset, b.Interval, b.OpenTime, asset, interval, date)
		}
		if b.OpenTime < minOpen {
			minOpen = b.OpenTime
		}
		if b.OpenTime > maxOpen {
			maxOpen = b.OpenTime
		}
		rows = append(rows, barRow{
			Src:        b.Source,
			Coin:       b.Asset,
			Interval:   string(b.Interval),
			OpenTime:   b.OpenTime,
			CloseTime:  b.CloseTime,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			TradeCount: b.TradeCount,
			VWAP:       b.VWAP,
			Date:       date,
		})
	}

	dir := a.layout.PartitionDir(asset, interval, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating partition dir %s: %w", ports.ErrWriteFailed, dir, err)
	}

	path := filepath.Join(dir, ChunkFileName(minOpen, maxOpen))
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ports.ErrWriteFailed, path, err)
	}
	a.logger.Debug(ctx, "wrote chunk", map[string]interface{}{"path": path, "rows": len(rows)})
	return nil
}
