package app

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperfill/internal/adapters/parquetarchive"
	"hyperfill/internal/domain"
)

// chunkPaths lists every chunk file under the archive root, relative to it.
func chunkPaths(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths
}

// A second run over an unchanged archive must leave it in the same state: the
// boundaries derived from disk shrink the walk to already-covered windows,
// and identical windows reproduce identical chunk files.
func TestRerunConvergesOnArchiveState(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	archive, err := parquetarchive.New(parquetarchive.Config{Root: root, Logger: &mockLogger{}})
	require.NoError(t, err)

	// Seed the baseline series the backfill extends backward from.
	baselineOpen := int64(1_700_000_000_000)
	baselineBar := makeSourceBar(domain.SourceHyperliquid, baselineOpen)
	require.NoError(t, archive.WriteDay(ctx, "BTC", domain.Interval1h,
		domain.UTCDateOf(baselineOpen), []*domain.Bar{baselineBar}))

	newService := func(fetcher *mockFetcher) *BackfillService {
		cfg := testConfig(&mockArchive{}, &mockWriter{}, fetcher)
		cfg.Archive = archive
		cfg.Writer = archive
		svc, err := NewBackfillService(cfg)
		require.NoError(t, err)
		return svc
	}

	// First run: one full page, then the start of history.
	firstFetcher := &mockFetcher{respond: func(call int, _ string, window domain.Window) ([]*domain.Bar, error) {
		if call == 1 {
			return barsInWindow(window, domain.PageCap), nil
		}
		return nil, nil
	}}
	results, err := newService(firstFetcher).Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, StatusEmptyTerminated, results[0].Status)
	require.Equal(t, domain.PageCap, results[0].Rows)

	filesAfterFirst := chunkPaths(t, root)
	statusAfterFirst, err := archive.ScanStatus(ctx)
	require.NoError(t, err)

	// Nothing written reaches past the baseline boundary.
	require.Len(t, firstFetcher.windows, 2)
	for _, w := range firstFetcher.windows {
		assert.Less(t, w.End, baselineOpen)
	}

	// Second run: identical windows, identical bars. The walk stops at the
	// stop boundary derived from what the first run wrote.
	secondFetcher := &mockFetcher{respond: func(_ int, _ string, window domain.Window) ([]*domain.Bar, error) {
		return barsInWindow(window, domain.PageCap), nil
	}}
	results, err = newService(secondFetcher).Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusStopBoundaryReached, results[0].Status)

	require.Len(t, secondFetcher.windows, 1)
	assert.Equal(t, firstFetcher.windows[0], secondFetcher.windows[0])

	filesAfterSecond := chunkPaths(t, root)
	assert.Equal(t, filesAfterFirst, filesAfterSecond)

	statusAfterSecond, err := archive.ScanStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, statusAfterFirst, statusAfterSecond)

	// The backfilled series now starts exactly where the first window began.
	min, ok, err := archive.EarliestOpenTime(ctx, domain.SourceBinance, "BTC", domain.Interval1h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, firstFetcher.windows[0].Start, min)
}

func makeSourceBar(source string, open int64) *domain.Bar {
	return &domain.Bar{
		Source:    source,
		Asset:     "BTC",
		Interval:  domain.Interval1h,
		OpenTime:  open,
		CloseTime: open + domain.Interval1h.Millis() - 1,
		Open:      1, High: 2, Low: 0.5, Close: 1.5, Volume: 10,
		TradeCount: 3,
	}
}
