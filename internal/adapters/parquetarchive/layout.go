package parquetarchive

import (
	"fmt"
	"os"
	"path/filepath"

	"hyperfill/internal/domain"
)

// datePrefix is the Hive-style partition directory prefix, e.g. date=2023-11-14.
const datePrefix = "date="

// Layout resolves filesystem locations inside the archive. All bar files live
// under {root}/parquet/{asset}/{interval}/date=YYYY-MM-DD/.
type Layout struct {
	Root string
}

// ParquetRoot returns the directory holding all partitioned bar files.
func (l Layout) ParquetRoot() string {
	return filepath.Join(l.Root, "parquet")
}

// PairDir returns the directory for one (asset, interval) pair.
func (l Layout) PairDir(asset string, interval domain.Interval) string {
	return filepath.Join(l.ParquetRoot(), asset, string(interval))
}

// PartitionDir returns the day-partition directory for the given UTC date.
func (l Layout) PartitionDir(asset string, interval domain.Interval, date string) string {
	return filepath.Join(l.PairDir(asset, interval), datePrefix+date)
}

// ChunkFileName derives the output file name from the inclusive open-time
// range of a batch. Disjoint windows therefore never collide across runs, and
// re-running an identical window reproduces the same name and content.
func ChunkFileName(minOpenTime, maxOpenTime int64) string {
	return fmt.Sprintf("chunk-%d-%d.parquet", minOpenTime, maxOpenTime)
}

// EnsureBaseDirs pre-creates the per-pair directories so that boundary scans
// and glob-style tooling never trip over a missing tree.
func (l Layout) EnsureBaseDirs(assets []string, intervals []domain.Interval) error {
	for _, asset := range assets {
		for _, interval := range intervals {
			if err := os.MkdirAll(l.PairDir(asset, interval), 0o755); err != nil {
				return fmt.Errorf("creating archive dir for %s %s: %w", asset, interval, err)
			}
		}
	}
	return nil
}
