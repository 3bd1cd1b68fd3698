package parquetarchive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperfill/internal/domain"
)

func TestLayoutPaths(t *testing.T) {
	l := Layout{Root: "/data/hyperliquid"}
	assert.Equal(t, filepath.Join("/data/hyperliquid", "parquet"), l.ParquetRoot())
	assert.Equal(t,
		filepath.Join("/data/hyperliquid", "parquet", "BTC", "1h"),
		l.PairDir("BTC", domain.Interval1h))
	assert.Equal(t,
		filepath.Join("/data/hyperliquid", "parquet", "BTC", "1h", "date=2023-11-14"),
		l.PartitionDir("BTC", domain.Interval1h, "2023-11-14"))
}

func TestChunkFileName(t *testing.T) {
	assert.Equal(t, "chunk-1700000000000-1703599999999.parquet", ChunkFileName(1_700_000_000_000, 1_703_599_999_999))
}

func TestEnsureBaseDirs(t *testing.T) {
	l := Layout{Root: t.TempDir()}
	require.NoError(t, l.EnsureBaseDirs([]string{"BTC", "ETH"}, []domain.Interval{domain.Interval1h, domain.Interval5m}))

	for _, asset := range []string{"BTC", "ETH"} {
		for _, iv := range []domain.Interval{domain.Interval1h, domain.Interval5m} {
			info, err := os.Stat(l.PairDir(asset, iv))
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		}
	}
}
