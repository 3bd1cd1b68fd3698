package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"hyperfill/config"
	"hyperfill/internal/adapters/logger"
	"hyperfill/internal/adapters/parquetarchive"
	"hyperfill/internal/domain"
)

// archive_status inspects the bar archive and, with -reset, wipes every day
// partition of one interval so it can be re-collected from scratch.
func main() {
	reset := flag.String("reset", "", "interval to reset (deletes all its date= partitions), e.g. 1m")
	coins := flag.String("coins", "", "restrict -reset to these comma-separated assets")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	archive, err := parquetarchive.New(parquetarchive.Config{
		Root:   cfg.StorageRoot,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize archive: %v", err)
	}

	if *reset != "" {
		interval, err := domain.ParseInterval(*reset)
		if err != nil {
			log.Fatalf("FATAL: Invalid -reset interval: %v", err)
		}
		res, err := archive.ResetInterval(ctx, interval, splitCSV(*coins))
		if err != nil {
			appLogger.Error(ctx, err, "reset failed")
			os.Exit(1)
		}
		fmt.Printf("reset %s: deleted %d files in %d partitions\n", interval, res.DeletedFiles, res.DeletedDirs)
		return
	}

	st, err := archive.ScanStatus(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "status scan failed")
		os.Exit(1)
	}
	fmt.Printf("parquet root:  %s\n", st.ParquetRoot)
	fmt.Printf("parquet files: %d\n", st.ParquetFiles)
	fmt.Printf("bar rows:      %d\n", st.BarRows)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
