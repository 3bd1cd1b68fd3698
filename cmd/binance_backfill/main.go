package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hyperfill/config"
	"hyperfill/internal/adapters/binanceclient"
	"hyperfill/internal/adapters/logger"
	"hyperfill/internal/adapters/parquetarchive"
	"hyperfill/internal/app"
	"hyperfill/internal/domain"
	"hyperfill/internal/fetcher"
)

func main() {
	fs := flag.NewFlagSet("binance_backfill", flag.ExitOnError)
	baseURL := fs.String("base-url", "", "Binance REST base URL (default from config)")
	sleepMS := fs.Int("sleep-ms", -1, "inter-call delay in milliseconds (default from config)")
	coins := fs.String("coins", "", "comma-separated asset codes, e.g. BTC,ETH (default from config)")
	intervals := fs.String("intervals", "", "comma-separated intervals, e.g. 1m,1h,1d (default from config)")
	symbolMap := fs.String("symbol-map", "", "CSV asset:ticker overrides, e.g. BTC:BTCUSDT,ETH:ETHUSDT")
	logLevel := fs.String("log-level", "", "log level: DEBUG, INFO, WARN, ERROR")

	known, unknown := splitKnownArgs(fs, os.Args[1:])
	if err := fs.Parse(known); err != nil {
		log.Fatalf("FATAL: Failed to parse arguments: %v", err)
	}

	// 1. Load configuration (layered YAML + env), then apply CLI overrides.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}
	if *baseURL != "" {
		cfg.BinanceBaseURL = *baseURL
	}
	if *sleepMS >= 0 {
		cfg.CallDelay = time.Duration(*sleepMS) * time.Millisecond
	}
	if *coins != "" {
		cfg.Universe = splitCSV(*coins)
	}
	if *intervals != "" {
		ivs, err := config.ParseIntervals(splitCSV(*intervals))
		if err != nil {
			log.Fatalf("FATAL: Invalid -intervals: %v", err)
		}
		cfg.Intervals = ivs
	}
	if *symbolMap != "" {
		m, err := config.ParseSymbolMap(*symbolMap)
		if err != nil {
			log.Fatalf("FATAL: Invalid -symbol-map: %v", err)
		}
		for k, v := range m {
			cfg.SymbolMap[k] = v
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = logger.ParseLevel(*logLevel)
	}

	// 2. Initialize logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(unknown) > 0 {
		appLogger.Warn(ctx, "ignoring unknown arguments", map[string]interface{}{"args": strings.Join(unknown, " ")})
	}

	// 3. Initialize adapters
	binanceClient, err := binanceclient.New(binanceclient.Config{
		BaseURL: cfg.BinanceBaseURL,
		Logger:  appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	archive, err := parquetarchive.New(parquetarchive.Config{
		Root:   cfg.StorageRoot,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize archive: %v", err)
	}
	if err := archive.Layout().EnsureBaseDirs(cfg.Universe, cfg.Intervals); err != nil {
		log.Fatalf("FATAL: Failed to prepare archive directories: %v", err)
	}

	pageFetcher, err := fetcher.New(fetcher.Config{
		Source:     binanceClient,
		Logger:     appLogger,
		CallDelay:  cfg.CallDelay,
		RetryFloor: cfg.RetryFloor,
		RetryCeil:  cfg.RetryCeil,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize fetcher: %v", err)
	}

	service, err := app.NewBackfillService(app.Config{
		Logger:         appLogger,
		Archive:        archive,
		Writer:         archive,
		Fetcher:        pageFetcher,
		BaselineSource: cfg.BaselineSource,
		Source:         domain.SourceBinance,
		Assets:         cfg.Universe,
		Intervals:      cfg.Intervals,
		SymbolMap:      cfg.SymbolMap,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize backfill service: %v", err)
	}

	appLogger.Info(ctx, "backfill starting", map[string]interface{}{
		"assets":    strings.Join(cfg.Universe, ","),
		"intervals": len(cfg.Intervals),
		"baseURL":   cfg.BinanceBaseURL,
		"root":      cfg.StorageRoot,
		"sleep":     cfg.CallDelay.String(),
	})

	// 4. Run to completion
	results, runErr := service.Run(ctx)
	for _, r := range results {
		appLogger.Info(ctx, "pair result", map[string]interface{}{
			"asset": r.Asset, "interval": r.Interval, "status": r.Status,
			"pages": r.Pages, "rows": r.Rows,
		})
	}
	if runErr != nil {
		appLogger.Error(ctx, runErr, "backfill finished with errors")
		os.Exit(1)
	}
	appLogger.Info(ctx, "backfill complete", map[string]interface{}{"pairs": len(results)})
}

// splitKnownArgs partitions args into flags this binary defines and everything
// else. Unknown arguments are warned about and ignored rather than rejected,
// so wrapper scripts can pass shared argument lists. A literal "--" separator
// (some package managers insert one) is dropped.
func splitKnownArgs(fs *flag.FlagSet, args []string) (known, unknown []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			continue
		}
		if !strings.HasPrefix(a, "-") {
			unknown = append(unknown, a)
			continue
		}
		name := strings.TrimLeft(a, "-")
		if eq := strings.Index(name, "="); eq >= 0 {
			name = name[:eq]
		}
		hasValue := strings.Contains(a, "=")
		if fs.Lookup(name) != nil {
			known = append(known, a)
			// Every flag here takes a value; carry the next token with it.
			if !hasValue && i+1 < len(args) {
				i++
				known = append(known, args[i])
			}
		} else {
			unknown = append(unknown, a)
			if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				unknown = append(unknown, args[i])
			}
		}
	}
	return known, unknown
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
