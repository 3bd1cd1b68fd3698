// Package config resolves the backfill's configuration from a layered set of
// YAML files plus environment overrides: configs/default.config.yaml is found
// by walking upward from the working directory, configs/local.config.yaml is
// merged over it when present, and a file named by the HYPERFILL_CONFIG
// environment variable is merged last. CLI flags override the merged result
// at the command layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hyperfill/internal/adapters/logger"
	"hyperfill/internal/domain"
)

// EnvConfigPath names the environment variable holding an extra config file
// path, merged over the defaults.
const EnvConfigPath = "HYPERFILL_CONFIG"

// Config holds the resolved application configuration.
type Config struct {
	// StorageRoot is the archive root directory; bar files live under
	// {StorageRoot}/parquet. Relative paths resolve against the repo root
	// (the parent of the configs/ directory) when one is found.
	StorageRoot string

	// Universe is the list of internal asset codes to backfill.
	Universe []string
	// Intervals is the set of bar resolutions to backfill per asset.
	Intervals []domain.Interval

	// BaselineSource tags the archive series the backfill extends backward.
	BaselineSource string

	// Binance settings
	BinanceBaseURL string
	CallDelay      time.Duration     // Spacing between successful API calls
	SymbolMap      map[string]string // asset code -> exchange ticker

	// Retry backoff bounds for transient fetch failures
	RetryFloor time.Duration
	RetryCeil  time.Duration

	// Logging
	LogLevel logger.LogLevel
}

// fileConfig mirrors the YAML layout. Merging is a shallow dict merge: a later
// file replaces every top-level key it sets wholesale, so a local file with a
// `binance:` section supplies that whole section, not a patch of it.
type fileConfig struct {
	StorageRoot    string
	Universe       []string
	Intervals      []string
	BaselineSource string
	LogLevel       string
	Binance        binanceConfig
	Backfill       backfillConfig
}

type binanceConfig struct {
	BaseURL   string            `yaml:"base_url"`
	SleepMS   *int              `yaml:"sleep_ms"`
	SymbolMap map[string]string `yaml:"symbol_map"`
}

type backfillConfig struct {
	RetryFloorMS *int `yaml:"retry_floor_ms"`
	RetryCeilMS  *int `yaml:"retry_ceil_ms"`
}

// LoadConfig loads and validates configuration from the layered YAML files
// and the environment.
func LoadConfig() (*Config, error) {
	// Load .env if present; plain environment variables always work too.
	_ = godotenv.Load()

	fc := fileConfig{}
	configsRoot := findConfigsRoot()

	var paths []string
	if configsRoot != "" {
		paths = append(paths, filepath.Join(configsRoot, "default.config.yaml"))
		local := filepath.Join(configsRoot, "local.config.yaml")
		if _, err := os.Stat(local); err == nil {
			paths = append(paths, local)
		}
	}
	if extra := os.Getenv(EnvConfigPath); extra != "" {
		abs, err := filepath.Abs(extra)
		if err != nil {
			return nil, fmt.Errorf("resolving %s path %q: %w", EnvConfigPath, extra, err)
		}
		paths = append(paths, abs)
	}

	for _, p := range paths {
		if err := mergeYAMLFile(p, &fc); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		StorageRoot:    "./data/hyperliquid",
		Universe:       []string{"BTC"},
		Intervals:      domain.Intervals(),
		BaselineSource: domain.SourceHyperliquid,
		BinanceBaseURL: "https://api.binance.com",
		CallDelay:      200 * time.Millisecond,
		SymbolMap:      map[string]string{},
		RetryFloor:     time.Second,
		RetryCeil:      5 * time.Second,
		LogLevel:       logger.LevelInfo,
	}

	var errs []string

	if fc.StorageRoot != "" {
		cfg.StorageRoot = fc.StorageRoot
	}
	cfg.StorageRoot = resolveRepoPath(configsRoot, cfg.StorageRoot)

	if len(fc.Universe) > 0 {
		cfg.Universe = fc.Universe
	}
	if len(fc.Intervals) > 0 {
		intervals, err := ParseIntervals(fc.Intervals)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			cfg.Intervals = intervals
		}
	}
	if fc.BaselineSource != "" {
		cfg.BaselineSource = fc.BaselineSource
	}
	if fc.Binance.BaseURL != "" {
		cfg.BinanceBaseURL = fc.Binance.BaseURL
	}
	if fc.Binance.SleepMS != nil {
		if *fc.Binance.SleepMS < 0 {
			errs = append(errs, "binance.sleep_ms cannot be negative")
		} else {
			cfg.CallDelay = time.Duration(*fc.Binance.SleepMS) * time.Millisecond
		}
	}
	for k, v := range fc.Binance.SymbolMap {
		cfg.SymbolMap[k] = v
	}
	if fc.Backfill.RetryFloorMS != nil {
		if *fc.Backfill.RetryFloorMS <= 0 {
			errs = append(errs, "backfill.retry_floor_ms must be positive")
		} else {
			cfg.RetryFloor = time.Duration(*fc.Backfill.RetryFloorMS) * time.Millisecond
		}
	}
	if fc.Backfill.RetryCeilMS != nil {
		cfg.RetryCeil = time.Duration(*fc.Backfill.RetryCeilMS) * time.Millisecond
	}
	if cfg.RetryCeil < cfg.RetryFloor {
		errs = append(errs, "backfill.retry_ceil_ms must be >= backfill.retry_floor_ms")
	}

	levelStr := fc.LogLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		levelStr = env
	}
	if levelStr != "" {
		cfg.LogLevel = logger.ParseLevel(levelStr)
	}

	if len(cfg.Universe) == 0 {
		errs = append(errs, "universe must list at least one asset")
	}
	if len(cfg.Intervals) == 0 {
		errs = append(errs, "intervals must list at least one interval")
	}
	if cfg.BaselineSource == "" {
		errs = append(errs, "baseline_source must be set")
	}
	if cfg.BinanceBaseURL == "" {
		errs = append(errs, "binance.base_url must be set")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// mergeYAMLFile merges one YAML file over fc, replacing each top-level key the
// document sets and leaving the rest untouched. Unknown top-level keys are
// ignored. A missing file is skipped; malformed YAML is an error rather than a
// silent fallback.
func mergeYAMLFile(path string, fc *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	for key := range doc {
		node := doc[key]
		var target interface{}
		switch key {
		case "storage_root":
			fc.StorageRoot = ""
			target = &fc.StorageRoot
		case "universe":
			fc.Universe = nil
			target = &fc.Universe
		case "intervals":
			fc.Intervals = nil
			target = &fc.Intervals
		case "baseline_source":
			fc.BaselineSource = ""
			target = &fc.BaselineSource
		case "log_level":
			fc.LogLevel = ""
			target = &fc.LogLevel
		case "binance":
			fc.Binance = binanceConfig{}
			target = &fc.Binance
		case "backfill":
			fc.Backfill = backfillConfig{}
			target = &fc.Backfill
		default:
			continue
		}
		if err := node.Decode(target); err != nil {
			return fmt.Errorf("parsing config file %s key %q: %w", path, key, err)
		}
	}
	return nil
}

// findConfigsRoot walks upward from the working directory looking for
// configs/default.config.yaml, returning the configs directory or "".
func findConfigsRoot() string {
	cur, err := os.Getwd()
	if err != nil {
		return ""
	}
	cur, err = filepath.Abs(cur)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(cur, "configs", "default.config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(cur, "configs")
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
}

// resolveRepoPath resolves p against the repo root (the parent of configsRoot)
// so relative storage roots behave the same from any working directory inside
// the repo. Absolute paths pass through unchanged.
func resolveRepoPath(configsRoot, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if configsRoot != "" {
		return filepath.Join(filepath.Dir(configsRoot), p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// ParseIntervals converts interval strings, rejecting unknown values.
func ParseIntervals(raw []string) ([]domain.Interval, error) {
	intervals := make([]domain.Interval, 0, len(raw))
	for _, s := range raw {
		iv, err := domain.ParseInterval(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}

// ParseSymbolMap parses a CSV mapping override such as
// "BTC:BTCUSDT,ETH:ETHUSDT".
func ParseSymbolMap(raw string) (map[string]string, error) {
	m := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("invalid symbol mapping %q (want ASSET:TICKER)", pair)
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return m, nil
}
