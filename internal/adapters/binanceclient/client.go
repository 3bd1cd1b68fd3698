package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hyperfill/internal/domain"
	"hyperfill/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const defaultBaseURL = "https://api.binance.com"

// Client implements the ports.KlineSource interface using the go-binance
// library's spot API. Klines are a public endpoint, so no API keys are
// required.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	BaseURL string // REST base URL; defaults to the production spot endpoint
	Logger  ports.Logger
}

// New creates a new Binance klines adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := binance.NewClient("", "")
	client.BaseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL})

	return &Client{
		spotClient: client,
		logger:     cfg.Logger,
	}, nil
}

// handleError translates Binance API errors into the standardized ports
// taxonomy. The fetcher relies on this classification to retry transient
// failures and surface fatal ones immediately.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch {
		case apiErr.Code == -1003: // WAF/too many requests
			mappedErr = ports.ErrRateLimited
		case apiErr.Code == -1000 || apiErr.Code == -1001 || apiErr.Code == -1008: // internal error, disconnected, server busy
			mappedErr = ports.ErrExchangeUnavailable
		case apiErr.Code == -1007: // request timed out server-side
			mappedErr = ports.ErrTimeout
		case apiErr.Code == -1121: // invalid symbol
			mappedErr = ports.ErrInvalidSymbol
		case apiErr.Code == -2014 || apiErr.Code == -2015: // API-key format / permissions
			mappedErr = ports.ErrAuthenticationFailed
		case apiErr.Code <= -1100 && apiErr.Code >= -1130: // parameter/request format errors
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") ||
		strings.Contains(err.Error(), "EOF") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Klines retrieves historical bars whose open time falls within
// [startMS, endMS], oldest first, up to limit entries.
func (c *Client) Klines(ctx context.Context, asset, symbol string, interval domain.Interval, startMS, endMS int64, limit int) ([]*domain.Bar, error) {
	op := "Klines"
	raw, err := c.spotClient.NewKlinesService().
		Symbol(symbol).
		Interval(interval.APIToken()).
		StartTime(startMS).
		EndTime(endMS).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	bars := make([]*domain.Bar, 0, len(raw))
	for _, k := range raw {
		bar, err := translateSpotKline(k, asset, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// translateSpotKline converts a raw spot kline into a domain bar. VWAP is left
// nil: the klines endpoint does not provide it and this source never computes
// one.
func translateSpotKline(k *binance.Kline, asset string, interval domain.Interval) (*domain.Bar, error) {
	if k == nil {
		return nil, errors.New("received nil kline")
	}
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", k.Low, err)
	}
	cls, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", k.Close, err)
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", k.Volume, err)
	}

	bar := &domain.Bar{
		Source:     domain.SourceBinance,
		Asset:      asset,
		Interval:   interval,
		OpenTime:   k.OpenTime,
		CloseTime:  k.CloseTime,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      cls,
		Volume:     vol,
		TradeCount: k.TradeNum,
	}
	if err := bar.Validate(); err != nil {
		return nil, err
	}
	return bar, nil
}
