package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperfill/internal/domain"
	"hyperfill/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	return c
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNewTrimsBaseURL(t *testing.T) {
	c, err := New(Config{BaseURL: "https://testnet.binance.vision/", Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, "https://testnet.binance.vision", c.spotClient.BaseURL)

	c = newTestClient(t)
	assert.Equal(t, defaultBaseURL, c.spotClient.BaseURL)
}

func TestHandleErrorAPICodes(t *testing.T) {
	tests := []struct {
		name      string
		code      int64
		wantErr   error
		transient bool
	}{
		{name: "rate limited", code: -1003, wantErr: ports.ErrRateLimited, transient: true},
		{name: "internal error", code: -1000, wantErr: ports.ErrExchangeUnavailable, transient: true},
		{name: "disconnected", code: -1001, wantErr: ports.ErrExchangeUnavailable, transient: true},
		{name: "server busy", code: -1008, wantErr: ports.ErrExchangeUnavailable, transient: true},
		{name: "server timeout", code: -1007, wantErr: ports.ErrTimeout, transient: true},
		{name: "invalid symbol", code: -1121, wantErr: ports.ErrInvalidSymbol, transient: false},
		{name: "bad api key format", code: -2014, wantErr: ports.ErrAuthenticationFailed, transient: false},
		{name: "rejected key", code: -2015, wantErr: ports.ErrAuthenticationFailed, transient: false},
		{name: "illegal chars", code: -1100, wantErr: ports.ErrInvalidRequest, transient: false},
		{name: "mandatory param missing", code: -1102, wantErr: ports.ErrInvalidRequest, transient: false},
		{name: "bad interval", code: -1120, wantErr: ports.ErrInvalidRequest, transient: false},
		{name: "unmapped code", code: -9999, wantErr: ports.ErrUnknown, transient: false},
	}

	c := newTestClient(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &common.APIError{Code: tt.code, Message: tt.name}
			err := c.handleError(context.Background(), apiErr, "Klines")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.transient, ports.IsTransient(err))
		})
	}
}

func TestHandleErrorNetworkAndContext(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   error
		transient bool
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantErr: ports.ErrTimeout, transient: true},
		{name: "canceled", err: context.Canceled, wantErr: ports.ErrContextCanceled, transient: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantErr: ports.ErrConnectionFailed, transient: true},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), wantErr: ports.ErrConnectionFailed, transient: true},
		{name: "dns failure", err: errors.New("lookup api.binance.com: no such host"), wantErr: ports.ErrConnectionFailed, transient: true},
		{name: "unexpected EOF", err: errors.New("unexpected EOF"), wantErr: ports.ErrConnectionFailed, transient: true},
		{name: "anything else", err: errors.New("boom"), wantErr: ports.ErrUnknown, transient: false},
	}

	c := newTestClient(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.handleError(context.Background(), tt.err, "Klines")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.transient, ports.IsTransient(err))
		})
	}
}

func TestHandleErrorNil(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.handleError(context.Background(), nil, "Klines"))
}

func TestTranslateSpotKline(t *testing.T) {
	raw := &binance.Kline{
		OpenTime:  1_700_000_000_000,
		CloseTime: 1_700_003_599_999,
		Open:      "37000.10",
		High:      "37250.00",
		Low:       "36900.55",
		Close:     "37100.00",
		Volume:    "128.5",
		TradeNum:  4211,
	}

	bar, err := translateSpotKline(raw, "BTC", domain.Interval1h)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceBinance, bar.Source)
	assert.Equal(t, "BTC", bar.Asset)
	assert.Equal(t, domain.Interval1h, bar.Interval)
	assert.Equal(t, int64(1_700_000_000_000), bar.OpenTime)
	assert.Equal(t, int64(1_700_003_599_999), bar.CloseTime)
	assert.Equal(t, 37000.10, bar.Open)
	assert.Equal(t, 37250.00, bar.High)
	assert.Equal(t, 36900.55, bar.Low)
	assert.Equal(t, 37100.00, bar.Close)
	assert.Equal(t, 128.5, bar.Volume)
	assert.Equal(t, int64(4211), bar.TradeCount)
	assert.Nil(t, bar.VWAP)
}

func TestTranslateSpotKlineErrors(t *testing.T) {
	valid := func() *binance.Kline {
		return &binance.Kline{
			OpenTime:  1_700_000_000_000,
			CloseTime: 1_700_003_599_999,
			Open:      "1", High: "2", Low: "0.5", Close: "1.5", Volume: "10",
		}
	}

	tests := []struct {
		name   string
		mutate func(k *binance.Kline)
	}{
		{name: "bad open", mutate: func(k *binance.Kline) { k.Open = "not-a-number" }},
		{name: "bad high", mutate: func(k *binance.Kline) { k.High = "" }},
		{name: "bad volume", mutate: func(k *binance.Kline) { k.Volume = "12,5" }},
		{name: "close before open", mutate: func(k *binance.Kline) { k.CloseTime = k.OpenTime - 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := valid()
			tt.mutate(k)
			_, err := translateSpotKline(k, "BTC", domain.Interval1h)
			assert.Error(t, err)
		})
	}

	t.Run("nil kline", func(t *testing.T) {
		_, err := translateSpotKline(nil, "BTC", domain.Interval1h)
		assert.Error(t, err)
	})
}

func TestHandleErrorWrapsOperation(t *testing.T) {
	c := newTestClient(t)
	err := c.handleError(context.Background(), fmt.Errorf("boom"), "Klines")
	assert.Contains(t, err.Error(), "Klines failed")
}
