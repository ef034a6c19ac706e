package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamma-omg/intraday-dealer/internal/market"
)

func seriesFromCloses(closes ...float64) []market.Bar {
	base := time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   decimal.NewFromFloat(c),
			High:   decimal.NewFromFloat(c + 1),
			Low:    decimal.NewFromFloat(c - 1),
			Close:  decimal.NewFromFloat(c),
			Volume: decimal.NewFromInt(100),
		}
	}
	return bars
}

func TestComputeBelowMinimumBars(t *testing.T) {
	_, ok := Compute(seriesFromCloses(1, 2, 3, 4), DefaultConfig())
	assert.False(t, ok)
}

func TestComputeSMA(t *testing.T) {
	s, ok := Compute(seriesFromCloses(10, 20, 30, 40, 50), DefaultConfig())
	require.True(t, ok)
	// Window of 10 clipped to the 5 available rows.
	assert.InDelta(t, 30.0, s.SMA, 1e-9)
}

func TestComputeEMAConstantSeries(t *testing.T) {
	s, ok := Compute(seriesFromCloses(42, 42, 42, 42, 42, 42), DefaultConfig())
	require.True(t, ok)
	assert.InDelta(t, 42.0, s.EMA, 1e-9)
	assert.InDelta(t, 0.0, s.MACD, 1e-9)
	assert.InDelta(t, 0.0, s.MACDSignal, 1e-9)
}

func TestComputeRSIExtremes(t *testing.T) {
	up, ok := Compute(seriesFromCloses(10, 11, 12, 13, 14, 15), DefaultConfig())
	require.True(t, ok)
	assert.InDelta(t, 100.0, up.RSI, 1e-9)

	down, ok := Compute(seriesFromCloses(15, 14, 13, 12, 11, 10), DefaultConfig())
	require.True(t, ok)
	assert.InDelta(t, 0.0, down.RSI, 1e-9)

	flat, ok := Compute(seriesFromCloses(10, 10, 10, 10, 10), DefaultConfig())
	require.True(t, ok)
	assert.InDelta(t, 50.0, flat.RSI, 1e-9)
}

func TestComputeBollingerBands(t *testing.T) {
	s, ok := Compute(seriesFromCloses(10, 12, 14, 16, 18), DefaultConfig())
	require.True(t, ok)

	assert.InDelta(t, 14.0, s.BollingerMid, 1e-9)
	width := 2 * math.Sqrt(10) // sample stddev of {10,12,14,16,18}
	assert.InDelta(t, 14.0+width, s.BollingerHigh, 1e-9)
	assert.InDelta(t, 14.0-width, s.BollingerLow, 1e-9)
}

func TestComputeATR(t *testing.T) {
	// High-low spread is 2 on every synthetic bar and closes stay inside the
	// next bar's range, so ATR approaches the spread.
	s, ok := Compute(seriesFromCloses(10, 10.5, 11, 10.5, 10, 10.5), DefaultConfig())
	require.True(t, ok)
	assert.InDelta(t, 2.0, s.ATR, 0.6)
}

func TestSanitizeRepairsSeries(t *testing.T) {
	data := sanitize([]float64{math.NaN(), 2, math.Inf(1), -3, 5})
	assert.Equal(t, []float64{2, 2, 2, 0, 5}, data)
}

func TestFormat(t *testing.T) {
	s := Snapshot{SMA: 1.234, EMA: 2, RSI: 55.5}

	full := Format(s, true, false)
	assert.Contains(t, full, "simple moving average (SMA): 1.23")
	assert.Contains(t, full, "Relative strength index (RSI): 55.50")

	compact := Format(s, true, true)
	assert.Contains(t, compact, "SMA10: 1.23")
	assert.NotContains(t, compact, "Bollinger middle")

	degraded := Format(Snapshot{}, false, false)
	assert.Contains(t, degraded, "MACD: N/A")
}
