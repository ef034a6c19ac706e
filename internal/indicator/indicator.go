// Package indicator computes technical indicator snapshots over a bar
// sequence. Windows degrade gracefully on short series: every window is
// clipped to the available row count, and below a small minimum the snapshot
// is omitted entirely rather than reported as an error.
package indicator

import (
	"fmt"
	"math"
	"strings"

	"github.com/gamma-omg/intraday-dealer/internal/market"
)

// MinBars is the smallest series a snapshot is computed for.
const MinBars = 5

type Config struct {
	SMAWindow       int `yaml:"sma_window"`
	EMASpan         int `yaml:"ema_span"`
	RSIWindow       int `yaml:"rsi_window"`
	MACDFast        int `yaml:"macd_fast"`
	MACDSlow        int `yaml:"macd_slow"`
	MACDSignal      int `yaml:"macd_signal"`
	BollingerWindow int `yaml:"bollinger_window"`
	ATRWindow       int `yaml:"atr_window"`
}

func DefaultConfig() Config {
	return Config{
		SMAWindow:       10,
		EMASpan:         20,
		RSIWindow:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerWindow: 20,
		ATRWindow:       14,
	}
}

// Snapshot holds the latest value of each indicator.
type Snapshot struct {
	SMA           float64
	EMA           float64
	RSI           float64
	MACD          float64
	MACDSignal    float64
	ATR           float64
	BollingerHigh float64
	BollingerMid  float64
	BollingerLow  float64
}

// Compute derives a snapshot from the bar sequence. It returns ok=false for
// series shorter than MinBars: a deliberate degraded mode, not an error.
func Compute(bars []market.Bar, cfg Config) (Snapshot, bool) {
	n := len(bars)
	if n < MinBars {
		return Snapshot{}, false
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range bars {
		closes[i], _ = b.Close.Float64()
		highs[i], _ = b.High.Float64()
		lows[i], _ = b.Low.Float64()
	}
	sanitize(closes)
	sanitize(highs)
	sanitize(lows)

	var s Snapshot
	s.SMA = mean(closes[n-clip(cfg.SMAWindow, n):])
	s.EMA = last(ema(closes, clip(cfg.EMASpan, n)))
	s.RSI = rsi(closes, clip(cfg.RSIWindow, n-1))

	fast := ema(closes, clip(cfg.MACDFast, n))
	slow := ema(closes, clip(cfg.MACDSlow, n))
	diff := make([]float64, n)
	for i := range diff {
		diff[i] = fast[i] - slow[i]
	}
	s.MACD = last(diff)
	s.MACDSignal = last(ema(diff, clip(cfg.MACDSignal, n)))

	window := closes[n-clip(cfg.BollingerWindow, n):]
	mid := mean(window)
	dev := 2 * stddev(window)
	s.BollingerMid = mid
	s.BollingerHigh = mid + dev
	s.BollingerLow = mid - dev

	s.ATR = atr(highs, lows, closes, clip(cfg.ATRWindow, n-1))

	return s, true
}

func last(data []float64) float64 {
	return data[len(data)-1]
}

// rsi computes the relative strength index on a 0-100 scale over the trailing
// window of close-to-close moves.
func rsi(closes []float64, window int) float64 {
	if window < 1 {
		return 50
	}

	start := len(closes) - window - 1
	gains, losses := 0.0, 0.0
	for i := start + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}

	if gains == 0 && losses == 0 {
		return 50
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// atr averages the true range over the trailing window.
func atr(highs, lows, closes []float64, window int) float64 {
	if window < 1 {
		return 0
	}

	start := len(closes) - window
	sum := 0.0
	for i := start; i < len(closes); i++ {
		tr := highs[i] - lows[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
			tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		}
		sum += tr
	}
	return sum / float64(window)
}

// Format renders the snapshot for oracle consumption. With ok=false every
// value reads N/A, matching the degraded short-series mode.
func Format(s Snapshot, ok bool, compact bool) string {
	val := func(v float64) string {
		if !ok {
			return "N/A"
		}
		return fmt.Sprintf("%.2f", v)
	}

	var lines []string
	if compact {
		lines = []string{
			"SMA10: " + val(s.SMA),
			"EMA20: " + val(s.EMA),
			"RSI: " + val(s.RSI),
			"MACD: " + val(s.MACD),
			"BB high: " + val(s.BollingerHigh),
			"BB low: " + val(s.BollingerLow),
		}
	} else {
		lines = []string{
			"10-period simple moving average (SMA): " + val(s.SMA),
			"20-period exponential moving average (EMA): " + val(s.EMA),
			"Relative strength index (RSI): " + val(s.RSI),
			"MACD: " + val(s.MACD),
			"MACD signal: " + val(s.MACDSignal),
			"Average true range (ATR): " + val(s.ATR),
			"Bollinger upper band: " + val(s.BollingerHigh),
			"Bollinger middle band: " + val(s.BollingerMid),
			"Bollinger lower band: " + val(s.BollingerLow),
		}
	}
	return strings.Join(lines, "\n")
}
