package indicator

import "math"

func ema(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	out[0] = data[0]

	a := 2.0 / (float64(period) + 1)
	for i, val := range data[1:] {
		out[i+1] = val*a + out[i]*(1-a)
	}

	return out
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	m := mean(data)
	sum := 0.0
	for _, v := range data {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(data)-1))
}

// sanitize repairs a raw value series in place: non-finite entries are
// forward-filled, leading gaps back-filled, and everything floored at zero.
func sanitize(data []float64) []float64 {
	for i := 1; i < len(data); i++ {
		if !isFinite(data[i]) {
			data[i] = data[i-1]
		}
	}
	for i := len(data) - 2; i >= 0; i-- {
		if !isFinite(data[i]) {
			data[i] = data[i+1]
		}
	}
	for i, v := range data {
		if !isFinite(v) || v < 0 {
			data[i] = 0
		}
	}
	return data
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clip(window, available int) int {
	if window > available {
		return available
	}
	return window
}
