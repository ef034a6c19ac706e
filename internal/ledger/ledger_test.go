package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func TestOpenAndNetPosition(t *testing.T) {
	lg := New()
	lg.Open(d(100), 2, true, t0)
	lg.Open(d(101), 1, false, t0)

	assert.Equal(t, 1, lg.NetPosition())
	assert.Equal(t, 2, lg.OpenCount(true))
	assert.Equal(t, 1, lg.OpenCount(false))
}

func TestCloseIsFIFOAndClamped(t *testing.T) {
	lg := New()
	lg.Open(d(100), 1, true, t0)
	lg.Open(d(105), 1, true, t0.Add(time.Minute))

	closed := lg.Close(d(110), 5, true, t0.Add(2*time.Minute))
	assert.Equal(t, 2, closed)

	// Oldest lot closed first: realized = (110-100) + (110-105).
	p := lg.Profits(d(110))
	assert.Equal(t, "15", p.Realized.String())
}

func TestCloseWrongSideIsNoOp(t *testing.T) {
	lg := New()
	lg.Open(d(100), 2, true, t0)

	closed := lg.Close(d(110), 2, false, t0)
	assert.Equal(t, 0, closed)
	assert.Equal(t, 2, lg.NetPosition())

	empty := New()
	assert.Equal(t, 0, empty.Close(d(110), 1, true, t0))
	assert.Equal(t, 0, empty.NetPosition())
}

func TestProfitsSignConvention(t *testing.T) {
	lg := New()
	lg.Open(d(100), 1, true, t0)
	lg.Open(d(100), 1, false, t0)

	p := lg.Profits(d(110))
	// Long +10 unrealized, short -10 unrealized.
	assert.Equal(t, "0", p.Unrealized.String())

	lg.Close(d(110), 1, true, t0.Add(time.Minute))
	lg.Close(d(90), 1, false, t0.Add(2*time.Minute))

	p = lg.Profits(d(120))
	assert.Equal(t, "20", p.Realized.String())
	assert.Equal(t, "0", p.Unrealized.String())
}

func TestProfitsTotalIdentity(t *testing.T) {
	lg := New()
	lg.Open(d(100), 3, true, t0)
	lg.Open(d(104), 2, false, t0)
	lg.Close(d(102), 1, true, t0.Add(time.Minute))
	lg.Close(d(101), 1, false, t0.Add(time.Minute))

	for _, price := range []float64{90, 100, 111.5} {
		p := lg.Profits(d(price))
		assert.True(t, p.Total.Equal(p.Realized.Add(p.Unrealized)), "price %v", price)
	}
}

func TestCloseAll(t *testing.T) {
	lg := New()
	lg.Open(d(100), 2, true, t0)
	lg.Open(d(105), 3, false, t0)

	n := lg.CloseAll(d(102), t0.Add(time.Minute))
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, lg.NetPosition())

	// Idempotent on an already flat ledger.
	assert.Equal(t, 0, lg.CloseAll(d(102), t0.Add(2*time.Minute)))
}

func TestDetails(t *testing.T) {
	lg := New()
	assert.Contains(t, lg.Details(), "none")

	lg.Open(d(100.5), 1, true, t0)
	lg.Open(d(101), 1, false, t0)
	det := lg.Details()
	assert.Contains(t, det, "Long:")
	assert.Contains(t, det, "Short:")
	assert.Contains(t, det, "entry: 100.50")

	require.Equal(t, 2, lg.CloseAll(d(100), t0))
	assert.Contains(t, lg.Details(), "none")
}
