package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateBarsHourly(t *testing.T) {
	base := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	var bars []Bar
	for i := 0; i < 90; i++ {
		b := barAt(base.Add(time.Duration(i)*time.Minute), float64(100+i))
		b.High = decimal.NewFromInt(int64(200 + i))
		b.Low = decimal.NewFromInt(int64(50 - i%10))
		bars = append(bars, b)
	}

	out := AggregateBars(bars, time.Hour)
	require.Len(t, out, 2)

	first := out[0]
	assert.Equal(t, base, first.Time)
	assert.Equal(t, "100", first.Open.String())
	assert.Equal(t, "159", first.Close.String())
	assert.Equal(t, "259", first.High.String())
	assert.Equal(t, "6000", first.Volume.String())
}

func TestAggregateDaily(t *testing.T) {
	d1 := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	out := AggregateDaily([]Bar{
		barAt(d1, 10),
		barAt(d1.Add(time.Hour), 12),
		barAt(d2, 14),
	})

	require.Len(t, out, 2)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), out[0].Time)
	assert.Equal(t, "12", out[0].Close.String())
	assert.Equal(t, "14", out[1].Close.String())
}

func TestAggregateEmpty(t *testing.T) {
	assert.Nil(t, AggregateBars(nil, time.Hour))
	assert.Nil(t, AggregateDaily(nil))
}
