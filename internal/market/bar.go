package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV sample for a fixed time interval. OpenInterest is zero for
// instruments that do not report it.
type Bar struct {
	Time         time.Time
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Volume       decimal.Decimal
	OpenInterest decimal.Decimal
}

// Granularity selects which admission and formatting rules a History applies.
type Granularity int

const (
	Minute Granularity = iota
	Hourly
	Daily
)

func (g Granularity) String() string {
	switch g {
	case Minute:
		return "minute"
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	}
	return "unknown"
}

func (g Granularity) timeLayout() string {
	if g == Daily {
		return "2006-01-02"
	}
	return "2006-01-02 15:04"
}

// Line renders the bar as a single summary row for oracle consumption.
// Compact mode keeps only close and volume.
func (b Bar) Line(g Granularity, compact bool) string {
	ts := b.Time.Format(g.timeLayout())
	if compact {
		return fmt.Sprintf("%s: C:%s V:%s", ts, b.Close.StringFixed(2), b.Volume.String())
	}
	return fmt.Sprintf("%s: O:%s H:%s L:%s C:%s V:%s",
		ts,
		b.Open.StringFixed(2),
		b.High.StringFixed(2),
		b.Low.StringFixed(2),
		b.Close.StringFixed(2),
		b.Volume.String())
}
