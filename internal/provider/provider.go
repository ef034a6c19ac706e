// Package provider supplies historical and live market data to the engine.
// Implementations must treat "no rows for a period" as an empty result, not
// an error: the engine runs degraded on empty history.
package provider

import (
	"context"
	"time"

	"github.com/gamma-omg/intraday-dealer/internal/market"
)

// DataProvider yields ordered bar sequences per granularity. The date selects
// the trading day for minute data; for hourly and daily granularities it is
// the exclusive upper bound of the returned history.
type DataProvider interface {
	Bars(ctx context.Context, symbol string, g market.Granularity, date time.Time) ([]market.Bar, error)
}

// Headline is one news item, newest-last when returned in sequence.
type Headline struct {
	Time  time.Time
	Title string
}

// NewsProvider is an optional live-only capability.
type NewsProvider interface {
	News(ctx context.Context, symbol string, limit int) ([]Headline, error)
}

// TradingDate maps a bar timestamp to the trading day it belongs to: night
// session bars from 21:00 onward trade on the next calendar day.
func TradingDate(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if t.Hour() >= 21 {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
