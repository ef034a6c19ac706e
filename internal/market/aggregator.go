package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregateBars rolls a chronological minute sequence up into fixed-interval
// bars: first open, max high, min low, last close, summed volume, last open
// interest. The aggregate keeps the timestamp of its first source bar
// truncated to the interval.
func AggregateBars(bars []Bar, interval time.Duration) []Bar {
	var (
		out []Bar
		cur *Bar
		end time.Time
	)

	for _, b := range bars {
		if cur != nil && !b.Time.Before(end) {
			out = append(out, *cur)
			cur = nil
		}

		if cur == nil {
			start := b.Time.Truncate(interval)
			end = start.Add(interval)
			cur = &Bar{
				Time: start,
				Open: b.Open,
				High: b.High,
				Low:  b.Low,
			}
		}

		cur.Close = b.Close
		cur.High = decimal.Max(cur.High, b.High)
		cur.Low = decimal.Min(cur.Low, b.Low)
		cur.Volume = cur.Volume.Add(b.Volume)
		cur.OpenInterest = b.OpenInterest
	}

	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// AggregateDaily collapses a chronological sequence into one bar per calendar
// date, stamped at midnight of that date.
func AggregateDaily(bars []Bar) []Bar {
	var (
		out []Bar
		cur *Bar
	)

	for _, b := range bars {
		if cur != nil && !sameDate(cur.Time, b.Time) {
			out = append(out, *cur)
			cur = nil
		}

		if cur == nil {
			y, m, d := b.Time.Date()
			cur = &Bar{
				Time: time.Date(y, m, d, 0, 0, 0, 0, b.Time.Location()),
				Open: b.Open,
				High: b.High,
				Low:  b.Low,
			}
		}

		cur.Close = b.Close
		cur.High = decimal.Max(cur.High, b.High)
		cur.Low = decimal.Min(cur.Low, b.Low)
		cur.Volume = cur.Volume.Add(b.Volume)
		cur.OpenInterest = b.OpenInterest
	}

	if cur != nil {
		out = append(out, *cur)
	}
	return out
}
