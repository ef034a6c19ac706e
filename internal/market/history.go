package market

import (
	"sort"
	"strings"
	"time"
)

// History is a bounded, chronologically ordered bar sequence for one
// granularity. Oldest bars are evicted first once the capacity is reached.
// A History is owned by a single processor and is not safe for concurrent use.
type History struct {
	gran Granularity
	cap  int
	bars []Bar
}

func NewHistory(g Granularity, capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		gran: g,
		cap:  capacity,
		bars: make([]Bar, 0, capacity),
	}
}

// Append admits the bar according to the granularity rules and reports whether
// it was stored. Hourly histories only admit top-of-hour bars. Daily histories
// keep one record per calendar date, last write wins. A bar with a timestamp
// already present replaces the stored bar instead of duplicating it.
func (h *History) Append(b Bar) bool {
	switch h.gran {
	case Hourly:
		if b.Time.Minute() != 0 {
			return false
		}
	case Daily:
		for i := range h.bars {
			if sameDate(h.bars[i].Time, b.Time) {
				h.bars[i] = b
				return true
			}
		}
	}

	for i := range h.bars {
		if h.bars[i].Time.Equal(b.Time) {
			h.bars[i] = b
			return true
		}
	}

	h.bars = append(h.bars, b)
	if n := len(h.bars); n > 1 && h.bars[n-1].Time.Before(h.bars[n-2].Time) {
		sort.SliceStable(h.bars, func(i, j int) bool {
			return h.bars[i].Time.Before(h.bars[j].Time)
		})
	}
	if len(h.bars) > h.cap {
		h.bars = h.bars[len(h.bars)-h.cap:]
	}
	return true
}

func (h *History) Len() int {
	return len(h.bars)
}

// Bars returns the stored sequence, oldest first. The returned slice is shared
// with the history and must not be mutated.
func (h *History) Bars() []Bar {
	return h.bars
}

// Tail returns up to the last n bars.
func (h *History) Tail(n int) []Bar {
	if n <= 0 || len(h.bars) == 0 {
		return nil
	}
	if n > len(h.bars) {
		n = len(h.bars)
	}
	return h.bars[len(h.bars)-n:]
}

// Last returns the most recent bar and false when the history is empty.
func (h *History) Last() (Bar, bool) {
	if len(h.bars) == 0 {
		return Bar{}, false
	}
	return h.bars[len(h.bars)-1], true
}

// Summary renders up to maxRows of the most recent bars, one line each.
// An empty history is a valid degraded state and renders a placeholder.
func (h *History) Summary(maxRows int, compact bool) string {
	rows := h.Tail(maxRows)
	if len(rows) == 0 {
		return "No data available"
	}

	var sb strings.Builder
	for i, b := range rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(b.Line(h.gran, compact))
	}
	return sb.String()
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
