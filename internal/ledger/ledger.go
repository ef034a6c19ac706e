// Package ledger tracks open and closed position lots and their P&L.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one unit of a position. Exit fields are set together, exactly once,
// when the lot is closed.
type Lot struct {
	EntryPrice decimal.Decimal
	EntryTime  time.Time
	Long       bool
	ExitPrice  decimal.Decimal
	ExitTime   time.Time
	closed     bool
}

func (l *Lot) Closed() bool {
	return l.closed
}

func (l *Lot) close(price decimal.Decimal, t time.Time) {
	l.ExitPrice = price
	l.ExitTime = t
	l.closed = true
}

// profit is signed by side: long lots gain when price rises, short lots when
// it falls. Open lots are marked at current.
func (l *Lot) profit(current decimal.Decimal) decimal.Decimal {
	ref := current
	if l.closed {
		ref = l.ExitPrice
	}
	if l.Long {
		return ref.Sub(l.EntryPrice)
	}
	return l.EntryPrice.Sub(ref)
}

// Profits is the realized/unrealized P&L split. Total is always the sum of
// the two parts.
type Profits struct {
	Realized   decimal.Decimal
	Unrealized decimal.Decimal
	Total      decimal.Decimal
}

// Ledger is an ordered collection of lots. It is owned by a single processor
// for one trading day and is not safe for concurrent use.
type Ledger struct {
	lots []*Lot
}

func New() *Ledger {
	return &Ledger{}
}

// Open appends quantity unit lots of the given side. Position limits are the
// caller's responsibility.
func (lg *Ledger) Open(price decimal.Decimal, quantity int, long bool, t time.Time) {
	for i := 0; i < quantity; i++ {
		lg.lots = append(lg.lots, &Lot{
			EntryPrice: price,
			EntryTime:  t,
			Long:       long,
		})
	}
}

// Close closes up to quantity open lots of the given side, oldest first, and
// returns the number actually closed. With no matching open lots it is a
// no-op returning 0.
func (lg *Ledger) Close(price decimal.Decimal, quantity int, long bool, t time.Time) int {
	closed := 0
	for _, lot := range lg.lots {
		if closed >= quantity {
			break
		}
		if lot.Long == long && !lot.closed {
			lot.close(price, t)
			closed++
		}
	}
	return closed
}

// CloseAll flattens both sides and returns the number of lots closed.
func (lg *Ledger) CloseAll(price decimal.Decimal, t time.Time) int {
	n := lg.Close(price, len(lg.lots), true, t)
	n += lg.Close(price, len(lg.lots), false, t)
	return n
}

// NetPosition is open long count minus open short count.
func (lg *Ledger) NetPosition() int {
	net := 0
	for _, lot := range lg.lots {
		if lot.closed {
			continue
		}
		if lot.Long {
			net++
		} else {
			net--
		}
	}
	return net
}

// OpenCount returns the number of open lots of one side.
func (lg *Ledger) OpenCount(long bool) int {
	n := 0
	for _, lot := range lg.lots {
		if !lot.closed && lot.Long == long {
			n++
		}
	}
	return n
}

// Profits sums closed-lot P&L (realized) and open-lot P&L marked at current
// (unrealized).
func (lg *Ledger) Profits(current decimal.Decimal) Profits {
	var p Profits
	for _, lot := range lg.lots {
		if lot.closed {
			p.Realized = p.Realized.Add(lot.profit(current))
		} else {
			p.Unrealized = p.Unrealized.Add(lot.profit(current))
		}
	}
	p.Total = p.Realized.Add(p.Unrealized)
	return p
}

// Details renders the itemized open lots for oracle consumption.
func (lg *Ledger) Details() string {
	var longs, shorts []*Lot
	for _, lot := range lg.lots {
		if lot.closed {
			continue
		}
		if lot.Long {
			longs = append(longs, lot)
		} else {
			shorts = append(shorts, lot)
		}
	}

	var sb strings.Builder
	sb.WriteString("Open lots:\n")
	writeSide := func(name string, lots []*Lot) {
		if len(lots) == 0 {
			return
		}
		sb.WriteString(name + ":\n")
		for i, lot := range lots {
			fmt.Fprintf(&sb, "  %d. entry: %s, time: %s\n",
				i+1, lot.EntryPrice.StringFixed(2), lot.EntryTime.Format("2006-01-02 15:04"))
		}
	}
	writeSide("Long", longs)
	writeSide("Short", shorts)
	if len(longs) == 0 && len(shorts) == 0 {
		sb.WriteString("  none\n")
	}
	return sb.String()
}
