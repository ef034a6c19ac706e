package provider

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamma-omg/intraday-dealer/internal/config"
	"github.com/gamma-omg/intraday-dealer/internal/market"
)

// CSVProvider serves deterministic backtest data from one minute-bar csv file
// per symbol: a header row, then
// timestamp,open,high,low,close,volume[,open_interest] with unix-second
// timestamps. Hourly and daily series are aggregated from the minute data.
// Safe for concurrent use; loaded series are immutable once cached.
type CSVProvider struct {
	dir string

	mu   sync.Mutex
	bars map[string][]market.Bar
}

func NewCSVProvider(cfg config.CSV) *CSVProvider {
	return &CSVProvider{
		dir:  cfg.Dir,
		bars: make(map[string][]market.Bar),
	}
}

// Load reads and caches the symbol's data file. A missing or malformed file
// is the one fatal setup error the engine allows before the day loop.
func (p *CSVProvider) Load(symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(symbol)
}

func (p *CSVProvider) load(symbol string) error {
	if _, ok := p.bars[symbol]; ok {
		return nil
	}

	f, err := os.Open(filepath.Join(p.dir, symbol+".csv"))
	if err != nil {
		return fmt.Errorf("cannot resolve symbol %s: %w", symbol, err)
	}
	defer f.Close()

	bars, err := readBars(f)
	if err != nil {
		return fmt.Errorf("failed to read bars for %s: %w", symbol, err)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	p.bars[symbol] = bars
	return nil
}

func readBars(r io.Reader) ([]market.Bar, error) {
	rdr := csv.NewReader(bufio.NewReader(r))
	rdr.FieldsPerRecord = -1

	if _, err := rdr.Read(); err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var bars []market.Bar
	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read bar data: %w", err)
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("bar row has %d fields, want at least 6", len(rec))
		}

		ts, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bar time: %w", err)
		}

		fields := make([]decimal.Decimal, len(rec)-1)
		for i, raw := range rec[1:] {
			fields[i], err = decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to parse bar field %q: %w", raw, err)
			}
		}

		b := market.Bar{
			Time:   time.Unix(int64(ts), 0).UTC(),
			Open:   fields[0],
			High:   fields[1],
			Low:    fields[2],
			Close:  fields[3],
			Volume: fields[4],
		}
		if len(fields) > 5 {
			b.OpenInterest = fields[5]
		}
		bars = append(bars, b)
	}

	return bars, nil
}

// Bars returns the symbol's series for one granularity. Minute granularity
// yields the bars of the given trading date; hourly and daily yield history
// strictly before that date. Unknown periods yield an empty slice.
func (p *CSVProvider) Bars(_ context.Context, symbol string, g market.Granularity, date time.Time) ([]market.Bar, error) {
	p.mu.Lock()
	if err := p.load(symbol); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	all := p.bars[symbol]
	p.mu.Unlock()

	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch g {
	case market.Minute:
		var out []market.Bar
		for _, b := range all {
			if TradingDate(b.Time).Equal(day) {
				out = append(out, b)
			}
		}
		return out, nil
	case market.Hourly:
		return market.AggregateBars(before(all, day), time.Hour), nil
	case market.Daily:
		return market.AggregateDaily(before(all, day)), nil
	}
	return nil, nil
}

func before(bars []market.Bar, day time.Time) []market.Bar {
	var out []market.Bar
	for _, b := range bars {
		if TradingDate(b.Time).Before(day) {
			out = append(out, b)
		}
	}
	return out
}
