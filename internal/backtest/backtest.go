// Package backtest replays recorded minute bars through the dealer, one
// trading day at a time, and aggregates the outcome into a report.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/gamma-omg/intraday-dealer/internal/config"
	"github.com/gamma-omg/intraday-dealer/internal/dealer"
	"github.com/gamma-omg/intraday-dealer/internal/market"
	"github.com/gamma-omg/intraday-dealer/internal/oracle"
)

// TradeRecord is one executed instruction. Holds and clamped-to-zero opens
// are not recorded.
type TradeRecord struct {
	Time     time.Time
	Action   oracle.Action
	Quantity int
	Price    decimal.Decimal
	Memo     string
}

// DayResult is the outcome of one replayed trading day.
type DayResult struct {
	Date   time.Time
	Bars   int
	Trades []TradeRecord
	Profit decimal.Decimal
}

// Result aggregates a full run. WinRate follows the closes-per-opens
// convention: closing instructions divided by opening instructions, as a
// percentage.
type Result struct {
	Symbol       string
	Start        time.Time
	End          time.Time
	Days         []DayResult
	Opens        int
	Closes       int
	TotalProfit  decimal.Decimal
	WinRate      float64
	AvgPerClose  decimal.Decimal
}

// Driver owns one backtest run. Each trading day gets a fresh dealer so no
// state leaks across days; days may replay in parallel.
type Driver struct {
	log  *slog.Logger
	cfg  *config.Config
	deps dealer.Deps
}

func NewDriver(log *slog.Logger, cfg *config.Config, deps dealer.Deps) *Driver {
	deps.News = nil // replays never consult live news
	return &Driver{log: log, cfg: cfg, deps: deps}
}

// Run replays every trading day from start to end inclusive and returns the
// aggregated result. Days with no bars are skipped silently; a provider
// error aborts the run.
func (d *Driver) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	globalStart := start
	start = truncateDate(start)
	end = truncateDate(end)
	if end.Before(start) {
		return nil, fmt.Errorf("backtest range inverted: %s after %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	var dates []time.Time
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		dates = append(dates, date)
	}

	days := make([]*DayResult, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.cfg.Backtest.Parallel, 1))

	for i, date := range dates {
		g.Go(func() error {
			day, err := d.replayDay(gctx, date, globalStart)
			if err != nil {
				return err
			}
			days[i] = day
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Symbol: d.cfg.Symbol, Start: start, End: end}
	for _, day := range days {
		if day == nil {
			continue
		}
		res.Days = append(res.Days, *day)
		res.TotalProfit = res.TotalProfit.Add(day.Profit)
		for _, tr := range day.Trades {
			switch {
			case tr.Action.Opens():
				res.Opens++
			case tr.Action.Closes():
				res.Closes++
			}
		}
	}

	if res.Opens > 0 {
		res.WinRate = float64(res.Closes) / float64(res.Opens) * 100
	}
	if res.Closes > 0 {
		res.AvgPerClose = res.TotalProfit.Div(decimal.NewFromInt(int64(res.Closes)))
	}

	d.log.Info("backtest finished",
		slog.Int("days", len(res.Days)),
		slog.Int("opens", res.Opens),
		slog.Int("closes", res.Closes),
		slog.Float64("win_rate", res.WinRate),
		slog.String("total_profit", res.TotalProfit.StringFixed(2)))

	return res, nil
}

// replayDay feeds one trading day's minute bars through a fresh dealer.
// Bars before globalStart are dropped: the first trading day may carry the
// prior evening's night-session bars, which precede the run. Returns nil
// when the day has no data.
func (d *Driver) replayDay(ctx context.Context, date, globalStart time.Time) (*DayResult, error) {
	bars, err := d.deps.Provider.Bars(ctx, d.cfg.Symbol, market.Minute, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars for %s: %w", date.Format(time.DateOnly), err)
	}

	replay := bars[:0:0]
	for _, bar := range bars {
		if !bar.Time.Before(globalStart) {
			replay = append(replay, bar)
		}
	}
	if len(replay) == 0 {
		return nil, nil
	}

	dl := dealer.New(d.log, d.cfg, d.deps, date, true)
	day := &DayResult{Date: date, Bars: len(replay)}

	for _, bar := range replay {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		action, executed, memo := dl.ProcessBar(ctx, bar)
		if executed == 0 {
			continue
		}
		day.Trades = append(day.Trades, TradeRecord{
			Time:     bar.Time,
			Action:   action,
			Quantity: executed,
			Price:    bar.Close,
			Memo:     memo,
		})
	}

	last := replay[len(replay)-1]
	day.Profit = dl.Profits(last.Close).Total

	d.log.Debug("day replayed",
		slog.String("date", date.Format(time.DateOnly)),
		slog.Int("bars", day.Bars),
		slog.Int("trades", len(day.Trades)),
		slog.String("profit", day.Profit.StringFixed(2)))

	return day, nil
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
