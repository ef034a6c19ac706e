// Package dealer drives the per-bar decision loop: it maintains rolling
// history, asks the decision oracle for an instruction, applies it to the
// position ledger and enforces the session's forced-liquidation rules.
package dealer

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamma-omg/intraday-dealer/internal/config"
	"github.com/gamma-omg/intraday-dealer/internal/indicator"
	"github.com/gamma-omg/intraday-dealer/internal/ledger"
	"github.com/gamma-omg/intraday-dealer/internal/market"
	"github.com/gamma-omg/intraday-dealer/internal/oracle"
	"github.com/gamma-omg/intraday-dealer/internal/provider"
)

type barSource interface {
	Bars(ctx context.Context, symbol string, g market.Granularity, date time.Time) ([]market.Bar, error)
}

type newsSource interface {
	News(ctx context.Context, symbol string, limit int) ([]provider.Headline, error)
}

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Deps are the collaborators a Dealer consumes. News is optional and only
// used outside backtests.
type Deps struct {
	Provider barSource
	News     newsSource
	Oracle   completer
	Session  *market.Session
}

// Dealer owns one instrument's intraday state. In backtests a fresh Dealer is
// created per trading day; live, a single instance runs for the process
// lifetime and resets itself at day boundaries. Not safe for concurrent use.
type Dealer struct {
	log  *slog.Logger
	deps Deps

	symbol      string
	maxPosition int
	compact     bool
	backtest    bool
	indCfg      indicator.Config
	buffers     config.Buffers

	daily  *market.History
	hourly *market.History
	today  *market.History

	ledger      *ledger.Ledger
	lastMemo    string
	newsDigest  string
	lastNews    time.Time
	currentDate time.Time
	totalProfit decimal.Decimal
}

// New creates a Dealer scoped to the trading day `date` and seeds the daily
// and hourly histories from the provider. Seeding failures degrade to empty
// history; they are logged, never fatal.
func New(log *slog.Logger, cfg *config.Config, deps Deps, date time.Time, isBacktest bool) *Dealer {
	d := &Dealer{
		log:         log.With(slog.String("symbol", cfg.Symbol)),
		deps:        deps,
		symbol:      cfg.Symbol,
		maxPosition: cfg.MaxPosition,
		compact:     cfg.Compact,
		backtest:    isBacktest,
		indCfg:      indicator.DefaultConfig(),
		buffers:     cfg.Buffers,
		daily:       market.NewHistory(market.Daily, cfg.Buffers.Daily),
		hourly:      market.NewHistory(market.Hourly, cfg.Buffers.Hourly),
		today:       market.NewHistory(market.Minute, cfg.Buffers.Minute),
		ledger:      ledger.New(),
	}

	d.seedHistory(d.daily, market.Daily, date)
	d.seedHistory(d.hourly, market.Hourly, date)

	return d
}

func (d *Dealer) seedHistory(h *market.History, g market.Granularity, date time.Time) {
	bars, err := d.deps.Provider.Bars(context.Background(), d.symbol, g, date)
	if err != nil {
		d.log.Warn("failed to seed history, starting empty",
			slog.String("granularity", g.String()),
			slog.String("error", err.Error()))
		return
	}
	for _, b := range bars {
		h.Append(b)
	}
}

// Ledger exposes the day's ledger for reporting.
func (d *Dealer) Ledger() *ledger.Ledger {
	return d.ledger
}

// Profits returns the day's P&L marked at price.
func (d *Dealer) Profits(price decimal.Decimal) ledger.Profits {
	return d.ledger.Profits(price)
}

// ProcessBar runs one bar through the decision pipeline and returns the
// executed action, the actually executed quantity (post clamp), and the memo
// carried to the next bar. A bar is never fatal: any failure or panic inside
// the pipeline degrades to an executed hold.
func (d *Dealer) ProcessBar(ctx context.Context, bar market.Bar) (act oracle.Action, executed int, memo string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic while processing bar", slog.Any("panic", r), slog.Time("bar", bar.Time))
			act, executed, memo = oracle.Hold, 0, ""
		}
	}()

	bar.Time = bar.Time.Truncate(time.Minute)
	d.rollDate(bar)

	if !d.deps.Session.IsTradingTime(bar.Time) {
		return oracle.Hold, 0, ""
	}

	d.appendBar(bar)

	newsChanged := false
	if !d.backtest && d.deps.News != nil {
		newsChanged = d.refreshNews(ctx)
	}

	news := ""
	if newsChanged || d.today.Len() == 1 {
		news = d.newsDigest
	}

	// A transport failure degrades to hold but never short-circuits the
	// rest of the pipeline: the forced-close window must flatten open lots
	// even when the oracle is unreachable.
	var decision oracle.Decision
	reply, err := d.deps.Oracle.Complete(ctx, d.buildPrompt(bar, news))
	if err != nil {
		d.log.Error("oracle call failed, holding", slog.String("error", err.Error()), slog.Time("bar", bar.Time))
		decision = oracle.Decision{Action: oracle.Hold, Quantity: 1, Memo: d.lastMemo}
	} else {
		decision = oracle.ParseDecision(reply)
	}
	executed = d.apply(decision, bar)

	if d.deps.Session.ShouldForceClose(bar.Time) {
		if n := d.ledger.CloseAll(bar.Close, bar.Time); n > 0 {
			d.log.Info("forced liquidation", slog.Time("bar", bar.Time), slog.Int("lots", n))
		}
	}

	d.totalProfit = d.ledger.Profits(bar.Close).Total
	d.logBar(bar, decision, executed)
	d.lastMemo = decision.Memo

	return decision.Action, executed, decision.Memo
}

// rollDate handles the day-boundary transition: flatten the ledger, reset
// the intraday buffer and the news cache.
func (d *Dealer) rollDate(bar market.Bar) {
	y, m, day := bar.Time.Date()
	date := time.Date(y, m, day, 0, 0, 0, 0, bar.Time.Location())
	if d.currentDate.Equal(date) {
		return
	}

	if !d.currentDate.IsZero() {
		if n := d.ledger.CloseAll(bar.Close, bar.Time); n > 0 {
			d.log.Info("day boundary, flattened carry-over lots", slog.Int("lots", n))
		}
	}

	d.currentDate = date
	d.today = market.NewHistory(market.Minute, d.buffers.Minute)
	if !d.backtest {
		d.lastNews = time.Time{}
		d.newsDigest = ""
	}
}

// appendBar feeds one in-session bar into every buffer it qualifies for.
// The daily history only records the session-close bar.
func (d *Dealer) appendBar(bar market.Bar) {
	d.today.Append(bar)
	d.hourly.Append(bar)
	if bar.Time.Hour() == 15 && bar.Time.Minute() == 0 {
		d.daily.Append(bar)
	}
}

// refreshNews pulls latest headlines and re-digests them through the oracle
// when something newer arrived. Failures skip the refresh, nothing more.
func (d *Dealer) refreshNews(ctx context.Context) bool {
	headlines, err := d.deps.News.News(ctx, d.symbol, 20)
	if err != nil {
		d.log.Warn("news refresh failed", slog.String("error", err.Error()))
		return false
	}
	if len(headlines) == 0 {
		return false
	}

	latest := headlines[len(headlines)-1]
	if !latest.Time.After(d.lastNews) {
		return false
	}
	d.lastNews = latest.Time

	titles := make([]string, 0, len(headlines))
	for _, h := range headlines {
		titles = append(titles, h.Title)
	}

	digest, err := d.deps.Oracle.Complete(ctx, buildNewsPrompt(titles))
	if err != nil {
		d.log.Warn("news digest failed", slog.String("error", err.Error()))
		return false
	}
	if digest == d.newsDigest {
		return false
	}
	d.newsDigest = digest
	return true
}

func (d *Dealer) buildPrompt(bar market.Bar, news string) string {
	snap, ok := indicator.Compute(d.today.Bars(), d.indCfg)

	return buildPrompt(promptInput{
		Symbol:        d.symbol,
		MaxPosition:   d.maxPosition,
		LastMemo:      d.lastMemo,
		BarIndex:      d.today.Len() - 1,
		DailySummary:  d.daily.Summary(d.buffers.Daily, d.compact),
		HourlySummary: d.hourly.Summary(d.buffers.Hourly, d.compact),
		MinuteSummary: d.today.Summary(d.buffers.Minute, d.compact),
		DailyRows:     d.buffers.Daily,
		HourlyRows:    d.buffers.Hourly,
		MinuteRows:    d.buffers.Minute,
		Bar:           bar,
		Indicators:    indicator.Format(snap, ok, d.compact),
		News:          news,
		Position:      d.ledger.NetPosition(),
		Profits:       d.ledger.Profits(bar.Close),
		LotDetails:    d.ledger.Details(),
	})
}

// apply executes a parsed decision against the ledger and returns the number
// of lots actually opened or closed. Opens are clamped to the room left
// under the position limit; closes clamp inside the ledger.
func (d *Dealer) apply(decision oracle.Decision, bar market.Bar) int {
	price := bar.Close
	t := bar.Time

	switch decision.Action {
	case oracle.Buy, oracle.Short:
		requested := decision.Quantity
		if decision.All {
			requested = d.maxPosition
		}

		net := d.ledger.NetPosition()
		room := d.maxPosition - abs(net)
		if room < 0 {
			room = 0
		}
		qty := min(requested, room)
		if qty > 0 {
			d.ledger.Open(price, qty, decision.Action == oracle.Buy, t)
		}
		return qty

	case oracle.Sell, oracle.Cover:
		long := decision.Action == oracle.Sell
		requested := decision.Quantity
		if decision.All {
			requested = d.ledger.OpenCount(long)
		}
		return d.ledger.Close(price, requested, long, t)
	}

	return 0
}

func (d *Dealer) logBar(bar market.Bar, decision oracle.Decision, executed int) {
	attrs := []any{
		slog.Time("bar", bar.Time),
		slog.Int("index", d.today.Len()-1),
		slog.String("close", bar.Close.StringFixed(2)),
		slog.String("action", string(decision.Action)),
		slog.Int("executed", executed),
		slog.Int("position", d.ledger.NetPosition()),
		slog.String("total_profit", d.totalProfit.StringFixed(2)),
	}
	if decision.Action == oracle.Hold {
		d.log.Debug("bar processed", attrs...)
		return
	}
	d.log.Info("trade instruction", attrs...)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
