package dealer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamma-omg/intraday-dealer/internal/config"
	"github.com/gamma-omg/intraday-dealer/internal/market"
	"github.com/gamma-omg/intraday-dealer/internal/oracle"
)

type stubProvider struct {
	bars map[market.Granularity][]market.Bar
	err  error
}

func (p *stubProvider) Bars(_ context.Context, _ string, g market.Granularity, _ time.Time) ([]market.Bar, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.bars[g], nil
}

type scriptOracle struct {
	replies []string
	err     error
	prompts []string
}

func (o *scriptOracle) Complete(_ context.Context, prompt string) (string, error) {
	o.prompts = append(o.prompts, prompt)
	if o.err != nil {
		return "", o.err
	}
	if len(o.replies) == 0 {
		return oracle.HoldReply, nil
	}
	r := o.replies[0]
	if len(o.replies) > 1 {
		o.replies = o.replies[1:]
	}
	return r, nil
}

func reply(instruction, memo string) string {
	return fmt.Sprintf("```json\n{\"trade_instruction\": %q, \"next_message\": %q}\n```", instruction, memo)
}

func barAt(hour, minute int, close float64) market.Bar {
	c := decimal.NewFromFloat(close)
	return market.Bar{
		Time:   time.Date(2024, 3, 11, hour, minute, 0, 0, time.UTC),
		Open:   c,
		High:   c,
		Low:    c,
		Close:  c,
		Volume: decimal.NewFromInt(100),
	}
}

func newTestDealer(t *testing.T, orc oracle.Completer, maxPosition int) *Dealer {
	t.Helper()
	cfg := &config.Config{
		Symbol:      "SC2405",
		MaxPosition: maxPosition,
		Buffers:     config.Buffers{Daily: 10, Hourly: 10, Minute: 60},
	}
	deps := Deps{
		Provider: &stubProvider{},
		Oracle:   orc,
		Session:  market.NewSession(nil, nil),
	}
	date := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	return New(slog.New(slog.DiscardHandler), cfg, deps, date, true)
}

func TestProcessBar_OutOfSessionHolds(t *testing.T) {
	orc := &scriptOracle{}
	d := newTestDealer(t, orc, 1)

	act, qty, memo := d.ProcessBar(context.Background(), barAt(12, 15, 100))

	assert.Equal(t, oracle.Hold, act)
	assert.Equal(t, 0, qty)
	assert.Empty(t, memo)
	assert.Empty(t, orc.prompts, "oracle must not be consulted outside trading hours")
}

func TestProcessBar_OpensAndTracksPosition(t *testing.T) {
	orc := &scriptOracle{replies: []string{reply("buy 2", "watching resistance")}}
	d := newTestDealer(t, orc, 5)

	act, qty, memo := d.ProcessBar(context.Background(), barAt(9, 30, 100))

	assert.Equal(t, oracle.Buy, act)
	assert.Equal(t, 2, qty)
	assert.Equal(t, "watching resistance", memo)
	assert.Equal(t, 2, d.Ledger().NetPosition())
}

func TestProcessBar_ClampsOpenToPositionLimit(t *testing.T) {
	orc := &scriptOracle{replies: []string{
		reply("buy 3", ""),
		reply("buy 5", ""),
	}}
	d := newTestDealer(t, orc, 5)

	d.ProcessBar(context.Background(), barAt(9, 30, 100))
	_, qty, _ := d.ProcessBar(context.Background(), barAt(9, 31, 101))

	assert.Equal(t, 2, qty, "only 2 lots of room remain under a 5 lot limit")
	assert.Equal(t, 5, d.Ledger().NetPosition())
}

func TestProcessBar_SellAllFlattens(t *testing.T) {
	orc := &scriptOracle{replies: []string{
		reply("buy 3", ""),
		reply("sell all", ""),
	}}
	d := newTestDealer(t, orc, 5)

	d.ProcessBar(context.Background(), barAt(9, 30, 100))
	act, qty, _ := d.ProcessBar(context.Background(), barAt(9, 31, 105))

	assert.Equal(t, oracle.Sell, act)
	assert.Equal(t, 3, qty)
	assert.Equal(t, 0, d.Ledger().NetPosition())

	profits := d.Profits(decimal.NewFromInt(105))
	assert.True(t, profits.Realized.Equal(decimal.NewFromInt(15)),
		"3 lots closed 5 points up, got %s", profits.Realized)
}

func TestProcessBar_ForcedCloseLiquidates(t *testing.T) {
	orc := &scriptOracle{replies: []string{
		reply("buy 2", ""),
		oracle.HoldReply,
	}}
	d := newTestDealer(t, orc, 5)

	d.ProcessBar(context.Background(), barAt(13, 30, 100))
	require.Equal(t, 2, d.Ledger().NetPosition())

	act, qty, _ := d.ProcessBar(context.Background(), barAt(14, 56, 102))

	assert.Equal(t, oracle.Hold, act)
	assert.Equal(t, 0, qty)
	assert.Equal(t, 0, d.Ledger().NetPosition(), "lots must be flat after the close window")
}

func TestProcessBar_OracleOutageStillForceCloses(t *testing.T) {
	orc := &scriptOracle{replies: []string{reply("buy 2", "riding the trend")}}
	d := newTestDealer(t, orc, 5)

	d.ProcessBar(context.Background(), barAt(13, 30, 100))
	require.Equal(t, 2, d.Ledger().NetPosition())

	orc.err = errors.New("connection refused")
	for minute := 55; minute <= 59; minute++ {
		act, qty, memo := d.ProcessBar(context.Background(), barAt(14, minute, 102))
		assert.Equal(t, oracle.Hold, act)
		assert.Equal(t, 0, qty)
		assert.Equal(t, "riding the trend", memo, "memo carries across degraded bars")
	}

	assert.Equal(t, 0, d.Ledger().NetPosition(),
		"close window must flatten lots even when the oracle is unreachable")
}

func TestProcessBar_OracleErrorHolds(t *testing.T) {
	orc := &scriptOracle{err: errors.New("connection refused")}
	d := newTestDealer(t, orc, 5)

	act, qty, memo := d.ProcessBar(context.Background(), barAt(9, 30, 100))

	assert.Equal(t, oracle.Hold, act)
	assert.Equal(t, 0, qty)
	assert.Empty(t, memo)
}

func TestProcessBar_MalformedReplyHolds(t *testing.T) {
	orc := &scriptOracle{replies: []string{"I think the market looks bullish today."}}
	d := newTestDealer(t, orc, 5)

	act, qty, _ := d.ProcessBar(context.Background(), barAt(9, 30, 100))

	assert.Equal(t, oracle.Hold, act)
	assert.Equal(t, 0, qty)
	assert.Equal(t, 0, d.Ledger().NetPosition())
}

func TestProcessBar_MemoCarriesIntoNextPrompt(t *testing.T) {
	orc := &scriptOracle{replies: []string{
		reply("hold", "price near support at 98.5"),
		oracle.HoldReply,
	}}
	d := newTestDealer(t, orc, 5)

	d.ProcessBar(context.Background(), barAt(9, 30, 100))
	d.ProcessBar(context.Background(), barAt(9, 31, 100))

	require.Len(t, orc.prompts, 2)
	assert.NotContains(t, orc.prompts[0], "price near support at 98.5")
	assert.Contains(t, orc.prompts[1], "price near support at 98.5")
}

func TestProcessBar_DayBoundaryFlattensAndResets(t *testing.T) {
	orc := &scriptOracle{replies: []string{
		reply("buy 2", ""),
		oracle.HoldReply,
	}}
	d := newTestDealer(t, orc, 5)

	d.ProcessBar(context.Background(), barAt(9, 30, 100))
	require.Equal(t, 2, d.Ledger().NetPosition())

	next := market.Bar{
		Time:   time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC),
		Open:   decimal.NewFromInt(101),
		High:   decimal.NewFromInt(101),
		Low:    decimal.NewFromInt(101),
		Close:  decimal.NewFromInt(101),
		Volume: decimal.NewFromInt(50),
	}
	d.ProcessBar(context.Background(), next)

	assert.Equal(t, 0, d.Ledger().NetPosition(), "carry-over lots close at the first bar of the new day")
}

func TestProcessBar_SeedFailureDegradesToEmptyHistory(t *testing.T) {
	cfg := &config.Config{
		Symbol:      "SC2405",
		MaxPosition: 1,
		Buffers:     config.Buffers{Daily: 10, Hourly: 10, Minute: 60},
	}
	orc := &scriptOracle{}
	deps := Deps{
		Provider: &stubProvider{err: errors.New("backend down")},
		Oracle:   orc,
		Session:  market.NewSession(nil, nil),
	}
	d := New(slog.New(slog.DiscardHandler), cfg, deps,
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), true)

	act, _, _ := d.ProcessBar(context.Background(), barAt(9, 30, 100))

	assert.Equal(t, oracle.Hold, act)
	require.Len(t, orc.prompts, 1)
	assert.Contains(t, orc.prompts[0], "No data available")
}
