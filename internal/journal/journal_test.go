package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j
}

func TestStartRunAssignsUniqueIDs(t *testing.T) {
	j := newTestJournal(t)

	start := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	a, err := j.StartRun("SC2405", start, end)
	require.NoError(t, err)
	b, err := j.StartRun("SC2405", start, end)
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestTradesRoundTrip(t *testing.T) {
	j := newTestJournal(t)

	runID, err := j.StartRun("SC2405",
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	first := Trade{
		Time:     time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC),
		Action:   "buy",
		Quantity: 2,
		Price:    decimal.RequireFromString("101.50"),
		Memo:     "breakout above range",
	}
	second := Trade{
		Time:     time.Date(2024, 3, 11, 10, 15, 0, 0, time.UTC),
		Action:   "sell",
		Quantity: 2,
		Price:    decimal.RequireFromString("103.25"),
	}
	require.NoError(t, j.RecordTrade(runID, first))
	require.NoError(t, j.RecordTrade(runID, second))

	trades, err := j.Trades(runID)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "buy", trades[0].Action)
	assert.Equal(t, 2, trades[0].Quantity)
	assert.True(t, trades[0].Price.Equal(first.Price))
	assert.Equal(t, first.Memo, trades[0].Memo)
	assert.True(t, trades[0].Time.Equal(first.Time))
	assert.Equal(t, "sell", trades[1].Action)
}

func TestFinishRun(t *testing.T) {
	j := newTestJournal(t)

	runID, err := j.StartRun("SC2405",
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, j.FinishRun(runID, Summary{
		TotalProfit: decimal.NewFromInt(42),
		Opens:       3,
		Closes:      3,
		WinRate:     100,
	}))

	trades, err := j.Trades(runID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestTradesForUnknownRunIsEmpty(t *testing.T) {
	j := newTestJournal(t)

	trades, err := j.Trades("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, trades)
}
