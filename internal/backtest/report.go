package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type jsonReport struct {
	Symbol      string    `json:"symbol"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	TotalProfit string    `json:"total_profit"`
	Opens       int       `json:"opens"`
	Closes      int       `json:"closes"`
	WinRate     float64   `json:"win_rate_pct"`
	AvgPerClose string    `json:"avg_profit_per_close,omitempty"`
	Days        []jsonDay `json:"days,omitempty"`
}

type jsonDay struct {
	Date   string      `json:"date"`
	Bars   int         `json:"bars"`
	Profit string      `json:"profit"`
	Trades []jsonTrade `json:"trades,omitempty"`
}

type jsonTrade struct {
	Time     time.Time `json:"time"`
	Action   string    `json:"action"`
	Quantity int       `json:"quantity"`
	Price    string    `json:"price"`
	Memo     string    `json:"memo,omitempty"`
}

// WriteReport serializes a run result as indented JSON.
func WriteReport(w io.Writer, res *Result) error {
	rep := jsonReport{
		Symbol:      res.Symbol,
		Start:       res.Start.Format(time.DateOnly),
		End:         res.End.Format(time.DateOnly),
		TotalProfit: res.TotalProfit.StringFixed(2),
		Opens:       res.Opens,
		Closes:      res.Closes,
		WinRate:     res.WinRate,
	}
	if res.Closes > 0 {
		rep.AvgPerClose = res.AvgPerClose.StringFixed(2)
	}

	for _, day := range res.Days {
		jd := jsonDay{
			Date:   day.Date.Format(time.DateOnly),
			Bars:   day.Bars,
			Profit: day.Profit.StringFixed(2),
		}
		for _, tr := range day.Trades {
			jd.Trades = append(jd.Trades, jsonTrade{
				Time:     tr.Time,
				Action:   string(tr.Action),
				Quantity: tr.Quantity,
				Price:    tr.Price.StringFixed(2),
				Memo:     tr.Memo,
			})
		}
		rep.Days = append(rep.Days, jd)
	}

	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(rep); err != nil {
		return fmt.Errorf("failed to write backtest report: %w", err)
	}
	return nil
}
