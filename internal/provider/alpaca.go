package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/gamma-omg/intraday-dealer/internal/config"
	"github.com/gamma-omg/intraday-dealer/internal/market"
)

// AlpacaProvider serves bars and news from the Alpaca marketdata API for
// live runs.
type AlpacaProvider struct {
	cfg    config.Alpaca
	client *marketdata.Client
}

func NewAlpacaProvider(cfg config.Alpaca) *AlpacaProvider {
	return &AlpacaProvider{
		cfg: cfg,
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.APIKey,
			APISecret: cfg.Secret,
			BaseURL:   cfg.BaseURL,
		}),
	}
}

// history fetched for the coarser granularities, sized to overfill the
// engine's rolling buffers.
const (
	dailyLookback  = 90 * 24 * time.Hour
	hourlyLookback = 7 * 24 * time.Hour
)

func (p *AlpacaProvider) Bars(_ context.Context, symbol string, g market.Granularity, date time.Time) ([]market.Bar, error) {
	var (
		tf    marketdata.TimeFrame
		start time.Time
	)
	end := date.AddDate(0, 0, 1)

	switch g {
	case market.Minute:
		tf = marketdata.OneMin
		start = date
	case market.Hourly:
		tf = marketdata.OneHour
		start = date.Add(-hourlyLookback)
		end = date
	case market.Daily:
		tf = marketdata.OneDay
		start = date.Add(-dailyLookback)
		end = date
	default:
		return nil, fmt.Errorf("unsupported granularity: %s", g)
	}

	alpacaBars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(p.cfg.Feed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s bars for %s: %w", g, symbol, err)
	}

	bars := make([]market.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, market.Bar{
			Time:   ab.Timestamp,
			Open:   decimal.NewFromFloat(ab.Open),
			High:   decimal.NewFromFloat(ab.High),
			Low:    decimal.NewFromFloat(ab.Low),
			Close:  decimal.NewFromFloat(ab.Close),
			Volume: decimal.NewFromInt(int64(ab.Volume)),
		})
	}
	return bars, nil
}

// News returns the most recent headlines for the symbol, oldest first.
func (p *AlpacaProvider) News(_ context.Context, symbol string, limit int) ([]Headline, error) {
	items, err := p.client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		TotalLimit: limit,
		Sort:       marketdata.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
	}

	headlines := make([]Headline, 0, len(items))
	for _, n := range items {
		headlines = append(headlines, Headline{Time: n.CreatedAt, Title: n.Headline})
	}
	return headlines, nil
}
