package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamma-omg/intraday-dealer/internal/backtest"
	"github.com/gamma-omg/intraday-dealer/internal/config"
	"github.com/gamma-omg/intraday-dealer/internal/dealer"
	"github.com/gamma-omg/intraday-dealer/internal/journal"
	"github.com/gamma-omg/intraday-dealer/internal/market"
	"github.com/gamma-omg/intraday-dealer/internal/oracle"
	"github.com/gamma-omg/intraday-dealer/internal/provider"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "dealer",
		Short:         "Oracle-driven intraday futures dealer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to the yaml config")
	root.AddCommand(cmdBacktest(), cmdLive())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG"); p != "" {
		return p
	}
	return "config.yml"
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func setup() (*config.Config, *slog.Logger, dealer.Deps, error) {
	cfg, err := config.ReadFromFile(configPath)
	if err != nil {
		return nil, nil, dealer.Deps{}, err
	}

	log := newLogger(cfg.LogLevel)

	session, err := buildSession(cfg.Session)
	if err != nil {
		return nil, nil, dealer.Deps{}, err
	}
	orc, err := buildOracle(cfg.OracleRef)
	if err != nil {
		return nil, nil, dealer.Deps{}, err
	}
	prov, news, err := buildProvider(cfg)
	if err != nil {
		return nil, nil, dealer.Deps{}, err
	}

	return cfg, log, dealer.Deps{
		Provider: prov,
		News:     news,
		Oracle:   orc,
		Session:  session,
	}, nil
}

func buildSession(s config.Session) (*market.Session, error) {
	var hours []market.Interval
	for _, h := range s.Hours {
		lo, hi, ok := strings.Cut(h, "-")
		if !ok {
			return nil, fmt.Errorf("invalid session interval %q, want HH:MM-HH:MM", h)
		}
		start, err := market.ParseClockTime(lo)
		if err != nil {
			return nil, err
		}
		end, err := market.ParseClockTime(hi)
		if err != nil {
			return nil, err
		}
		hours = append(hours, market.Interval{Start: start, End: end})
	}

	var nightClose *market.ClockTime
	if s.NightClose != "" {
		c, err := market.ParseClockTime(s.NightClose)
		if err != nil {
			return nil, err
		}
		nightClose = &c
	}

	return market.NewSession(hours, nightClose), nil
}

func buildOracle(ref config.OracleReference) (oracle.Completer, error) {
	switch o := ref.Oracle.(type) {
	case config.OpenAI:
		return oracle.NewChatClient(oracle.ChatConfig{
			BaseURL:     o.BaseURL,
			APIKey:      o.APIKey,
			Model:       o.Model,
			Temperature: o.Temperature,
			Timeout:     o.Timeout(),
		}), nil
	case config.StaticOracle:
		reply := o.Reply
		if reply == "" {
			reply = oracle.HoldReply
		}
		return oracle.Static{Reply: reply}, nil
	case nil:
		return nil, errors.New("config: oracle is required")
	default:
		return nil, fmt.Errorf("unsupported oracle config %T", o)
	}
}

func buildProvider(cfg *config.Config) (provider.DataProvider, provider.NewsProvider, error) {
	switch p := cfg.ProviderRef.Provider.(type) {
	case config.CSV:
		c := provider.NewCSVProvider(p)
		if err := c.Load(cfg.Symbol); err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	case config.Alpaca:
		a := provider.NewAlpacaProvider(p)
		return a, a, nil
	case nil:
		return nil, nil, errors.New("config: provider is required")
	default:
		return nil, nil, fmt.Errorf("unsupported provider config %T", p)
	}
}

func cmdBacktest() *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Replay recorded bars over a date range and write a report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, deps, err := setup()
			if err != nil {
				return err
			}

			start, err := time.Parse(time.DateOnly, cfg.Backtest.Start)
			if err != nil {
				return fmt.Errorf("invalid backtest start date: %w", err)
			}
			end, err := time.Parse(time.DateOnly, cfg.Backtest.End)
			if err != nil {
				return fmt.Errorf("invalid backtest end date: %w", err)
			}

			res, err := backtest.NewDriver(log, cfg, deps).Run(cmd.Context(), start, end)
			if err != nil {
				return err
			}

			if err := writeOutputs(log, cfg, res); err != nil {
				return err
			}
			return nil
		},
	}
}

func writeOutputs(log *slog.Logger, cfg *config.Config, res *backtest.Result) error {
	var out io.Writer = os.Stdout
	if cfg.Report.Path != "" {
		f, err := os.Create(cfg.Report.Path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := backtest.WriteReport(out, res); err != nil {
		return err
	}

	if cfg.Report.Plot != "" {
		p := backtest.NewEquityPlot(1280, 240)
		if err := p.Render(res); err != nil {
			return err
		}
		if err := p.Save(cfg.Report.Plot); err != nil {
			return err
		}
		log.Info("equity plot written", slog.String("path", cfg.Report.Plot))
	}

	if cfg.Journal != "" {
		if err := persistRun(cfg.Journal, res); err != nil {
			return err
		}
		log.Info("run journaled", slog.String("path", cfg.Journal))
	}
	return nil
}

func persistRun(path string, res *backtest.Result) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	runID, err := j.StartRun(res.Symbol, res.Start, res.End)
	if err != nil {
		return err
	}
	for _, day := range res.Days {
		for _, tr := range day.Trades {
			err := j.RecordTrade(runID, journal.Trade{
				Time:     tr.Time,
				Action:   string(tr.Action),
				Quantity: tr.Quantity,
				Price:    tr.Price,
				Memo:     tr.Memo,
			})
			if err != nil {
				return err
			}
		}
	}
	return j.FinishRun(runID, journal.Summary{
		TotalProfit: res.TotalProfit,
		Opens:       res.Opens,
		Closes:      res.Closes,
		WinRate:     res.WinRate,
	})
}

func cmdLive() *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Poll live minute bars and trade until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, deps, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runLive(ctx, log, cfg, deps)
		},
	}
}

// runLive polls the provider once a minute and feeds any bar newer than the
// last processed one through the dealer. The dealer handles day rollover
// itself, so a single instance survives the whole process.
func runLive(ctx context.Context, log *slog.Logger, cfg *config.Config, deps dealer.Deps) error {
	d := dealer.New(log, cfg, deps, provider.TradingDate(time.Now()), false)
	log.Info("live dealing started", slog.String("symbol", cfg.Symbol))

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastProcessed time.Time
	for {
		select {
		case <-ctx.Done():
			log.Info("live dealing stopped")
			return nil
		case <-ticker.C:
		}

		now := time.Now()
		bars, err := deps.Provider.Bars(ctx, cfg.Symbol, market.Minute, provider.TradingDate(now))
		if err != nil {
			log.Warn("failed to fetch bars", slog.String("error", err.Error()))
			continue
		}

		for _, bar := range bars {
			if !bar.Time.After(lastProcessed) {
				continue
			}
			d.ProcessBar(ctx, bar)
			lastProcessed = bar.Time
		}
	}
}
