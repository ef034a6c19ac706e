package dealer

import (
	"fmt"
	"strings"

	"github.com/gamma-omg/intraday-dealer/internal/ledger"
	"github.com/gamma-omg/intraday-dealer/internal/market"
)

// promptInput is the immutable snapshot rendered into one decision request.
type promptInput struct {
	Symbol        string
	MaxPosition   int
	LastMemo      string
	BarIndex      int
	DailySummary  string
	HourlySummary string
	MinuteSummary string
	DailyRows     int
	HourlyRows    int
	MinuteRows    int
	Bar           market.Bar
	Indicators    string
	News          string
	Position      int
	Profits       ledger.Profits
	LotDetails    string
}

func positionDescription(net int) string {
	switch {
	case net > 0:
		return fmt.Sprintf("long %d lots", net)
	case net < 0:
		return fmt.Sprintf("short %d lots", -net)
	}
	return "flat"
}

// buildPrompt renders the decision request. It only reads its input; all
// engine state is carried explicitly.
func buildPrompt(in promptInput) string {
	var sb strings.Builder

	sb.WriteString("You are a seasoned intraday futures trader. You study the data carefully, ")
	sb.WriteString("seize opportunities and stay alert to risk.\n")
	sb.WriteString("Strategy: intraday only. Every open lot must be closed before the session ends; no overnight exposure.\n")
	sb.WriteString("You see 1-minute bars. Conversation history is not kept: anything you need ")
	sb.WriteString("on the next bar must go into next_message.\n\n")

	fmt.Fprintf(&sb, "Instrument: %s\n", in.Symbol)

	fmt.Fprintf(&sb, "Previous message: %s\n", in.LastMemo)
	fmt.Fprintf(&sb, "Current bar index: %d\n\n", in.BarIndex)

	fmt.Fprintf(&sb, "Daily history (last %d days):\n%s\n\n", in.DailyRows, in.DailySummary)
	fmt.Fprintf(&sb, "Hourly history (last %d hours):\n%s\n\n", in.HourlyRows, in.HourlySummary)
	fmt.Fprintf(&sb, "Today's minute bars (last %d minutes):\n%s\n\n", in.MinuteRows, in.MinuteSummary)

	sb.WriteString("Current bar:\n")
	fmt.Fprintf(&sb, "time: %s\n", in.Bar.Time.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "open: %s\n", in.Bar.Open.StringFixed(2))
	fmt.Fprintf(&sb, "high: %s\n", in.Bar.High.StringFixed(2))
	fmt.Fprintf(&sb, "low: %s\n", in.Bar.Low.StringFixed(2))
	fmt.Fprintf(&sb, "close: %s\n", in.Bar.Close.StringFixed(2))
	fmt.Fprintf(&sb, "volume: %s\n", in.Bar.Volume.String())
	fmt.Fprintf(&sb, "open interest: %s\n\n", in.Bar.OpenInterest.String())

	fmt.Fprintf(&sb, "Technical indicators:\n%s\n\n", in.Indicators)

	if strings.TrimSpace(in.News) != "" {
		fmt.Fprintf(&sb, "Latest news:\n%s\n\n", in.News)
		sb.WriteString("News guidance:\n")
		sb.WriteString("1. Consider the short, medium and long term market impact.\n")
		sb.WriteString("2. The market may already have priced this in.\n")
		sb.WriteString("3. A surprise against prior expectations moves prices more.\n")
		sb.WriteString("4. This item appears only once; keep anything worth remembering in next_message.\n\n")
	}

	fmt.Fprintf(&sb, "Current position: %s\n", positionDescription(in.Position))
	fmt.Fprintf(&sb, "Maximum position: %d lots\n\n", in.MaxPosition)

	sb.WriteString("P&L:\n")
	fmt.Fprintf(&sb, "realized: %s\n", in.Profits.Realized.StringFixed(2))
	fmt.Fprintf(&sb, "unrealized: %s\n", in.Profits.Unrealized.StringFixed(2))
	fmt.Fprintf(&sb, "total: %s\n\n", in.Profits.Total.StringFixed(2))

	sb.WriteString(in.LotDetails)
	sb.WriteString("\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("1. Intraday lots must be flat before 15:00.\n")
	fmt.Fprintf(&sb, "2. The time is %s; decide whether the clock forces you to close.\n", in.Bar.Time.Format("15:04"))
	sb.WriteString("3. Opening: 'buy <n>' or 'buy all' to go long, 'short <n>' or 'short all' to go short.\n")
	sb.WriteString("4. Closing: 'sell <n>' or 'sell all' closes longs, 'cover <n>' or 'cover all' closes shorts.\n")
	sb.WriteString("5. Do not open past the maximum position.\n\n")

	sb.WriteString("Reply with a trade instruction or 'hold', plus the message for your next self.\n")
	sb.WriteString("Output JSON wrapped in ```json and ``` with exactly these fields:\n")
	sb.WriteString("- trade_instruction: e.g. \"buy 2\", \"sell all\", \"short 1\", \"cover all\" or \"hold\"\n")
	sb.WriteString("- next_message: free text for the next bar\n")

	return sb.String()
}

// buildNewsPrompt asks the oracle to digest raw headlines into a short
// trading brief.
func buildNewsPrompt(headlines []string) string {
	var sb strings.Builder
	sb.WriteString("Condense the following headlines into a trading brief of at most 200 words:\n\n")
	for _, h := range headlines {
		sb.WriteString("- " + h + "\n")
	}
	return sb.String()
}
