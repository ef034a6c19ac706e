// Package oracle defines the decision oracle consumed by the dealer: a text
// completion capability plus the parser for its structured replies.
package oracle

import "context"

// Completer is the single capability the engine needs from a decision
// oracle. Implementations own their transport, retries, and timeouts; the
// engine treats any error as a degraded bar and holds.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Action is a validated trade instruction verb.
type Action string

const (
	Buy   Action = "buy"
	Sell  Action = "sell"
	Short Action = "short"
	Cover Action = "cover"
	Hold  Action = "hold"
)

func (a Action) Valid() bool {
	switch a {
	case Buy, Sell, Short, Cover, Hold:
		return true
	}
	return false
}

// Opens reports whether the action opens new lots.
func (a Action) Opens() bool {
	return a == Buy || a == Short
}

// Closes reports whether the action closes existing lots.
func (a Action) Closes() bool {
	return a == Sell || a == Cover
}

// Decision is one parsed oracle reply. When All is set the quantity means
// "as many as allowed". Memo is opaque free text carried to the next bar.
type Decision struct {
	Action   Action
	Quantity int
	All      bool
	Memo     string
}

// Static is a canned completer returning the same reply for every prompt.
// It stands in for a live oracle in dry runs and tests.
type Static struct {
	Reply string
}

func (s Static) Complete(context.Context, string) (string, error) {
	return s.Reply, nil
}

// HoldReply is a well-formed reply that holds with no memo.
const HoldReply = "```json\n{\"trade_instruction\": \"hold\", \"next_message\": \"\"}\n```"
