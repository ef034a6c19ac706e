package oracle

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

type replyBody struct {
	TradeInstruction *string `json:"trade_instruction"`
	NextMessage      *string `json:"next_message"`
}

// holdFallback is returned for any reply the parser cannot trust.
func holdFallback() Decision {
	return Decision{Action: Hold, Quantity: 1}
}

// ParseDecision extracts the action/quantity/memo triple from an oracle
// reply. The reply must carry one fenced json block with trade_instruction
// and next_message; anything else degrades to hold. Action validation is
// strict. Quantity validation is deliberately lenient: a recognizable action
// with a garbled size token defaults to quantity 1 rather than discarding
// the instruction, since the ledger clamp bounds the damage either way.
func ParseDecision(reply string) Decision {
	m := fencedJSON.FindStringSubmatch(reply)
	if m == nil {
		return holdFallback()
	}

	var body replyBody
	if err := json.Unmarshal([]byte(m[1]), &body); err != nil {
		return holdFallback()
	}
	if body.TradeInstruction == nil || body.NextMessage == nil {
		return holdFallback()
	}

	fields := strings.Fields(strings.ToLower(strings.TrimSpace(*body.TradeInstruction)))
	if len(fields) == 0 {
		return holdFallback()
	}

	action := Action(fields[0])
	if !action.Valid() {
		return holdFallback()
	}

	d := Decision{Action: action, Quantity: 1, Memo: *body.NextMessage}
	if len(fields) > 1 {
		switch qty := fields[1]; qty {
		case "all":
			d.All = true
		default:
			if n, err := strconv.Atoi(qty); err == nil && n > 0 {
				d.Quantity = n
			}
		}
	}
	return d
}
