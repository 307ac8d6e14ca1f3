package swapengine

import (
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/shopspring/decimal"
)

// normalized trims the token and amount fields. Routing, quoting and the
// attempt record all read the normalized request.
func (r QuoteRequest) normalized() QuoteRequest {
	r.InputToken = strings.TrimSpace(r.InputToken)
	r.OutputToken = strings.TrimSpace(r.OutputToken)
	r.Amount = strings.TrimSpace(r.Amount)
	return r
}

func (e *Engine) validate(req QuoteRequest) error {
	in, out := req.InputToken, req.OutputToken
	if in == "" || out == "" {
		return swaperr.New(swaperr.KindInvalidRequest, "input and output token are required")
	}
	if in == out {
		return swaperr.New(swaperr.KindInvalidRequest, "input and output token must differ")
	}

	amt, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return swaperr.Wrap(swaperr.KindInvalidRequest, fmt.Sprintf("invalid amount %q", req.Amount), err)
	}
	if !amt.IsPositive() {
		return swaperr.New(swaperr.KindInvalidRequest, "amount must be > 0")
	}

	if req.SlippageBps > e.maxSlippage {
		return swaperr.New(swaperr.KindInvalidRequest,
			fmt.Sprintf("slippage %d bps exceeds the %d bps limit", req.SlippageBps, e.maxSlippage))
	}
	return nil
}
