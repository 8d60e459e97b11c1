package engine

import "github.com/sklarsa/crypto-gains-engine/trade"

// Intent is the result of classifying a Trade, a pure function of the
// Trade and the engine's base currency.
type Intent int

const (
	IntentBuyWithBase Intent = iota
	IntentWithdrawal
	IntentDeposit
	IntentFeeOnly
	IntentNoOp
	IntentSale
)

func (i Intent) String() string {
	switch i {
	case IntentBuyWithBase:
		return "buy-with-base"
	case IntentWithdrawal:
		return "withdrawal"
	case IntentDeposit:
		return "deposit"
	case IntentFeeOnly:
		return "fee-only"
	case IntentNoOp:
		return "no-op"
	case IntentSale:
		return "sale"
	default:
		return "unknown"
	}
}

// classify dispatches t into exactly one Intent using the engine's
// five-rule decision table, evaluated in order; the first matching rule
// wins.
func classify(t trade.Trade, base string) Intent {
	buyEmpty := t.BuyAmount.IsZero() || string(t.BuyCurrency) == ""
	sellEmpty := t.SellAmount.IsZero() || string(t.SellCurrency) == ""

	// Rule 1: sell_currency == base and sell_amount > 0; or a
	// distribution with sell_amount == 0.
	if (string(t.SellCurrency) == base && t.SellAmount.Sign() > 0) ||
		(t.Kind == trade.KindDistribution && t.SellAmount.IsZero()) {
		return IntentBuyWithBase
	}

	// Rule 2: both sides empty.
	if buyEmpty && sellEmpty {
		if t.FeeAmount.Sign() > 0 {
			return IntentFeeOnly
		}
		return IntentNoOp
	}

	// Rule 3: not a payment, and the buy side is empty.
	if t.Kind != trade.KindPayment && buyEmpty {
		return IntentWithdrawal
	}

	// Rule 4: the sell side is empty.
	if sellEmpty {
		return IntentDeposit
	}

	// Rule 5: otherwise.
	return IntentSale
}
