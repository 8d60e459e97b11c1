// Package trade defines the canonical Trade record the Bag Engine
// consumes, and the Normalizer contract external ingestion adapters
// implement.
package trade

import (
	"fmt"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// Kind tags that the engine's decision table recognizes explicitly. Any
// other value is treated as a plain trade by the decision table.
const (
	KindSale         = "sale"
	KindWithdrawal   = "withdrawal"
	KindDeposit      = "deposit"
	KindDistribution = "distribution"
	KindPayment      = "payment"
)

// Trade is the canonical, closed record the engine dispatches on.
type Trade struct {
	Kind string
	Time instant.Instant

	BuyCurrency currency.Code
	BuyAmount   money.Amount // net of fee

	SellCurrency currency.Code
	SellAmount   money.Amount // gross, fee-inclusive

	FeeCurrency currency.Code
	FeeAmount   money.Amount // absolute

	Exchange string
	Mark     string
	Comment  string
}

// Validate checks the shape-level constraints the engine rejects as
// input-shape errors: no negative amounts (swap-and-abs is the
// Normalizer's job, not the engine's), and no fee amount without a fee
// currency. A fee currency with a zero fee amount is accepted.
func (t Trade) Validate() error {
	if t.BuyAmount.IsNegative() {
		return fmt.Errorf("trade: buy_amount must not be negative, got %s", t.BuyAmount)
	}
	if t.SellAmount.IsNegative() {
		return fmt.Errorf("trade: sell_amount must not be negative, got %s", t.SellAmount)
	}
	if t.FeeAmount.IsNegative() {
		return fmt.Errorf("trade: fee_amount must not be negative, got %s", t.FeeAmount)
	}
	if t.FeeAmount.Sign() > 0 && t.FeeCurrency == "" {
		return fmt.Errorf("trade: fee_amount is set but fee_currency is empty")
	}
	return nil
}

// RawRecord is an untyped row of string fields as read from an external
// source (e.g. one CSV line), the input to a Normalizer.
type RawRecord map[string]string

// Normalizer converts heterogeneous exchange exports into canonical
// Trades: classify kind, ensure buy_amount is net-of-fee and sell_amount
// is gross, swap-and-abs a single negative side (reject two negatives),
// attach timezone to every Time, and sort by time with the
// deposit-after-withdrawal tie-break.
type Normalizer interface {
	Normalize(raw []RawRecord) ([]Trade, error)
}

// SwapIfNegative applies the ingestion contract's sign rule. When exactly
// one of buy_amount and sell_amount is negative, the exporter recorded the
// leg with the buy/sell roles reversed, so the two sides are swapped and
// the negative amount taken absolute. Two negative sides is a shape error
// the normalizer cannot repair.
func SwapIfNegative(buyCur currency.Code, buyAmt money.Amount, sellCur currency.Code, sellAmt money.Amount) (currency.Code, money.Amount, currency.Code, money.Amount, error) {
	buyNeg := buyAmt.IsNegative()
	sellNeg := sellAmt.IsNegative()
	switch {
	case buyNeg && sellNeg:
		return "", money.Zero, "", money.Zero, fmt.Errorf("trade: both buy_amount (%s) and sell_amount (%s) are negative", buyAmt, sellAmt)
	case buyNeg:
		return sellCur, sellAmt, buyCur, buyAmt.Abs(), nil
	case sellNeg:
		return sellCur, sellAmt.Abs(), buyCur, buyAmt, nil
	default:
		return buyCur, buyAmt, sellCur, sellAmt, nil
	}
}
