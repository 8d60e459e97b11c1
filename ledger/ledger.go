// Package ledger holds the append-only record of every bag-draining event
// (disposals and fees) and the append-only PaymentLedger that collects
// them.
package ledger

import (
	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// Kind tags a PaymentReport with the event that produced it.
type Kind string

const (
	KindSale          Kind = "sale"
	KindWithdrawalFee Kind = "withdrawal fee"
	KindDepositFee    Kind = "deposit fee"
	KindExchangeFee   Kind = "exchange fee"
	KindPayment       Kind = "payment"
)

// PaymentReport is one entry per bag-drained disposal slice.
type PaymentReport struct {
	Kind            Kind
	Exchange        string
	SellTime        instant.Instant
	Currency        currency.Code
	ToPay           money.Amount
	FeeRatio        money.Amount
	BagTime         instant.Instant
	BagAmountBefore money.Amount
	BagSpent        money.Amount
	CostCurrency    currency.Code
	SpentCost       money.Amount
	ShortTerm       bool
	ExRate          money.Amount
	Proceeds        money.Amount
	Profit          money.Amount

	// Sale-only fields; zero value otherwise.
	BuyCurrency currency.Code
	BuyRatio    money.Amount
}

// PaymentLedger is the append-only sequence of PaymentReports.
type PaymentLedger struct {
	rows []PaymentReport
}

// Append adds r to the ledger.
func (l *PaymentLedger) Append(r PaymentReport) {
	l.rows = append(l.rows, r)
}

// Rows returns the raw, unconsolidated row sequence. The returned slice
// must not be mutated by the caller.
func (l *PaymentLedger) Rows() []PaymentReport {
	return l.rows
}

// Len returns the number of rows.
func (l *PaymentLedger) Len() int {
	return len(l.rows)
}

// Consolidated combines consecutive rows that differ only in the numeric
// slice fields (ToPay, BagAmountBefore, BagSpent, SpentCost, Proceeds,
// Profit) into a single row by summing those fields. This view is for
// reporting only; the underlying ledger (Rows) is never mutated.
//
// Two rows are combinable when every non-numeric field matches: Kind,
// Exchange, SellTime, Currency, FeeRatio, BagTime, CostCurrency,
// ShortTerm, ExRate, BuyCurrency and BuyRatio.
func (l *PaymentLedger) Consolidated() []PaymentReport {
	if len(l.rows) == 0 {
		return nil
	}
	out := make([]PaymentReport, 0, len(l.rows))
	cur := l.rows[0]
	for _, next := range l.rows[1:] {
		if combinable(cur, next) {
			cur.ToPay = cur.ToPay.Add(next.ToPay)
			cur.BagAmountBefore = cur.BagAmountBefore.Add(next.BagAmountBefore)
			cur.BagSpent = cur.BagSpent.Add(next.BagSpent)
			cur.SpentCost = cur.SpentCost.Add(next.SpentCost)
			cur.Proceeds = cur.Proceeds.Add(next.Proceeds)
			cur.Profit = cur.Profit.Add(next.Profit)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)
	return out
}

func combinable(a, b PaymentReport) bool {
	return a.Kind == b.Kind &&
		a.Exchange == b.Exchange &&
		a.SellTime.Equal(b.SellTime) &&
		a.Currency == b.Currency &&
		a.FeeRatio.Equal(b.FeeRatio) &&
		a.BagTime.Equal(b.BagTime) &&
		a.CostCurrency == b.CostCurrency &&
		a.ShortTerm == b.ShortTerm &&
		a.ExRate.Equal(b.ExRate) &&
		a.BuyCurrency == b.BuyCurrency &&
		a.BuyRatio.Equal(b.BuyRatio)
}
