// Package bag implements the single cost-basis lot at the heart of the
// FIFO engine. Bags are owned by value and moved between slices rather
// than shared by reference, so an explicit numeric ID stands in for
// pointer identity.
package bag

import (
	"fmt"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// Bag is a single cost-basis lot of one currency.
type Bag struct {
	ID           uint64
	AcquiredAt   instant.Instant
	Currency     currency.Code
	Amount       money.Amount
	CostCurrency currency.Code
	Cost         money.Amount
	UnitPrice    money.Amount // frozen at creation: Cost / Amount
}

// New creates a Bag with amount units of currency acquired at acquiredAt,
// costing cost in costCurrency. amount must be strictly positive.
func New(id uint64, acquiredAt instant.Instant, curr currency.Code, amount money.Amount, costCurrency currency.Code, cost money.Amount) (Bag, error) {
	if amount.Sign() <= 0 {
		return Bag{}, fmt.Errorf("bag: amount must be > 0, got %s", amount)
	}
	return Bag{
		ID:           id,
		AcquiredAt:   acquiredAt,
		Currency:     curr,
		Amount:       amount,
		CostCurrency: costCurrency,
		Cost:         cost,
		UnitPrice:    cost.Div(amount),
	}, nil
}

// NewFromUnitPrice is New's counterpart for when only a unit price is
// known: cost is derived as amount * unitPrice.
func NewFromUnitPrice(id uint64, acquiredAt instant.Instant, curr currency.Code, amount money.Amount, costCurrency currency.Code, unitPrice money.Amount) (Bag, error) {
	if amount.Sign() <= 0 {
		return Bag{}, fmt.Errorf("bag: amount must be > 0, got %s", amount)
	}
	return Bag{
		ID:           id,
		AcquiredAt:   acquiredAt,
		Currency:     curr,
		Amount:       amount,
		CostCurrency: costCurrency,
		Cost:         amount.Mul(unitPrice),
		UnitPrice:    unitPrice,
	}, nil
}

// IsEmpty reports whether the bag has been fully drained.
func (b Bag) IsEmpty() bool {
	return b.Amount.IsZero()
}

// Spend drains up to request units from the bag. UnitPrice never changes.
//
//   - If request >= b.Amount: the whole bag is drained; spent = Amount
//     (pre-spend), spentCost = Cost (pre-spend), remainder = request -
//     Amount, and the bag becomes empty (Amount = Cost = 0).
//   - Otherwise: spent = request, spentCost = request * UnitPrice,
//     remainder = 0, and the bag's Amount/Cost are decremented.
func (b *Bag) Spend(request money.Amount) (spent, spentCost, remainder money.Amount) {
	if request.Cmp(b.Amount) >= 0 {
		spent = b.Amount
		spentCost = b.Cost
		remainder = request.Sub(b.Amount)
		b.Amount = money.Zero
		b.Cost = money.Zero
		return spent, spentCost, remainder
	}
	spent = request
	spentCost = request.Mul(b.UnitPrice)
	b.Amount = b.Amount.Sub(spent)
	b.Cost = b.Cost.Sub(spentCost)
	return spent, spentCost, money.Zero
}

// Split detaches `amount` from the front of the bag as a new Bag with a
// fresh id, sharing AcquiredAt, Currency, CostCurrency and UnitPrice. The
// original bag is mutated in place to reflect the remainder. Used by the
// bag-movement split-on-boundary algorithm when a transfer needs fewer
// units than a bag holds.
func (b *Bag) Split(newID uint64, amount money.Amount) (Bag, error) {
	if amount.Cmp(b.Amount) > 0 {
		return Bag{}, fmt.Errorf("bag: cannot split %s out of a bag holding %s", amount, b.Amount)
	}
	spent, spentCost, _ := b.Spend(amount)
	return Bag{
		ID:           newID,
		AcquiredAt:   b.AcquiredAt,
		Currency:     b.Currency,
		Amount:       spent,
		CostCurrency: b.CostCurrency,
		Cost:         spentCost,
		UnitPrice:    b.UnitPrice,
	}, nil
}
