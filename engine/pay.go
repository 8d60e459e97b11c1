package engine

import (
	"github.com/pkg/errors"

	"github.com/sklarsa/crypto-gains-engine/bag"
	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/ledger"
	"github.com/sklarsa/crypto-gains-engine/money"
	"github.com/sklarsa/crypto-gains-engine/relation"
)

// PayRequest is the disposal kernel's input.
type PayRequest struct {
	Time     instant.Instant
	Currency currency.Code
	Amount   money.Amount
	Exchange string
	FeeRatio money.Amount

	// CustomRate overrides the Currency Relation lookup when set (the
	// Sale handler uses this for a trade-local rate when buy_currency is
	// the base currency).
	CustomRate *money.Amount

	Kind        ledger.Kind
	BuyCurrency currency.Code // sale reports only
	BuyRatio    money.Amount  // sale reports only
}

// PayResult is the disposal kernel's output.
type PayResult struct {
	ShortTermProfit money.Amount
	TotalProceeds   money.Amount
}

// pay is the disposal kernel: it walks bags_by_exchange[req.Exchange]
// from the front, draining req.Amount worth of req.Currency, emitting one
// PaymentReport per bag slice consumed.
func (e *Engine) pay(req PayRequest) (PayResult, error) {
	if req.Currency == e.Base {
		return PayResult{}, errors.New("pay: currency equals base currency")
	}
	bags, ok := e.State.BagsByExchange[req.Exchange]
	if !ok || len(bags) == 0 {
		return PayResult{}, errors.Wrapf(ErrInsufficient, "pay: exchange %q holds no bags", req.Exchange)
	}
	if req.Amount.GreaterThan(e.State.total(req.Exchange, req.Currency)) {
		return PayResult{}, errors.Wrapf(ErrInsufficient, "pay: requested %s %s exceeds held %s", req.Amount, req.Currency, e.State.total(req.Exchange, req.Currency))
	}

	rate, err := e.resolveRate(req)
	if err != nil {
		return PayResult{}, err
	}

	totalProceedsGross, totalCost := money.Zero, money.Zero
	stProceedsGross, stCost := money.Zero, money.Zero

	remaining := req.Amount
	idx := 0
	for remaining.Sign() > 0 {
		for idx < len(bags) && bags[idx].Currency != req.Currency {
			idx++
		}
		if idx >= len(bags) {
			return PayResult{}, errors.Wrapf(ErrCorruption, "pay: bag list for %q exhausted mid-pay with %s %s still owed", req.Exchange, remaining, req.Currency)
		}
		b := &bags[idx]
		spent, spentCost, next := b.Spend(remaining)
		bagAmountBefore := b.Amount.Add(spent) // pre-spend amount

		sliceProceedsGross := spent.Mul(rate)
		sliceProceedsNet := sliceProceedsGross.Mul(money.One.Sub(req.FeeRatio))
		sliceProfit := sliceProceedsNet.Sub(spentCost)
		shortTerm := instant.IsShortTerm(b.AcquiredAt, req.Time, e.ShortTermThresholdYears)

		totalProceedsGross = totalProceedsGross.Add(sliceProceedsGross)
		totalCost = totalCost.Add(spentCost)
		if shortTerm {
			stProceedsGross = stProceedsGross.Add(sliceProceedsGross)
			stCost = stCost.Add(spentCost)
		}

		e.State.Ledger.Append(ledger.PaymentReport{
			Kind:            req.Kind,
			Exchange:        req.Exchange,
			SellTime:        req.Time,
			Currency:        req.Currency,
			ToPay:           req.Amount,
			FeeRatio:        req.FeeRatio,
			BagTime:         b.AcquiredAt,
			BagAmountBefore: bagAmountBefore,
			BagSpent:        spent,
			CostCurrency:    b.CostCurrency,
			SpentCost:       spentCost,
			ShortTerm:       shortTerm,
			ExRate:          rate,
			Proceeds:        sliceProceedsNet,
			Profit:          sliceProfit,
			BuyCurrency:     req.BuyCurrency,
			BuyRatio:        req.BuyRatio,
		})

		remaining = next
		if b.IsEmpty() {
			bags = append(bags[:idx], bags[idx+1:]...)
		} else {
			idx++
		}
	}

	if len(bags) == 0 {
		delete(e.State.BagsByExchange, req.Exchange)
	} else {
		e.State.BagsByExchange[req.Exchange] = bags
	}

	return PayResult{
		ShortTermProfit: stProceedsGross.Mul(money.One.Sub(req.FeeRatio)).Sub(stCost),
		TotalProceeds:   totalProceedsGross.Mul(money.One.Sub(req.FeeRatio)),
	}, nil
}

func (e *Engine) resolveRate(req PayRequest) (money.Amount, error) {
	if req.CustomRate != nil {
		return *req.CustomRate, nil
	}
	rate, err := e.Relation.GetRate(req.Time, req.Currency, e.Base)
	if err != nil {
		if errors.Is(err, relation.ErrNoRoute) {
			return money.Zero, errors.Wrap(err, "pay: no route")
		}
		return money.Zero, errors.Wrap(err, "pay: no rate")
	}
	return rate, nil
}

// moveBags transplants amount units of curr from the front of src to the
// back of dst, front-first, splitting the boundary bag when it holds more
// than what remains to move. Mirrors the bags.py bag-movement helper.
func moveBags(src, dst []bag.Bag, curr currency.Code, amount money.Amount, allocID func() uint64) ([]bag.Bag, []bag.Bag, error) {
	remaining := amount
	idx := 0
	for remaining.Sign() > 0 {
		for idx < len(src) && src[idx].Currency != curr {
			idx++
		}
		if idx >= len(src) {
			return src, dst, errors.Wrapf(ErrCorruption, "bag movement: source exhausted with %s %s still to move", remaining, curr)
		}
		b := &src[idx]
		if b.Amount.Cmp(remaining) <= 0 {
			dst = append(dst, *b)
			remaining = remaining.Sub(b.Amount)
			src = append(src[:idx], src[idx+1:]...)
			continue
		}
		newBag, err := b.Split(allocID(), remaining)
		if err != nil {
			return src, dst, errors.Wrap(err, "bag movement: split")
		}
		dst = append(dst, newBag)
		remaining = money.Zero
	}
	return src, dst, nil
}
