// Package engine implements the Bag Engine: a FIFO cost-basis tracker
// that consumes canonical trades, classifies each into one of five
// intents, mutates bag inventory, and emits payment records. Dispatch is
// a pure classifier plus explicit per-intent handlers, a tagged union
// rather than duck-typed dispatch.
package engine

import (
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sklarsa/crypto-gains-engine/bag"
	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/ledger"
	"github.com/sklarsa/crypto-gains-engine/money"
	"github.com/sklarsa/crypto-gains-engine/relation"
	"github.com/sklarsa/crypto-gains-engine/trade"
)

// Snapshotter persists engine State for crash-dump-on-failure (spec §6's
// snapshot contract). Implementations live outside this package (see
// package snapshot) to avoid a dependency cycle.
type Snapshotter interface {
	Save(State) error
}

// Engine is the Bag Engine. It is not reentrant: Process must be called
// from a single logical actor (spec §5).
type Engine struct {
	Base                    currency.Code
	Relation                *relation.CurrencyRelation
	ShortTermThresholdYears int
	Snapshotter             Snapshotter // optional; nil disables snapshot-on-failure
	Log                     *log.Logger

	State State
}

// New constructs an Engine over an empty State.
func New(base currency.Code, rel *relation.CurrencyRelation, shortTermThresholdYears int, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		Base:                    base,
		Relation:                rel,
		ShortTermThresholdYears: shortTermThresholdYears,
		Log:                     logger,
		State:                   NewState(),
	}
}

// Process validates and dispatches one trade. On a fatal error it
// attempts a diagnostic snapshot (unless the error is Corruption, which
// is non-recoverable) before returning the error to the caller; the
// caller is expected to halt the trade sequence.
func (e *Engine) Process(t trade.Trade) error {
	if t.Time.Before(e.State.LastSeenTime) {
		return e.fail(newError(KindInputOrder, t, "time", errors.Errorf("%s precedes last seen time %s", t.Time, e.State.LastSeenTime)))
	}
	if err := t.Validate(); err != nil {
		return e.fail(newError(KindInputShape, t, "amounts", err))
	}

	intent := classify(t, string(e.Base))
	e.Log.WithFields(log.Fields{
		"time":     t.Time,
		"exchange": t.Exchange,
		"kind":     t.Kind,
		"intent":   intent,
	}).Debug("engine: dispatching trade")

	var err error
	switch intent {
	case IntentBuyWithBase:
		err = e.handleBuyWithBase(t)
	case IntentWithdrawal:
		err = e.handleWithdrawal(t)
	case IntentDeposit:
		err = e.handleDeposit(t)
	case IntentFeeOnly:
		err = e.handleFeeOnly(t)
	case IntentNoOp:
		// Nothing to do.
	case IntentSale:
		err = e.handleSale(t)
	}
	if err != nil {
		return e.fail(toEngineError(err, t))
	}

	e.State.LastSeenTime = t.Time
	return nil
}

// toEngineError wraps a plain error from a handler into an *Error, unless
// it already is one.
func toEngineError(err error, t trade.Trade) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}
	kind := KindInputShape
	switch {
	case errors.Is(err, relation.ErrNoRoute):
		kind = KindNoRoute
	case errors.Is(err, relation.ErrNoRate):
		kind = KindNoRate
	case errors.Is(err, ErrInsufficient):
		kind = KindInsufficient
	case errors.Is(err, ErrCorruption):
		kind = KindCorruption
	}
	return newError(kind, t, "handler", err)
}

// fail applies the engine's failure semantics: snapshot (unless
// Corruption) then return the error unchanged.
func (e *Engine) fail(err *Error) error {
	if err.Kind.Snapshots() && e.Snapshotter != nil {
		if snapErr := e.Snapshotter.Save(e.State); snapErr != nil {
			e.Log.WithError(snapErr).Error("engine: failed to write diagnostic snapshot")
		}
	}
	return err
}

func (e *Engine) handleBuyWithBase(t trade.Trade) error {
	if t.BuyCurrency == e.Base {
		return errors.Errorf("buy-with-base: cannot create a bag in the base currency %s", e.Base)
	}
	_, err := e.buyWithBase(t.Exchange, t.Time, t.BuyCurrency, t.BuyAmount, t.SellAmount)
	return err
}

// buyWithBase allocates a new bag of curr on exchange, costing cost in the
// base currency, and folds it into inventory. Used directly for ordinary
// buys and as a helper for synthesized surplus bags during deposits.
func (e *Engine) buyWithBase(exchange string, at instant.Instant, curr currency.Code, amount, cost money.Amount) (bag.Bag, error) {
	if amount.Sign() <= 0 {
		return bag.Bag{}, nil // a zero-amount buy-with-base is a no-op
	}
	b, err := bag.New(e.State.allocBagID(), at, curr, amount, e.Base, cost)
	if err != nil {
		return bag.Bag{}, err
	}
	e.State.BagsByExchange[exchange] = append(e.State.BagsByExchange[exchange], b)
	e.State.addTotal(exchange, curr, amount)
	return b, nil
}

func (e *Engine) handleWithdrawal(t trade.Trade) error {
	if t.SellCurrency == e.Base {
		return errors.New("withdrawal: sell_currency must not be the base currency")
	}
	if t.SellAmount.GreaterThan(e.State.total(t.Exchange, t.SellCurrency)) {
		return errors.Wrapf(ErrInsufficient, "withdrawal: %s exceeds %s held on %s", t.SellAmount, t.SellCurrency, t.Exchange)
	}
	if t.FeeAmount.Sign() > 0 && t.FeeCurrency != t.SellCurrency {
		return errors.Errorf("withdrawal: fee_currency %s must equal sell_currency %s", t.FeeCurrency, t.SellCurrency)
	}

	if t.FeeAmount.Sign() > 0 {
		result, err := e.pay(PayRequest{
			Time:     t.Time,
			Currency: t.SellCurrency,
			Amount:   t.FeeAmount,
			Exchange: t.Exchange,
			FeeRatio: money.One,
			Kind:     ledger.KindWithdrawalFee,
		})
		if err != nil {
			return errors.Wrap(err, "withdrawal fee")
		}
		e.State.addProfit(t.Time.Year(), result.ShortTermProfit)
	}

	moveAmount := t.SellAmount.Sub(t.FeeAmount)
	src := e.State.BagsByExchange[t.Exchange]
	dst := e.State.InTransitByCurrency[t.SellCurrency]
	src, dst, err := moveBags(src, dst, t.SellCurrency, moveAmount, e.State.allocBagID)
	if err != nil {
		return errors.Wrap(err, "withdrawal: bag movement")
	}
	if len(src) == 0 {
		delete(e.State.BagsByExchange, t.Exchange)
	} else {
		e.State.BagsByExchange[t.Exchange] = src
	}
	e.State.InTransitByCurrency[t.SellCurrency] = dst

	e.State.addTotal(t.Exchange, t.SellCurrency, t.SellAmount.Neg())
	e.State.addTotal(TransitExchange, t.SellCurrency, moveAmount)
	return nil
}

func (e *Engine) handleDeposit(t trade.Trade) error {
	if t.BuyCurrency == e.Base {
		return errors.New("deposit: buy_currency must not be the base currency")
	}
	if t.FeeAmount.Sign() > 0 && t.FeeCurrency != t.BuyCurrency {
		return errors.Errorf("deposit: fee_currency %s must equal buy_currency %s", t.FeeCurrency, t.BuyCurrency)
	}

	inTransit := e.State.InTransitByCurrency[t.BuyCurrency]
	available := money.Zero
	for _, b := range inTransit {
		available = available.Add(b.Amount)
	}

	moveWanted := money.Min(t.BuyAmount, available)
	dst := e.State.BagsByExchange[t.Exchange]
	inTransit, dst, err := moveBags(inTransit, dst, t.BuyCurrency, moveWanted, e.State.allocBagID)
	if err != nil {
		return errors.Wrap(err, "deposit: bag movement")
	}

	sort.SliceStable(dst, func(i, j int) bool {
		return dst[i].AcquiredAt.Before(dst[j].AcquiredAt)
	})
	e.State.BagsByExchange[t.Exchange] = dst
	if len(inTransit) == 0 {
		delete(e.State.InTransitByCurrency, t.BuyCurrency)
	} else {
		e.State.InTransitByCurrency[t.BuyCurrency] = inTransit
	}

	surplus := t.BuyAmount.Sub(moveWanted)
	if surplus.Sign() > 0 {
		e.Log.WithFields(log.Fields{
			"currency": t.BuyCurrency,
			"exchange": t.Exchange,
			"surplus":  surplus,
		}).Warn("engine: deposit exceeds outstanding in-transit balance; synthesizing zero-cost bag")
		if _, err := e.buyWithBase(t.Exchange, t.Time, t.BuyCurrency, surplus, money.Zero); err != nil {
			return errors.Wrap(err, "deposit: synthesizing surplus bag")
		}
	}

	e.State.addTotal(TransitExchange, t.BuyCurrency, moveWanted.Neg())
	e.State.addTotal(t.Exchange, t.BuyCurrency, moveWanted)

	if t.FeeAmount.Sign() > 0 {
		result, err := e.pay(PayRequest{
			Time:     t.Time,
			Currency: t.BuyCurrency,
			Amount:   t.FeeAmount,
			Exchange: t.Exchange,
			FeeRatio: money.One,
			Kind:     ledger.KindDepositFee,
		})
		if err != nil {
			return errors.Wrap(err, "deposit fee")
		}
		e.State.addTotal(t.Exchange, t.BuyCurrency, t.FeeAmount.Neg())
		e.State.addProfit(t.Time.Year(), result.ShortTermProfit)
	}
	return nil
}

func (e *Engine) handleFeeOnly(t trade.Trade) error {
	if t.FeeCurrency == "" {
		return errors.New("fee-only: fee_currency must be set")
	}
	result, err := e.pay(PayRequest{
		Time:     t.Time,
		Currency: t.FeeCurrency,
		Amount:   t.FeeAmount,
		Exchange: t.Exchange,
		FeeRatio: money.One,
		Kind:     ledger.KindExchangeFee,
	})
	if err != nil {
		return errors.Wrap(err, "fee-only")
	}
	e.State.addTotal(t.Exchange, t.FeeCurrency, t.FeeAmount.Neg())
	e.State.addProfit(t.Time.Year(), result.ShortTermProfit)
	return nil
}

func (e *Engine) handleSale(t trade.Trade) error {
	if t.SellCurrency == e.Base {
		return errors.New("sale: sell_currency equals base currency; this is a buy-with-base")
	}

	feeRatio := money.Zero
	var thirdCurrencyFeeProfit *money.Amount

	switch {
	case t.FeeAmount.IsZero():
		// No fee.
	case t.FeeCurrency == t.SellCurrency:
		feeRatio = t.FeeAmount.Div(t.SellAmount)
	case t.FeeCurrency == t.BuyCurrency:
		feeRatio = t.FeeAmount.Div(t.BuyAmount.Add(t.FeeAmount))
	default:
		if t.FeeCurrency == "" {
			return errors.New("sale: fee_amount is set but fee_currency is empty")
		}
		convertedFee, err := e.Relation.GetRate(t.Time, t.FeeCurrency, t.SellCurrency)
		if err != nil {
			return errors.Wrap(err, "sale: converting third-currency fee")
		}
		convertedFeeAmount := t.FeeAmount.Mul(convertedFee)
		feeRatio = convertedFeeAmount.Div(t.SellAmount.Add(convertedFeeAmount))

		result, err := e.pay(PayRequest{
			Time:     t.Time,
			Currency: t.FeeCurrency,
			Amount:   t.FeeAmount,
			Exchange: t.Exchange,
			FeeRatio: money.One,
			Kind:     ledger.KindExchangeFee,
		})
		if err != nil {
			return errors.Wrap(err, "sale: paying third-currency fee")
		}
		e.State.addTotal(t.Exchange, t.FeeCurrency, t.FeeAmount.Neg())
		thirdCurrencyFeeProfit = &result.ShortTermProfit
	}

	var customRate *money.Amount
	if t.BuyCurrency == e.Base {
		rate := t.BuyAmount.Div(t.SellAmount).Div(money.One.Sub(feeRatio))
		customRate = &rate
	}

	buyRatio := money.Zero
	if t.SellAmount.Sign() > 0 {
		buyRatio = t.BuyAmount.Div(t.SellAmount)
	}

	result, err := e.pay(PayRequest{
		Time:        t.Time,
		Currency:    t.SellCurrency,
		Amount:      t.SellAmount,
		Exchange:    t.Exchange,
		FeeRatio:    feeRatio,
		CustomRate:  customRate,
		Kind:        ledger.KindSale,
		BuyCurrency: t.BuyCurrency,
		BuyRatio:    buyRatio,
	})
	if err != nil {
		return errors.Wrap(err, "sale")
	}
	e.State.addTotal(t.Exchange, t.SellCurrency, t.SellAmount.Neg())

	profit := result.ShortTermProfit
	if thirdCurrencyFeeProfit != nil {
		profit = profit.Add(*thirdCurrencyFeeProfit)
	}
	e.State.addProfit(t.Time.Year(), profit)

	if t.BuyCurrency != e.Base {
		if _, err := e.buyWithBase(t.Exchange, t.Time, t.BuyCurrency, t.BuyAmount, result.TotalProceeds); err != nil {
			return errors.Wrap(err, "sale: creating proceeds bag")
		}
	}
	return nil
}
