package engine

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/trade"
)

// ReconcileTransferFees fills in withdrawal fees some exchanges omit from
// their exports, by comparing a withdrawal's amount against the next
// deposit of the same currency. The difference (withdrawn minus
// deposited), when positive, becomes the withdrawal's fee. Off by
// default, since the heuristic assumes deposits arrive in the same
// relative order as their withdrawals.
//
// trades must already be sorted by time. If raiseOnError is false, a
// withdrawal/deposit pair where the deposit exceeds the withdrawal is
// logged and the withdrawal's fee is left unchanged, rather than returned
// as an error; the withdrawal still counts as matched.
func ReconcileTransferFees(trades []trade.Trade, raiseOnError bool) ([]trade.Trade, error) {
	out := make([]trade.Trade, len(trades))
	copy(out, trades)

	pending := make(map[currency.Code][]int) // FIFO queue of withdrawal indices per currency

	for i, t := range out {
		switch t.Kind {
		case trade.KindWithdrawal:
			if t.SellCurrency != "" {
				pending[t.SellCurrency] = append(pending[t.SellCurrency], i)
			}
		case trade.KindDeposit:
			queue := pending[t.BuyCurrency]
			if len(queue) == 0 {
				continue
			}
			wIdx := queue[0]
			pending[t.BuyCurrency] = queue[1:]

			withdrawal := &out[wIdx]
			netWithdrawn := withdrawal.SellAmount.Sub(withdrawal.FeeAmount)
			diff := netWithdrawn.Sub(t.BuyAmount)

			switch {
			case diff.Sign() > 0:
				withdrawal.FeeAmount = withdrawal.FeeAmount.Add(diff)
				withdrawal.FeeCurrency = withdrawal.SellCurrency
			case diff.Sign() < 0:
				if raiseOnError {
					return nil, errors.Errorf("reconcile: deposit of %s %s at %s exceeds its matched withdrawal of %s", t.BuyAmount, t.BuyCurrency, t.Time, netWithdrawn)
				}
				log.WithFields(log.Fields{
					"withdrawal_time": withdrawal.Time,
					"deposit_time":    t.Time,
					"currency":        t.BuyCurrency,
				}).Warn("reconcile: deposit exceeds matched withdrawal; leaving fee unset")
			}
		}
	}
	return out, nil
}
