package engine

import (
	"github.com/sklarsa/crypto-gains-engine/bag"
	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/ledger"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// TransitExchange is the synthetic exchange name under which
// totals-in-transit are tracked inside TotalsByExchange, mirroring the
// bags.py convention of a reserved "in_transit" bucket.
const TransitExchange = "in_transit"

// State is the complete, serializable state of a BagFIFO engine run.
// Snapshot save/restore operates directly on this type.
type State struct {
	BagsByExchange      map[string][]bag.Bag
	InTransitByCurrency map[currency.Code][]bag.Bag
	TotalsByExchange    map[string]map[currency.Code]money.Amount
	ProfitByYear        map[int]money.Amount
	LastSeenTime        instant.Instant
	NextBagID           uint64
	Ledger              ledger.PaymentLedger
}

// NewState returns an empty, ready-to-use State.
func NewState() State {
	return State{
		BagsByExchange:      make(map[string][]bag.Bag),
		InTransitByCurrency: make(map[currency.Code][]bag.Bag),
		TotalsByExchange:    make(map[string]map[currency.Code]money.Amount),
		ProfitByYear:        make(map[int]money.Amount),
	}
}

func (s *State) allocBagID() uint64 {
	id := s.NextBagID
	s.NextBagID++
	return id
}

func (s *State) total(exchange string, curr currency.Code) money.Amount {
	byCurr, ok := s.TotalsByExchange[exchange]
	if !ok {
		return money.Zero
	}
	return byCurr[curr]
}

func (s *State) addTotal(exchange string, curr currency.Code, delta money.Amount) {
	byCurr, ok := s.TotalsByExchange[exchange]
	if !ok {
		byCurr = make(map[currency.Code]money.Amount)
		s.TotalsByExchange[exchange] = byCurr
	}
	byCurr[curr] = byCurr[curr].Add(delta)
	if byCurr[curr].Sign() == 0 {
		delete(byCurr, curr)
	}
	if len(byCurr) == 0 {
		delete(s.TotalsByExchange, exchange)
	}
}

func (s *State) addProfit(year int, amount money.Amount) {
	s.ProfitByYear[year] = s.ProfitByYear[year].Add(amount)
}

// RecomputeTotals rebuilds TotalsByExchange from scratch by summing the
// bag inventories, as snapshot restore does to validate a loaded state
// (spec: "the engine recomputes totals_by_exchange from the bag
// inventories and rejects the snapshot if the recomputed totals
// disagree").
func (s *State) RecomputeTotals() map[string]map[currency.Code]money.Amount {
	out := make(map[string]map[currency.Code]money.Amount)
	add := func(exchange string, curr currency.Code, amt money.Amount) {
		byCurr, ok := out[exchange]
		if !ok {
			byCurr = make(map[currency.Code]money.Amount)
			out[exchange] = byCurr
		}
		byCurr[curr] = byCurr[curr].Add(amt)
	}
	for exchange, bags := range s.BagsByExchange {
		for _, b := range bags {
			add(exchange, b.Currency, b.Amount)
		}
	}
	for curr, bags := range s.InTransitByCurrency {
		for _, b := range bags {
			add(TransitExchange, curr, b.Amount)
		}
	}
	return out
}
