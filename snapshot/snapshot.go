// Package snapshot persists and restores engine.State as a self-describing
// YAML document, the engine's crash-dump mechanism (spec §6/§9). Favors
// stability and readability over compactness: field names mirror
// engine.State exactly.
package snapshot

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sklarsa/crypto-gains-engine/bag"
	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/engine"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/ledger"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// doc is the on-disk shape. It mirrors engine.State field-for-field so
// restore can validate by recomputation rather than trusting the stored
// totals.
type doc struct {
	BagsByExchange      map[string][]bag.Bag                       `yaml:"bags_by_exchange"`
	InTransitByCurrency map[currency.Code][]bag.Bag                `yaml:"in_transit_by_currency"`
	TotalsByExchange    map[string]map[currency.Code]money.Amount  `yaml:"totals_by_exchange"`
	ProfitByYear        map[int]money.Amount                       `yaml:"profit_by_year"`
	LastSeenTime        instant.Instant                            `yaml:"last_seen_time"`
	NextBagID           uint64                                     `yaml:"next_bag_id"`
	Ledger              []ledger.PaymentReport                     `yaml:"ledger"`
}

// FileStore implements engine.Snapshotter by writing to a fixed path,
// overwriting any prior snapshot.
type FileStore struct {
	Path string
}

// Save implements engine.Snapshotter.
func (f FileStore) Save(state engine.State) error {
	return Save(f.Path, state)
}

// Save writes state to path as YAML.
func Save(path string, state engine.State) error {
	d := toDoc(state)
	out, err := yaml.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "snapshot: marshaling state")
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "snapshot: writing %s", path)
	}
	return nil
}

// Load reads and validates a snapshot written by Save. It rejects the
// snapshot if recomputed totals disagree with the stored totals, or if
// any bag's CostCurrency does not equal base.
func Load(path string, base currency.Code) (engine.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return engine.State{}, errors.Wrapf(err, "snapshot: reading %s", path)
	}
	var d doc
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return engine.State{}, errors.Wrap(err, "snapshot: unmarshaling")
	}
	state := fromDoc(d)

	for exchange, bags := range state.BagsByExchange {
		for _, b := range bags {
			if b.CostCurrency != base {
				return engine.State{}, errors.Errorf("snapshot: bag %d on %s has cost_currency %s, want base %s", b.ID, exchange, b.CostCurrency, base)
			}
		}
	}
	for curr, bags := range state.InTransitByCurrency {
		for _, b := range bags {
			if b.CostCurrency != base {
				return engine.State{}, errors.Errorf("snapshot: in-transit %s bag %d has cost_currency %s, want base %s", curr, b.ID, b.CostCurrency, base)
			}
		}
	}

	recomputed := state.RecomputeTotals()
	if err := compareTotals(recomputed, state.TotalsByExchange); err != nil {
		return engine.State{}, errors.Wrap(err, "snapshot: recomputed totals disagree with stored totals")
	}

	return state, nil
}

func compareTotals(a, b map[string]map[currency.Code]money.Amount) error {
	flatten := func(m map[string]map[currency.Code]money.Amount) map[string]money.Amount {
		out := make(map[string]money.Amount)
		for exchange, byCurr := range m {
			for curr, amt := range byCurr {
				if amt.Sign() == 0 {
					continue
				}
				out[exchange+"/"+string(curr)] = amt
			}
		}
		return out
	}
	fa, fb := flatten(a), flatten(b)
	if len(fa) != len(fb) {
		return errors.Errorf("mismatched number of nonzero totals: recomputed %d, stored %d", len(fa), len(fb))
	}
	for k, va := range fa {
		vb, ok := fb[k]
		if !ok || !va.Equal(vb) {
			return errors.Errorf("%s: recomputed %s, stored %s", k, va, vb)
		}
	}
	return nil
}

func toDoc(s engine.State) doc {
	return doc{
		BagsByExchange:      s.BagsByExchange,
		InTransitByCurrency: s.InTransitByCurrency,
		TotalsByExchange:    s.TotalsByExchange,
		ProfitByYear:        s.ProfitByYear,
		LastSeenTime:        s.LastSeenTime,
		NextBagID:           s.NextBagID,
		Ledger:              s.Ledger.Rows(),
	}
}

func fromDoc(d doc) engine.State {
	s := engine.NewState()
	if d.BagsByExchange != nil {
		s.BagsByExchange = d.BagsByExchange
	}
	if d.InTransitByCurrency != nil {
		s.InTransitByCurrency = d.InTransitByCurrency
	}
	if d.TotalsByExchange != nil {
		s.TotalsByExchange = d.TotalsByExchange
	}
	if d.ProfitByYear != nil {
		s.ProfitByYear = d.ProfitByYear
	}
	s.LastSeenTime = d.LastSeenTime
	s.NextBagID = d.NextBagID
	for _, row := range d.Ledger {
		s.Ledger.Append(row)
	}
	return s
}
