// Package csvsource implements relation.Source over a CSV file of raw
// trade ticks, resampled into fixed-width weighted-average buckets with
// forward-fill for gaps.
package csvsource

import (
	"encoding/csv"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
	"github.com/sklarsa/crypto-gains-engine/relation"
)

var _ relation.Source = (*Source)(nil)

type bucket struct {
	weightedSum money.Amount
	weight      money.Amount
	hasData     bool
	price       money.Amount
}

// Source serves a single direct currency Pair from a resampled,
// forward-filled series of weighted-average prices.
type Source struct {
	pair     currency.Pair
	interval time.Duration
	start    time.Time
	buckets  []bucket // index i covers [start+i*interval, start+(i+1)*interval)
}

// ReadCSV parses a headered CSV of "time,price,weight" rows (time in
// RFC3339) for pair, resampling into interval-wide weighted-average
// buckets and forward-filling empty ones, mirroring
// resample_weighted_average's "data_times_weight" trick.
func ReadCSV(r io.Reader, pair currency.Pair, interval time.Duration) (*Source, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "csvsource: reading header")
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[h] = i
	}
	for _, want := range []string{"time", "price", "weight"} {
		if _, ok := idx[want]; !ok {
			return nil, errors.Errorf("csvsource: missing required column %q", want)
		}
	}

	type tick struct {
		t      time.Time
		price  money.Amount
		weight money.Amount
	}
	var ticks []tick
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "csvsource: reading row")
		}
		t, err := time.Parse(time.RFC3339, row[idx["time"]])
		if err != nil {
			return nil, errors.Wrapf(err, "csvsource: parsing time %q", row[idx["time"]])
		}
		price, err := decimal.NewFromString(row[idx["price"]])
		if err != nil {
			return nil, errors.Wrapf(err, "csvsource: parsing price %q", row[idx["price"]])
		}
		weight, err := decimal.NewFromString(row[idx["weight"]])
		if err != nil {
			return nil, errors.Wrapf(err, "csvsource: parsing weight %q", row[idx["weight"]])
		}
		ticks = append(ticks, tick{t: t.UTC(), price: price, weight: weight})
	}
	if len(ticks) == 0 {
		return nil, errors.New("csvsource: no data rows")
	}

	sort.Slice(ticks, func(i, j int) bool { return ticks[i].t.Before(ticks[j].t) })

	start := ticks[0].t.Truncate(interval)
	last := ticks[len(ticks)-1].t
	numBuckets := int(last.Sub(start)/interval) + 1

	buckets := make([]bucket, numBuckets)
	for _, tk := range ticks {
		i := int(tk.t.Sub(start) / interval)
		b := &buckets[i]
		b.weightedSum = b.weightedSum.Add(tk.price.Mul(tk.weight))
		b.weight = b.weight.Add(tk.weight)
	}
	for i := range buckets {
		if buckets[i].weight.Sign() > 0 {
			buckets[i].price = buckets[i].weightedSum.Div(buckets[i].weight)
			buckets[i].hasData = true
		}
	}
	// Forward-fill.
	var carry money.Amount
	haveCarry := false
	for i := range buckets {
		if buckets[i].hasData {
			carry = buckets[i].price
			haveCarry = true
			continue
		}
		if haveCarry {
			buckets[i].price = carry
			buckets[i].hasData = true
		}
	}

	return &Source{pair: pair, interval: interval, start: start, buckets: buckets}, nil
}

// Get implements relation.Source. t must fall on or after the series'
// first bucket; a request before the first sample, or for a time with no
// forward-fillable predecessor, returns relation.ErrNoRate.
func (s *Source) Get(pair currency.Pair, t instant.Instant) (money.Amount, error) {
	if pair != s.pair {
		return money.Zero, errors.Errorf("csvsource: configured for %s, got request for %s", s.pair, pair)
	}
	tt := t.Time()
	if tt.Before(s.start) {
		return money.Zero, errors.Wrapf(relation.ErrNoRate, "%s: request at %s precedes series start %s", pair, tt, s.start)
	}
	i := int(tt.Sub(s.start) / s.interval)
	if i >= len(s.buckets) {
		i = len(s.buckets) - 1 // forward-fill past the last known sample
	}
	if !s.buckets[i].hasData {
		return money.Zero, errors.Wrapf(relation.ErrNoRate, "%s: no sample at or before %s", pair, tt)
	}
	return s.buckets[i].price, nil
}
