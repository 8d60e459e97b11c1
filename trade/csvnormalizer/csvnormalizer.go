// Package csvnormalizer implements trade.Normalizer for a flat CSV layout
// carrying one column per Trade field: kind, dtime, buy_currency,
// buy_amount, sell_currency, sell_amount, fee_currency, fee_amount,
// exchange, mark, comment.
package csvnormalizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
	"github.com/sklarsa/crypto-gains-engine/trade"
)

var columns = []string{
	"kind", "dtime", "buy_currency", "buy_amount",
	"sell_currency", "sell_amount", "fee_currency", "fee_amount",
	"exchange", "mark", "comment",
}

// Normalizer reads rows shaped like columns above. DefaultLocation is
// attached to any dtime value parsed without an explicit offset: every
// Trade's Time must carry a timezone by the time it reaches the engine.
type Normalizer struct {
	DefaultLocation *time.Location
}

// New returns a Normalizer that falls back to loc for timestamps with no
// explicit offset. A nil loc falls back to time.UTC.
func New(loc *time.Location) *Normalizer {
	return &Normalizer{DefaultLocation: loc}
}

// ReadCSV reads r as a headered CSV in the column layout documented on this
// package, and returns its rows as trade.RawRecords keyed by column name.
func ReadCSV(r io.Reader) ([]trade.RawRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "csvnormalizer: reading header")
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, want := range columns {
		if _, ok := index[want]; !ok {
			return nil, fmt.Errorf("csvnormalizer: missing required column %q", want)
		}
	}

	var records []trade.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "csvnormalizer: reading row")
		}
		log.WithField("row", row).Debug("csvnormalizer: parsed row")
		rec := make(trade.RawRecord, len(columns))
		for _, col := range columns {
			rec[col] = row[index[col]]
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize implements trade.Normalizer: it parses every raw field,
// applies the sign-swap rule, attaches a timezone to bare timestamps,
// and sorts the result by time with the deposit-after-withdrawal
// tie-break.
func (n *Normalizer) Normalize(raw []trade.RawRecord) ([]trade.Trade, error) {
	trades := make([]trade.Trade, 0, len(raw))
	for i, rec := range raw {
		t, err := n.normalizeOne(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "csvnormalizer: row %d", i)
		}
		trades = append(trades, t)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Time.Before(trades[j].Time)
	})

	for i := 1; i < len(trades); i++ {
		if !trades[i].Time.Equal(trades[i-1].Time) {
			continue
		}
		prevIsWithdrawal := trades[i-1].Kind == trade.KindWithdrawal
		curIsDeposit := trades[i].Kind == trade.KindDeposit
		if prevIsWithdrawal && curIsDeposit {
			continue // already in the right order
		}
		if trades[i-1].Kind == trade.KindDeposit && trades[i].Kind == trade.KindWithdrawal {
			// A deposit landed exactly on a withdrawal's timestamp; nudge
			// the deposit forward so the withdrawal is seen first. The
			// resort can bring a still-tied deposit back into position
			// i-1, so restart the scan from the beginning.
			trades[i-1].Time = trades[i-1].Time.AddSmallestIncrement()
			sort.SliceStable(trades, func(a, b int) bool {
				return trades[a].Time.Before(trades[b].Time)
			})
			i = 0
		}
	}

	return trades, nil
}

func (n *Normalizer) normalizeOne(rec trade.RawRecord) (trade.Trade, error) {
	dtime, err := n.parseTime(rec["dtime"])
	if err != nil {
		return trade.Trade{}, errors.Wrap(err, "dtime")
	}

	buyCur, err := optionalCurrency(rec["buy_currency"])
	if err != nil {
		return trade.Trade{}, err
	}
	sellCur, err := optionalCurrency(rec["sell_currency"])
	if err != nil {
		return trade.Trade{}, err
	}
	feeCur, err := optionalCurrency(rec["fee_currency"])
	if err != nil {
		return trade.Trade{}, err
	}

	buyAmt, err := optionalAmount(rec["buy_amount"])
	if err != nil {
		return trade.Trade{}, errors.Wrap(err, "buy_amount")
	}
	sellAmt, err := optionalAmount(rec["sell_amount"])
	if err != nil {
		return trade.Trade{}, errors.Wrap(err, "sell_amount")
	}
	feeAmt, err := optionalAmount(rec["fee_amount"])
	if err != nil {
		return trade.Trade{}, errors.Wrap(err, "fee_amount")
	}

	buyCur, buyAmt, sellCur, sellAmt, err = trade.SwapIfNegative(buyCur, buyAmt, sellCur, sellAmt)
	if err != nil {
		return trade.Trade{}, err
	}

	t := trade.Trade{
		Kind:         rec["kind"],
		Time:         dtime,
		BuyCurrency:  buyCur,
		BuyAmount:    buyAmt,
		SellCurrency: sellCur,
		SellAmount:   sellAmt,
		FeeCurrency:  feeCur,
		FeeAmount:    feeAmt.Abs(),
		Exchange:     rec["exchange"],
		Mark:         rec["mark"],
		Comment:      rec["comment"],
	}
	if err := t.Validate(); err != nil {
		return trade.Trade{}, err
	}
	return t, nil
}

func (n *Normalizer) parseTime(s string) (instant.Instant, error) {
	if parsed, err := instant.Parse(s); err == nil {
		return parsed, nil
	}
	loc := n.DefaultLocation
	if loc == nil {
		loc = time.UTC
	}
	layouts := []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
			return instant.New(parsed)
		}
	}
	return instant.Instant{}, fmt.Errorf("csvnormalizer: unparseable timestamp %q", s)
}

func optionalCurrency(s string) (currency.Code, error) {
	if s == "" {
		return "", nil
	}
	return currency.New(s)
}

func optionalAmount(s string) (money.Amount, error) {
	if s == "" {
		return money.Zero, nil
	}
	return money.NewFromString(s)
}
