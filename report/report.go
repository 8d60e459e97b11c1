// Package report renders a PaymentLedger and per-year profit summary as
// plain text or CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/ledger"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// WriteText renders rows as an aligned table.
func WriteText(w io.Writer, rows []ledger.PaymentReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tEXCHANGE\tSELL TIME\tCURRENCY\tTO PAY\tBAG TIME\tSHORT TERM\tEX RATE\tPROCEEDS\tPROFIT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\n",
			r.Kind, r.Exchange, r.SellTime, r.Currency, money.RoundDown(r.ToPay, 8),
			r.BagTime, r.ShortTerm, money.RoundDown(r.ExRate, 8),
			money.RoundDown(r.Proceeds, 2), money.RoundDown(r.Profit, 2))
	}
	return tw.Flush()
}

var csvHeader = []string{
	"kind", "exchange", "sell_time", "currency", "to_pay", "fee_ratio",
	"bag_time", "bag_amount_before", "bag_spent", "cost_currency",
	"spent_cost", "short_term", "ex_rate", "proceeds", "profit",
	"buy_currency", "buy_ratio",
}

// WriteCSV renders rows as CSV with a header row, one column per
// PaymentReport field (spec's supplemented Ledger CSV export feature).
func WriteCSV(w io.Writer, rows []ledger.PaymentReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			string(r.Kind), r.Exchange, r.SellTime.String(), string(r.Currency), r.ToPay.String(), r.FeeRatio.String(),
			r.BagTime.String(), r.BagAmountBefore.String(), r.BagSpent.String(), string(r.CostCurrency),
			r.SpentCost.String(), fmt.Sprintf("%t", r.ShortTerm), r.ExRate.String(), r.Proceeds.String(), r.Profit.String(),
			string(r.BuyCurrency), r.BuyRatio.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// YearSummary is one row of the per-year/exchange/currency gain summary.
type YearSummary struct {
	Year     int
	Exchange string
	Currency currency.Code
	Proceeds money.Amount
	Profit   money.Amount
}

// Summary aggregates rows by (year, exchange, currency), summing proceeds
// and profit, useful for filing per-jurisdiction returns.
func Summary(rows []ledger.PaymentReport) []YearSummary {
	type key struct {
		year     int
		exchange string
		curr     currency.Code
	}
	totals := make(map[key]*YearSummary)
	var order []key
	for _, r := range rows {
		k := key{year: r.SellTime.Year(), exchange: r.Exchange, curr: r.Currency}
		s, ok := totals[k]
		if !ok {
			s = &YearSummary{Year: k.year, Exchange: k.exchange, Currency: k.curr, Proceeds: money.Zero, Profit: money.Zero}
			totals[k] = s
			order = append(order, k)
		}
		s.Proceeds = s.Proceeds.Add(r.Proceeds)
		s.Profit = s.Profit.Add(r.Profit)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].year != order[j].year {
			return order[i].year < order[j].year
		}
		if order[i].exchange != order[j].exchange {
			return order[i].exchange < order[j].exchange
		}
		return order[i].curr < order[j].curr
	})
	out := make([]YearSummary, len(order))
	for i, k := range order {
		out[i] = *totals[k]
	}
	return out
}

// WriteSummaryText renders a YearSummary slice as an aligned table.
func WriteSummaryText(w io.Writer, rows []YearSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tEXCHANGE\tCURRENCY\tPROCEEDS\tPROFIT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Year, r.Exchange, r.Currency,
			money.RoundDown(r.Proceeds, 2), money.RoundDown(r.Profit, 2))
	}
	return tw.Flush()
}
