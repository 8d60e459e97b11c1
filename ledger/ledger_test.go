package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

func at(y, m, d int) instant.Instant {
	i, err := instant.New(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
	if err != nil {
		panic(err)
	}
	return i
}

func baseRow() PaymentReport {
	return PaymentReport{
		Kind:            KindSale,
		Exchange:        "Kraken",
		SellTime:        at(2021, 6, 1),
		Currency:        "BTC",
		ToPay:           money.NewFromFloat(1),
		FeeRatio:        money.Zero,
		BagTime:         at(2020, 1, 1),
		BagAmountBefore: money.NewFromFloat(1),
		BagSpent:        money.NewFromFloat(0.5),
		CostCurrency:    "EUR",
		SpentCost:       money.NewFromFloat(500),
		ShortTerm:       false,
		ExRate:          money.NewFromFloat(2000),
		Proceeds:        money.NewFromFloat(1000),
		Profit:          money.NewFromFloat(500),
	}
}

func TestConsolidatedCombinesMatchingRows(t *testing.T) {
	var l PaymentLedger
	first := baseRow()
	second := baseRow()
	second.BagSpent = money.NewFromFloat(0.5)
	second.Proceeds = money.NewFromFloat(1000)
	second.Profit = money.NewFromFloat(500)

	l.Append(first)
	l.Append(second)

	rows := l.Consolidated()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].BagSpent.Equal(money.NewFromFloat(1)))
	assert.True(t, rows[0].Proceeds.Equal(money.NewFromFloat(2000)))
	assert.True(t, rows[0].Profit.Equal(money.NewFromFloat(1000)))

	assert.Len(t, l.Rows(), 2, "consolidation must not mutate the raw ledger")
}

func TestConsolidatedKeepsDistinctRowsSeparate(t *testing.T) {
	var l PaymentLedger
	a := baseRow()
	b := baseRow()
	b.Currency = "ETH"

	l.Append(a)
	l.Append(b)

	rows := l.Consolidated()
	assert.Len(t, rows, 2)
}
