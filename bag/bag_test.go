package bag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

func at(year, month, day int) instant.Instant {
	return instant.MustNew(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

func TestNewRejectsNonPositiveAmount(t *testing.T) {
	_, err := New(1, at(2021, 1, 1), "BTC", money.Zero, "EUR", money.NewFromFloat(0))
	assert.Error(t, err)
}

func TestNewFreezesUnitPrice(t *testing.T) {
	b, err := New(1, at(2021, 1, 1), "BTC", money.NewFromFloat(2), "EUR", money.NewFromFloat(2000))
	require.NoError(t, err)
	assert.True(t, b.UnitPrice.Equal(money.NewFromFloat(1000)))
}

func TestNewFromUnitPriceDerivesCost(t *testing.T) {
	b, err := NewFromUnitPrice(1, at(2021, 1, 1), "BTC", money.NewFromFloat(2), "EUR", money.NewFromFloat(1000))
	require.NoError(t, err)
	assert.True(t, b.Cost.Equal(money.NewFromFloat(2000)))
}

func TestSpendPartial(t *testing.T) {
	b, err := New(1, at(2021, 1, 1), "BTC", money.NewFromFloat(2), "EUR", money.NewFromFloat(2000))
	require.NoError(t, err)

	spent, spentCost, remainder := b.Spend(money.NewFromFloat(0.5))
	assert.True(t, spent.Equal(money.NewFromFloat(0.5)))
	assert.True(t, spentCost.Equal(money.NewFromFloat(500)))
	assert.True(t, remainder.IsZero())
	assert.True(t, b.Amount.Equal(money.NewFromFloat(1.5)))
	assert.True(t, b.Cost.Equal(money.NewFromFloat(1500)))
	assert.True(t, b.UnitPrice.Equal(money.NewFromFloat(1000)), "unit price must never change")
}

func TestSpendWholeBagAndOverflow(t *testing.T) {
	b, err := New(1, at(2021, 1, 1), "BTC", money.NewFromFloat(2), "EUR", money.NewFromFloat(2000))
	require.NoError(t, err)

	spent, spentCost, remainder := b.Spend(money.NewFromFloat(3))
	assert.True(t, spent.Equal(money.NewFromFloat(2)))
	assert.True(t, spentCost.Equal(money.NewFromFloat(2000)))
	assert.True(t, remainder.Equal(money.NewFromFloat(1)))
	assert.True(t, b.IsEmpty())
}

// TestSplitPreservation checks property 9: a split of a bag (amount=A,
// cost=C) at request r < A yields two bags (r, A-r) with costs (r*p,
// (A-r)*p) and identical acquired_at.
func TestSplitPreservation(t *testing.T) {
	when := at(2021, 1, 1)
	b, err := New(1, when, "BTC", money.NewFromFloat(10), "EUR", money.NewFromFloat(1000))
	require.NoError(t, err)
	price := b.UnitPrice

	newBag, err := b.Split(2, money.NewFromFloat(4))
	require.NoError(t, err)

	assert.True(t, newBag.Amount.Equal(money.NewFromFloat(4)))
	assert.True(t, b.Amount.Equal(money.NewFromFloat(6)))
	assert.True(t, newBag.Cost.Equal(money.NewFromFloat(4).Mul(price)))
	assert.True(t, b.Cost.Equal(money.NewFromFloat(6).Mul(price)))
	assert.True(t, newBag.AcquiredAt.Equal(when))
	assert.True(t, newBag.UnitPrice.Equal(price))
	assert.Equal(t, uint64(2), newBag.ID)
}

func TestSplitRejectsOversizedRequest(t *testing.T) {
	b, err := New(1, at(2021, 1, 1), "BTC", money.NewFromFloat(1), "EUR", money.NewFromFloat(1000))
	require.NoError(t, err)
	_, err = b.Split(2, money.NewFromFloat(2))
	assert.Error(t, err)
}
