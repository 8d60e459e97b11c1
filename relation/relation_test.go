package relation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// constantSource serves a single fixed rate regardless of time.
type constantSource struct {
	rate money.Amount
}

func (c constantSource) Get(pair currency.Pair, t instant.Instant) (money.Amount, error) {
	return c.rate, nil
}

func mustInstant(t *testing.T) instant.Instant {
	t.Helper()
	i, err := instant.New(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return i
}

// TestIndirectRateComposition is scenario S5: BTC->USD and USD->EUR
// compose into BTC->EUR, then a direct BTC->EUR pair shortens the route.
func TestIndirectRateComposition(t *testing.T) {
	r := New("EUR")
	btcUSD := currency.NewPair("BTC", "USD")
	usdEUR := currency.NewPair("USD", "EUR")

	r.AddDirectPair(btcUSD, constantSource{rate: money.NewFromFloat(50000)})
	r.AddDirectPair(usdEUR, constantSource{rate: money.NewFromFloat(0.9)})

	when := mustInstant(t)
	rate, err := r.GetRate(when, "BTC", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.NewFromFloat(45000)))

	length, ok := r.RecipeLen(currency.NewPair("BTC", "EUR"))
	require.True(t, ok)
	assert.Equal(t, 2, length)

	r.AddDirectPair(currency.NewPair("BTC", "EUR"), constantSource{rate: money.NewFromFloat(44000)})
	rate, err = r.GetRate(when, "BTC", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.NewFromFloat(44000)))

	length, ok = r.RecipeLen(currency.NewPair("BTC", "EUR"))
	require.True(t, ok)
	assert.Equal(t, 1, length, "a shorter direct route must replace the composed one")
}

// TestRecipeReversibility is property 7: recipes[reverse(p)] evaluated at
// t equals 1 / recipes[p] evaluated at t.
func TestRecipeReversibility(t *testing.T) {
	r := New("EUR")
	pair := currency.NewPair("BTC", "EUR")
	r.AddDirectPair(pair, constantSource{rate: money.NewFromFloat(40000)})

	when := mustInstant(t)
	forward, err := r.GetRate(when, "BTC", "EUR")
	require.NoError(t, err)
	backward, err := r.GetRate(when, "EUR", "BTC")
	require.NoError(t, err)

	assert.True(t, forward.Mul(backward).Round(8).Equal(money.NewFromFloat(1)))
}

// TestIdempotentRebuild is property 8 for one derived pair: rebuilding
// from scratch reproduces the ETH->EUR recipe length that incremental
// insertion reached.
func TestIdempotentRebuild(t *testing.T) {
	r := New("EUR")
	pairs := []currency.Pair{
		currency.NewPair("BTC", "USD"),
		currency.NewPair("USD", "EUR"),
		currency.NewPair("ETH", "BTC"),
	}
	for _, p := range pairs {
		r.AddDirectPair(p, constantSource{rate: money.NewFromFloat(2)})
	}

	before := map[currency.Pair]int{}
	for _, p := range pairs {
		l, _ := r.RecipeLen(p)
		before[p] = l
	}
	ethEUR := currency.NewPair("ETH", "EUR")
	lenBefore, _ := r.RecipeLen(ethEUR)

	r.RebuildFromScratch()

	lenAfter, ok := r.RecipeLen(ethEUR)
	require.True(t, ok)
	assert.Equal(t, lenBefore, lenAfter)
}

func TestGetRateSameCurrencyIsOne(t *testing.T) {
	r := New("EUR")
	when := mustInstant(t)
	rate, err := r.GetRate(when, "EUR", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.One))
}

func TestGetRateNoRoute(t *testing.T) {
	r := New("EUR")
	when := mustInstant(t)
	_, err := r.GetRate(when, "BTC", "EUR")
	assert.ErrorIs(t, err, ErrNoRoute)
}
