package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

func at(y, m, d int) instant.Instant {
	return instant.MustNew(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
}

func TestValidateRejectsNegativeAmounts(t *testing.T) {
	tr := Trade{Time: at(2021, 1, 1), BuyAmount: money.NewFromFloat(-1)}
	assert.Error(t, tr.Validate())
}

func TestValidateRejectsFeeAmountWithoutCurrency(t *testing.T) {
	tr := Trade{Time: at(2021, 1, 1), FeeAmount: money.NewFromFloat(1)}
	assert.Error(t, tr.Validate())
}

func TestValidateAcceptsWellFormedTrade(t *testing.T) {
	tr := Trade{
		Time: at(2021, 1, 1), BuyAmount: money.NewFromFloat(1),
		SellAmount: money.NewFromFloat(1), FeeAmount: money.NewFromFloat(0.1), FeeCurrency: "EUR",
	}
	assert.NoError(t, tr.Validate())
}

func TestSwapIfNegativeRejectsBothNegative(t *testing.T) {
	_, _, _, _, err := SwapIfNegative("BTC", money.NewFromFloat(-1), "EUR", money.NewFromFloat(-1))
	assert.Error(t, err)
}

func TestSwapIfNegativeHandlesNegativeBuySide(t *testing.T) {
	buyCur, buyAmt, sellCur, sellAmt, err := SwapIfNegative("BTC", money.NewFromFloat(-1), "EUR", money.NewFromFloat(1000))
	require.NoError(t, err)
	assert.Equal(t, currency.Code("EUR"), buyCur)
	assert.True(t, buyAmt.Equal(money.NewFromFloat(1000)))
	assert.Equal(t, currency.Code("BTC"), sellCur)
	assert.True(t, sellAmt.Equal(money.NewFromFloat(1)))
}

func TestSwapIfNegativeHandlesNegativeSellSide(t *testing.T) {
	// A negative sell_amount alone is a reversed leg, just like a negative
	// buy_amount: the sides are swapped and the negative amount made
	// absolute.
	buyCur, buyAmt, sellCur, sellAmt, err := SwapIfNegative("BTC", money.NewFromFloat(1), "EUR", money.NewFromFloat(-1000))
	require.NoError(t, err)
	assert.Equal(t, currency.Code("EUR"), buyCur)
	assert.True(t, buyAmt.Equal(money.NewFromFloat(1000)))
	assert.Equal(t, currency.Code("BTC"), sellCur)
	assert.True(t, sellAmt.Equal(money.NewFromFloat(1)))
}

func TestSwapIfNegativeLeavesPositiveSidesAlone(t *testing.T) {
	buyCur, buyAmt, sellCur, sellAmt, err := SwapIfNegative("BTC", money.NewFromFloat(1), "EUR", money.NewFromFloat(1000))
	require.NoError(t, err)
	assert.Equal(t, currency.Code("BTC"), buyCur)
	assert.True(t, buyAmt.Equal(money.NewFromFloat(1)))
	assert.Equal(t, currency.Code("EUR"), sellCur)
	assert.True(t, sellAmt.Equal(money.NewFromFloat(1000)))
}
