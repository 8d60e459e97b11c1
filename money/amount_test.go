package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromStringExact(t *testing.T) {
	a, err := NewFromString("1.10000000001")
	require.NoError(t, err)
	assert.Equal(t, "1.10000000001", a.String())
}

func TestRoundDownNeverOverstatesMagnitude(t *testing.T) {
	pos := RoundDown(mustAmount(t, "1.999"), 2)
	assert.True(t, pos.Equal(mustAmount(t, "1.99")))

	neg := RoundDown(mustAmount(t, "-1.999"), 2)
	assert.True(t, neg.Equal(mustAmount(t, "-1.99")), "rounding a loss must not grow its magnitude")
}

func TestRoundDownZero(t *testing.T) {
	assert.True(t, RoundDown(Zero, 2).IsZero())
}

func TestMinPicksSmaller(t *testing.T) {
	a := mustAmount(t, "5")
	b := mustAmount(t, "3")
	assert.True(t, Min(a, b).Equal(b))
	assert.True(t, Min(b, a).Equal(b))
}

func mustAmount(t *testing.T, s string) Amount {
	t.Helper()
	a, err := NewFromString(s)
	require.NoError(t, err)
	return a
}
