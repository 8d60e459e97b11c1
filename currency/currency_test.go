package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesCase(t *testing.T) {
	c, err := New(" btc ")
	require.NoError(t, err)
	assert.Equal(t, Code("BTC"), c)
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New("   ")
	assert.Error(t, err)
}

func TestPairReverse(t *testing.T) {
	p := NewPair("BTC", "EUR")
	r := p.Reverse()
	assert.Equal(t, Code("EUR"), r.Base)
	assert.Equal(t, Code("BTC"), r.Quote)
}

func TestPairString(t *testing.T) {
	p := NewPair("btc", "eur")
	assert.Equal(t, "BTC/EUR", p.String())
}
