package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklarsa/crypto-gains-engine/bag"
	"github.com/sklarsa/crypto-gains-engine/engine"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

func at(y, m, d int) instant.Instant {
	return instant.MustNew(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
}

// TestSaveLoadRoundTrip checks property 5: saving and immediately loading
// a snapshot reproduces an equal state.
func TestSaveLoadRoundTrip(t *testing.T) {
	s := engine.NewState()
	b, err := bag.New(1, at(2021, 1, 1), "BTC", money.NewFromFloat(1), "EUR", money.NewFromFloat(1000))
	require.NoError(t, err)
	s.BagsByExchange["Ex"] = []bag.Bag{b}
	s.NextBagID = 2
	s.LastSeenTime = at(2021, 1, 1)

	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, Save(path, withConsistentTotals(s)))

	loaded, err := Load(path, "EUR")
	require.NoError(t, err)
	require.Len(t, loaded.BagsByExchange["Ex"], 1)
	assert.True(t, loaded.BagsByExchange["Ex"][0].Amount.Equal(money.NewFromFloat(1)))
	assert.Equal(t, uint64(2), loaded.NextBagID)
}

func TestLoadRejectsTamperedTotals(t *testing.T) {
	s := engine.NewState()
	b, err := bag.New(1, at(2021, 1, 1), "BTC", money.NewFromFloat(1), "EUR", money.NewFromFloat(1000))
	require.NoError(t, err)
	s.BagsByExchange["Ex"] = []bag.Bag{b}
	s = withConsistentTotals(s)
	s.TotalsByExchange["Ex"]["BTC"] = money.NewFromFloat(999) // tamper

	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, Save(path, s))

	_, err = Load(path, "EUR")
	assert.Error(t, err)
}

func TestLoadRejectsWrongCostCurrency(t *testing.T) {
	s := engine.NewState()
	b, err := bag.New(1, at(2021, 1, 1), "BTC", money.NewFromFloat(1), "USD", money.NewFromFloat(1000))
	require.NoError(t, err)
	s.BagsByExchange["Ex"] = []bag.Bag{b}
	s = withConsistentTotals(s)

	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, Save(path, s))

	_, err = Load(path, "EUR")
	assert.Error(t, err)
}

func withConsistentTotals(s engine.State) engine.State {
	recomputed := s.RecomputeTotals()
	s.TotalsByExchange = recomputed
	return s
}
