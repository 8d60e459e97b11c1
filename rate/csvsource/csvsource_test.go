package csvsource

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
	"github.com/sklarsa/crypto-gains-engine/relation"
)

func TestGetWeightedAverageWithinBucket(t *testing.T) {
	csv := "time,price,weight\n" +
		"2021-01-01T00:00:00Z,100,1\n" +
		"2021-01-01T00:30:00Z,200,1\n"
	src, err := ReadCSV(strings.NewReader(csv), currency.NewPair("BTC", "EUR"), time.Hour)
	require.NoError(t, err)

	at, err := instant.New(time.Date(2021, 1, 1, 0, 15, 0, 0, time.UTC))
	require.NoError(t, err)
	rate, err := src.Get(currency.NewPair("BTC", "EUR"), at)
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.NewFromFloat(150)))
}

func TestGetForwardFillsEmptyBucket(t *testing.T) {
	csv := "time,price,weight\n" +
		"2021-01-01T00:00:00Z,100,1\n" +
		"2021-01-01T02:30:00Z,300,1\n"
	src, err := ReadCSV(strings.NewReader(csv), currency.NewPair("BTC", "EUR"), time.Hour)
	require.NoError(t, err)

	at, err := instant.New(time.Date(2021, 1, 1, 1, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	rate, err := src.Get(currency.NewPair("BTC", "EUR"), at)
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.NewFromFloat(100)), "an empty middle bucket must carry the last known price forward")
}

func TestGetRejectsTimeBeforeSeriesStart(t *testing.T) {
	csv := "time,price,weight\n2021-01-02T00:00:00Z,100,1\n"
	src, err := ReadCSV(strings.NewReader(csv), currency.NewPair("BTC", "EUR"), time.Hour)
	require.NoError(t, err)

	at, err := instant.New(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = src.Get(currency.NewPair("BTC", "EUR"), at)
	assert.ErrorIs(t, err, relation.ErrNoRate)
}

func TestGetForwardFillsPastLastSample(t *testing.T) {
	csv := "time,price,weight\n2021-01-01T00:00:00Z,100,1\n"
	src, err := ReadCSV(strings.NewReader(csv), currency.NewPair("BTC", "EUR"), time.Hour)
	require.NoError(t, err)

	at, err := instant.New(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	rate, err := src.Get(currency.NewPair("BTC", "EUR"), at)
	require.NoError(t, err)
	assert.True(t, rate.Equal(money.NewFromFloat(100)))
}

func TestReadCSVRejectsMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("time,price\n2021-01-01T00:00:00Z,100\n"), currency.NewPair("BTC", "EUR"), time.Hour)
	assert.Error(t, err)
}
