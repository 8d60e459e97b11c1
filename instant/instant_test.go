package instant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequiresExplicitOffset(t *testing.T) {
	_, err := Parse("2021-01-02T15:04:05")
	assert.Error(t, err, "a timestamp with no zone offset must be rejected")

	i, err := Parse("2021-01-02T15:04:05+01:00")
	require.NoError(t, err)
	assert.Equal(t, 2021, i.Year())
}

func TestNewRejectsZeroTime(t *testing.T) {
	_, err := New(time.Time{})
	assert.Error(t, err)
}

func TestYearDeltaAnniversary(t *testing.T) {
	acquired := MustNew(time.Date(2020, 6, 15, 12, 0, 0, 0, time.UTC))

	beforeAnniversary := MustNew(time.Date(2021, 6, 14, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 0, YearDelta(acquired, beforeAnniversary))

	onAnniversary := MustNew(time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, YearDelta(acquired, onAnniversary))
}

func TestIsShortTerm(t *testing.T) {
	acquired := MustNew(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	justUnderAYear := MustNew(time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))
	overAYear := MustNew(time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC))

	assert.True(t, IsShortTerm(acquired, justUnderAYear, 1))
	assert.False(t, IsShortTerm(acquired, overAYear, 1))
}

func TestAddSmallestIncrementBreaksTies(t *testing.T) {
	a := MustNew(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	b := a.AddSmallestIncrement()
	assert.True(t, a.Before(b))
	assert.False(t, a.Equal(b))
}

func TestMarshalUnmarshalYAMLRoundTrip(t *testing.T) {
	original := MustNew(time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC))
	out, err := original.MarshalYAML()
	require.NoError(t, err)

	var restored Instant
	err = restored.UnmarshalYAML(func(v interface{}) error {
		s, ok := v.(*string)
		require.True(t, ok)
		*s = out.(string)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, original.Equal(restored))
}
