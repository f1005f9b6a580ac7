package money

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCentsExact(t *testing.T) {
	cases := map[string]Cents{
		"10.50": 1050,
		"10":    1000,
		"0.01":  1,
		"0":     0,
	}
	for input, want := range cases {
		got, err := ParseCents(input)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %s", input)
	}
}

func TestParseCentsRejectsExtraPrecision(t *testing.T) {
	_, err := ParseCents("10.555")
	require.ErrorIs(t, err, ErrMalformedAmount)
}

func TestParseCentsRejectsGarbage(t *testing.T) {
	_, err := ParseCents("not-a-number")
	require.ErrorIs(t, err, ErrMalformedAmount)
}

func TestCentsStringRoundTrip(t *testing.T) {
	c := Cents(12345)
	assert.Equal(t, "123.45", c.String())
	back, err := ParseCents(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestCentsSubInsufficientFunds(t *testing.T) {
	_, err := Cents(100).Sub(Cents(200))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestCentsRatioClampsAndGuardsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cents(50).Ratio(0))
	assert.Equal(t, 0.5, Cents(50).Ratio(100))
	assert.Equal(t, 1.0, Cents(150).Ratio(100))
}

func TestOffsetClockAdvancesTime(t *testing.T) {
	base := FixedClock{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	advanced := OffsetClock{Base: base, Offset: 10 * time.Minute}
	assert.Equal(t, base.At.Add(10*time.Minute), advanced.Now())
}
