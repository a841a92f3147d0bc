package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLakhsToRupees(t *testing.T) {
	cases := map[string]int64{
		"9.5":       950000,
		"9":         900000,
		" 10 ":      1000000,
		"0.00001":   1,
		"12.34567":  1234567,
		"9.5000000": 950000,
	}
	for in, want := range cases {
		got, err := LakhsToRupees(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestLakhsToRupeesRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "0", "-1", "0.000001", "1e30", "9.123456", "0.000015"} {
		_, err := LakhsToRupees(in)
		assert.Error(t, err, in)
	}
}

func TestRupeesToLakhs(t *testing.T) {
	assert.Equal(t, "9.50", RupeesToLakhs(950000))
	assert.Equal(t, "0.01", RupeesToLakhs(1000))
}

func TestPercentDelta(t *testing.T) {
	assert.Equal(t, "-10", PercentDelta(900000, 1000000).String())
	assert.Equal(t, "5.3", PercentDelta(1000000, 950000).String())
	assert.True(t, PercentDelta(10, 0).IsZero())
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹950", FormatINR(950))
	assert.Equal(t, "₹9,50,000", FormatINR(950000))
	assert.Equal(t, "₹1,00,00,000", FormatINR(10000000))
	assert.Equal(t, "-₹12,345", FormatINR(-12345))
}
