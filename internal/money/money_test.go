package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalizeRoundsHalfUp(t *testing.T) {
	cases := map[string]string{
		"10.005":  "10.01",
		"10.004":  "10.00",
		"10.015":  "10.02",
		"0.125":   "0.13",
		"99.995":  "100.00",
		"100":     "100.00",
		"0":       "0.00",
		"3.14159": "3.14",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(dec(in)).StringFixed(2), "normalize(%s)", in)
	}
}

func TestNormalizeZeroValue(t *testing.T) {
	var absent decimal.Decimal
	require.True(t, Normalize(absent).IsZero())
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"10.005", "0.01", "123.455", "0.999"} {
		once := Normalize(dec(in))
		require.True(t, Normalize(once).Equal(once), "normalize not idempotent for %s", in)
	}
}

func TestApplyDiscountBounds(t *testing.T) {
	v := dec("100.00")
	require.Equal(t, "100.00", ApplyDiscount(v, 0).StringFixed(2))
	require.Equal(t, "0.00", ApplyDiscount(v, 100).StringFixed(2))

	// Out-of-range percentages leave the value untouched.
	require.True(t, ApplyDiscount(v, -1).Equal(v))
	require.True(t, ApplyDiscount(v, 101).Equal(v))
}

func TestApplyDiscountIntermediatePrecision(t *testing.T) {
	// 33.33 * 85 / 100 = 28.3305 at four digits, then 28.33 after rounding.
	require.Equal(t, "28.33", ApplyDiscount(dec("33.33"), 15).StringFixed(2))
	// 10.05 * 90 / 100 = 9.045 -> 9.05 half-up.
	require.Equal(t, "9.05", ApplyDiscount(dec("10.05"), 10).StringFixed(2))
	require.Equal(t, "90.00", ApplyDiscount(dec("100.00"), 10).StringFixed(2))
	require.Equal(t, "85.00", ApplyDiscount(dec("100.00"), 15).StringFixed(2))
}

func TestDiscountAmountIdentity(t *testing.T) {
	v := dec("123.45")
	for p := 0; p <= 100; p += 5 {
		want := v.Sub(ApplyDiscount(v, p))
		require.True(t, DiscountAmount(v, p).Equal(want), "identity failed at %d%%", p)
	}
	require.True(t, DiscountAmount(v, -3).IsZero())
	require.True(t, DiscountAmount(v, 200).IsZero())
}

func TestMin(t *testing.T) {
	a := dec("10.00")
	b := dec("9.99")
	require.True(t, Min(a, b).Equal(b))
	require.True(t, Min(b, a).Equal(b))
	require.True(t, Min(a, a).Equal(a))
}
