package kpi

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAboveFloor(t *testing.T) {
	rules := DefaultRules()

	cases := []struct {
		platform string
		views    int64
		units    int64
		amount   string
	}{
		{"YouTube Shorts", 15000, 2, "2"},
		{"YouTube Shorts", 20000, 2, "2"},
		{"YouTube Shorts", 22500, 3, "3"},
		{"TikTok", 75000, 10, "10"},
		{"Instagram", 15000, 3, "3"},
		{"Instagram", 100000, 20, "20"},
	}
	for _, tc := range cases {
		res, err := rules.Evaluate(tc.platform, tc.views)
		require.NoError(t, err, "%s/%d", tc.platform, tc.views)
		require.True(t, res.Qualifies)
		require.Equal(t, tc.units, res.Units)
		require.Equal(t, tc.amount, res.Amount.String())
	}
}

func TestEvaluateBelowFloor(t *testing.T) {
	rules := DefaultRules()
	for _, platform := range rules.Platforms() {
		for _, views := range []int64{0, 1, 5000, 14999} {
			res, err := rules.Evaluate(platform, views)
			require.NoError(t, err)
			require.False(t, res.Qualifies)
			require.Zero(t, res.Units)
			require.True(t, res.Amount.IsZero())
		}
	}
}

func TestEvaluateUnknownPlatform(t *testing.T) {
	_, err := DefaultRules().Evaluate("Vimeo", 20000)
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestEvaluateNegativeViews(t *testing.T) {
	_, err := DefaultRules().Evaluate("TikTok", -1)
	require.ErrorIs(t, err, ErrInvalidViewCount)
}

func TestEvaluateIsPure(t *testing.T) {
	rules := DefaultRules()
	first, err := rules.Evaluate("YouTube Shorts", 20000)
	require.NoError(t, err)
	second, err := rules.Evaluate("YouTube Shorts", 20000)
	require.NoError(t, err)
	require.Equal(t, first.Qualifies, second.Qualifies)
	require.Equal(t, first.Units, second.Units)
	require.True(t, first.Amount.Equal(second.Amount))
}

func TestParse(t *testing.T) {
	rules, err := Parse(10000, "Shorts:7500:1, Reels:5000:0.5")
	require.NoError(t, err)
	require.Equal(t, []string{"Shorts", "Reels"}, rules.Platforms())

	res, err := rules.Evaluate("Reels", 20000)
	require.NoError(t, err)
	require.Equal(t, int64(4), res.Units)
	require.True(t, res.Amount.Equal(decimal.NewFromInt(2)))
}

func TestParseRejectsBadRules(t *testing.T) {
	for _, spec := range []string{
		"Shorts:7500",
		"Shorts:abc:1",
		"Shorts:7500:x",
		"Shorts:0:1",
		"Shorts:7500:-1",
		"Shorts:7500:1,Shorts:5000:1",
		"",
	} {
		_, err := Parse(15000, spec)
		require.Error(t, err, "spec %q", spec)
	}
}
