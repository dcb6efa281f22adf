package adherence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckScoreBounds(t *testing.T) {
	c := NewChecker(NewSeededSource(1))

	_, err := c.Check(-1)
	require.Error(t, err)
	_, err = c.Check(101)
	require.Error(t, err)
	_, err = c.CheckPreference(-5)
	require.Error(t, err)
}

func TestCheckRollRange(t *testing.T) {
	c := NewChecker(NewSeededSource(7))

	for i := 0; i < 1000; i++ {
		res, err := c.Check(50)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Roll, 1)
		assert.LessOrEqual(t, res.Roll, 100)
	}
}

func TestCheckExtremes(t *testing.T) {
	c := NewChecker(NewSeededSource(3))

	for i := 0; i < 200; i++ {
		res, err := c.Check(100)
		require.NoError(t, err)
		assert.True(t, res.Passed, "score 100 must always pass (roll %d)", res.Roll)

		res, err = c.Check(0)
		require.NoError(t, err)
		assert.False(t, res.Passed, "score 0 must never pass (roll %d)", res.Roll)
	}
}

func TestCheckPassRateConverges(t *testing.T) {
	c := NewChecker(NewSeededSource(42))

	const trials = 20000
	const score = 30
	passed := 0
	for i := 0; i < trials; i++ {
		res, err := c.Check(score)
		require.NoError(t, err)
		if res.Passed {
			passed++
		}
	}

	rate := float64(passed) / float64(trials)
	assert.InDelta(t, float64(score)/100.0, rate, 0.02)
}

func TestCheckForcedRoll(t *testing.T) {
	c := NewChecker(FixedSource(85))

	res, err := c.Check(30)
	require.NoError(t, err)
	assert.Equal(t, 85, res.Roll)
	assert.False(t, res.Passed)

	res, err = c.Check(85)
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestCheckPreferenceUsesGivenScore(t *testing.T) {
	c := NewChecker(FixedSource(65))

	// Preference 70 passes where raw adherence 30 would not.
	res, err := c.CheckPreference(70)
	require.NoError(t, err)
	assert.True(t, res.Passed)

	res, err = c.CheckPreference(60)
	require.NoError(t, err)
	assert.False(t, res.Passed)
}

func TestCryptoSourceRange(t *testing.T) {
	var src CryptoSource
	for i := 0; i < 1000; i++ {
		roll := src.Roll()
		require.GreaterOrEqual(t, roll, 1)
		require.LessOrEqual(t, roll, 100)
	}
}
