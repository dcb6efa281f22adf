package oracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChoiceResponse(t *testing.T) {
	choice, err := parseChoiceResponse(`{"selected_id": 12, "rationale": "the claws suit me"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(12), choice.SelectedID)
	assert.Equal(t, "the claws suit me", choice.Rationale)
}

func TestParseChoiceResponseWithProse(t *testing.T) {
	response := `I have considered my options.

{"selected_id": 7, "rationale": "I trust my instincts"}

That is my final answer.`

	choice, err := parseChoiceResponse(response)
	require.NoError(t, err)
	assert.Equal(t, int64(7), choice.SelectedID)
}

func TestParseChoiceResponseNoJSON(t *testing.T) {
	_, err := parseChoiceResponse("I refuse to answer.")
	require.Error(t, err)
}

func TestValidateChoiceInSet(t *testing.T) {
	alternatives := []Option{
		{ID: 3, Name: "Iron Fang"},
		{ID: 9, Name: "Storm Talon"},
	}

	choice, err := ValidateChoice(&Choice{SelectedID: 9}, alternatives)
	require.NoError(t, err)
	assert.Equal(t, int64(9), choice.SelectedID)
}

func TestValidateChoiceOutOfSet(t *testing.T) {
	alternatives := []Option{
		{ID: 3, Name: "Iron Fang"},
		{ID: 9, Name: "Storm Talon"},
	}

	// The proposed item's id is not in the alternatives; selecting it is a
	// hard error, not a fallback.
	_, err := ValidateChoice(&Choice{SelectedID: 5}, alternatives)
	require.Error(t, err)
	var outOfSet ErrOutOfSet
	require.ErrorAs(t, err, &outOfSet)
	assert.Equal(t, int64(5), outOfSet.SelectedID)
}

func TestDisabledClientChoose(t *testing.T) {
	var c *Client // nil: no API key configured
	_, err := c.Choose(t.Context(), Option{ID: 1}, []Option{{ID: 2}}, Context{})
	require.Error(t, err)
}

func TestNewClientOptions(t *testing.T) {
	c := NewClient("key", WithModel("claude-sonnet-4-5"), WithRateLimit(5))
	require.True(t, c.Enabled())
	assert.Equal(t, "claude-sonnet-4-5", c.model)
	assert.Equal(t, 5, c.maxPerMin)

	assert.Nil(t, NewClient("", WithModel("x")), "options never revive a keyless client")
}

func TestClientRateLimitWindow(t *testing.T) {
	c := NewClient("key", WithRateLimit(2))
	now := time.Now()

	assert.True(t, c.allow(now))
	assert.True(t, c.allow(now))
	assert.False(t, c.allow(now), "third call in the window is rejected")

	// A fresh window opens after a minute.
	assert.True(t, c.allow(now.Add(61*time.Second)))
}
