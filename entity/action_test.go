package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	t.Run("stage one tokens", func(t *testing.T) {
		for token, kind := range map[string]ActionKind{
			"confirm_payment_42_7": ActionConfirm,
			"unclear_payment_42_7": ActionUnclear,
			"cancel_payment_42_7":  ActionCancel,
		} {
			action, err := ParseAction(token)
			require.NoError(t, err, token)
			assert.Equal(t, kind, action.Kind)
			assert.Equal(t, int64(42), action.UserId)
			assert.Equal(t, int64(7), action.EventId)
			assert.False(t, action.Final)
		}
	})
	t.Run("stage two tokens", func(t *testing.T) {
		action, err := ParseAction("confirm_confirm_payment_42_7")
		require.NoError(t, err)
		assert.Equal(t, ActionConfirm, action.Kind)
		assert.True(t, action.Final)

		action, err = ParseAction("confirm_cancel_payment_100_3")
		require.NoError(t, err)
		assert.Equal(t, ActionCancel, action.Kind)
		assert.Equal(t, int64(100), action.UserId)
		assert.Equal(t, int64(3), action.EventId)
		assert.True(t, action.Final)
	})
	t.Run("rejects foreign tokens", func(t *testing.T) {
		for _, token := range []string{
			"register_7",
			"event_7",
			"back_to_events",
			"confirm_payment_42",
			"confirm_payment_x_7",
			"confirm_payment_42_7_9",
			"",
		} {
			_, err := ParseAction(token)
			assert.Error(t, err, token)
		}
	})
}

func TestActionTokenRoundTrip(t *testing.T) {
	action := &Action{Kind: ActionUnclear, UserId: 987654321, EventId: 12}
	assert.Equal(t, "unclear_payment_987654321_12", action.Token())
	assert.Equal(t, "confirm_unclear_payment_987654321_12", action.ConfirmToken())

	parsed, err := ParseAction(action.ConfirmToken())
	require.NoError(t, err)
	assert.Equal(t, action.Kind, parsed.Kind)
	assert.Equal(t, action.UserId, parsed.UserId)
	assert.Equal(t, action.EventId, parsed.EventId)
	assert.True(t, parsed.Final)
}

func TestParseRating(t *testing.T) {
	eventId, score, err := ParseRating("rate_15_4")
	require.NoError(t, err)
	assert.Equal(t, int64(15), eventId)
	assert.Equal(t, 4, score)

	assert.Equal(t, "rate_15_4", RatingToken(15, 4))

	for _, token := range []string{"rate_15_0", "rate_15_6", "rate_15", "rate_x_3", "done"} {
		_, _, err = ParseRating(token)
		assert.Error(t, err, token)
	}
}
