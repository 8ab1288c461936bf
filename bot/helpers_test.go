package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chembot/entity"
	"chembot/impl/core"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "plain text", Sanitize("plain text"))
	assert.Equal(t, "\\#visit \\#lab\\_tour", Sanitize("#visit #lab_tour"))
	assert.Equal(t, "a\\.b\\-c\\!", Sanitize("a.b-c!"))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 4096))

	long := strings.Repeat("line one\n", 40)
	parts := splitMessage(long, 100)
	assert.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.LessOrEqual(t, len(part), 100)
	}
	assert.Equal(t, long, strings.Join(parts, ""))

	// no newline to cut at
	blob := strings.Repeat("x", 250)
	parts = splitMessage(blob, 100)
	assert.Equal(t, []string{strings.Repeat("x", 100), strings.Repeat("x", 100), strings.Repeat("x", 50)}, parts)
}

func TestParseTrailingId(t *testing.T) {
	id, err := parseTrailingId("event_42", "event_")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseTrailingId("event_abc", "event_")
	assert.Error(t, err)
}

func TestPaymentActionsKeyboard(t *testing.T) {
	action := &entity.Action{UserId: 42, EventId: 7}
	keyboard := paymentActionsKeyboard(action)
	require.Len(t, keyboard.InlineKeyboard, 1)
	row := keyboard.InlineKeyboard[0]
	require.Len(t, row, 3)
	assert.Equal(t, "confirm_payment_42_7", row[0].CallbackData)
	assert.Equal(t, "unclear_payment_42_7", row[1].CallbackData)
	assert.Equal(t, "cancel_payment_42_7", row[2].CallbackData)
}

func TestConfirmKeyboard(t *testing.T) {
	action := &entity.Action{Kind: entity.ActionConfirm, UserId: 42, EventId: 7}
	keyboard := confirmKeyboard(action)
	require.Len(t, keyboard.InlineKeyboard, 2)
	assert.Equal(t, "confirm_confirm_payment_42_7", keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "payment_actions_42_7", keyboard.InlineKeyboard[1][0].CallbackData)

	// both stages parse back to the same action
	parsed, err := entity.ParseAction(keyboard.InlineKeyboard[0][0].CallbackData)
	require.NoError(t, err)
	assert.True(t, parsed.Final)
	assert.Equal(t, action.UserId, parsed.UserId)
	assert.Equal(t, action.EventId, parsed.EventId)
}

func TestPaymentOutcomeReply(t *testing.T) {
	req := &entity.PaymentRequest{UserId: 42, EventId: 7}

	confirmed := &core.Decision{
		Request: &entity.PaymentRequest{UserId: 42, EventId: 7, Status: entity.RequestConfirmed},
		Result: &core.RegisterResult{
			Outcome: core.Registered, Number: 3,
			Event: &entity.Event{Title: "Plant Tour"},
		},
	}
	assert.Contains(t, paymentOutcomeReply(confirmed), "participant number 3")

	req.Status = entity.RequestUnclear
	reply := paymentOutcomeReply(&core.Decision{Request: req})
	assert.Contains(t, reply, "register for the event again",
		"an unclear verdict sends the user back to the start, no receipt state is kept")

	req.Status = entity.RequestCancelled
	assert.Contains(t, paymentOutcomeReply(&core.Decision{Request: req}), "declined")
}

func TestEventListKeyboard(t *testing.T) {
	events := []*entity.Event{
		{EventId: 1, Title: "First", Date: "2026-09-01"},
		{EventId: 2, Title: "Second", Date: "2026-09-15"},
	}
	keyboard := eventListKeyboard(events)
	require.Len(t, keyboard.InlineKeyboard, 2)
	assert.Equal(t, "event_1", keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "event_2", keyboard.InlineKeyboard[1][0].CallbackData)
}

func TestEventCard(t *testing.T) {
	event := &entity.Event{
		Title: "Plant Tour", Type: entity.TypeVisit, Date: "2026-09-01",
		Location: "Site B", Description: "A day at the plant.",
		Capacity: 30, CurrentCapacity: 12,
	}
	card := eventCard(event)
	assert.Contains(t, card, "Seats left: 18")
	assert.Contains(t, card, "Cost: Free")

	course := &entity.Event{
		Title: "Intro Course", Type: entity.TypeCourse, Cost: 100000,
		Date: "2026-09-01", Location: "Room 1", Description: "Basics.",
	}
	card = eventCard(course)
	assert.NotContains(t, card, "Seats left")
	assert.Contains(t, card, "100000")
}
