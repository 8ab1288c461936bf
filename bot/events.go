package bot

import (
	"fmt"
	"strings"

	"chembot/entity"
	"chembot/impl/core"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// eventsCmd lists active events as inline buttons.
func (t *TgBot) eventsCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	t.sessions.Clear(userId)

	events, err := t.core.ActiveEvents()
	if err != nil {
		t.reportError(userId, "events", err)
		return nil
	}
	if len(events) == 0 {
		t.plainResponse(userId, "No upcoming events right now\\. Check back later\\!")
		return nil
	}
	t.sendWithKeyboard(userId, "*Upcoming events*", eventListKeyboard(events))
	return nil
}

// myEventsCmd lists the events the user is registered for.
func (t *TgBot) myEventsCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	t.sessions.Clear(userId)

	events, err := t.core.UserEvents(userId)
	if err != nil {
		t.reportError(userId, "my events", err)
		return nil
	}
	if len(events) == 0 {
		t.plainResponse(userId, "You haven't registered for any events yet\\. Try /events\\.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("*Your events*\n")
	for _, event := range events {
		sb.WriteString(fmt.Sprintf("%s \\(%s\\)\n", Sanitize(event.Title), Sanitize(event.Date)))
	}
	t.plainResponse(userId, sb.String())
	return nil
}

func eventListKeyboard(events []*entity.Event) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(events))
	for _, event := range events {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (%s)", event.Title, event.Date),
			CallbackData: fmt.Sprintf("event_%d", event.EventId),
		}})
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// onEventDetails replaces the list with one event's card.
func (t *TgBot) onEventDetails(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	eventId, err := parseTrailingId(cq.Data, "event_")
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}
	event, err := t.core.GetEvent(eventId)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Event not found", ShowAlert: true})
		return nil
	}
	_, _ = cq.Answer(t.api, nil)

	keyboard := tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "Register", CallbackData: fmt.Sprintf("register_%d", event.EventId)}},
			{{Text: "Back", CallbackData: "back_to_events"}},
		},
	}
	t.editMessage(cq, userId, eventCard(event), &keyboard)
	return nil
}

func eventCard(event *entity.Event) string {
	cost := "Free"
	if !event.Free() {
		cost = fmt.Sprintf("%d", event.Cost)
	}
	card := fmt.Sprintf("*%s*\n%s\n\nDate: %s\nLocation: %s\nCost: %s",
		Sanitize(event.Title), Sanitize(event.Description),
		Sanitize(event.Date), Sanitize(event.Location), Sanitize(cost))
	if !event.Unlimited() {
		card += fmt.Sprintf("\nSeats left: %d", event.SeatsLeft())
	}
	return card
}

// onBackToEvents restores the event list in place.
func (t *TgBot) onBackToEvents(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	_, _ = cq.Answer(t.api, nil)

	events, err := t.core.ActiveEvents()
	if err != nil {
		t.reportError(cq.From.Id, "back to events", err)
		return nil
	}
	keyboard := eventListKeyboard(events)
	t.editMessage(cq, cq.From.Id, "*Upcoming events*", &keyboard)
	return nil
}

// onRegister handles the register button for free and paid events.
func (t *TgBot) onRegister(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	eventId, err := parseTrailingId(cq.Data, "register_")
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}

	// profile first
	if _, err = t.core.GetUser(userId); err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Please send /start and register first", ShowAlert: true})
		return nil
	}

	result, err := t.core.Register(userId, eventId)
	if err != nil {
		_, _ = cq.Answer(t.api, nil)
		t.reportError(userId, "register", err)
		return nil
	}

	switch result.Outcome {
	case core.Registered:
		_, _ = cq.Answer(t.api, nil)
		t.plainResponse(userId, fmt.Sprintf("You're in\\! You are participant number %d for *%s*\\.",
			result.Number, Sanitize(result.Event.Title)))
	case core.AlreadyRegistered:
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "You are already registered", ShowAlert: true})
	case core.EventInactive:
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Registration for this event is closed", ShowAlert: true})
	case core.CapacityFull:
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "The event is full", ShowAlert: true})
	case core.PaymentRequired:
		_, _ = cq.Answer(t.api, nil)
		t.askReceipt(userId, result.Event)
	}
	return nil
}

// askReceipt opens the payment conversation for a paid event.
func (t *TgBot) askReceipt(userId int64, event *entity.Event) {
	card := event.CardNumber
	if card == "" {
		card = t.config.CardNumber
	}
	t.sessions.Set(userId, &Session{Step: StepReceipt, EventId: event.EventId})
	t.plainResponse(userId, fmt.Sprintf(
		"*%s* costs %s\\.\nPlease transfer the amount to card\n`%s`\nand send a photo of the receipt here\\. Send /cancel to abort\\.",
		Sanitize(event.Title), Sanitize(fmt.Sprintf("%d", event.Cost)), Sanitize(card)))
}
