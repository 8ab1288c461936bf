package bot

import (
	"fmt"
	"strconv"
	"strings"

	"chembot/entity"
	"chembot/lib/clock"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// newEventCmd starts the event creation wizard.
func (t *TgBot) newEventCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}
	t.sessions.Set(adminId, &Session{Step: StepEventTitle, Event: &entity.Event{IsActive: true}})
	t.plainResponse(adminId, "Creating a new event\\. Send the title:")
	return nil
}

// eventWizardText advances the creation wizard one field per message.
func (t *TgBot) eventWizardText(adminId int64, text string, session *Session) error {
	event := session.Event
	if event == nil {
		t.sessions.Clear(adminId)
		return nil
	}

	switch session.Step {
	case StepEventTitle:
		if len(text) < 3 {
			t.plainResponse(adminId, "The title must be at least three characters\\.")
			return nil
		}
		event.Title = text
		session.Step = StepEventType
		t.sessions.Set(adminId, session)
		keyboard := tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{{
				{Text: "Course", CallbackData: "type_course"},
				{Text: "Visit", CallbackData: "type_visit"},
			}},
		}
		t.sendWithKeyboard(adminId, "Is this a course or a visit?", keyboard)

	case StepEventDate:
		if !clock.ValidDate(text) {
			t.plainResponse(adminId, "Please send the date as YYYY\\-MM\\-DD\\.")
			return nil
		}
		event.Date = text
		session.Step = StepEventLocation
		t.sessions.Set(adminId, session)
		t.plainResponse(adminId, "Where does it take place?")

	case StepEventLocation:
		if len(text) < 5 {
			t.plainResponse(adminId, "The location must be at least five characters\\.")
			return nil
		}
		event.Location = text
		if event.Unlimited() {
			session.Step = StepEventCost
			t.sessions.Set(adminId, session)
			t.plainResponse(adminId, "What does it cost? Send 0 for free\\.")
		} else {
			session.Step = StepEventCapacity
			t.sessions.Set(adminId, session)
			t.plainResponse(adminId, "How many seats?")
		}

	case StepEventCapacity:
		capacity, err := strconv.Atoi(text)
		if err != nil || capacity <= 0 {
			t.plainResponse(adminId, "Please send a positive number of seats\\.")
			return nil
		}
		event.Capacity = capacity
		session.Step = StepEventCost
		t.sessions.Set(adminId, session)
		t.plainResponse(adminId, "What does it cost? Send 0 for free\\.")

	case StepEventCost:
		cost, err := strconv.ParseInt(text, 10, 64)
		if err != nil || cost < 0 {
			t.plainResponse(adminId, "Please send the cost as a plain number, 0 for free\\.")
			return nil
		}
		event.Cost = cost
		if cost > 0 {
			session.Step = StepEventCard
			t.sessions.Set(adminId, session)
			t.plainResponse(adminId, "Which card number should participants pay to?")
		} else {
			session.Step = StepEventDescription
			t.sessions.Set(adminId, session)
			t.plainResponse(adminId, "Finally, send the description:")
		}

	case StepEventCard:
		event.CardNumber = strings.ReplaceAll(text, " ", "")
		session.Step = StepEventDescription
		t.sessions.Set(adminId, session)
		t.plainResponse(adminId, "Finally, send the description:")

	case StepEventDescription:
		if len(text) < 10 {
			t.plainResponse(adminId, "The description must be at least ten characters\\.")
			return nil
		}
		event.Description = text
		t.sessions.Clear(adminId)
		if err := t.core.CreateEvent(event); err != nil {
			t.reportError(adminId, "create event", err)
			return nil
		}
		keyboard := tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{{
				{Text: "Post to channel", CallbackData: fmt.Sprintf("announce_%d", event.EventId)},
			}},
		}
		t.sendWithKeyboard(adminId, fmt.Sprintf("Event created with id %d\\.\n%s",
			event.EventId, Sanitize(event.TagLine())), keyboard)
	}
	return nil
}

// onEventType finishes the type step of the wizard.
func (t *TgBot) onEventType(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	session := t.sessions.Get(adminId)
	if session.Step != StepEventType || session.Event == nil {
		_, _ = cq.Answer(t.api, nil)
		return nil
	}

	switch cq.Data {
	case "type_course":
		session.Event.Type = entity.TypeCourse
	case "type_visit":
		session.Event.Type = entity.TypeVisit
	default:
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown type", ShowAlert: true})
		return nil
	}
	session.Step = StepEventDate
	t.sessions.Set(adminId, session)
	_, _ = cq.Answer(t.api, nil)
	t.plainResponse(adminId, "When is it? Send the date as YYYY\\-MM\\-DD:")
	return nil
}

// manageCmd lists all events, including inactive ones, for admins.
func (t *TgBot) manageCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}
	t.sessions.Clear(adminId)

	events, err := t.core.AllEvents()
	if err != nil {
		t.reportError(adminId, "manage", err)
		return nil
	}
	if len(events) == 0 {
		t.plainResponse(adminId, "No events yet\\. Create one with /newevent\\.")
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(events))
	for _, event := range events {
		marker := "●"
		if !event.IsActive {
			marker = "○"
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s %s (%s)", marker, event.Title, event.Date),
			CallbackData: fmt.Sprintf("manage_%d", event.EventId),
		}})
	}
	t.sendWithKeyboard(adminId, "*All events*", tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
	return nil
}

// surveysCmd lists past events still waiting for their survey dispatch.
func (t *TgBot) surveysCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}

	events, err := t.core.EventsAwaitingFeedback()
	if err != nil {
		t.reportError(adminId, "surveys", err)
		return nil
	}
	if len(events) == 0 {
		t.plainResponse(adminId, "No events are waiting for a survey\\.")
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(events))
	for _, event := range events {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (%s)", event.Title, event.Date),
			CallbackData: fmt.Sprintf("feedback_%d", event.EventId),
		}})
	}
	t.sendWithKeyboard(adminId, "*Events awaiting a survey*\nTap one to send the rating prompts\\.",
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
	return nil
}

// findCmd searches events by title or hashtag: /find <term>.
func (t *TgBot) findCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.plainResponse(adminId, "Usage: /find \\<title or hashtag fragment\\>")
		return nil
	}
	term := strings.Join(args[1:], " ")

	events, err := t.core.SearchEvents(term)
	if err != nil {
		t.reportError(adminId, "find", err)
		return nil
	}
	if len(events) == 0 {
		t.plainResponse(adminId, "Nothing matched\\.")
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(events))
	for _, event := range events {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (%s)", event.Title, event.Date),
			CallbackData: fmt.Sprintf("manage_%d", event.EventId),
		}})
	}
	t.sendWithKeyboard(adminId, "*Matching events*", tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
	return nil
}

// onManageEvent shows one event's admin card.
func (t *TgBot) onManageEvent(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	eventId, err := parseTrailingId(cq.Data, "manage_")
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

	count, err := t.core.EventRegistrants(eventId)
	registered := 0
	if err == nil {
		registered = len(count)
	}

	status := "active"
	if !event.IsActive {
		status = "inactive"
		if event.DeactivationReason != "" {
			status += " (" + event.DeactivationReason + ")"
		}
	}
	text := fmt.Sprintf("%s\n*%s*\nStatus: %s\nDate: %s\nRegistered: %d",
		Sanitize(event.TagLine()), Sanitize(event.Title), Sanitize(status),
		Sanitize(event.Date), registered)
	if !event.Unlimited() {
		text += fmt.Sprintf("\nCapacity: %d/%d", event.CurrentCapacity, event.Capacity)
	}

	toggleLabel := "Deactivate"
	if !event.IsActive {
		toggleLabel = "Activate"
	}
	keyboard := tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Edit title", CallbackData: fmt.Sprintf("edit_%d_title", eventId)},
				{Text: "Edit date", CallbackData: fmt.Sprintf("edit_%d_date", eventId)},
			},
			{
				{Text: "Edit location", CallbackData: fmt.Sprintf("edit_%d_location", eventId)},
				{Text: "Edit capacity", CallbackData: fmt.Sprintf("edit_%d_capacity", eventId)},
			},
			{
				{Text: "Edit cost", CallbackData: fmt.Sprintf("edit_%d_cost", eventId)},
				{Text: "Edit description", CallbackData: fmt.Sprintf("edit_%d_description", eventId)},
			},
			{
				{Text: "Edit hashtag", CallbackData: fmt.Sprintf("edit_%d_hashtag", eventId)},
				{Text: toggleLabel, CallbackData: fmt.Sprintf("toggle_%d", eventId)},
			},
			{
				{Text: "Roster", CallbackData: fmt.Sprintf("roster_%d", eventId)},
				{Text: "Post to channel", CallbackData: fmt.Sprintf("announce_%d", eventId)},
			},
			{
				{Text: "Send survey", CallbackData: fmt.Sprintf("feedback_%d", eventId)},
				{Text: "Ratings", CallbackData: fmt.Sprintf("summary_%d", eventId)},
			},
		},
	}
	t.editMessage(cq, adminId, text, &keyboard)
	return nil
}

// onEditEvent starts a one-field edit conversation: edit_<id>_<field>.
func (t *TgBot) onEditEvent(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	rest := strings.TrimPrefix(cq.Data, "edit_")
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown field", ShowAlert: true})
		return nil
	}
	eventId, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}

	t.sessions.Set(adminId, &Session{Step: StepEditValue, EventId: eventId, Field: parts[1]})
	_, _ = cq.Answer(t.api, nil)
	t.plainResponse(adminId, fmt.Sprintf("Send the new value for %s:", Sanitize(parts[1])))
	return nil
}

// editValueText validates and applies an event field edit.
func (t *TgBot) editValueText(adminId int64, text string, session *Session) error {
	var value interface{} = text
	switch session.Field {
	case "capacity":
		capacity, err := strconv.Atoi(text)
		if err != nil || capacity <= 0 {
			t.plainResponse(adminId, "Please send a positive number\\.")
			return nil
		}
		value = capacity
	case "cost":
		cost, err := strconv.ParseInt(text, 10, 64)
		if err != nil || cost < 0 {
			t.plainResponse(adminId, "Please send a non\\-negative number\\.")
			return nil
		}
		value = cost
	case "date":
		if !clock.ValidDate(text) {
			t.plainResponse(adminId, "Please send the date as YYYY\\-MM\\-DD\\.")
			return nil
		}
	case "type":
		if text != string(entity.TypeCourse) && text != string(entity.TypeVisit) {
			t.plainResponse(adminId, "The type must be course or visit\\.")
			return nil
		}
	}

	t.sessions.Clear(adminId)
	if err := t.core.UpdateEventField(session.EventId, session.Field, value); err != nil {
		t.reportError(adminId, "update event", err)
		return nil
	}
	t.plainResponse(adminId, "Event updated\\.")
	return nil
}

// onToggleEvent flips an event's visibility; deactivation asks for a reason.
func (t *TgBot) onToggleEvent(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	eventId, err := parseTrailingId(cq.Data, "toggle_")
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}
	event, err := t.core.GetEvent(eventId)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Event not found", ShowAlert: true})
		return nil
	}

	if event.IsActive {
		// deactivation keeps a reason on record
		t.sessions.Set(adminId, &Session{Step: StepToggleReason, EventId: eventId})
		_, _ = cq.Answer(t.api, nil)
		t.plainResponse(adminId, "Why is the event being deactivated?")
		return nil
	}

	if _, err = t.core.ToggleEvent(eventId, ""); err != nil {
		_, _ = cq.Answer(t.api, nil)
		t.reportError(adminId, "activate event", err)
		return nil
	}
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Event activated"})
	return nil
}

func (t *TgBot) toggleReasonText(adminId int64, text string, session *Session) error {
	t.sessions.Clear(adminId)
	if _, err := t.core.ToggleEvent(session.EventId, text); err != nil {
		t.reportError(adminId, "deactivate event", err)
		return nil
	}
	t.plainResponse(adminId, "Event deactivated\\.")
	return nil
}

// onRoster sends the current participant list to the admin.
func (t *TgBot) onRoster(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	eventId, err := parseTrailingId(cq.Data, "roster_")
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}
	users, err := t.core.EventRegistrants(eventId)
	if err != nil {
		_, _ = cq.Answer(t.api, nil)
		t.reportError(adminId, "roster", err)
		return nil
	}
	_, _ = cq.Answer(t.api, nil)

	if len(users) == 0 {
		t.plainResponse(adminId, "Nobody registered yet\\.")
		return nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Participants: %d\n", len(users)))
	for i, user := range users {
		sb.WriteString(fmt.Sprintf("%d\\. %s \\- %s\n", i+1, Sanitize(user.FullName), Sanitize(user.Phone)))
	}
	for _, part := range splitMessage(sb.String(), 4096) {
		t.plainResponse(adminId, part)
	}
	return nil
}

// onAnnounceEvent posts the event card with a register button to the channel.
func (t *TgBot) onAnnounceEvent(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	eventId, err := parseTrailingId(cq.Data, "announce_")
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}
	event, err := t.core.GetEvent(eventId)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Event not found", ShowAlert: true})
		return nil
	}

	keyboard := tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{{
			{Text: "Register", CallbackData: fmt.Sprintf("register_%d", event.EventId)},
		}},
	}
	text := eventCard(event) + "\n\n" + Sanitize(event.TagLine())
	_, err = t.api.SendMessage(t.config.Channel, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		_, _ = cq.Answer(t.api, nil)
		t.reportError(adminId, "announce event", err)
		return nil
	}
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Posted to the channel"})
	return nil
}
