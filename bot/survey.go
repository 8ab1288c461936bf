package bot

import (
	"fmt"

	"chembot/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// onRating stores a survey score. The buttons stay so the user can change
// their mind until the window closes.
func (t *TgBot) onRating(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	eventId, score, err := entity.ParseRating(cq.Data)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Invalid rating", ShowAlert: true})
		return nil
	}

	if err = t.core.SubmitRating(userId, eventId, score); err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Rating not accepted", ShowAlert: true})
		return nil
	}
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: fmt.Sprintf("You rated %d/5, thanks!", score)})
	return nil
}

// onDone removes the survey keyboard.
func (t *TgBot) onDone(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Thanks for your feedback!"})
	t.editKeyboard(cq, cq.From.Id, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	return nil
}

// onSendSurvey (admin) fans the rating invitations out for a finished event.
func (t *TgBot) onSendSurvey(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	eventId, err := parseTrailingId(cq.Data, "feedback_")
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}

	sent, err := t.core.SendSurvey(eventId)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Survey could not be sent", ShowAlert: true})
		t.log.Warn("sending survey", "event", eventId, "error", err.Error())
		return nil
	}
	_, _ = cq.Answer(t.api, nil)
	t.plainResponse(adminId, fmt.Sprintf("Survey sent to %d participants\\.", sent))
	return nil
}

// onSummary (admin) shows the current aggregation without closing the window.
func (t *TgBot) onSummary(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	eventId, err := parseTrailingId(cq.Data, "summary_")
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown event", ShowAlert: true})
		return nil
	}

	summary, err := t.core.EventSummary(eventId)
	if err != nil {
		_, _ = cq.Answer(t.api, nil)
		t.reportError(adminId, "rating summary", err)
		return nil
	}
	_, _ = cq.Answer(t.api, nil)
	t.plainResponse(adminId, fmt.Sprintf("Ratings so far: %d\nAverage: %s",
		summary.Count, Sanitize(fmt.Sprintf("%.1f", summary.Average))))
	return nil
}
