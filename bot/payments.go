package bot

import (
	"errors"
	"fmt"

	"chembot/entity"
	"chembot/impl/core"
	"chembot/internal/store"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// acceptReceipt forwards a payment receipt to the operator group and opens
// the pending request the admin buttons act on.
func (t *TgBot) acceptReceipt(ctx *ext.Context, session *Session) error {
	userId := ctx.EffectiveUser.Id
	msg := ctx.EffectiveMessage

	user, err := t.core.GetUser(userId)
	if err != nil {
		t.sessions.Clear(userId)
		t.reportError(userId, "receipt", err)
		return nil
	}
	event, err := t.core.GetEvent(session.EventId)
	if err != nil {
		t.sessions.Clear(userId)
		t.reportError(userId, "receipt", err)
		return nil
	}

	pending, err := t.core.HasPendingPayment(userId, event.EventId)
	if err != nil {
		t.reportError(userId, "receipt", err)
		return nil
	}
	if pending {
		t.sessions.Clear(userId)
		t.plainResponse(userId, "Your receipt is already being reviewed\\.")
		return nil
	}

	if _, err = t.api.ForwardMessage(t.config.OperatorGroup, userId, msg.MessageId, nil); err != nil {
		t.reportError(userId, "forward receipt", err)
		return nil
	}

	action := &entity.Action{UserId: userId, EventId: event.EventId}
	keyboard := paymentActionsKeyboard(action)
	notice := fmt.Sprintf("*Payment receipt*\n%s\nName: %s\nPhone: %s\nAmount: %s\n%s",
		Sanitize(event.TagLine()), Sanitize(user.FullName), Sanitize(user.Phone),
		Sanitize(fmt.Sprintf("%d", event.Cost)), Sanitize(event.Title))

	sent, err := t.api.SendMessage(t.config.OperatorGroup, notice, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.reportError(userId, "relay receipt", err)
		return nil
	}

	if _, err = t.core.OpenPaymentRequest(sent.MessageId, userId, event.EventId, event.Cost); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			t.sessions.Clear(userId)
			t.plainResponse(userId, "Your receipt is already being reviewed\\.")
			return nil
		}
		t.reportError(userId, "open payment request", err)
		return nil
	}
	t.logRelay(sent.MessageId, userId, event.EventId, entity.MessagePayment)

	t.sessions.Clear(userId)
	t.plainResponse(userId, "Receipt received\\! We'll confirm your registration after review\\.")
	return nil
}

// paymentActionsKeyboard is the first-stage decision keyboard on a relayed
// receipt.
func paymentActionsKeyboard(action *entity.Action) tgbotapi.InlineKeyboardMarkup {
	confirm := *action
	confirm.Kind = entity.ActionConfirm
	unclear := *action
	unclear.Kind = entity.ActionUnclear
	cancel := *action
	cancel.Kind = entity.ActionCancel
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Confirm ✓", CallbackData: confirm.Token()},
				{Text: "Unclear ?", CallbackData: unclear.Token()},
				{Text: "Reject ✗", CallbackData: cancel.Token()},
			},
		},
	}
}

// confirmKeyboard is the second stage: the staged decision plus a way back.
func confirmKeyboard(action *entity.Action) tgbotapi.InlineKeyboardMarkup {
	label := map[entity.ActionKind]string{
		entity.ActionConfirm: "Yes, confirm payment",
		entity.ActionUnclear: "Yes, mark unclear",
		entity.ActionCancel:  "Yes, reject payment",
	}[action.Kind]
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: label, CallbackData: action.ConfirmToken()}},
			{{Text: "Back", CallbackData: fmt.Sprintf("payment_actions_%d_%d", action.UserId, action.EventId)}},
		},
	}
}

// onPaymentAction handles both stages of an admin decision. The token is
// parsed once; a first tap swaps in the confirmation keyboard, the second
// tap applies the decision.
func (t *TgBot) onPaymentAction(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	adminId := cq.From.Id

	action, err := entity.ParseAction(cq.Data)
	if err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown action", ShowAlert: true})
		return nil
	}
	if !t.auth.IsAdmin(adminId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	if !action.Final {
		// stage one: stage the decision, nothing changes yet
		t.editKeyboard(cq, t.config.OperatorGroup, confirmKeyboard(action))
		_, _ = cq.Answer(t.api, nil)
		return nil
	}

	messageId, ok := callbackMessageId(cq)
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Message too old", ShowAlert: true})
		return nil
	}

	decision, err := t.core.DecidePayment(messageId, action.Kind, adminId)
	if errors.Is(err, store.ErrAlreadyProcessed) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Already handled by another admin", ShowAlert: true})
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "No pending request for this message", ShowAlert: true})
		return nil
	}
	if err != nil {
		_, _ = cq.Answer(t.api, nil)
		t.reportError(adminId, "decide payment", err)
		return nil
	}
	_, _ = cq.Answer(t.api, nil)

	t.closeDecisionMessage(cq, decision, adminId)
	t.notifyPaymentOutcome(decision)
	return nil
}

// closeDecisionMessage rewrites the relayed notice so the buttons disappear
// and the audit trail is visible in the group.
func (t *TgBot) closeDecisionMessage(cq *tgbotapi.CallbackQuery, decision *core.Decision, adminId int64) {
	verdict := map[entity.RequestStatus]string{
		entity.RequestConfirmed: "confirmed",
		entity.RequestUnclear:   "marked unclear",
		entity.RequestCancelled: "rejected",
	}[decision.Request.Status]

	original := ""
	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			original = im.Text
		}
	}
	text := fmt.Sprintf("%s\n\nPayment %s by %d", Sanitize(original), Sanitize(verdict), adminId)
	t.editMessage(cq, t.config.OperatorGroup, text, nil)
}

// notifyPaymentOutcome tells the user how their receipt was decided. An
// unclear verdict does not reopen the receipt conversation; the user starts
// over from the register button.
func (t *TgBot) notifyPaymentOutcome(decision *core.Decision) {
	req := decision.Request
	t.plainResponse(req.UserId, paymentOutcomeReply(decision))
	if req.Status == entity.RequestConfirmed &&
		decision.Result != nil && decision.Result.Outcome == core.CapacityFull {
		t.NotifyAdmins(fmt.Sprintf("Confirmed payment for a full event: user %d, event %d", req.UserId, req.EventId))
	}
}

// paymentOutcomeReply renders the user-facing verdict message.
func paymentOutcomeReply(decision *core.Decision) string {
	switch decision.Request.Status {
	case entity.RequestConfirmed:
		if decision.Result != nil && decision.Result.Outcome == core.Registered {
			return fmt.Sprintf(
				"Your payment was confirmed\\! You are participant number %d for *%s*\\.",
				decision.Result.Number, Sanitize(decision.Result.Event.Title))
		}
		if decision.Result != nil && decision.Result.Outcome == core.CapacityFull {
			return "Your payment was confirmed, but the event filled up in the meantime\\. Please contact the operators\\."
		}
		return "Your payment was confirmed\\. You are already registered\\."
	case entity.RequestUnclear:
		return "We couldn't read your receipt\\. Please register for the event again and send a clearer photo\\."
	case entity.RequestCancelled:
		return "Your payment could not be verified and the registration was declined\\. Contact the operators if this is a mistake\\."
	}
	return ""
}

// onPaymentActionsBack restores the stage-one keyboard.
func (t *TgBot) onPaymentActionsBack(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	if !t.auth.IsAdmin(cq.From.Id) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	var userId, eventId int64
	if _, err := fmt.Sscanf(cq.Data, "payment_actions_%d_%d", &userId, &eventId); err != nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown action", ShowAlert: true})
		return nil
	}
	t.editKeyboard(cq, t.config.OperatorGroup, paymentActionsKeyboard(&entity.Action{UserId: userId, EventId: eventId}))
	_, _ = cq.Answer(t.api, nil)
	return nil
}
