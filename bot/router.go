package bot

import (
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// onText routes free-form text by the sender's conversation step.
func (t *TgBot) onText(_ *tgbotapi.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	userId := ctx.EffectiveUser.Id
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		return nil
	}

	session := t.sessions.Get(userId)
	switch session.Step {
	case StepFullName, StepNationalId, StepStudentId, StepPhone:
		return t.onboardingText(userId, text, session)
	case StepProfileValue:
		return t.profileValueText(userId, text, session)
	case StepEventTitle, StepEventDate, StepEventLocation,
		StepEventCapacity, StepEventCost, StepEventCard, StepEventDescription:
		return t.eventWizardText(userId, text, session)
	case StepEventType:
		t.plainResponse(userId, "Please pick the event type with the buttons above\\.")
		return nil
	case StepEditValue:
		return t.editValueText(userId, text, session)
	case StepToggleReason:
		return t.toggleReasonText(userId, text, session)
	case StepAnnounceText:
		return t.announceText(userId, text, session)
	case StepReceipt:
		t.plainResponse(userId, "Please send the payment receipt as a photo, or /cancel\\.")
		return nil
	default:
		return nil
	}
}

// onContact accepts a shared phone number during onboarding.
func (t *TgBot) onContact(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	session := t.sessions.Get(userId)
	if session.Step != StepPhone {
		return nil
	}
	contact := ctx.EffectiveMessage.Contact
	if contact == nil || contact.UserId != userId {
		t.plainResponse(userId, "Please share your own contact\\.")
		return nil
	}
	return t.acceptPhone(userId, contact.PhoneNumber, session)
}

// onPhoto accepts payment receipts.
func (t *TgBot) onPhoto(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	session := t.sessions.Get(userId)
	if session.Step != StepReceipt {
		return nil
	}
	return t.acceptReceipt(ctx, session)
}

// cancelCmd aborts whatever conversation the user is in.
func (t *TgBot) cancelCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	if t.sessions.Active(userId) {
		t.sessions.Clear(userId)
		t.plainResponse(userId, "Cancelled\\.")
	} else {
		t.plainResponse(userId, "Nothing to cancel\\.")
	}
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	text := "*Commands*\n" +
		"/start \\- register or open the main menu\n" +
		"/events \\- browse upcoming events\n" +
		"/myevents \\- events you registered for\n" +
		"/profile \\- view and edit your profile\n" +
		"/cancel \\- abort the current conversation"
	if t.auth.IsAdmin(userId) {
		text += "\n\n*Admin*\n" +
			"/newevent \\- create an event\n" +
			"/manage \\- manage events\n" +
			"/enroll \\- register a member by student id\n" +
			"/find \\- search events by title or hashtag\n" +
			"/surveys \\- events waiting for a survey\n" +
			"/announce \\- post to the channel\n" +
			"/report \\- membership and revenue report\n" +
			"/addadmin, /removeadmin, /admins \\- manage admins"
	}
	t.plainResponse(userId, text)
	return nil
}
