package bot

import (
	"errors"
	"fmt"
	"strings"

	"chembot/entity"
	"chembot/internal/store"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// start greets a known member or begins onboarding for a new one.
func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	t.sessions.Clear(userId)

	user, err := t.core.GetUser(userId)
	if errors.Is(err, store.ErrNotFound) {
		t.sessions.Set(userId, &Session{Step: StepFullName, Draft: &entity.User{UserId: userId}})
		t.plainResponse(userId, "Welcome\\! Let's set up your profile\\.\n\nPlease send your full name:")
		return nil
	}
	if err != nil {
		t.reportError(userId, "start", err)
		return nil
	}

	t.plainResponse(userId, fmt.Sprintf("Welcome back, %s\\!\nUse /events to browse upcoming events\\.", Sanitize(user.FullName)))
	return nil
}

// onboardingText advances the profile conversation one step per message.
func (t *TgBot) onboardingText(userId int64, text string, session *Session) error {
	draft := session.Draft
	if draft == nil {
		t.sessions.Clear(userId)
		return nil
	}

	switch session.Step {
	case StepFullName:
		if !entity.ValidFullName(text) {
			t.plainResponse(userId, "Please send your first and last name, at least six characters\\.")
			return nil
		}
		draft.FullName = text
		session.Step = StepNationalId
		t.sessions.Set(userId, session)
		t.plainResponse(userId, "Now send your 10\\-digit national ID:")

	case StepNationalId:
		if !entity.ValidNationalId(text) {
			t.plainResponse(userId, "That national ID is not valid\\. Please check the digits and try again\\.")
			return nil
		}
		draft.NationalId = text
		session.Step = StepStudentId
		t.sessions.Set(userId, session)
		t.plainResponse(userId, "Now send your student ID:")

	case StepStudentId:
		if !entity.ValidStudentId(text) {
			t.plainResponse(userId, "The student ID must contain digits only\\.")
			return nil
		}
		draft.StudentId = text
		session.Step = StepPhone
		t.sessions.Set(userId, session)
		t.askPhone(userId)

	case StepPhone:
		return t.acceptPhone(userId, text, session)
	}
	return nil
}

func (t *TgBot) askPhone(userId int64) {
	keyboard := tgbotapi.ReplyKeyboardMarkup{
		Keyboard: [][]tgbotapi.KeyboardButton{
			{{Text: "Share my number", RequestContact: true}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
	_, err := t.api.SendMessage(userId,
		"Finally, send your mobile number \\(09\\.\\.\\.\\) or share it with the button below:",
		&tgbotapi.SendMessageOpts{ParseMode: "MarkdownV2", ReplyMarkup: keyboard})
	if err != nil {
		t.plainResponse(userId, "Finally, send your mobile number \\(09\\.\\.\\.\\):")
	}
}

// acceptPhone validates the number, saves the profile, and asks the user to
// join the channel.
func (t *TgBot) acceptPhone(userId int64, raw string, session *Session) error {
	phone := entity.NormalizePhone(raw)
	if !entity.ValidPhone(phone) {
		t.plainResponse(userId, "That doesn't look like a mobile number\\. It must be 11 digits starting with 09\\.")
		return nil
	}

	if session.Step == StepProfileValue {
		return t.saveProfileField(userId, "phone", phone)
	}

	draft := session.Draft
	if draft == nil {
		t.sessions.Clear(userId)
		return nil
	}
	draft.Phone = phone
	if err := t.core.SaveUser(draft); err != nil {
		t.sessions.Clear(userId)
		t.reportError(userId, "save profile", err)
		return nil
	}
	t.sessions.Clear(userId)
	t.log.Info("new member registered", "user", userId)

	t.askChannelMembership(userId)
	return nil
}

func (t *TgBot) askChannelMembership(userId int64) {
	if t.config.ChannelName == "" {
		t.plainResponse(userId, "You're all set\\! Use /events to browse upcoming events\\.")
		return
	}
	keyboard := tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "Open channel", Url: "https://t.me/" + strings.TrimPrefix(t.config.ChannelName, "@")}},
			{{Text: "I joined", CallbackData: "check_membership"}},
		},
	}
	t.sendWithKeyboard(userId,
		"Profile saved\\! Please join our channel, then tap the button below\\.", keyboard)
}

// onCheckMembership verifies the user actually joined the channel.
func (t *TgBot) onCheckMembership(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	member, err := t.api.GetChatMember(t.config.Channel, userId, nil)
	if err != nil {
		t.log.Warn("membership check failed", "user", userId)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Could not check, try again", ShowAlert: true})
		return nil
	}
	status := member.GetStatus()
	if status == "left" || status == "kicked" {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "You haven't joined yet", ShowAlert: true})
		return nil
	}

	_, _ = cq.Answer(t.api, nil)
	t.plainResponse(userId, "Thanks for joining\\! Use /events to browse upcoming events\\.")
	return nil
}

// profileCmd shows the stored profile with per-field edit buttons.
func (t *TgBot) profileCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	t.sessions.Clear(userId)

	user, err := t.core.GetUser(userId)
	if errors.Is(err, store.ErrNotFound) {
		t.plainResponse(userId, "You're not registered yet\\. Send /start first\\.")
		return nil
	}
	if err != nil {
		t.reportError(userId, "profile", err)
		return nil
	}

	text := fmt.Sprintf("*Your profile*\nName: %s\nNational ID: %s\nStudent ID: %s\nPhone: %s",
		Sanitize(user.FullName), Sanitize(user.NationalId), Sanitize(user.StudentId), Sanitize(user.Phone))
	keyboard := tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Edit name", CallbackData: "profile_full_name"},
				{Text: "Edit national ID", CallbackData: "profile_national_id"},
			},
			{
				{Text: "Edit student ID", CallbackData: "profile_student_id"},
				{Text: "Edit phone", CallbackData: "profile_phone"},
			},
		},
	}
	t.sendWithKeyboard(userId, text, keyboard)
	return nil
}

var profileFieldPrompts = map[string]string{
	"full_name":   "Send your new full name:",
	"national_id": "Send your new national ID:",
	"student_id":  "Send your new student ID:",
	"phone":       "Send your new mobile number:",
}

// onProfileEdit starts a one-field edit conversation.
func (t *TgBot) onProfileEdit(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id
	field := strings.TrimPrefix(cq.Data, "profile_")

	prompt, ok := profileFieldPrompts[field]
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown field", ShowAlert: true})
		return nil
	}

	t.sessions.Set(userId, &Session{Step: StepProfileValue, Field: field})
	_, _ = cq.Answer(t.api, nil)
	t.plainResponse(userId, Sanitize(prompt))
	return nil
}

// profileValueText validates and stores an edited profile field.
func (t *TgBot) profileValueText(userId int64, text string, session *Session) error {
	switch session.Field {
	case "full_name":
		if !entity.ValidFullName(text) {
			t.plainResponse(userId, "Please send your first and last name, at least six characters\\.")
			return nil
		}
	case "national_id":
		if !entity.ValidNationalId(text) {
			t.plainResponse(userId, "That national ID is not valid\\.")
			return nil
		}
	case "student_id":
		if !entity.ValidStudentId(text) {
			t.plainResponse(userId, "The student ID must contain digits only\\.")
			return nil
		}
	case "phone":
		return t.acceptPhone(userId, text, session)
	default:
		t.sessions.Clear(userId)
		return nil
	}
	return t.saveProfileField(userId, session.Field, text)
}

func (t *TgBot) saveProfileField(userId int64, field, value string) error {
	if err := t.core.UpdateUserField(userId, field, value); err != nil {
		t.sessions.Clear(userId)
		t.reportError(userId, "update profile", err)
		return nil
	}
	t.sessions.Clear(userId)
	t.plainResponse(userId, "Profile updated\\.")
	return nil
}
