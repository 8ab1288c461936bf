package bot

import (
	"fmt"
	"strings"

	"chembot/entity"
	"chembot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// The bot is the engine's relay: every operator notice lands in the group,
// is logged in the relational trail, and mirrored to the audit sink.

// AnnounceRegistration posts the numbered registration notice under the
// event's tag line so the group history stays searchable by hashtag.
func (t *TgBot) AnnounceRegistration(event *entity.Event, user *entity.User, number int) error {
	text := fmt.Sprintf("%s\n\\#%d %s\nPhone: %s\nStudent ID: %s",
		Sanitize(event.TagLine()), number, Sanitize(user.FullName),
		Sanitize(user.Phone), Sanitize(user.StudentId))
	sent, err := t.api.SendMessage(t.config.OperatorGroup, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("announce registration: %w", err)
	}
	t.logRelay(sent.MessageId, user.UserId, event.EventId, entity.MessageRegistration)
	return nil
}

// AnnounceRoster posts the final participant list once an event closes.
func (t *TgBot) AnnounceRoster(event *entity.Event, users []*entity.User) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s \\#final\n*%s*\nParticipants: %d\n",
		Sanitize(event.TagLine()), Sanitize(event.Title), len(users)))
	for i, user := range users {
		sb.WriteString(fmt.Sprintf("%d\\. %s \\- %s\n", i+1, Sanitize(user.FullName), Sanitize(user.Phone)))
	}

	for _, part := range splitMessage(sb.String(), 4096) {
		sent, err := t.api.SendMessage(t.config.OperatorGroup, part, &tgbotapi.SendMessageOpts{
			ParseMode: "MarkdownV2",
		})
		if err != nil {
			return fmt.Errorf("announce roster: %w", err)
		}
		t.logRelay(sent.MessageId, 0, event.EventId, entity.MessageFinalList)
	}
	return nil
}

// AnnounceSummary posts the survey aggregation when the window closes.
func (t *TgBot) AnnounceSummary(event *entity.Event, summary *entity.RatingSummary) error {
	text := fmt.Sprintf("%s \\#score\n*%s*\nRatings: %d\nAverage: %s",
		Sanitize(event.TagLine()), Sanitize(event.Title),
		summary.Count, Sanitize(fmt.Sprintf("%.1f", summary.Average)))
	sent, err := t.api.SendMessage(t.config.OperatorGroup, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("announce summary: %w", err)
	}
	t.logRelay(sent.MessageId, 0, event.EventId, entity.MessageSurvey)
	return nil
}

// SendSurvey delivers a rating invitation to one registrant.
func (t *TgBot) SendSurvey(userId int64, event *entity.Event) error {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for score := 1; score <= 5; score++ {
		buttons = append(buttons, tgbotapi.InlineKeyboardButton{
			Text:         fmt.Sprintf("%d", score),
			CallbackData: entity.RatingToken(event.EventId, score),
		})
	}
	keyboard := tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			buttons,
			{{Text: "Done", CallbackData: "done"}},
		},
	}
	text := fmt.Sprintf("How was *%s*?\nRate it from 1 to 5:", Sanitize(event.Title))
	_, err := t.api.SendMessage(userId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return fmt.Errorf("send survey: %w", err)
	}
	return nil
}

// logRelay records an operator-group message in the store and, when
// enabled, the audit sink. Failures are logged, never propagated: the
// notice already went out.
func (t *TgBot) logRelay(messageId, userId, eventId int64, msgType entity.MessageType) {
	msg := &entity.OperatorMessage{
		MessageId: messageId,
		ChatId:    t.config.OperatorGroup,
		UserId:    userId,
		EventId:   eventId,
		Type:      msgType,
	}
	if err := t.db.LogOperatorMessage(msg); err != nil {
		t.log.Error("logging operator message", sl.Err(err), sl.Event(eventId))
	}
	if t.audit != nil {
		if err := t.audit.SaveMessage(msg); err != nil {
			t.log.Warn("audit operator message", sl.Err(err), sl.Event(eventId))
		}
	}
}
