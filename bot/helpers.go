package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"chembot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// Sanitize escapes MarkdownV2 reserved characters in untrusted text.
func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}

// sendWithKeyboard sends a message with an inline keyboard attached.
func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
			ReplyMarkup: keyboard,
		})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending message with keyboard fallback", sl.Err(err))
		}
	}
}

// NotifyAdmins forwards a message to every admin. Also wired into the
// logging pipeline as the error sink.
func (t *TgBot) NotifyAdmins(msg string) {
	ids, err := t.db.Admins()
	if err != nil {
		t.log.Error("loading admins for notification", sl.Err(err))
	}
	seen := make(map[int64]bool)
	for _, id := range append(t.configuredAdminIds(), ids...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		t.plainResponse(id, Sanitize(msg))
	}
}

func (t *TgBot) configuredAdminIds() []int64 {
	return t.config.AdminIds
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// prefer a newline boundary
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// reportError logs the error, notifies admins with details, and sends a
// neutral message to the user.
func (t *TgBot) reportError(chatId int64, action string, err error) {
	t.log.Error("bot action failed",
		slog.String("action", action),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	t.NotifyAdmins(fmt.Sprintf("Action %s failed\nUser: %d\nError: %s", action, chatId, err.Error()))
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}

// editMessage rewrites a callback's source message in place, falling back
// to a fresh message when the original is inaccessible.
func (t *TgBot) editMessage(cq *tgbotapi.CallbackQuery, chatId int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	opts := &tgbotapi.EditMessageTextOpts{ChatId: chatId, ParseMode: "MarkdownV2"}
	if keyboard != nil {
		opts.ReplyMarkup = *keyboard
	}
	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			opts.MessageId = im.MessageId
			if _, _, err := t.api.EditMessageText(text, opts); err == nil {
				return
			}
		}
	}
	if keyboard != nil {
		t.sendWithKeyboard(chatId, text, *keyboard)
	} else {
		t.plainResponse(chatId, text)
	}
}

// editKeyboard swaps the inline keyboard of a callback's source message.
func (t *TgBot) editKeyboard(cq *tgbotapi.CallbackQuery, chatId int64, keyboard tgbotapi.InlineKeyboardMarkup) {
	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			_, _, _ = t.api.EditMessageReplyMarkup(&tgbotapi.EditMessageReplyMarkupOpts{
				ChatId:      chatId,
				MessageId:   im.MessageId,
				ReplyMarkup: keyboard,
			})
		}
	}
}

// callbackMessageId returns the id of the message a button lives on.
func callbackMessageId(cq *tgbotapi.CallbackQuery) (int64, bool) {
	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			return im.MessageId, true
		}
	}
	return 0, false
}

// parseTrailingId extracts the id from tokens shaped prefix_<id>.
func parseTrailingId(data, prefix string) (int64, error) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id in callback %q: %w", data, err)
	}
	return id, nil
}
