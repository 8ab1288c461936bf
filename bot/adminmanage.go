package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"chembot/impl/core"
	"chembot/internal/store"
	"chembot/lib/sl"

	"github.com/google/uuid"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// addAdminCmd grants admin rights: /addadmin <telegram id>.
func (t *TgBot) addAdminCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) != 2 {
		t.plainResponse(adminId, "Usage: /addadmin \\<telegram id\\>")
		return nil
	}
	targetId, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		t.plainResponse(adminId, "That doesn't look like a Telegram id\\.")
		return nil
	}

	if err = t.db.AddAdmin(targetId, adminId); err != nil {
		t.reportError(adminId, "add admin", err)
		return nil
	}
	t.log.Info("admin granted", sl.User(targetId), slog.Int64("by", adminId))
	t.plainResponse(adminId, fmt.Sprintf("User %d is now an admin\\.", targetId))
	t.plainResponse(targetId, "You were granted admin rights\\. Send /help to see the admin commands\\.")
	return nil
}

// removeAdminCmd revokes granted rights: /removeadmin <telegram id>.
// Configured admins cannot be removed at runtime.
func (t *TgBot) removeAdminCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) != 2 {
		t.plainResponse(adminId, "Usage: /removeadmin \\<telegram id\\>")
		return nil
	}
	targetId, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		t.plainResponse(adminId, "That doesn't look like a Telegram id\\.")
		return nil
	}
	if t.auth.Configured(targetId) {
		t.plainResponse(adminId, "That admin is set in the configuration and cannot be removed here\\.")
		return nil
	}

	if err = t.db.RemoveAdmin(targetId); err != nil {
		t.plainResponse(adminId, "That user is not a granted admin\\.")
		return nil
	}
	t.log.Info("admin revoked", sl.User(targetId), slog.Int64("by", adminId))
	t.plainResponse(adminId, fmt.Sprintf("User %d is no longer an admin\\.", targetId))
	return nil
}

// adminsCmd lists configured and granted admins.
func (t *TgBot) adminsCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}

	granted, err := t.db.Admins()
	if err != nil {
		t.reportError(adminId, "list admins", err)
		return nil
	}

	var sb strings.Builder
	sb.WriteString("*Admins*\n")
	for _, id := range t.config.AdminIds {
		sb.WriteString(fmt.Sprintf("%d \\(configured\\)\n", id))
	}
	for _, id := range granted {
		sb.WriteString(fmt.Sprintf("%d\n", id))
	}
	t.plainResponse(adminId, sb.String())
	return nil
}

// enrollCmd registers a member on their behalf: /enroll <student id> <event id>.
// The engine applies the same admission rules as a self-registration.
func (t *TgBot) enrollCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) != 3 {
		t.plainResponse(adminId, "Usage: /enroll \\<student id\\> \\<event id\\>")
		return nil
	}
	eventId, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		t.plainResponse(adminId, "That doesn't look like an event id\\.")
		return nil
	}

	user, result, err := t.core.Enroll(args[1], eventId)
	if errors.Is(err, store.ErrNotFound) {
		t.plainResponse(adminId, "No member with that student id\\.")
		return nil
	}
	if err != nil {
		t.reportError(adminId, "enroll", err)
		return nil
	}

	name := Sanitize(user.FullName)
	switch result.Outcome {
	case core.Registered:
		t.log.Info("member enrolled", sl.User(user.UserId), sl.Event(eventId), slog.Int64("by", adminId))
		t.plainResponse(adminId, fmt.Sprintf("%s is registered as participant \\#%d\\.", name, result.Number))
		t.plainResponse(user.UserId, fmt.Sprintf("You were registered for *%s*\\. Your participant number is %d\\.",
			Sanitize(result.Event.Title), result.Number))
	case core.AlreadyRegistered:
		t.plainResponse(adminId, fmt.Sprintf("%s is already registered for this event\\.", name))
	case core.EventInactive:
		t.plainResponse(adminId, "This event is not open for registration\\.")
	case core.CapacityFull:
		t.plainResponse(adminId, "No seats left for this event\\.")
	case core.PaymentRequired:
		t.plainResponse(adminId, "This is a paid event\\. The member has to register themselves and send a receipt\\.")
	}
	return nil
}

// announceCmd starts a channel broadcast conversation.
func (t *TgBot) announceCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}
	t.sessions.Set(adminId, &Session{Step: StepAnnounceText})
	t.plainResponse(adminId, "Send the announcement text, or /cancel\\.")
	return nil
}

// announceText posts the message to the channel, tagged with a batch id so
// the audit trail can tie delivery reports together.
func (t *TgBot) announceText(adminId int64, text string, session *Session) error {
	t.sessions.Clear(adminId)

	batchId := uuid.New().String()
	total, failed := 1, 0
	_, err := t.api.SendMessage(t.config.Channel, Sanitize(text), &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		failed++
		t.reportError(adminId, "announce", err)
	} else {
		t.plainResponse(adminId, "Announcement posted\\.")
	}

	if t.audit != nil {
		if err = t.audit.SaveBroadcast(batchId, total, failed); err != nil {
			t.log.Warn("audit broadcast", sl.Err(err))
		}
	}
	return nil
}

// reportCmd summarizes membership and per-event revenue.
func (t *TgBot) reportCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	adminId := ctx.EffectiveUser.Id
	if !t.auth.IsAdmin(adminId) {
		t.plainResponse(adminId, "This command is for admins\\.")
		return nil
	}

	count, err := t.db.UserCount()
	if err != nil {
		t.reportError(adminId, "report", err)
		return nil
	}
	events, err := t.core.AllEvents()
	if err != nil {
		t.reportError(adminId, "report", err)
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Report*\nMembers: %d\nEvents: %d\n", count, len(events)))
	for _, event := range events {
		users, err := t.core.EventRegistrants(event.EventId)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("\n%s \\(%s\\): %d registered", Sanitize(event.Title), Sanitize(event.Date), len(users))
		if !event.Free() {
			revenue, err := t.db.EventRevenue(event.EventId)
			if err == nil {
				line += fmt.Sprintf(", revenue %d", revenue)
			}
		}
		sb.WriteString(line)
	}
	for _, part := range splitMessage(sb.String(), 4096) {
		t.plainResponse(adminId, part)
	}
	return nil
}
