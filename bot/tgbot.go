// Package bot implements the Telegram surface of the registration assistant.
//
// Architecture overview:
//   - tgbot.go      — TgBot struct, lifecycle (Start/Stop), Database interface
//   - session.go    — per-user conversation state, cleared on every exit path
//   - helpers.go    — Sanitize, plainResponse, reportError, splitMessage
//   - profile.go    — onboarding conversation and profile editing
//   - events.go     — catalog browsing and the register button
//   - payments.go   — receipt relay and the two-stage admin decision flow
//   - adminevents.go — event creation wizard, editing, toggling, rosters
//   - adminmanage.go — admin grants and channel broadcasts
//   - survey.go     — rating invitations and score collection
//   - relay.go      — operator-group notices, implements core.Relay
//
// Incoming text and photos are routed by the sender's session step; inline
// buttons are routed by callback-data prefix and parsed exactly once.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	"chembot/entity"
	"chembot/impl/auth"
	"chembot/impl/core"
	"chembot/internal/audit"
	"chembot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
)

// BotConfig holds the Telegram-specific pieces of the YAML config.
type BotConfig struct {
	Channel       int64
	ChannelName   string
	OperatorGroup int64
	AdminIds      []int64
	CardNumber    string
}

// Database defines the storage operations the bot uses directly; everything
// with registration semantics goes through the core engine instead.
type Database interface {
	LogOperatorMessage(msg *entity.OperatorMessage) error
	AddAdmin(userId, addedBy int64) error
	RemoveAdmin(userId int64) error
	Admins() ([]int64, error)
	UserCount() (int, error)
	EventRevenue(eventId int64) (int64, error)
}

// TgBot is the central bot instance.
type TgBot struct {
	log      *slog.Logger
	api      *tgbotapi.Bot
	core     *core.Core
	auth     *auth.Auth
	db       Database
	audit    *audit.MongoDB
	sessions *SessionStore
	updater  *ext.Updater
	config   BotConfig
}

func NewTgBot(apiKey string, c *core.Core, a *auth.Auth, db Database, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	tgBot := &TgBot{
		log:      log.With(sl.Module("tgbot")),
		core:     c,
		auth:     a,
		db:       db,
		sessions: NewSessionStore(),
		config:   cfg,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) SetAuditor(audit *audit.MongoDB) {
	t.audit = audit
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	// User commands
	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("events", t.eventsCmd))
	dispatcher.AddHandler(handlers.NewCommand("myevents", t.myEventsCmd))
	dispatcher.AddHandler(handlers.NewCommand("profile", t.profileCmd))
	dispatcher.AddHandler(handlers.NewCommand("cancel", t.cancelCmd))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	// Admin commands
	dispatcher.AddHandler(handlers.NewCommand("newevent", t.newEventCmd))
	dispatcher.AddHandler(handlers.NewCommand("manage", t.manageCmd))
	dispatcher.AddHandler(handlers.NewCommand("find", t.findCmd))
	dispatcher.AddHandler(handlers.NewCommand("surveys", t.surveysCmd))
	dispatcher.AddHandler(handlers.NewCommand("enroll", t.enrollCmd))
	dispatcher.AddHandler(handlers.NewCommand("addadmin", t.addAdminCmd))
	dispatcher.AddHandler(handlers.NewCommand("removeadmin", t.removeAdminCmd))
	dispatcher.AddHandler(handlers.NewCommand("admins", t.adminsCmd))
	dispatcher.AddHandler(handlers.NewCommand("announce", t.announceCmd))
	dispatcher.AddHandler(handlers.NewCommand("report", t.reportCmd))

	// Catalog callbacks
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("event_"), t.onEventDetails))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("register_"), t.onRegister))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal("back_to_events"), t.onBackToEvents))

	// Payment decision callbacks; confirm_ also matches the second-stage
	// confirm_<action> tokens, parseAction sorts them apart
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("confirm_"), t.onPaymentAction))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("unclear_payment_"), t.onPaymentAction))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("cancel_payment_"), t.onPaymentAction))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("payment_actions_"), t.onPaymentActionsBack))

	// Profile callbacks
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("profile_"), t.onProfileEdit))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal("check_membership"), t.onCheckMembership))

	// Survey callbacks
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("rate_"), t.onRating))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal("done"), t.onDone))

	// Admin management callbacks
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("manage_"), t.onManageEvent))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("edit_"), t.onEditEvent))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("toggle_"), t.onToggleEvent))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("roster_"), t.onRoster))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("feedback_"), t.onSendSurvey))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("summary_"), t.onSummary))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("announce_"), t.onAnnounceEvent))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("type_"), t.onEventType))

	// Conversation input
	dispatcher.AddHandler(handlers.NewMessage(message.Contact, t.onContact))
	dispatcher.AddHandler(handlers.NewMessage(message.Photo, t.onPhoto))
	dispatcher.AddHandler(handlers.NewMessage(message.Text, t.onText))

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}
