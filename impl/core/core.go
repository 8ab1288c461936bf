package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chembot/entity"
	"chembot/internal/store"
	"chembot/lib/clock"
	"chembot/lib/sl"
)

// Database is the store surface the engine depends on.
type Database interface {
	GetUser(userId int64) (*entity.User, error)
	UserByStudentId(studentId string) (*entity.User, error)
	SaveUser(user *entity.User) error
	UpdateUserField(userId int64, field string, value interface{}) error

	GetEvent(eventId int64) (*entity.Event, error)
	ActiveEvents() ([]*entity.Event, error)
	AllEvents() ([]*entity.Event, error)
	SearchEvents(term string) ([]*entity.Event, error)
	EventsAwaitingFeedback(today string) ([]*entity.Event, error)
	CreateEvent(event *entity.Event) error
	UpdateEventField(eventId int64, field string, value interface{}) error
	DeactivateEvent(eventId int64, reason string) error
	ActivateEvent(eventId int64) error
	ReserveSeat(eventId int64) (bool, error)
	ReleaseSeat(eventId int64) error

	CreateRegistration(userId, eventId int64) error
	HasRegistration(userId, eventId int64) (bool, error)
	CountRegistrations(eventId int64) (int, error)
	EventRegistrants(eventId int64) ([]*entity.User, error)
	UserEvents(userId int64) ([]*entity.Event, error)

	CreatePayment(userId, eventId, amount int64) error
	CreatePaymentRequest(req *entity.PaymentRequest) error
	PaymentRequestByMessage(messageId int64) (*entity.PaymentRequest, error)
	PendingPaymentRequest(userId, eventId int64) (*entity.PaymentRequest, error)
	FinalizePaymentRequest(requestId int64, status entity.RequestStatus, decidedBy int64) error

	UpsertRating(userId, eventId int64, rating int) error
	RatingSummary(eventId int64) (*entity.RatingSummary, error)
	MarkFeedbackSent(eventId int64) error
	MarkSummarySent(eventId int64) error
	EventsAwaitingSummary() ([]*entity.Event, error)
}

// Relay delivers operator-group and user-facing notices. Implemented by the
// bot; the engine never talks to Telegram directly.
type Relay interface {
	AnnounceRegistration(event *entity.Event, user *entity.User, number int) error
	AnnounceRoster(event *entity.Event, users []*entity.User) error
	AnnounceSummary(event *entity.Event, summary *entity.RatingSummary) error
	SendSurvey(userId int64, event *entity.Event) error
}

// Auditor is the optional activity trail.
type Auditor interface {
	SaveDecision(req *entity.PaymentRequest) error
}

// RegisterOutcome tells the caller how a registration attempt ended.
type RegisterOutcome int

const (
	Registered RegisterOutcome = iota
	PaymentRequired
	AlreadyRegistered
	EventInactive
	CapacityFull
)

// RegisterResult carries the outcome plus the data the caller needs to
// phrase a reply: the event as loaded and, on success, the user's ordinal
// in the roster.
type RegisterResult struct {
	Outcome RegisterOutcome
	Event   *entity.Event
	Number  int
}

// Decision is the result of an admin acting on a payment request.
type Decision struct {
	Request *entity.PaymentRequest
	// Result is set only when the decision completed a registration.
	Result *RegisterResult
}

const reasonCapacity = "capacity reached"

type Core struct {
	db     Database
	relay  Relay
	audit  Auditor
	log    *slog.Logger
	window time.Duration

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func New(db Database, log *slog.Logger, windowDays int) *Core {
	if db == nil {
		panic("database is nil")
	}
	return &Core{
		db:     db,
		log:    log.With(sl.Module("core")),
		window: time.Duration(windowDays) * 24 * time.Hour,
		timers: make(map[int64]*time.Timer),
	}
}

func (c *Core) SetRelay(relay Relay) {
	c.relay = relay
}

func (c *Core) SetAuditor(audit Auditor) {
	c.audit = audit
}

// Register handles a user's tap on a register button. Free events complete
// immediately; paid events return PaymentRequired and hold no seat until an
// admin confirms the receipt.
func (c *Core) Register(userId, eventId int64) (*RegisterResult, error) {
	event, err := c.db.GetEvent(eventId)
	if errors.Is(err, store.ErrNotFound) {
		return &RegisterResult{Outcome: EventInactive}, nil
	}
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return &RegisterResult{Outcome: EventInactive, Event: event}, nil
	}

	registered, err := c.db.HasRegistration(userId, eventId)
	if err != nil {
		return nil, err
	}
	if registered {
		return &RegisterResult{Outcome: AlreadyRegistered, Event: event}, nil
	}

	if !event.Free() {
		return &RegisterResult{Outcome: PaymentRequired, Event: event}, nil
	}

	return c.complete(userId, event, 0)
}

// complete finishes a registration: seat first, then the row, then the
// ledger, then the notices. The seat comes back if the row turns out to be
// a duplicate.
func (c *Core) complete(userId int64, event *entity.Event, amount int64) (*RegisterResult, error) {
	reserved, err := c.db.ReserveSeat(event.EventId)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return &RegisterResult{Outcome: CapacityFull, Event: event}, nil
	}

	err = c.db.CreateRegistration(userId, event.EventId)
	if errors.Is(err, store.ErrAlreadyExists) {
		if relErr := c.db.ReleaseSeat(event.EventId); relErr != nil {
			c.log.Error("release seat after duplicate", sl.Err(relErr), sl.Event(event.EventId))
		}
		return &RegisterResult{Outcome: AlreadyRegistered, Event: event}, nil
	}
	if err != nil {
		return nil, err
	}

	if amount > 0 {
		if err = c.db.CreatePayment(userId, event.EventId, amount); err != nil {
			c.log.Error("record payment", sl.Err(err), sl.User(userId), sl.Event(event.EventId))
		}
	}

	number, err := c.db.CountRegistrations(event.EventId)
	if err != nil {
		c.log.Error("count registrations", sl.Err(err), sl.Event(event.EventId))
		number = 0
	}

	if c.relay != nil {
		user, err := c.db.GetUser(userId)
		if err != nil {
			c.log.Error("load user for notice", sl.Err(err), sl.User(userId))
		} else if err = c.relay.AnnounceRegistration(event, user, number); err != nil {
			c.log.Error("announce registration", sl.Err(err), sl.Event(event.EventId))
		}
	}

	if err = c.closeIfFull(event.EventId); err != nil {
		c.log.Error("close full event", sl.Err(err), sl.Event(event.EventId))
	}

	return &RegisterResult{Outcome: Registered, Event: event, Number: number}, nil
}

// closeIfFull re-reads the event and, when the last seat is gone,
// deactivates it and posts the final roster to the operator group.
func (c *Core) closeIfFull(eventId int64) error {
	event, err := c.db.GetEvent(eventId)
	if err != nil {
		return err
	}
	if !event.Full() || !event.IsActive {
		return nil
	}
	if err = c.db.DeactivateEvent(eventId, reasonCapacity); err != nil {
		return err
	}
	c.log.Info("event closed on capacity", sl.Event(eventId))
	if c.relay == nil {
		return nil
	}
	users, err := c.db.EventRegistrants(eventId)
	if err != nil {
		return err
	}
	event.IsActive = false
	event.DeactivationReason = reasonCapacity
	return c.relay.AnnounceRoster(event, users)
}

// OpenPaymentRequest records a relayed receipt so admin taps on the notice
// resolve to exactly one pending request.
func (c *Core) OpenPaymentRequest(messageId, userId, eventId, amount int64) (*entity.PaymentRequest, error) {
	req := &entity.PaymentRequest{
		MessageId: messageId,
		UserId:    userId,
		EventId:   eventId,
		Amount:    amount,
	}
	if err := c.db.CreatePaymentRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// HasPendingPayment reports whether a receipt for this user and event is
// already under review. A second receipt is refused while one is open.
func (c *Core) HasPendingPayment(userId, eventId int64) (bool, error) {
	_, err := c.db.PendingPaymentRequest(userId, eventId)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DecidePayment applies a confirmed admin decision to the request behind a
// relayed receipt. The pending-to-decided transition happens before any
// side effect, so a second admin racing on the same notice gets
// store.ErrAlreadyProcessed and nothing else happens.
func (c *Core) DecidePayment(messageId int64, kind entity.ActionKind, decidedBy int64) (*Decision, error) {
	req, err := c.db.PaymentRequestByMessage(messageId)
	if err != nil {
		return nil, err
	}

	status := statusFor(kind)
	if err = c.db.FinalizePaymentRequest(req.RequestId, status, decidedBy); err != nil {
		return nil, err
	}
	req.Status = status
	req.DecidedBy = decidedBy
	now := time.Now()
	req.DecidedAt = &now

	if c.audit != nil {
		if err = c.audit.SaveDecision(req); err != nil {
			c.log.Error("audit decision", sl.Err(err), sl.User(req.UserId), sl.Event(req.EventId))
		}
	}

	decision := &Decision{Request: req}
	if kind != entity.ActionConfirm {
		c.log.Info("payment request closed",
			slog.String("status", string(status)), sl.User(req.UserId), sl.Event(req.EventId))
		return decision, nil
	}

	// confirmation completes the registration unless the user already
	// holds a seat from an earlier decision
	registered, err := c.db.HasRegistration(req.UserId, req.EventId)
	if err != nil {
		return nil, err
	}
	event, err := c.db.GetEvent(req.EventId)
	if err != nil {
		return nil, err
	}
	if registered {
		decision.Result = &RegisterResult{Outcome: AlreadyRegistered, Event: event}
		return decision, nil
	}
	decision.Result, err = c.complete(req.UserId, event, req.Amount)
	if err != nil {
		return nil, err
	}
	return decision, nil
}

func statusFor(kind entity.ActionKind) entity.RequestStatus {
	switch kind {
	case entity.ActionConfirm:
		return entity.RequestConfirmed
	case entity.ActionUnclear:
		return entity.RequestUnclear
	default:
		return entity.RequestCancelled
	}
}

// SaveUser stores a completed onboarding profile.
func (c *Core) SaveUser(user *entity.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	return c.db.SaveUser(user)
}

func (c *Core) GetUser(userId int64) (*entity.User, error) {
	return c.db.GetUser(userId)
}

// Enroll registers a member on an admin's behalf, looked up by student id.
// The same admission rules apply as for a self-registration.
func (c *Core) Enroll(studentId string, eventId int64) (*entity.User, *RegisterResult, error) {
	user, err := c.db.UserByStudentId(studentId)
	if err != nil {
		return nil, nil, err
	}
	result, err := c.Register(user.UserId, eventId)
	if err != nil {
		return user, nil, err
	}
	return user, result, nil
}

func (c *Core) UpdateUserField(userId int64, field string, value interface{}) error {
	return c.db.UpdateUserField(userId, field, value)
}

func (c *Core) ActiveEvents() ([]*entity.Event, error) {
	return c.db.ActiveEvents()
}

func (c *Core) AllEvents() ([]*entity.Event, error) {
	return c.db.AllEvents()
}

func (c *Core) GetEvent(eventId int64) (*entity.Event, error) {
	return c.db.GetEvent(eventId)
}

func (c *Core) SearchEvents(term string) ([]*entity.Event, error) {
	return c.db.SearchEvents(term)
}

// EventsAwaitingFeedback lists past events whose survey has not gone out.
func (c *Core) EventsAwaitingFeedback() ([]*entity.Event, error) {
	return c.db.EventsAwaitingFeedback(clock.Today())
}

func (c *Core) UserEvents(userId int64) ([]*entity.Event, error) {
	return c.db.UserEvents(userId)
}

func (c *Core) EventRegistrants(eventId int64) ([]*entity.User, error) {
	return c.db.EventRegistrants(eventId)
}

// CreateEvent validates and stores a new catalog entry. The hashtag is
// derived from the title when the admin left it empty.
func (c *Core) CreateEvent(event *entity.Event) error {
	if event.Hashtag == "" {
		event.Hashtag = entity.MakeHashtag(event.Title)
	}
	if err := event.Bind(nil); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	if err := c.db.CreateEvent(event); err != nil {
		return err
	}
	c.log.Info("event created", sl.Event(event.EventId), slog.String("title", event.Title))
	return nil
}

// UpdateEventField forwards an allow-listed edit to the store.
func (c *Core) UpdateEventField(eventId int64, field string, value interface{}) error {
	if !store.AllowedEventField(field) {
		return fmt.Errorf("field not editable: %s", field)
	}
	return c.db.UpdateEventField(eventId, field, value)
}

// ToggleEvent flips an event's visibility. Reactivation clears the stored
// reason; deactivation requires one.
func (c *Core) ToggleEvent(eventId int64, reason string) (*entity.Event, error) {
	event, err := c.db.GetEvent(eventId)
	if err != nil {
		return nil, err
	}
	if event.IsActive {
		err = c.db.DeactivateEvent(eventId, reason)
		event.IsActive = false
		event.DeactivationReason = reason
	} else {
		err = c.db.ActivateEvent(eventId)
		event.IsActive = true
		event.DeactivationReason = ""
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}
