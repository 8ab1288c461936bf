package core

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chembot/entity"
	"chembot/internal/store"
)

// fakeDb is an in-memory Database with the same conflict semantics as the
// MySQL store: unique (user, event) registrations, conditional seat
// reservation, atomic pending-to-decided request transitions.
type fakeDb struct {
	mu            sync.Mutex
	users         map[int64]*entity.User
	events        map[int64]*entity.Event
	registrations map[string]bool
	regOrder      map[int64][]int64
	payments      []*entity.Payment
	requests      map[int64]*entity.PaymentRequest
	ratings       map[string]int
	nextId        int64
}

func newFakeDb() *fakeDb {
	return &fakeDb{
		users:         make(map[int64]*entity.User),
		events:        make(map[int64]*entity.Event),
		registrations: make(map[string]bool),
		regOrder:      make(map[int64][]int64),
		requests:      make(map[int64]*entity.PaymentRequest),
		ratings:       make(map[string]int),
		nextId:        1,
	}
}

func regKey(userId, eventId int64) string {
	return fmt.Sprintf("%d/%d", userId, eventId)
}

func (f *fakeDb) GetUser(userId int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userId]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeDb) SaveUser(user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserId] = user
	return nil
}

func (f *fakeDb) UserByStudentId(studentId string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.StudentId == studentId {
			return user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDb) UpdateUserField(userId int64, field string, value interface{}) error {
	return nil
}

func (f *fakeDb) GetEvent(eventId int64) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventId]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

func (f *fakeDb) ActiveEvents() ([]*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*entity.Event
	for _, e := range f.events {
		if e.IsActive {
			copied := *e
			events = append(events, &copied)
		}
	}
	return events, nil
}

func (f *fakeDb) AllEvents() ([]*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*entity.Event
	for _, e := range f.events {
		copied := *e
		events = append(events, &copied)
	}
	return events, nil
}

func (f *fakeDb) SearchEvents(term string) ([]*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*entity.Event
	for _, e := range f.events {
		if strings.Contains(e.Title, term) || strings.Contains(e.Hashtag, term) {
			copied := *e
			events = append(events, &copied)
		}
	}
	return events, nil
}

func (f *fakeDb) EventsAwaitingFeedback(today string) ([]*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*entity.Event
	for _, e := range f.events {
		if e.Date < today && !e.IsActive && e.FeedbackSentAt == nil {
			copied := *e
			events = append(events, &copied)
		}
	}
	return events, nil
}

func (f *fakeDb) CreateEvent(event *entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.EventId = f.nextId
	f.nextId++
	copied := *event
	f.events[event.EventId] = &copied
	return nil
}

func (f *fakeDb) UpdateEventField(eventId int64, field string, value interface{}) error {
	return nil
}

func (f *fakeDb) DeactivateEvent(eventId int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventId]
	if !ok {
		return store.ErrNotFound
	}
	event.IsActive = false
	event.DeactivationReason = reason
	return nil
}

func (f *fakeDb) ActivateEvent(eventId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventId]
	if !ok {
		return store.ErrNotFound
	}
	event.IsActive = true
	event.DeactivationReason = ""
	return nil
}

func (f *fakeDb) ReserveSeat(eventId int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventId]
	if !ok {
		return false, nil
	}
	if event.Type != entity.TypeCourse && event.CurrentCapacity >= event.Capacity {
		return false, nil
	}
	event.CurrentCapacity++
	return true, nil
}

func (f *fakeDb) ReleaseSeat(eventId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[eventId]; ok && event.CurrentCapacity > 0 {
		event.CurrentCapacity--
	}
	return nil
}

func (f *fakeDb) CreateRegistration(userId, eventId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := regKey(userId, eventId)
	if f.registrations[key] {
		return store.ErrAlreadyExists
	}
	f.registrations[key] = true
	f.regOrder[eventId] = append(f.regOrder[eventId], userId)
	return nil
}

func (f *fakeDb) HasRegistration(userId, eventId int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registrations[regKey(userId, eventId)], nil
}

func (f *fakeDb) CountRegistrations(eventId int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regOrder[eventId]), nil
}

func (f *fakeDb) EventRegistrants(eventId int64) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []*entity.User
	for _, userId := range f.regOrder[eventId] {
		if user, ok := f.users[userId]; ok {
			users = append(users, user)
		} else {
			users = append(users, &entity.User{UserId: userId})
		}
	}
	return users, nil
}

func (f *fakeDb) UserEvents(userId int64) ([]*entity.Event, error) {
	return nil, nil
}

func (f *fakeDb) CreatePayment(userId, eventId, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, &entity.Payment{
		UserId: userId, EventId: eventId, Amount: amount, ConfirmedAt: time.Now(),
	})
	return nil
}

func (f *fakeDb) CreatePaymentRequest(req *entity.PaymentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[req.MessageId]; ok {
		return store.ErrAlreadyExists
	}
	req.RequestId = f.nextId
	f.nextId++
	req.Status = entity.RequestPending
	copied := *req
	f.requests[req.MessageId] = &copied
	return nil
}

func (f *fakeDb) PaymentRequestByMessage(messageId int64) (*entity.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[messageId]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (f *fakeDb) FinalizePaymentRequest(requestId int64, status entity.RequestStatus, decidedBy int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.RequestId != requestId {
			continue
		}
		if req.Status != entity.RequestPending {
			return store.ErrAlreadyProcessed
		}
		req.Status = status
		req.DecidedBy = decidedBy
		now := time.Now()
		req.DecidedAt = &now
		return nil
	}
	return store.ErrNotFound
}

func (f *fakeDb) PendingPaymentRequest(userId, eventId int64) (*entity.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.UserId == userId && req.EventId == eventId && req.Status == entity.RequestPending {
			return req, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDb) UpsertRating(userId, eventId int64, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings[regKey(userId, eventId)] = rating
	return nil
}

func (f *fakeDb) RatingSummary(eventId int64) (*entity.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := &entity.RatingSummary{EventId: eventId}
	total := 0
	for key, rating := range f.ratings {
		var u, e int64
		_, _ = fmt.Sscanf(key, "%d/%d", &u, &e)
		if e == eventId {
			total += rating
			summary.Count++
		}
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary, nil
}

func (f *fakeDb) MarkFeedbackSent(eventId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.events[eventId].FeedbackSentAt = &now
	return nil
}

func (f *fakeDb) MarkSummarySent(eventId int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.events[eventId].SummarySentAt = &now
	return nil
}

func (f *fakeDb) EventsAwaitingSummary() ([]*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []*entity.Event
	for _, e := range f.events {
		if e.FeedbackSentAt != nil && e.SummarySentAt == nil {
			copied := *e
			events = append(events, &copied)
		}
	}
	return events, nil
}

// fakeRelay records every notice the engine sends.
type fakeRelay struct {
	mu            sync.Mutex
	registrations []string
	rosters       []int64
	summaries     []*entity.RatingSummary
	surveys       []int64
	surveyErr     map[int64]error
}

func (f *fakeRelay) AnnounceRegistration(event *entity.Event, user *entity.User, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, fmt.Sprintf("#%d %s %s", number, user.FullName, event.TagLine()))
	return nil
}

func (f *fakeRelay) AnnounceRoster(event *entity.Event, users []*entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosters = append(f.rosters, event.EventId)
	return nil
}

func (f *fakeRelay) AnnounceSummary(event *entity.Event, summary *entity.RatingSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeRelay) SendSurvey(userId int64, event *entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.surveyErr[userId]; ok {
		return err
	}
	f.surveys = append(f.surveys, userId)
	return nil
}

func testCore(t *testing.T) (*Core, *fakeDb, *fakeRelay) {
	t.Helper()
	db := newFakeDb()
	relay := &fakeRelay{surveyErr: make(map[int64]error)}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := New(db, log, 3)
	c.SetRelay(relay)
	return c, db, relay
}

func seedUser(db *fakeDb, id int64) {
	_ = db.SaveUser(&entity.User{UserId: id, FullName: fmt.Sprintf("Member %d", id)})
}

func seedEvent(db *fakeDb, event *entity.Event) int64 {
	_ = db.CreateEvent(event)
	return event.EventId
}

func TestRegisterFreeEvent(t *testing.T) {
	c, db, relay := testCore(t)
	seedUser(db, 10)
	eventId := seedEvent(db, &entity.Event{
		Title: "Lab Safety Workshop", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Hashtag: "lab safety",
	})

	res, err := c.Register(10, eventId)
	require.NoError(t, err)
	assert.Equal(t, Registered, res.Outcome)
	assert.Equal(t, 1, res.Number)

	require.Len(t, relay.registrations, 1)
	assert.Equal(t, "#1 Member 10 #visit #lab_safety", relay.registrations[0])

	event, _ := db.GetEvent(eventId)
	assert.Equal(t, 1, event.CurrentCapacity)
}

func TestRegisterTwiceKeepsOneSeat(t *testing.T) {
	c, db, _ := testCore(t)
	seedUser(db, 10)
	eventId := seedEvent(db, &entity.Event{
		Title: "Plant Tour", Type: entity.TypeVisit, Capacity: 5, IsActive: true,
	})

	res, err := c.Register(10, eventId)
	require.NoError(t, err)
	assert.Equal(t, Registered, res.Outcome)

	res, err = c.Register(10, eventId)
	require.NoError(t, err)
	assert.Equal(t, AlreadyRegistered, res.Outcome)

	event, _ := db.GetEvent(eventId)
	assert.Equal(t, 1, event.CurrentCapacity, "duplicate attempt must not hold a seat")
}

func TestRegisterInactiveEvent(t *testing.T) {
	c, db, _ := testCore(t)
	seedUser(db, 10)
	eventId := seedEvent(db, &entity.Event{
		Title: "Old Seminar", Type: entity.TypeVisit, Capacity: 5, IsActive: false,
	})

	res, err := c.Register(10, eventId)
	require.NoError(t, err)
	assert.Equal(t, EventInactive, res.Outcome)

	res, err = c.Register(10, 9999)
	require.NoError(t, err)
	assert.Equal(t, EventInactive, res.Outcome)
}

func TestRegisterPaidEventHoldsNoSeat(t *testing.T) {
	c, db, relay := testCore(t)
	seedUser(db, 10)
	eventId := seedEvent(db, &entity.Event{
		Title: "Refinery Visit", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Cost: 500000,
	})

	res, err := c.Register(10, eventId)
	require.NoError(t, err)
	assert.Equal(t, PaymentRequired, res.Outcome)

	event, _ := db.GetEvent(eventId)
	assert.Equal(t, 0, event.CurrentCapacity, "pending payment must not reserve a seat")
	assert.Empty(t, relay.registrations)
	registered, _ := db.HasRegistration(10, eventId)
	assert.False(t, registered)
}

func TestLastSeatRace(t *testing.T) {
	c, db, _ := testCore(t)
	eventId := seedEvent(db, &entity.Event{
		Title: "Limited Visit", Type: entity.TypeVisit, Capacity: 1, IsActive: true,
	})

	const contenders = 20
	outcomes := make(chan RegisterOutcome, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		userId := int64(100 + i)
		seedUser(db, userId)
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Register(userId, eventId)
			if !assert.NoError(t, err) {
				outcomes <- EventInactive
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	won, lost := 0, 0
	for outcome := range outcomes {
		switch outcome {
		case Registered:
			won++
		case CapacityFull, EventInactive:
			lost++
		default:
			t.Fatalf("unexpected outcome: %v", outcome)
		}
	}
	assert.Equal(t, 1, won, "exactly one registration may claim the last seat")
	assert.Equal(t, contenders-1, lost)

	event, _ := db.GetEvent(eventId)
	assert.Equal(t, 1, event.CurrentCapacity)
	assert.False(t, event.IsActive)
}

func TestCapacityReachedClosesEvent(t *testing.T) {
	c, db, relay := testCore(t)
	seedUser(db, 10)
	seedUser(db, 11)
	eventId := seedEvent(db, &entity.Event{
		Title: "Two Seats", Type: entity.TypeVisit, Capacity: 2, IsActive: true,
	})

	res, err := c.Register(10, eventId)
	require.NoError(t, err)
	assert.Equal(t, Registered, res.Outcome)

	event, _ := db.GetEvent(eventId)
	assert.True(t, event.IsActive, "event stays open while seats remain")

	res, err = c.Register(11, eventId)
	require.NoError(t, err)
	assert.Equal(t, Registered, res.Outcome)

	event, _ = db.GetEvent(eventId)
	assert.False(t, event.IsActive)
	assert.Equal(t, "capacity reached", event.DeactivationReason)
	assert.Equal(t, []int64{eventId}, relay.rosters, "final roster goes out once")
}

func TestCourseIgnoresCapacity(t *testing.T) {
	c, db, _ := testCore(t)
	eventId := seedEvent(db, &entity.Event{
		Title: "Process Control Course", Type: entity.TypeCourse, Capacity: 1, IsActive: true,
	})

	for i := int64(0); i < 5; i++ {
		seedUser(db, 200+i)
		res, err := c.Register(200+i, eventId)
		require.NoError(t, err)
		assert.Equal(t, Registered, res.Outcome)
	}

	event, _ := db.GetEvent(eventId)
	assert.True(t, event.IsActive)
}

func TestDecidePaymentConfirm(t *testing.T) {
	c, db, relay := testCore(t)
	seedUser(db, 10)
	eventId := seedEvent(db, &entity.Event{
		Title: "Paid Visit", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Cost: 300000,
	})

	req, err := c.OpenPaymentRequest(555, 10, eventId, 300000)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestPending, req.Status)

	decision, err := c.DecidePayment(555, entity.ActionConfirm, 900)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestConfirmed, decision.Request.Status)
	assert.Equal(t, int64(900), decision.Request.DecidedBy)
	require.NotNil(t, decision.Result)
	assert.Equal(t, Registered, decision.Result.Outcome)
	assert.Equal(t, 1, decision.Result.Number)

	registered, _ := db.HasRegistration(10, eventId)
	assert.True(t, registered)
	require.Len(t, db.payments, 1)
	assert.Equal(t, int64(300000), db.payments[0].Amount)
	assert.Len(t, relay.registrations, 1)
}

func TestDecidePaymentSecondAdminLoses(t *testing.T) {
	c, db, _ := testCore(t)
	seedUser(db, 10)
	eventId := seedEvent(db, &entity.Event{
		Title: "Paid Visit", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Cost: 300000,
	})
	_, err := c.OpenPaymentRequest(555, 10, eventId, 300000)
	require.NoError(t, err)

	_, err = c.DecidePayment(555, entity.ActionConfirm, 900)
	require.NoError(t, err)

	_, err = c.DecidePayment(555, entity.ActionCancel, 901)
	assert.ErrorIs(t, err, store.ErrAlreadyProcessed)

	registered, _ := db.HasRegistration(10, eventId)
	assert.True(t, registered, "losing decision must not undo the registration")
	assert.Len(t, db.payments, 1)
}

func TestDecidePaymentCancelAndUnclear(t *testing.T) {
	c, db, _ := testCore(t)
	seedUser(db, 10)
	seedUser(db, 11)
	eventId := seedEvent(db, &entity.Event{
		Title: "Paid Visit", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Cost: 300000,
	})

	_, err := c.OpenPaymentRequest(555, 10, eventId, 300000)
	require.NoError(t, err)
	decision, err := c.DecidePayment(555, entity.ActionCancel, 900)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestCancelled, decision.Request.Status)
	assert.Nil(t, decision.Result)

	_, err = c.OpenPaymentRequest(556, 11, eventId, 300000)
	require.NoError(t, err)
	decision, err = c.DecidePayment(556, entity.ActionUnclear, 900)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestUnclear, decision.Request.Status)
	assert.Nil(t, decision.Result)

	for _, userId := range []int64{10, 11} {
		registered, _ := db.HasRegistration(userId, eventId)
		assert.False(t, registered)
	}
	event, _ := db.GetEvent(eventId)
	assert.Equal(t, 0, event.CurrentCapacity)
}

func TestDecidePaymentConfirmIsIdempotent(t *testing.T) {
	c, db, _ := testCore(t)
	seedUser(db, 10)
	eventId := seedEvent(db, &entity.Event{
		Title: "Paid Visit", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Cost: 300000,
	})

	// the user somehow already holds a seat when the receipt is confirmed
	_, err := c.OpenPaymentRequest(555, 10, eventId, 300000)
	require.NoError(t, err)
	require.NoError(t, db.CreateRegistration(10, eventId))

	decision, err := c.DecidePayment(555, entity.ActionConfirm, 900)
	require.NoError(t, err)
	require.NotNil(t, decision.Result)
	assert.Equal(t, AlreadyRegistered, decision.Result.Outcome)
	assert.Empty(t, db.payments, "no ledger entry without a new registration")
}

func TestDecidePaymentUnknownMessage(t *testing.T) {
	c, _, _ := testCore(t)
	_, err := c.DecidePayment(12345, entity.ActionConfirm, 900)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggleEvent(t *testing.T) {
	c, db, _ := testCore(t)
	eventId := seedEvent(db, &entity.Event{
		Title: "Toggle Me", Type: entity.TypeVisit, Capacity: 5, IsActive: true,
	})

	event, err := c.ToggleEvent(eventId, "postponed")
	require.NoError(t, err)
	assert.False(t, event.IsActive)
	assert.Equal(t, "postponed", event.DeactivationReason)

	event, err = c.ToggleEvent(eventId, "")
	require.NoError(t, err)
	assert.True(t, event.IsActive)
	assert.Empty(t, event.DeactivationReason)
}

func TestCreateEventDerivesHashtag(t *testing.T) {
	c, _, _ := testCore(t)
	event := &entity.Event{
		Title: "Refinery Tour", Type: entity.TypeVisit, Date: "2026-10-01",
		Location: "Tehran refinery", Description: "A full-day guided tour.",
		Capacity: 30, IsActive: true,
	}
	require.NoError(t, c.CreateEvent(event))
	assert.Equal(t, "#Refinery_Tour", event.Hashtag)
	assert.NotZero(t, event.EventId)
}

func TestCreateEventRejectsBadDate(t *testing.T) {
	c, _, _ := testCore(t)
	event := &entity.Event{
		Title: "Bad Date", Type: entity.TypeVisit, Date: "01-10-2026",
		Location: "Somewhere far", Description: "Date format is wrong here.",
	}
	assert.Error(t, c.CreateEvent(event))
}

func TestUpdateEventFieldAllowList(t *testing.T) {
	c, db, _ := testCore(t)
	eventId := seedEvent(db, &entity.Event{
		Title: "Editable", Type: entity.TypeVisit, Capacity: 5, IsActive: true,
	})

	for _, field := range []string{"title", "description", "cost", "date", "location", "capacity", "hashtag", "type", "is_active"} {
		assert.NoError(t, c.UpdateEventField(eventId, field, "x"), field)
	}
	assert.Error(t, c.UpdateEventField(eventId, "current_capacity", 0))
	assert.Error(t, c.UpdateEventField(eventId, "event_id", 99))
	assert.Error(t, c.UpdateEventField(eventId, "deactivation_reason", "no"))
}

func TestEnrollByStudentId(t *testing.T) {
	c, db, _ := testCore(t)
	_ = db.SaveUser(&entity.User{UserId: 10, FullName: "Member 10", StudentId: "40123456"})
	eventId := seedEvent(db, &entity.Event{
		Title: "Glassware Basics", Type: entity.TypeVisit, Capacity: 5, IsActive: true,
	})

	user, res, err := c.Enroll("40123456", eventId)
	require.NoError(t, err)
	assert.Equal(t, int64(10), user.UserId)
	assert.Equal(t, Registered, res.Outcome)
	assert.Equal(t, 1, res.Number)

	_, _, err = c.Enroll("99999999", eventId)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
