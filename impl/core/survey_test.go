package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chembot/entity"
)

func surveyFixture(t *testing.T) (*Core, *fakeDb, *fakeRelay, int64) {
	t.Helper()
	c, db, relay := testCore(t)
	eventId := seedEvent(db, &entity.Event{
		Title: "Finished Visit", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Date: "2026-08-01",
	})
	for _, userId := range []int64{10, 11, 12} {
		seedUser(db, userId)
		res, err := c.Register(userId, eventId)
		require.NoError(t, err)
		require.Equal(t, Registered, res.Outcome)
	}
	require.NoError(t, db.DeactivateEvent(eventId, "finished"))
	return c, db, relay, eventId
}

func TestSendSurvey(t *testing.T) {
	c, db, relay, eventId := surveyFixture(t)
	defer c.Stop()

	relay.surveyErr[11] = errors.New("bot was blocked by the user")

	sent, err := c.SendSurvey(eventId)
	require.NoError(t, err)
	assert.Equal(t, 2, sent, "delivery failures are skipped, not fatal")
	assert.ElementsMatch(t, []int64{10, 12}, relay.surveys)

	event, _ := db.GetEvent(eventId)
	assert.NotNil(t, event.FeedbackSentAt)

	// second send is refused
	_, err = c.SendSurvey(eventId)
	assert.Error(t, err)
}

func TestSendSurveyRefusesRunningEvent(t *testing.T) {
	c, db, relay, _ := surveyFixture(t)
	defer c.Stop()

	upcoming := seedEvent(db, &entity.Event{
		Title: "Upcoming Visit", Type: entity.TypeVisit,
		Capacity: 5, IsActive: true, Date: "2099-01-01",
	})
	_, err := c.SendSurvey(upcoming)
	assert.Error(t, err)

	// past date alone is not enough, the event must be deactivated too
	stillOpen := seedEvent(db, &entity.Event{
		Title: "Open Course", Type: entity.TypeCourse,
		IsActive: true, Date: "2026-08-01",
	})
	_, err = c.SendSurvey(stillOpen)
	assert.Error(t, err)
	assert.Empty(t, relay.surveys)

	pending, err := c.EventsAwaitingFeedback()
	require.NoError(t, err)
	for _, e := range pending {
		assert.NotEqual(t, stillOpen, e.EventId, "active events are not listed")
	}
}

func TestSubmitRating(t *testing.T) {
	c, db, _, eventId := surveyFixture(t)
	defer c.Stop()

	require.NoError(t, c.SubmitRating(10, eventId, 4))
	require.NoError(t, c.SubmitRating(11, eventId, 2))
	// resubmission overwrites
	require.NoError(t, c.SubmitRating(11, eventId, 5))

	summary, err := db.RatingSummary(eventId)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 4.5, summary.Average, 0.001)
}

func TestSubmitRatingGuards(t *testing.T) {
	c, db, _, eventId := surveyFixture(t)
	defer c.Stop()

	assert.Error(t, c.SubmitRating(10, eventId, 0))
	assert.Error(t, c.SubmitRating(10, eventId, 6))
	assert.Error(t, c.SubmitRating(999, eventId, 3), "non-registrants cannot rate")

	require.NoError(t, db.MarkSummarySent(eventId))
	assert.Error(t, c.SubmitRating(10, eventId, 3), "window is closed after the summary")
}

func TestSubmitRatingAfterWindow(t *testing.T) {
	c, db, _, eventId := surveyFixture(t)
	defer c.Stop()

	// dispatch long past the window, summary never posted
	sentAt := time.Now().Add(-30 * 24 * time.Hour)
	db.mu.Lock()
	db.events[eventId].FeedbackSentAt = &sentAt
	db.mu.Unlock()

	assert.Error(t, c.SubmitRating(10, eventId, 4), "deadline holds without a summary")

	summary, err := db.RatingSummary(eventId)
	require.NoError(t, err)
	assert.Zero(t, summary.Count, "late rating must not be written")

	// within the window the rating is accepted
	recent := time.Now().Add(-time.Hour)
	db.mu.Lock()
	db.events[eventId].FeedbackSentAt = &recent
	db.mu.Unlock()
	assert.NoError(t, c.SubmitRating(10, eventId, 4))
}

func TestPostSummary(t *testing.T) {
	c, db, relay, eventId := surveyFixture(t)
	defer c.Stop()

	require.NoError(t, c.SubmitRating(10, eventId, 5))
	require.NoError(t, c.SubmitRating(11, eventId, 3))

	require.NoError(t, c.PostSummary(eventId))
	require.Len(t, relay.summaries, 1)
	assert.Equal(t, 2, relay.summaries[0].Count)
	assert.InDelta(t, 4.0, relay.summaries[0].Average, 0.001)

	event, _ := db.GetEvent(eventId)
	assert.NotNil(t, event.SummarySentAt)

	// posting again is a no-op
	require.NoError(t, c.PostSummary(eventId))
	assert.Len(t, relay.summaries, 1)
}

func TestRestoreSurveysFlushesOverdue(t *testing.T) {
	c, db, relay, eventId := surveyFixture(t)
	defer c.Stop()

	require.NoError(t, c.SubmitRating(10, eventId, 4))

	// invitation went out long before the window; process restarted since
	sentAt := time.Now().Add(-30 * 24 * time.Hour)
	db.mu.Lock()
	db.events[eventId].FeedbackSentAt = &sentAt
	db.mu.Unlock()

	require.NoError(t, c.RestoreSurveys())

	assert.Len(t, relay.summaries, 1, "overdue summary flushes on restore")
	event, _ := db.GetEvent(eventId)
	assert.NotNil(t, event.SummarySentAt)
}

func TestRestoreSurveysReArmsTimer(t *testing.T) {
	c, db, relay, eventId := surveyFixture(t)
	defer c.Stop()

	sentAt := time.Now()
	db.mu.Lock()
	db.events[eventId].FeedbackSentAt = &sentAt
	db.mu.Unlock()

	require.NoError(t, c.RestoreSurveys())
	assert.Empty(t, relay.summaries, "window still open, nothing posted")

	c.mu.Lock()
	_, armed := c.timers[eventId]
	c.mu.Unlock()
	assert.True(t, armed)
}
