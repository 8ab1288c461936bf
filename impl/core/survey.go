package core

import (
	"fmt"
	"log/slog"
	"time"

	"chembot/entity"
	"chembot/lib/clock"
	"chembot/lib/sl"
)

// SendSurvey fans rating invitations out to everyone registered for the
// event, marks the invitations sent, and arms the summary timer. Only
// finished events qualify, past-date and deactivated; sending twice for the
// same event is refused.
func (c *Core) SendSurvey(eventId int64) (int, error) {
	event, err := c.db.GetEvent(eventId)
	if err != nil {
		return 0, err
	}
	if event.FeedbackSentAt != nil {
		return 0, fmt.Errorf("survey already sent for event %d", eventId)
	}
	if !clock.Passed(event.Date) {
		return 0, fmt.Errorf("event %d has not finished yet", eventId)
	}
	if event.IsActive {
		return 0, fmt.Errorf("event %d is still accepting registrations", eventId)
	}
	if c.relay == nil {
		return 0, fmt.Errorf("relay not connected")
	}

	users, err := c.db.EventRegistrants(eventId)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, user := range users {
		if err = c.relay.SendSurvey(user.UserId, event); err != nil {
			// blocked bots and deleted accounts are expected here
			c.log.Debug("survey delivery failed", sl.Err(err), sl.User(user.UserId), sl.Event(eventId))
			continue
		}
		sent++
	}

	if err = c.db.MarkFeedbackSent(eventId); err != nil {
		return sent, err
	}
	c.scheduleSummary(eventId, c.window)
	c.log.Info("survey sent", sl.Event(eventId), slog.Int("recipients", sent))
	return sent, nil
}

// SubmitRating stores a score from a survey button. Only registrants may
// rate, and only while the window is open.
func (c *Core) SubmitRating(userId, eventId int64, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating out of range: %d", rating)
	}
	event, err := c.db.GetEvent(eventId)
	if err != nil {
		return err
	}
	if event.SummarySentAt != nil {
		return fmt.Errorf("rating window closed for event %d", eventId)
	}
	// the deadline holds even when the summary post is overdue
	if event.FeedbackSentAt != nil && time.Now().After(event.FeedbackSentAt.Add(c.window)) {
		return fmt.Errorf("rating window closed for event %d", eventId)
	}
	registered, err := c.db.HasRegistration(userId, eventId)
	if err != nil {
		return err
	}
	if !registered {
		return fmt.Errorf("user %d is not registered for event %d", userId, eventId)
	}
	return c.db.UpsertRating(userId, eventId, rating)
}

// PostSummary aggregates the collected scores, posts them to the operator
// group, and closes the rating window.
func (c *Core) PostSummary(eventId int64) error {
	c.mu.Lock()
	if timer, ok := c.timers[eventId]; ok {
		timer.Stop()
		delete(c.timers, eventId)
	}
	c.mu.Unlock()

	event, err := c.db.GetEvent(eventId)
	if err != nil {
		return err
	}
	if event.SummarySentAt != nil {
		return nil
	}
	summary, err := c.db.RatingSummary(eventId)
	if err != nil {
		return err
	}
	if c.relay != nil {
		if err = c.relay.AnnounceSummary(event, summary); err != nil {
			return err
		}
	}
	if err = c.db.MarkSummarySent(eventId); err != nil {
		return err
	}
	c.log.Info("survey summary posted", sl.Event(eventId),
		slog.Int("count", summary.Count), slog.Float64("average", summary.Average))
	return nil
}

// RestoreSurveys re-arms summary timers after a restart. Windows that
// expired while the process was down are flushed immediately.
func (c *Core) RestoreSurveys() error {
	events, err := c.db.EventsAwaitingSummary()
	if err != nil {
		return err
	}
	for _, event := range events {
		if event.FeedbackSentAt == nil {
			continue
		}
		remaining := time.Until(event.FeedbackSentAt.Add(c.window))
		if remaining <= 0 {
			if err = c.PostSummary(event.EventId); err != nil {
				c.log.Error("post overdue summary", sl.Err(err), sl.Event(event.EventId))
			}
			continue
		}
		c.scheduleSummary(event.EventId, remaining)
	}
	return nil
}

func (c *Core) scheduleSummary(eventId int64, after time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timer, ok := c.timers[eventId]; ok {
		timer.Stop()
	}
	c.timers[eventId] = time.AfterFunc(after, func() {
		if err := c.PostSummary(eventId); err != nil {
			c.log.Error("post summary", sl.Err(err), sl.Event(eventId))
		}
	})
}

// Stop cancels all armed summary timers; they come back via RestoreSurveys.
func (c *Core) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
}

// EventSummary exposes the aggregation for admin reporting.
func (c *Core) EventSummary(eventId int64) (*entity.RatingSummary, error) {
	return c.db.RatingSummary(eventId)
}
