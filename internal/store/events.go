package store

import (
	"chembot/entity"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Catalog columns an admin may edit after creation. Anything else is either
// immutable or owned by the registration flow.
var allowedEventFields = map[string]bool{
	"title":       true,
	"description": true,
	"cost":        true,
	"date":        true,
	"location":    true,
	"capacity":    true,
	"hashtag":     true,
	"type":        true,
	"is_active":   true,
}

// AllowedEventField reports whether admins may edit the named column.
func AllowedEventField(field string) bool {
	return allowedEventFields[field]
}

const eventColumns = `event_id, title, type, date, location, capacity, current_capacity,
	description, is_active, hashtag, cost, card_number, deactivation_reason,
	feedback_sent_at, summary_sent_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*entity.Event, error) {
	var event entity.Event
	var feedbackAt, summaryAt sql.NullTime
	err := row.Scan(
		&event.EventId,
		&event.Title,
		&event.Type,
		&event.Date,
		&event.Location,
		&event.Capacity,
		&event.CurrentCapacity,
		&event.Description,
		&event.IsActive,
		&event.Hashtag,
		&event.Cost,
		&event.CardNumber,
		&event.DeactivationReason,
		&feedbackAt,
		&summaryAt,
	)
	if err != nil {
		return nil, err
	}
	if feedbackAt.Valid {
		event.FeedbackSentAt = &feedbackAt.Time
	}
	if summaryAt.Valid {
		event.SummarySentAt = &summaryAt.Time
	}
	return &event, nil
}

// CreateEvent inserts a catalog entry and fills in its assigned id.
func (s *MySql) CreateEvent(event *entity.Event) error {
	query := fmt.Sprintf(
		`INSERT INTO %sevents (title, type, date, location, capacity, current_capacity,
		 description, is_active, hashtag, cost, card_number, deactivation_reason)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, '')`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("createEvent", query)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(
		event.Title,
		event.Type,
		event.Date,
		event.Location,
		event.Capacity,
		event.Description,
		event.IsActive,
		event.Hashtag,
		event.Cost,
		event.CardNumber,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	event.EventId, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create event id: %w", err)
	}
	return nil
}

func (s *MySql) GetEvent(eventId int64) (*entity.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM %sevents WHERE event_id = ?`, eventColumns, s.prefix)
	stmt, err := s.prepareStmt("getEvent", query)
	if err != nil {
		return nil, err
	}
	event, err := scanEvent(stmt.QueryRow(eventId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ActiveEvents lists the catalog shown to users, newest date first.
func (s *MySql) ActiveEvents() ([]*entity.Event, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %sevents WHERE is_active = 1 ORDER BY date DESC`,
		eventColumns, s.prefix,
	)
	return s.queryEvents("activeEvents", query)
}

// AllEvents lists the full catalog for admins, newest date first.
func (s *MySql) AllEvents() ([]*entity.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM %sevents ORDER BY date DESC`, eventColumns, s.prefix)
	return s.queryEvents("allEvents", query)
}

func (s *MySql) queryEvents(name, query string, args ...interface{}) ([]*entity.Event, error) {
	stmt, err := s.prepareStmt(name, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", name, err)
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateEventField updates a single allow-listed catalog column.
func (s *MySql) UpdateEventField(eventId int64, field string, value interface{}) error {
	if !allowedEventFields[field] {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	query := fmt.Sprintf("UPDATE %sevents SET `%s` = ? WHERE event_id = ?", s.prefix, field)
	stmt, err := s.prepareStmt("updateEvent_"+field, query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(value, eventId)
	if err != nil {
		return fmt.Errorf("update event %s: %w", field, err)
	}
	return nil
}

// ReserveSeat takes one seat, conditional on space remaining. The check and
// the increment are a single UPDATE so concurrent registrations cannot both
// claim the last seat. Unlimited events always succeed. Returns false when
// the event is full or unknown.
func (s *MySql) ReserveSeat(eventId int64) (bool, error) {
	query := fmt.Sprintf(
		`UPDATE %sevents SET current_capacity = current_capacity + 1
		 WHERE event_id = ? AND (type = ? OR current_capacity < capacity)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("reserveSeat", query)
	if err != nil {
		return false, err
	}
	res, err := stmt.Exec(eventId, entity.TypeCourse)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	return affected > 0, nil
}

// ReleaseSeat gives a seat back, never dropping below zero.
func (s *MySql) ReleaseSeat(eventId int64) error {
	query := fmt.Sprintf(
		`UPDATE %sevents SET current_capacity = current_capacity - 1
		 WHERE event_id = ? AND current_capacity > 0`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("releaseSeat", query)
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(eventId); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

// DeactivateEvent hides an event from the catalog, keeping the reason.
func (s *MySql) DeactivateEvent(eventId int64, reason string) error {
	query := fmt.Sprintf(
		`UPDATE %sevents SET is_active = 0, deactivation_reason = ? WHERE event_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("deactivateEvent", query)
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(reason, eventId); err != nil {
		return fmt.Errorf("deactivate event: %w", err)
	}
	return nil
}

// ActivateEvent returns an event to the catalog and clears the reason.
func (s *MySql) ActivateEvent(eventId int64) error {
	query := fmt.Sprintf(
		`UPDATE %sevents SET is_active = 1, deactivation_reason = '' WHERE event_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("activateEvent", query)
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(eventId); err != nil {
		return fmt.Errorf("activate event: %w", err)
	}
	return nil
}

// MarkFeedbackSent records that survey invitations went out for an event.
func (s *MySql) MarkFeedbackSent(eventId int64) error {
	return s.markEventTime("feedback_sent_at", eventId)
}

// MarkSummarySent records that the rating summary was posted.
func (s *MySql) MarkSummarySent(eventId int64) error {
	return s.markEventTime("summary_sent_at", eventId)
}

func (s *MySql) markEventTime(column string, eventId int64) error {
	query := fmt.Sprintf(`UPDATE %sevents SET %s = ? WHERE event_id = ?`, s.prefix, column)
	stmt, err := s.prepareStmt("markEvent_"+column, query)
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(s.now(), eventId); err != nil {
		return fmt.Errorf("mark event %s: %w", column, err)
	}
	return nil
}

// EventsAwaitingFeedback returns finished events, past-date and deactivated,
// whose survey invitations have not been sent yet.
func (s *MySql) EventsAwaitingFeedback(today string) ([]*entity.Event, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %sevents WHERE date < ? AND is_active = 0 AND feedback_sent_at IS NULL ORDER BY date DESC`,
		eventColumns, s.prefix,
	)
	return s.queryEvents("eventsAwaitingFeedback", query, today)
}

// EventsAwaitingSummary returns events whose survey is out but whose rating
// summary has not been posted. Used to re-arm timers after a restart.
func (s *MySql) EventsAwaitingSummary() ([]*entity.Event, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %sevents WHERE feedback_sent_at IS NOT NULL AND summary_sent_at IS NULL`,
		eventColumns, s.prefix,
	)
	return s.queryEvents("eventsAwaitingSummary", query)
}

// SearchEvents matches a title or hashtag fragment, admin tooling only.
func (s *MySql) SearchEvents(term string) ([]*entity.Event, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %sevents WHERE title LIKE ? OR hashtag LIKE ? ORDER BY date DESC`,
		eventColumns, s.prefix,
	)
	like := "%" + strings.TrimSpace(term) + "%"
	return s.queryEvents("searchEvents", query, like, like)
}
