package store

import (
	"chembot/entity"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

const duplicateKeyErr = 1062

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateKeyErr
}

// CreateRegistration records a completed registration. A second registration
// of the same user for the same event hits the unique key and returns
// ErrAlreadyExists.
func (s *MySql) CreateRegistration(userId, eventId int64) error {
	query := fmt.Sprintf(
		`INSERT INTO %sregistrations (user_id, event_id, registered_at) VALUES (?, ?, ?)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("createRegistration", query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(userId, eventId, s.now())
	if isDuplicateKey(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// HasRegistration reports whether a user already holds a seat.
func (s *MySql) HasRegistration(userId, eventId int64) (bool, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %sregistrations WHERE user_id = ? AND event_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("hasRegistration", query)
	if err != nil {
		return false, err
	}
	var count int
	if err = stmt.QueryRow(userId, eventId).Scan(&count); err != nil {
		return false, fmt.Errorf("has registration: %w", err)
	}
	return count > 0, nil
}

// CountRegistrations is the user's ordinal number in the roster.
func (s *MySql) CountRegistrations(eventId int64) (int, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %sregistrations WHERE event_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("countRegistrations", query)
	if err != nil {
		return 0, err
	}
	var count int
	if err = stmt.QueryRow(eventId).Scan(&count); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// EventRegistrants returns the roster with profile details, in registration
// order. Used for the final list and survey fan-out.
func (s *MySql) EventRegistrants(eventId int64) ([]*entity.User, error) {
	query := fmt.Sprintf(
		`SELECT u.user_id, u.full_name, u.national_id, u.student_id, u.phone, u.created_at
		 FROM %sregistrations r
		 JOIN %susers u ON u.user_id = r.user_id
		 WHERE r.event_id = ?
		 ORDER BY r.registered_at`,
		s.prefix, s.prefix,
	)
	stmt, err := s.prepareStmt("eventRegistrants", query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(eventId)
	if err != nil {
		return nil, fmt.Errorf("event registrants: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var user entity.User
		if err = rows.Scan(
			&user.UserId,
			&user.FullName,
			&user.NationalId,
			&user.StudentId,
			&user.Phone,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("event registrants scan: %w", err)
		}
		users = append(users, &user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// UserEvents returns the events a user is registered for, newest first.
func (s *MySql) UserEvents(userId int64) ([]*entity.Event, error) {
	query := fmt.Sprintf(
		`SELECT e.%s FROM %sregistrations r
		 JOIN %sevents e ON e.event_id = r.event_id
		 WHERE r.user_id = ?
		 ORDER BY e.date DESC`,
		userEventColumns, s.prefix, s.prefix,
	)
	return s.queryEvents("userEvents", query, userId)
}

// eventColumns with the table alias the join needs.
const userEventColumns = `event_id, e.title, e.type, e.date, e.location, e.capacity, e.current_capacity,
	e.description, e.is_active, e.hashtag, e.cost, e.card_number, e.deactivation_reason,
	e.feedback_sent_at, e.summary_sent_at`
