package store

import (
	"chembot/entity"
	"fmt"
)

// UpsertRating stores a 1-5 score; a resubmission replaces the earlier one.
func (s *MySql) UpsertRating(userId, eventId int64, rating int) error {
	query := fmt.Sprintf(
		`INSERT INTO %sevent_ratings (user_id, event_id, rating, submitted_at)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE rating = VALUES(rating), submitted_at = VALUES(submitted_at)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("upsertRating", query)
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(userId, eventId, rating, s.now()); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// RatingSummary aggregates the scores collected for one event.
func (s *MySql) RatingSummary(eventId int64) (*entity.RatingSummary, error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM %sevent_ratings WHERE event_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("ratingSummary", query)
	if err != nil {
		return nil, err
	}
	summary := entity.RatingSummary{EventId: eventId}
	if err = stmt.QueryRow(eventId).Scan(&summary.Average, &summary.Count); err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return &summary, nil
}
