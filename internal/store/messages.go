package store

import (
	"chembot/entity"
	"fmt"
)

// LogOperatorMessage records a message relayed to the operator group.
func (s *MySql) LogOperatorMessage(msg *entity.OperatorMessage) error {
	query := fmt.Sprintf(
		`INSERT INTO %soperator_messages (message_id, chat_id, user_id, event_id, message_type, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("logOperatorMessage", query)
	if err != nil {
		return err
	}
	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = s.now()
	}
	if _, err = stmt.Exec(msg.MessageId, msg.ChatId, msg.UserId, msg.EventId, msg.Type, sentAt); err != nil {
		return fmt.Errorf("log operator message: %w", err)
	}
	return nil
}

// EventMessages lists the relay log for one event, oldest first.
func (s *MySql) EventMessages(eventId int64) ([]*entity.OperatorMessage, error) {
	query := fmt.Sprintf(
		`SELECT message_id, chat_id, user_id, event_id, message_type, sent_at
		 FROM %soperator_messages WHERE event_id = ? ORDER BY sent_at`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("eventMessages", query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(eventId)
	if err != nil {
		return nil, fmt.Errorf("event messages: %w", err)
	}
	defer rows.Close()

	var messages []*entity.OperatorMessage
	for rows.Next() {
		var msg entity.OperatorMessage
		if err = rows.Scan(&msg.MessageId, &msg.ChatId, &msg.UserId, &msg.EventId, &msg.Type, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("event messages scan: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
