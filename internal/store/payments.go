package store

import (
	"chembot/entity"
	"fmt"
)

// CreatePayment appends a confirmed-payment ledger entry.
func (s *MySql) CreatePayment(userId, eventId, amount int64) error {
	query := fmt.Sprintf(
		`INSERT INTO %spayments (user_id, event_id, amount, confirmed_at) VALUES (?, ?, ?, ?)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("createPayment", query)
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(userId, eventId, amount, s.now()); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// EventPayments lists the ledger for one event, oldest first.
func (s *MySql) EventPayments(eventId int64) ([]*entity.Payment, error) {
	query := fmt.Sprintf(
		`SELECT payment_id, user_id, event_id, amount, confirmed_at
		 FROM %spayments WHERE event_id = ? ORDER BY confirmed_at`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("eventPayments", query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(eventId)
	if err != nil {
		return nil, fmt.Errorf("event payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		var p entity.Payment
		if err = rows.Scan(&p.PaymentId, &p.UserId, &p.EventId, &p.Amount, &p.ConfirmedAt); err != nil {
			return nil, fmt.Errorf("event payments scan: %w", err)
		}
		payments = append(payments, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// EventRevenue sums confirmed payments for one event.
func (s *MySql) EventRevenue(eventId int64) (int64, error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(SUM(amount), 0) FROM %spayments WHERE event_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("eventRevenue", query)
	if err != nil {
		return 0, err
	}
	var total int64
	if err = stmt.QueryRow(eventId).Scan(&total); err != nil {
		return 0, fmt.Errorf("event revenue: %w", err)
	}
	return total, nil
}
