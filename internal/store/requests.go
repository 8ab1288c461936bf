package store

import (
	"chembot/entity"
	"database/sql"
	"errors"
	"fmt"
)

// CreatePaymentRequest records a relayed receipt awaiting an admin decision.
// Keyed by the message id of the relayed notice in the operator group.
func (s *MySql) CreatePaymentRequest(req *entity.PaymentRequest) error {
	query := fmt.Sprintf(
		`INSERT INTO %spayment_requests (message_id, user_id, event_id, amount, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("createPaymentRequest", query)
	if err != nil {
		return err
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	res, err := stmt.Exec(req.MessageId, req.UserId, req.EventId, req.Amount, entity.RequestPending, createdAt)
	if isDuplicateKey(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create payment request: %w", err)
	}
	req.Status = entity.RequestPending
	req.RequestId, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create payment request id: %w", err)
	}
	return nil
}

// PaymentRequestByMessage resolves the request an admin tapped on.
func (s *MySql) PaymentRequestByMessage(messageId int64) (*entity.PaymentRequest, error) {
	query := fmt.Sprintf(
		`SELECT request_id, message_id, user_id, event_id, amount, status, created_at, decided_by, decided_at
		 FROM %spayment_requests WHERE message_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("paymentRequestByMessage", query)
	if err != nil {
		return nil, err
	}
	var req entity.PaymentRequest
	var decidedAt sql.NullTime
	err = stmt.QueryRow(messageId).Scan(
		&req.RequestId,
		&req.MessageId,
		&req.UserId,
		&req.EventId,
		&req.Amount,
		&req.Status,
		&req.CreatedAt,
		&req.DecidedBy,
		&decidedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payment request by message: %w", err)
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	return &req, nil
}

// PendingPaymentRequest finds the open request for a user/event pair.
func (s *MySql) PendingPaymentRequest(userId, eventId int64) (*entity.PaymentRequest, error) {
	query := fmt.Sprintf(
		`SELECT request_id, message_id, user_id, event_id, amount, status, created_at, decided_by, decided_at
		 FROM %spayment_requests WHERE user_id = ? AND event_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("pendingPaymentRequest", query)
	if err != nil {
		return nil, err
	}
	var req entity.PaymentRequest
	var decidedAt sql.NullTime
	err = stmt.QueryRow(userId, eventId, entity.RequestPending).Scan(
		&req.RequestId,
		&req.MessageId,
		&req.UserId,
		&req.EventId,
		&req.Amount,
		&req.Status,
		&req.CreatedAt,
		&req.DecidedBy,
		&decidedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pending payment request: %w", err)
	}
	if decidedAt.Valid {
		req.DecidedAt = &decidedAt.Time
	}
	return &req, nil
}

// FinalizePaymentRequest moves a request from pending to its terminal status.
// The transition is a conditional UPDATE: if another admin got there first
// the row count is zero and ErrAlreadyProcessed comes back, so exactly one
// decision wins.
func (s *MySql) FinalizePaymentRequest(requestId int64, status entity.RequestStatus, decidedBy int64) error {
	query := fmt.Sprintf(
		`UPDATE %spayment_requests SET status = ?, decided_by = ?, decided_at = ?
		 WHERE request_id = ? AND status = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("finalizePaymentRequest", query)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(status, decidedBy, s.now(), requestId, entity.RequestPending)
	if err != nil {
		return fmt.Errorf("finalize payment request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize payment request: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}
