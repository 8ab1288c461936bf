package entity

import "time"

// RequestStatus is the lifecycle of a relayed payment receipt. The guard
// against two admins racing on the same notice is the atomic
// pending → decided transition in the store, not the message text.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestConfirmed RequestStatus = "confirmed"
	RequestUnclear   RequestStatus = "unclear"
	RequestCancelled RequestStatus = "cancelled"
)

// PaymentRequest is created when a user's receipt photo is relayed to the
// operator group, keyed by the relayed message id so admin taps on that
// message resolve to exactly one request.
type PaymentRequest struct {
	RequestId int64         `json:"request_id" bson:"request_id"`
	MessageId int64         `json:"message_id" bson:"message_id"`
	UserId    int64         `json:"user_id" bson:"user_id"`
	EventId   int64         `json:"event_id" bson:"event_id"`
	Amount    int64         `json:"amount" bson:"amount"`
	Status    RequestStatus `json:"status" bson:"status"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	DecidedBy int64         `json:"decided_by,omitempty" bson:"decided_by,omitempty"`
	DecidedAt *time.Time    `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
}

func (r *PaymentRequest) Decided() bool {
	return r.Status != RequestPending
}
