package entity

import "time"

// Payment is an append-only ledger entry written when an admin finalizes a
// paid registration. It is audit data, not a balance.
type Payment struct {
	PaymentId   int64     `json:"payment_id" bson:"payment_id"`
	UserId      int64     `json:"user_id" bson:"user_id"`
	EventId     int64     `json:"event_id" bson:"event_id"`
	Amount      int64     `json:"amount" bson:"amount"`
	ConfirmedAt time.Time `json:"confirmed_at" bson:"confirmed_at"`
}
