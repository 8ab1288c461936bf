package entity

import "time"

// MessageType tags entries in the operator-message log.
type MessageType string

const (
	MessageRegistration MessageType = "registration"
	MessageFinalList    MessageType = "final_list"
	MessagePayment      MessageType = "payment"
	MessageSurvey       MessageType = "survey"
)

// OperatorMessage records every message relayed to the operator group,
// keyed by the Telegram message id. Kept for audit; the payment flow also
// uses the message id to locate its PaymentRequest.
type OperatorMessage struct {
	MessageId int64       `json:"message_id" bson:"message_id"`
	ChatId    int64       `json:"chat_id" bson:"chat_id"`
	UserId    int64       `json:"user_id" bson:"user_id"`
	EventId   int64       `json:"event_id" bson:"event_id"`
	Type      MessageType `json:"message_type" bson:"message_type"`
	SentAt    time.Time   `json:"sent_at" bson:"sent_at"`
}
