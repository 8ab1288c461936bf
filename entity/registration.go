package entity

import "time"

// Registration links a user to an event. At most one row may exist per
// (user, event) pair; the store enforces this with a unique key.
type Registration struct {
	RegistrationId int64     `json:"registration_id" bson:"registration_id"`
	UserId         int64     `json:"user_id" bson:"user_id"`
	EventId        int64     `json:"event_id" bson:"event_id"`
	RegisteredAt   time.Time `json:"registered_at" bson:"registered_at"`
}
