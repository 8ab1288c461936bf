package entity

import "time"

// EventRating is a 1-5 satisfaction score, one row per (user, event).
// Resubmission overwrites the earlier score.
type EventRating struct {
	RatingId    int64     `json:"rating_id" bson:"rating_id"`
	UserId      int64     `json:"user_id" bson:"user_id"`
	EventId     int64     `json:"event_id" bson:"event_id"`
	Rating      int       `json:"rating" bson:"rating"`
	SubmittedAt time.Time `json:"submitted_at" bson:"submitted_at"`
}

// RatingSummary is the aggregation posted to the operator group after the
// survey window closes.
type RatingSummary struct {
	EventId int64   `json:"event_id" bson:"event_id"`
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}
