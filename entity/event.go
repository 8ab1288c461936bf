package entity

import (
	"chembot/lib/validate"
	"net/http"
	"strings"
	"time"
)

// EventType distinguishes unlimited-capacity courses from capacity-limited
// visits. Capacity tracking is meaningless for courses.
type EventType string

const (
	TypeCourse EventType = "course"
	TypeVisit  EventType = "visit"
)

// Event is a catalog entry. Events are never deleted: deactivation is soft,
// with a free-text reason kept while inactive.
type Event struct {
	EventId            int64      `json:"event_id" bson:"event_id"`
	Title              string     `json:"title" bson:"title" validate:"required,min=3"`
	Type               EventType  `json:"type" bson:"type" validate:"required,oneof=course visit"`
	Date               string     `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Location           string     `json:"location" bson:"location" validate:"required,min=5"`
	Capacity           int        `json:"capacity" bson:"capacity"`
	CurrentCapacity    int        `json:"current_capacity" bson:"current_capacity"`
	Description        string     `json:"description" bson:"description" validate:"required,min=10"`
	IsActive           bool       `json:"is_active" bson:"is_active"`
	Hashtag            string     `json:"hashtag" bson:"hashtag"`
	Cost               int64      `json:"cost" bson:"cost"`
	CardNumber         string     `json:"card_number,omitempty" bson:"card_number,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty" bson:"deactivation_reason,omitempty"`
	FeedbackSentAt     *time.Time `json:"feedback_sent_at,omitempty" bson:"feedback_sent_at,omitempty"`
	SummarySentAt      *time.Time `json:"summary_sent_at,omitempty" bson:"summary_sent_at,omitempty"`
}

func (e *Event) Bind(_ *http.Request) error {
	return validate.Struct(e)
}

func (e *Event) Unlimited() bool {
	return e.Type == TypeCourse
}

func (e *Event) Free() bool {
	return e.Cost == 0
}

func (e *Event) Full() bool {
	return !e.Unlimited() && e.CurrentCapacity >= e.Capacity
}

func (e *Event) SeatsLeft() int {
	if e.Unlimited() {
		return 0
	}
	left := e.Capacity - e.CurrentCapacity
	if left < 0 {
		return 0
	}
	return left
}

// TagLine is the operator-channel search key: `#<type> #<hashtag>`.
// Spaces in the hashtag are folded to underscores; downstream tooling greps
// the group history by these tags, so the format is a contract.
func (e *Event) TagLine() string {
	tag := strings.TrimPrefix(e.Hashtag, "#")
	tag = strings.ReplaceAll(tag, " ", "_")
	return "#" + string(e.Type) + " #" + tag
}

// MakeHashtag derives an event hashtag from its title.
func MakeHashtag(title string) string {
	return "#" + strings.Join(strings.Fields(title), "_")
}
