package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Admin decisions on a relayed payment receipt. The wire tokens are part of
// the callback-data contract and must stay byte-identical:
//
//	stage 1: confirm_payment_<userId>_<eventId>
//	         unclear_payment_<userId>_<eventId>
//	         cancel_payment_<userId>_<eventId>
//	stage 2: the same token prefixed with confirm_
//
// Tokens are parsed once, here, into a tagged Action; handlers never split
// callback strings themselves.
type ActionKind string

const (
	ActionConfirm ActionKind = "confirm_payment"
	ActionUnclear ActionKind = "unclear_payment"
	ActionCancel  ActionKind = "cancel_payment"
)

// Action is a decoded payment-decision callback. Final marks the second,
// confirming tap; a first tap only stages the decision.
type Action struct {
	Kind    ActionKind
	UserId  int64
	EventId int64
	Final   bool
}

var actionKinds = []ActionKind{ActionConfirm, ActionUnclear, ActionCancel}

// IsActionToken reports whether data is a payment-decision callback token.
func IsActionToken(data string) bool {
	_, err := ParseAction(data)
	return err == nil
}

// ParseAction decodes a stage-1 or stage-2 payment callback token.
func ParseAction(data string) (*Action, error) {
	action := &Action{}
	rest := ""
	for _, kind := range actionKinds {
		if s, ok := strings.CutPrefix(data, "confirm_"+string(kind)+"_"); ok {
			action.Kind = kind
			action.Final = true
			rest = s
			break
		}
		if s, ok := strings.CutPrefix(data, string(kind)+"_"); ok {
			action.Kind = kind
			rest = s
			break
		}
	}
	if action.Kind == "" {
		return nil, fmt.Errorf("not a payment action token: %q", data)
	}

	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed payment action token: %q", data)
	}
	userId, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in token %q: %w", data, err)
	}
	eventId, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid event id in token %q: %w", data, err)
	}
	action.UserId = userId
	action.EventId = eventId
	return action, nil
}

// Token renders the stage-1 callback data for this action.
func (a *Action) Token() string {
	return fmt.Sprintf("%s_%d_%d", a.Kind, a.UserId, a.EventId)
}

// ConfirmToken renders the stage-2 callback data: the stage-1 token with the
// confirm_ prefix.
func (a *Action) ConfirmToken() string {
	return "confirm_" + a.Token()
}

// RatingToken renders a survey button token: rate_<eventId>_<score>.
func RatingToken(eventId int64, score int) string {
	return fmt.Sprintf("rate_%d_%d", eventId, score)
}

// ParseRating decodes rate_<eventId>_<1..5>.
func ParseRating(data string) (eventId int64, score int, err error) {
	rest, ok := strings.CutPrefix(data, "rate_")
	if !ok {
		return 0, 0, fmt.Errorf("not a rating token: %q", data)
	}
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed rating token: %q", data)
	}
	eventId, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid event id in token %q: %w", data, err)
	}
	score, err = strconv.Atoi(parts[1])
	if err != nil || score < 1 || score > 5 {
		return 0, 0, fmt.Errorf("rating out of range in token %q", data)
	}
	return eventId, score, nil
}
