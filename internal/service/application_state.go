package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/admission-go-api/internal/models"
)

// Trigger names the lifecycle action requesting a status change.
type Trigger string

const (
	TriggerCreate   Trigger = "create"
	TriggerSubmit   Trigger = "submit"
	TriggerFreeze   Trigger = "freeze"
	TriggerUnfreeze Trigger = "unfreeze"
	TriggerReview   Trigger = "review"
)

var (
	// ErrIllegalTransition indicates the requested status change is not permitted.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrIllegalState indicates the application's current status does not allow the action.
	ErrIllegalState = fmt.Errorf("%w: application state does not permit this action", ErrIllegalTransition)
)

// transitions maps trigger -> from -> allowed targets. Creation has no source status.
var transitions = map[Trigger]map[models.ApplicationStatus][]models.ApplicationStatus{
	TriggerCreate: {
		"": {models.ApplicationStatusDraft},
	},
	TriggerSubmit: {
		models.ApplicationStatusDraft: {models.ApplicationStatusSubmitted},
	},
	TriggerFreeze: {
		models.ApplicationStatusSubmitted: {models.ApplicationStatusFrozen},
	},
	TriggerUnfreeze: {
		models.ApplicationStatusFrozen: {models.ApplicationStatusSubmitted},
	},
	TriggerReview: {
		models.ApplicationStatusSubmitted: {
			models.ApplicationStatusUnderReview,
			models.ApplicationStatusApproved,
			models.ApplicationStatusRejected,
		},
		models.ApplicationStatusUnderReview: {
			models.ApplicationStatusUnderReview,
			models.ApplicationStatusApproved,
			models.ApplicationStatusRejected,
		},
		models.ApplicationStatusFrozen: {
			models.ApplicationStatusUnderReview,
		},
	},
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	Trigger Trigger
	From    models.ApplicationStatus
	To      models.ApplicationStatus
}

func (e *TransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "none"
	}
	return fmt.Sprintf("cannot %s application from %s to %s", e.Trigger, from, e.To)
}

// Unwrap reports owner and unfreeze actions as state errors, review actions as transition errors.
func (e *TransitionError) Unwrap() error {
	if e.Trigger == TriggerReview {
		return ErrIllegalTransition
	}
	return ErrIllegalState
}

// CanTransition reports whether trigger may move an application from one status to another.
func CanTransition(trigger Trigger, from, to models.ApplicationStatus) bool {
	for _, allowed := range transitions[trigger][from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(trigger Trigger, from, to models.ApplicationStatus) error {
	if !CanTransition(trigger, from, to) {
		return &TransitionError{Trigger: trigger, From: from, To: to}
	}
	return nil
}
