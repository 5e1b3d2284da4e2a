// Package domain defines technician-to-client assignments and the outcomes
// of the report-driven transitions applied to them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status of an assignment row. At most one row per client is active.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Assignment links a technician to a client site.
type Assignment struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	PcoID        uuid.UUID
	AssignedBy   *uuid.UUID
	AssignedAt   time.Time
	UnassignedAt *time.Time
	UnassignedBy *uuid.UUID
	Status       Status
}

// IsActive reports whether the row is the client's current assignment.
func (a Assignment) IsActive() bool {
	return a.Status == StatusActive
}

// DeclineOutcome is the result of restoring a technician's assignment when
// their report is declined. It is either DeclineRestored or DeclineConflict.
type DeclineOutcome interface {
	isDeclineOutcome()
}

// RestoreAction says how the assignment was restored.
type RestoreAction string

const (
	RestoreKept        RestoreAction = "kept"
	RestoreReactivated RestoreAction = "reactivated"
	RestoreCreated     RestoreAction = "created"
)

// DeclineRestored means the original technician holds the active assignment.
type DeclineRestored struct {
	Assignment Assignment
	Action     RestoreAction
}

// DeclineConflict means the client now belongs to another technician and an
// administrator must reassign explicitly.
type DeclineConflict struct {
	CurrentPcoID  uuid.UUID
	OriginalPcoID uuid.UUID
}

func (DeclineRestored) isDeclineOutcome() {}
func (DeclineConflict) isDeclineOutcome() {}
