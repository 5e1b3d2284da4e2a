package transport

import (
	"time"

	"github.com/google/uuid"
)

// AssignRequest is the request body for assigning a technician to a client.
type AssignRequest struct {
	ClientID uuid.UUID `json:"client_id" validate:"required"`
	PcoID    uuid.UUID `json:"pco_id" validate:"required"`
}

// ListAssignmentsRequest is the query for an assignment history.
type ListAssignmentsRequest struct {
	ClientID string `form:"client_id" validate:"required,uuid"`
}

// AssignmentResponse is a stored assignment row.
type AssignmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     uuid.UUID  `json:"client_id"`
	PcoID        uuid.UUID  `json:"pco_id"`
	AssignedBy   *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at,omitempty"`
	UnassignedBy *uuid.UUID `json:"unassigned_by,omitempty"`
	Status       string     `json:"status"`
}

// AssignmentListResponse wraps an assignment history.
type AssignmentListResponse struct {
	Items []AssignmentResponse `json:"items"`
}
