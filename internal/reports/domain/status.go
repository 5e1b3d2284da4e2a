// Package domain provides the core business rules for the reports bounded
// context: the status machine, submission completeness, equipment
// classification and sub-entity diff planning. Nothing here touches storage.
package domain

import "slices"

// Status is a report's lifecycle state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusDeclined Status = "declined"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// Action is an operation that is gated on the report's current status.
type Action string

const (
	ActionUpdate       Action = "update"
	ActionSubmit       Action = "submit"
	ActionApprove      Action = "approve"
	ActionDecline      Action = "decline"
	ActionForceDecline Action = "force_decline"
	ActionArchive      Action = "archive"
	ActionDelete       Action = "delete"
	ActionResubmit     Action = "resubmit"
	ActionAdminEdit    Action = "admin_edit"
)

var allowedFrom = map[Action][]Status{
	ActionUpdate:       {StatusDraft, StatusDeclined},
	ActionSubmit:       {StatusDraft, StatusDeclined},
	ActionApprove:      {StatusDraft, StatusPending},
	ActionDecline:      {StatusDraft, StatusPending},
	ActionForceDecline: {StatusDraft, StatusPending},
	ActionArchive:      {StatusDraft, StatusPending, StatusDeclined, StatusApproved},
	ActionDelete:       {StatusDraft},
	ActionResubmit:     {StatusDeclined},
	ActionAdminEdit:    {StatusDraft, StatusPending, StatusDeclined},
}

var targetOf = map[Action]Status{
	ActionSubmit:       StatusPending,
	ActionApprove:      StatusApproved,
	ActionDecline:      StatusDeclined,
	ActionForceDecline: StatusDeclined,
	ActionArchive:      StatusArchived,
	ActionResubmit:     StatusPending,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusDeclined, StatusApproved, StatusArchived:
		return true
	}
	return false
}

// IsOpen reports whether the report still blocks a new draft for the same
// client and technician.
func (s Status) IsOpen() bool {
	return s == StatusDraft || s == StatusPending
}

// Allows reports whether action may run while the report is in status s.
func (s Status) Allows(action Action) bool {
	return slices.Contains(allowedFrom[action], s)
}

// AllowedFrom returns the statuses from which action may run. The result is
// a copy and safe to pass to a conditional UPDATE.
func AllowedFrom(action Action) []Status {
	return slices.Clone(allowedFrom[action])
}

// Target returns the status an action moves the report to. ok is false for
// actions that keep the status (edits) or remove the report (delete).
func Target(action Action) (Status, bool) {
	s, ok := targetOf[action]
	return s, ok
}

// ReportType classifies what service was performed.
type ReportType string

const (
	ReportTypeBaitInspection ReportType = "bait_inspection"
	ReportTypeFumigation     ReportType = "fumigation"
	ReportTypeBoth           ReportType = "both"
)

// IsValid reports whether t is a known report type.
func (t ReportType) IsValid() bool {
	return t == ReportTypeBaitInspection || t == ReportTypeFumigation || t == ReportTypeBoth
}

// IncludesBait reports whether bait stations are part of the report.
func (t ReportType) IncludesBait() bool {
	return t == ReportTypeBaitInspection || t == ReportTypeBoth
}

// IncludesFumigation reports whether fumigation data is part of the report.
func (t ReportType) IncludesFumigation() bool {
	return t == ReportTypeFumigation || t == ReportTypeBoth
}
