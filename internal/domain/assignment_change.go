package domain

import "time"

// ChangeRequestStatus enumerates the states of an assignment-change request.
type ChangeRequestStatus string

const (
	ChangeStatusPending  ChangeRequestStatus = "pending"
	ChangeStatusApproved ChangeRequestStatus = "approved"
	ChangeStatusRejected ChangeRequestStatus = "rejected"
)

// AssignmentChangeRequest proposes a reassignment of a service request,
// subject to manager review. At most one pending row may exist per request.
// A nil RequestedAssigneeID means "unassign". Once reviewed it is terminal.
type AssignmentChangeRequest struct {
	ID                  string
	RequestID           string
	RequestedBy         string
	CurrentAssigneeID   *string
	RequestedAssigneeID *string
	Reason              string
	Status              ChangeRequestStatus
	ReviewedBy          *string
	ReviewComment       *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
