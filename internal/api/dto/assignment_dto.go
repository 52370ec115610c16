package dto

import (
	"time"

	"github.com/spec-kit/service-queue/internal/domain"
)

// CreateAssignmentChangePayload proposes a reassignment. A nil requested
// assignee proposes unassignment.
type CreateAssignmentChangePayload struct {
	RequestedAssigneeID *string `json:"requested_assignee_id"`
	Reason              string  `json:"reason" validate:"required"`
}

// ReviewAssignmentChangePayload settles a pending proposal.
type ReviewAssignmentChangePayload struct {
	Action  string  `json:"action" validate:"required,oneof=approve reject"`
	Comment *string `json:"comment"`
}

// AssignmentChangeResponse projection.
type AssignmentChangeResponse struct {
	ID                  string                     `json:"id"`
	RequestID           string                     `json:"request_id"`
	RequestedBy         string                     `json:"requested_by"`
	CurrentAssigneeID   *string                    `json:"current_assignee_id"`
	RequestedAssigneeID *string                    `json:"requested_assignee_id"`
	Reason              string                     `json:"reason"`
	Status              domain.ChangeRequestStatus `json:"status"`
	ReviewedBy          *string                    `json:"reviewed_by"`
	ReviewComment       *string                    `json:"review_comment"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}
