package events

import (
	"time"

	"github.com/spec-kit/service-queue/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated            EventType = "request_created"
	EventRequestUpdated            EventType = "request_updated"
	EventRequestAssigned           EventType = "request_assigned"
	EventNoteAdded                 EventType = "note_added"
	EventAttachmentUploaded        EventType = "attachment_uploaded"
	EventAssignmentChangeRequested EventType = "assignment_change_requested"
	EventAssignmentChangeReviewed  EventType = "assignment_change_reviewed"
	EventUserChanged               EventType = "user_changed"
	EventCompanyChanged            EventType = "company_changed"
)

// Event represents a domain event emitted by services. RequestID is empty for
// administrative (user/company) events.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	RequestID string       `json:"request_id,omitempty"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	QueueID     string                 `json:"queue_id"`
	InsuredName string                 `json:"insured_name"`
	Category    domain.RequestCategory `json:"category"`
	CompanyID   string                 `json:"company_id"`
	AssignedTo  *string                `json:"assigned_to,omitempty"`
}

// RequestUpdatedPayload carries the changed-field diff. OldStatus/NewStatus
// are set only when the task status changed.
type RequestUpdatedPayload struct {
	QueueID   string             `json:"queue_id"`
	Diff      map[string]any     `json:"diff"`
	OldStatus *domain.TaskStatus `json:"old_status,omitempty"`
	NewStatus *domain.TaskStatus `json:"new_status,omitempty"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	QueueID    string  `json:"queue_id"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	QueueID     string `json:"queue_id"`
	NoteID      string `json:"note_id"`
	AuthorID    string `json:"author_id"`
	Internal    bool   `json:"internal"`
	BodyPreview string `json:"body_preview"`
}

// AttachmentUploadedPayload payload.
type AttachmentUploadedPayload struct {
	QueueID      string `json:"queue_id"`
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
	UploadedBy   string `json:"uploaded_by"`
}

// AssignmentChangeRequestedPayload payload.
type AssignmentChangeRequestedPayload struct {
	QueueID             string  `json:"queue_id"`
	ChangeRequestID     string  `json:"change_request_id"`
	RequestedBy         string  `json:"requested_by"`
	CurrentAssigneeID   *string `json:"current_assignee_id,omitempty"`
	RequestedAssigneeID *string `json:"requested_assignee_id,omitempty"`
	Reason              string  `json:"reason"`
}

// AssignmentChangeReviewedPayload payload.
type AssignmentChangeReviewedPayload struct {
	QueueID             string                     `json:"queue_id"`
	ChangeRequestID     string                     `json:"change_request_id"`
	RequestedBy         string                     `json:"requested_by"`
	RequestedAssigneeID *string                    `json:"requested_assignee_id,omitempty"`
	Outcome             domain.ChangeRequestStatus `json:"outcome"`
	Comment             *string                    `json:"comment,omitempty"`
}

// UserChangedPayload covers user administrative changes.
type UserChangedPayload struct {
	TargetUserID string      `json:"target_user_id"`
	Action       string      `json:"action"`
	Role         domain.Role `json:"role"`
}

// CompanyChangedPayload covers company administrative changes.
type CompanyChangedPayload struct {
	CompanyID string `json:"company_id"`
	Action    string `json:"action"`
}
