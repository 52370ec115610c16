package domain

import "time"

// ActivityType enumerates audit-trail entry kinds. Smaller than the
// notification enumeration: audit rows describe actions, not deliveries.
type ActivityType string

const (
	ActivityRequestCreated           ActivityType = "request_created"
	ActivityRequestUpdated           ActivityType = "request_updated"
	ActivityStatusChanged            ActivityType = "status_changed"
	ActivityRequestAssigned          ActivityType = "request_assigned"
	ActivityNoteAdded                ActivityType = "note_added"
	ActivityAttachmentUploaded       ActivityType = "attachment_uploaded"
	ActivityAssignmentChangeCreated  ActivityType = "assignment_change_requested"
	ActivityAssignmentChangeReviewed ActivityType = "assignment_change_reviewed"
	ActivityUserChanged              ActivityType = "user_changed"
	ActivityCompanyChanged           ActivityType = "company_changed"
)

// ActivityLog is an append-only audit entry attributed to the acting user.
// The core never mutates or deletes these rows.
type ActivityLog struct {
	ID          string
	UserID      string
	CompanyID   *string
	Type        ActivityType
	Description string
	RequestID   *string
	Metadata    map[string]any
	CreatedAt   time.Time
}
