package domain

import "time"

// NotificationType enumerates supported in-app notification kinds.
type NotificationType string

const (
	NotifRequestCreated            NotificationType = "request_created"
	NotifRequestUpdated            NotificationType = "request_updated"
	NotifStatusChanged             NotificationType = "status_changed"
	NotifRequestAssigned           NotificationType = "request_assigned"
	NotifRequestUnassigned         NotificationType = "request_unassigned"
	NotifRequestClosed             NotificationType = "request_closed"
	NotifRequestReopened           NotificationType = "request_reopened"
	NotifDueDateChanged            NotificationType = "due_date_changed"
	NotifDueDateReminder           NotificationType = "due_date_reminder"
	NotifNoteAdded                 NotificationType = "note_added"
	NotifInternalNoteAdded         NotificationType = "internal_note_added"
	NotifAttachmentUploaded        NotificationType = "attachment_uploaded"
	NotifAssignmentChangeRequested NotificationType = "assignment_change_requested"
	NotifAssignmentChangeApproved  NotificationType = "assignment_change_approved"
	NotifAssignmentChangeRejected  NotificationType = "assignment_change_rejected"
	NotifUserCreated               NotificationType = "user_created"
	NotifUserUpdated               NotificationType = "user_updated"
	NotifUserDeactivated           NotificationType = "user_deactivated"
	NotifCompanyUpdated            NotificationType = "company_updated"
	NotifPasswordChanged           NotificationType = "password_changed"
)

// Notification is an in-app inbox entry owned by the recipient. Only the
// read flag ever changes after insert.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Metadata  map[string]any
	Read      bool
	CreatedAt time.Time
}
