package domain

import (
	"fmt"
	"time"
)

// RequestCategory classifies what a service request concerns.
type RequestCategory string

const (
	CategoryPolicyInquiry    RequestCategory = "policy_inquiry"
	CategoryClaimsProcessing RequestCategory = "claims_processing"
	CategoryAccountUpdate    RequestCategory = "account_update"
	CategoryTechnicalSupport RequestCategory = "technical_support"
	CategoryBillingInquiry   RequestCategory = "billing_inquiry"
	CategoryCancelNonRenewal RequestCategory = "insured_service_cancel_non_renewal"
	CategoryOther            RequestCategory = "other"
)

// ParseCategory validates a raw category value.
func ParseCategory(raw string) (RequestCategory, bool) {
	switch RequestCategory(raw) {
	case CategoryPolicyInquiry, CategoryClaimsProcessing, CategoryAccountUpdate,
		CategoryTechnicalSupport, CategoryBillingInquiry, CategoryCancelNonRenewal,
		CategoryOther:
		return RequestCategory(raw), true
	default:
		return "", false
	}
}

// TaskStatus enumerates lifecycle states of a service request. Transitions
// are free-form except that entering closed is guarded and leaving closed
// clears the close timestamp.
type TaskStatus string

const (
	StatusNew        TaskStatus = "new"
	StatusOpen       TaskStatus = "open"
	StatusInProgress TaskStatus = "in_progress"
	StatusClosed     TaskStatus = "closed"
)

// ParseTaskStatus validates a raw status value.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	switch TaskStatus(raw) {
	case StatusNew, StatusOpen, StatusInProgress, StatusClosed:
		return TaskStatus(raw), true
	default:
		return "", false
	}
}

// QueueIDPrefix prefixes every human-facing queue identifier.
const QueueIDPrefix = "ServQUE-"

// NewQueueID generates the human-facing identifier for a service request.
// Millisecond timestamps are treated as unique enough; collisions surface as
// a storage-layer conflict rather than being retried here.
func NewQueueID(now time.Time) string {
	return fmt.Sprintf("%s%d", QueueIDPrefix, now.UnixMilli())
}

// ServiceRequest is the tracked unit of work raised by a customer and worked
// by an agent.
type ServiceRequest struct {
	ID               string
	QueueID          string
	InsuredName      string
	Narrative        string
	Category         RequestCategory
	CompanyID        string
	AssignedBy       string
	AssignedTo       *string
	TaskStatus       TaskStatus
	DueDate          *time.Time
	DueTime          *string
	InProgressAt     *time.Time
	ClosedAt         *time.Time
	TimeSpentMinutes *float64
	ModifiedBy       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RequestNote is an append-only annotation on a service request. Internal
// notes are visible to agency-side roles only.
type RequestNote struct {
	ID        string
	RequestID string
	AuthorID  string
	Body      string
	Internal  bool
	CreatedAt time.Time
}

// RequestAttachment references a stored blob. The blob client owns the bytes;
// this row is immutable metadata.
type RequestAttachment struct {
	ID         string
	RequestID  string
	FileName   string
	FileURL    string
	FileSize   int64
	MimeType   string
	UploadedBy string
	CreatedAt  time.Time
}
