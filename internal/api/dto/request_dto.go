package dto

import (
	"time"

	"github.com/spec-kit/service-queue/internal/domain"
)

// CreateRequestPayload is the JSON body for request creation. Multipart
// creation carries the same fields as form values plus file parts.
type CreateRequestPayload struct {
	InsuredName string  `json:"insured_name" validate:"required"`
	Narrative   string  `json:"narrative" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	AssignedBy  string  `json:"assigned_by" validate:"required"`
	AssignedTo  *string `json:"assigned_to"`
	CompanyID   *string `json:"company_id"`
	DueDate     *string `json:"due_date"`
	DueTime     *string `json:"due_time"`
}

// UpdateRequestPayload is a partial update. Clear flags distinguish "set to
// null" from "leave unchanged".
type UpdateRequestPayload struct {
	InsuredName      *string  `json:"insured_name"`
	Narrative        *string  `json:"narrative"`
	Category         *string  `json:"category"`
	TaskStatus       *string  `json:"task_status"`
	AssignedTo       *string  `json:"assigned_to"`
	ClearAssignee    bool     `json:"clear_assignee"`
	DueDate          *string  `json:"due_date"`
	ClearDueDate     bool     `json:"clear_due_date"`
	DueTime          *string  `json:"due_time"`
	TimeSpentMinutes *float64 `json:"time_spent_minutes"`
}

// CreateNotePayload appends an annotation.
type CreateNotePayload struct {
	Body     string `json:"body" validate:"required"`
	Internal bool   `json:"internal"`
}

// RequestSummary is the list-view projection.
type RequestSummary struct {
	ID          string                 `json:"id"`
	QueueID     string                 `json:"queue_id"`
	InsuredName string                 `json:"insured_name"`
	Category    domain.RequestCategory `json:"category"`
	CompanyID   string                 `json:"company_id"`
	AssignedBy  string                 `json:"assigned_by"`
	AssignedTo  *string                `json:"assigned_to"`
	TaskStatus  domain.TaskStatus      `json:"task_status"`
	DueDate     *time.Time             `json:"due_date"`
	DueTime     *string                `json:"due_time"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// RequestDetailResponse is the full projection with notes and attachments.
type RequestDetailResponse struct {
	RequestSummary
	Narrative        string               `json:"narrative"`
	InProgressAt     *time.Time           `json:"in_progress_at"`
	ClosedAt         *time.Time           `json:"closed_at"`
	TimeSpentMinutes *float64             `json:"time_spent_minutes"`
	ModifiedBy       *string              `json:"modified_by"`
	Notes            []NoteResponse       `json:"notes"`
	Attachments      []AttachmentResponse `json:"attachments"`
}

// NoteResponse projection.
type NoteResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentResponse projection.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}
