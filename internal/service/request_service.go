package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/service-queue/internal/blob"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/events"
	"github.com/spec-kit/service-queue/internal/repository"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

// RequestService coordinates the service-request lifecycle: creation, field
// updates with status-transition guards, notes and attachments. Every
// successful mutation publishes exactly one primary event after the row is
// persisted; the fan-out side channel subscribes to those events.
type RequestService struct {
	requests    repository.RequestRepository
	notes       repository.NoteRepository
	attachments repository.AttachmentRepository
	users       repository.UserRepository
	blobs       blob.Client
	dispatcher  events.Dispatcher
	logger      *zap.Logger

	uploadTimeout time.Duration
	now           func() time.Time
}

// RequestDependencies bundles collaborators for the lifecycle manager.
type RequestDependencies struct {
	RequestRepo    repository.RequestRepository
	NoteRepo       repository.NoteRepository
	AttachmentRepo repository.AttachmentRepository
	UserRepo       repository.UserRepository
	BlobClient     blob.Client
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	UploadTimeout  time.Duration
	Now            func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	svc := &RequestService{
		requests:      deps.RequestRepo,
		notes:         deps.NoteRepo,
		attachments:   deps.AttachmentRepo,
		users:         deps.UserRepo,
		blobs:         deps.BlobClient,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		uploadTimeout: deps.UploadTimeout,
		now:           deps.Now,
	}
	if svc.uploadTimeout <= 0 {
		svc.uploadTimeout = 30 * time.Second
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// RequestCreateInput describes creation payload.
type RequestCreateInput struct {
	InsuredName string
	Narrative   string
	Category    string
	AssignedBy  string
	AssignedTo  *string
	CompanyID   *string
	DueDate     *time.Time
	DueTime     *string
	Files       []blob.Upload
}

// RequestUpdateInput carries the mutable field subset. Nil pointers mean
// "leave unchanged"; ClearAssignee distinguishes unassigning from not
// touching the assignee at all.
type RequestUpdateInput struct {
	InsuredName      *string
	Narrative        *string
	Category         *string
	TaskStatus       *string
	AssignedTo       *string
	ClearAssignee    bool
	DueDate          *time.Time
	ClearDueDate     bool
	DueTime          *string
	TimeSpentMinutes *float64
	Files            []blob.Upload
}

// RequestListInput captures listing parameters before role scoping.
type RequestListInput struct {
	Statuses    []string
	Categories  []string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// RequestDetail aggregates a request with its notes and attachments. Internal
// notes are stripped for customer-side viewers.
type RequestDetail struct {
	Request     *domain.ServiceRequest
	Notes       []domain.RequestNote
	Attachments []domain.RequestAttachment
}

// Create validates input, persists a new service request with status new,
// uploads attachments best-effort and publishes the creation event.
func (s *RequestService) Create(ctx context.Context, actor domain.Actor, input RequestCreateInput) (*domain.ServiceRequest, error) {
	insured := strings.TrimSpace(input.InsuredName)
	narrative := strings.TrimSpace(input.Narrative)
	if insured == "" {
		return nil, apperrors.NewValidationError("insured name is required", map[string]any{"field": "insured_name"})
	}
	if narrative == "" {
		return nil, apperrors.NewValidationError("narrative is required", map[string]any{"field": "narrative"})
	}
	category, ok := domain.ParseCategory(input.Category)
	if !ok {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"field": "category", "value": input.Category})
	}

	assignedBy, err := s.users.GetByID(ctx, input.AssignedBy)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if assignedBy.CompanyID == nil && !assignedBy.Role.IsAgentSide() {
		return nil, apperrors.NewValidationError("assigned-by user has no company association", map[string]any{"field": "assigned_by"})
	}

	companyID, err := s.resolveCompany(assignedBy, input.CompanyID, actor)
	if err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		if err := s.validateAssignee(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	modifiedBy := actor.UserID
	request := &domain.ServiceRequest{
		QueueID:     domain.NewQueueID(s.now()),
		InsuredName: insured,
		Narrative:   narrative,
		Category:    category,
		CompanyID:   companyID,
		AssignedBy:  assignedBy.ID,
		AssignedTo:  input.AssignedTo,
		TaskStatus:  domain.StatusNew,
		DueDate:     input.DueDate,
		DueTime:     input.DueTime,
		ModifiedBy:  &modifiedBy,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.uploadFiles(ctx, actor, request, input.Files)

	s.publish(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: request.ID,
		Actor:     actor,
		Payload: events.RequestCreatedPayload{
			QueueID:     request.QueueID,
			InsuredName: request.InsuredName,
			Category:    request.Category,
			CompanyID:   request.CompanyID,
			AssignedTo:  request.AssignedTo,
		},
	})
	if request.AssignedTo != nil {
		s.publish(ctx, events.Event{
			Type:      events.EventRequestAssigned,
			RequestID: request.ID,
			Actor:     actor,
			Payload: events.RequestAssignedPayload{
				QueueID:    request.QueueID,
				AssigneeID: request.AssignedTo,
			},
		})
	}

	return request, nil
}

// Update applies a partial field update, enforcing role gating on assignment
// fields and the status-transition guards, then publishes the diff.
func (s *RequestService) Update(ctx context.Context, actor domain.Actor, requestID string, input RequestUpdateInput) (*domain.ServiceRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.checkAccess(actor, request); err != nil {
		return nil, err
	}

	touchesManaged := input.AssignedTo != nil || input.ClearAssignee ||
		input.DueDate != nil || input.ClearDueDate || input.DueTime != nil
	if touchesManaged && !actor.Role.CanManageAssignment() {
		return nil, apperrors.NewForbidden("only managers may change assignment or due date fields")
	}

	diff := map[string]any{}
	oldStatus := request.TaskStatus
	assigneeChanged := false

	if input.InsuredName != nil {
		insured := strings.TrimSpace(*input.InsuredName)
		if insured == "" {
			return nil, apperrors.NewValidationError("insured name is required", map[string]any{"field": "insured_name"})
		}
		if insured != request.InsuredName {
			request.InsuredName = insured
			diff["insured_name"] = insured
		}
	}
	if input.Narrative != nil {
		narrative := strings.TrimSpace(*input.Narrative)
		if narrative == "" {
			return nil, apperrors.NewValidationError("narrative is required", map[string]any{"field": "narrative"})
		}
		if narrative != request.Narrative {
			request.Narrative = narrative
			diff["narrative"] = narrative
		}
	}
	if input.Category != nil {
		category, ok := domain.ParseCategory(*input.Category)
		if !ok {
			return nil, apperrors.NewValidationError("invalid category", map[string]any{"field": "category", "value": *input.Category})
		}
		if category != request.Category {
			request.Category = category
			diff["category"] = category
		}
	}

	if input.ClearAssignee {
		if request.AssignedTo != nil {
			request.AssignedTo = nil
			assigneeChanged = true
			diff["assigned_to"] = nil
		}
	} else if input.AssignedTo != nil {
		if err := s.validateAssignee(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
		if request.AssignedTo == nil || *request.AssignedTo != *input.AssignedTo {
			request.AssignedTo = input.AssignedTo
			assigneeChanged = true
			diff["assigned_to"] = *input.AssignedTo
		}
	}

	if input.ClearDueDate {
		if request.DueDate != nil {
			request.DueDate = nil
			diff["due_date"] = nil
		}
	} else if input.DueDate != nil {
		if request.DueDate == nil || !request.DueDate.Equal(*input.DueDate) {
			request.DueDate = input.DueDate
			diff["due_date"] = *input.DueDate
		}
	}
	if input.DueTime != nil {
		if request.DueTime == nil || *request.DueTime != *input.DueTime {
			request.DueTime = input.DueTime
			diff["due_time"] = *input.DueTime
		}
	}
	if input.TimeSpentMinutes != nil {
		if request.TimeSpentMinutes == nil || *request.TimeSpentMinutes != *input.TimeSpentMinutes {
			request.TimeSpentMinutes = input.TimeSpentMinutes
			diff["time_spent_minutes"] = *input.TimeSpentMinutes
		}
	}

	statusChanged := false
	if input.TaskStatus != nil {
		newStatus, ok := domain.ParseTaskStatus(*input.TaskStatus)
		if !ok {
			return nil, apperrors.NewValidationError("invalid task status", map[string]any{"field": "task_status", "value": *input.TaskStatus})
		}
		if newStatus != oldStatus {
			if err := s.applyStatusTransition(ctx, request, newStatus); err != nil {
				return nil, err
			}
			statusChanged = true
			diff["task_status"] = newStatus
		}
	}

	if len(diff) == 0 && len(input.Files) == 0 {
		return request, nil
	}

	modifiedBy := actor.UserID
	request.ModifiedBy = &modifiedBy

	if len(diff) > 0 {
		if err := s.requests.Update(ctx, request); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.uploadFiles(ctx, actor, request, input.Files)

	if len(diff) > 0 {
		payload := events.RequestUpdatedPayload{
			QueueID: request.QueueID,
			Diff:    diff,
		}
		if statusChanged {
			old := oldStatus
			updated := request.TaskStatus
			payload.OldStatus = &old
			payload.NewStatus = &updated
		}
		s.publish(ctx, events.Event{
			Type:      events.EventRequestUpdated,
			RequestID: request.ID,
			Actor:     actor,
			Payload:   payload,
		})
		if assigneeChanged && request.AssignedTo != nil {
			s.publish(ctx, events.Event{
				Type:      events.EventRequestAssigned,
				RequestID: request.ID,
				Actor:     actor,
				Payload: events.RequestAssignedPayload{
					QueueID:    request.QueueID,
					AssigneeID: request.AssignedTo,
				},
			})
		}
	}

	return request, nil
}

// AddNote appends an annotation. Internal notes are restricted to agency
// roles; a customer cannot author or read them.
func (s *RequestService) AddNote(ctx context.Context, actor domain.Actor, requestID, body string, internal bool) (*domain.RequestNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("note body is required", map[string]any{"field": "body"})
	}
	if internal && !actor.Role.IsAgentSide() {
		return nil, apperrors.NewForbidden("internal notes are restricted to agency roles")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.checkAccess(actor, request); err != nil {
		return nil, err
	}

	note := &domain.RequestNote{
		RequestID: request.ID,
		AuthorID:  actor.UserID,
		Body:      body,
		Internal:  internal,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventNoteAdded,
		RequestID: request.ID,
		Actor:     actor,
		Payload: events.NoteAddedPayload{
			QueueID:     request.QueueID,
			NoteID:      note.ID,
			AuthorID:    note.AuthorID,
			Internal:    note.Internal,
			BodyPreview: preview(note.Body, 120),
		},
	})
	return note, nil
}

// AddAttachments uploads files best-effort and records metadata for each one
// that stored successfully. A failed upload is skipped, never fatal.
func (s *RequestService) AddAttachments(ctx context.Context, actor domain.Actor, requestID string, files []blob.Upload) ([]domain.RequestAttachment, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.checkAccess(actor, request); err != nil {
		return nil, err
	}

	stored := s.uploadFiles(ctx, actor, request, files)
	return stored, nil
}

// Get loads a request with notes and attachments, scoped to the actor.
func (s *RequestService) Get(ctx context.Context, actor domain.Actor, requestID string) (*RequestDetail, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.checkAccess(actor, request); err != nil {
		return nil, err
	}

	notes, err := s.notes.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.Role.IsAgentSide() {
		visible := make([]domain.RequestNote, 0, len(notes))
		for _, note := range notes {
			if note.Internal {
				continue
			}
			visible = append(visible, note)
		}
		notes = visible
	}

	attachments, err := s.attachments.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &RequestDetail{Request: request, Notes: notes, Attachments: attachments}, nil
}

// List returns requests visible to the actor: customers see their company,
// agents see their own plus unassigned work, managers see everything.
func (s *RequestService) List(ctx context.Context, actor domain.Actor, input RequestListInput) ([]domain.ServiceRequest, error) {
	filter := repository.RequestFilter{
		SearchTerm:  input.SearchTerm,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Limit:       input.Limit,
		Offset:      input.Offset,
	}
	for _, raw := range input.Statuses {
		status, ok := domain.ParseTaskStatus(raw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid task status", map[string]any{"field": "status", "value": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range input.Categories {
		category, ok := domain.ParseCategory(raw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid category", map[string]any{"field": "category", "value": raw})
		}
		filter.Categories = append(filter.Categories, category)
	}

	switch actor.Role {
	case domain.RoleCustomer, domain.RoleCustomerAdmin:
		if actor.CompanyID == nil {
			return nil, apperrors.NewForbidden("customer account has no company")
		}
		filter.CompanyID = actor.CompanyID
	case domain.RoleAgent:
		self := actor.UserID
		filter.AssignedTo = &self
		filter.Unassigned = true
	case domain.RoleAgentManager, domain.RoleSuperAdmin:
		// unscoped
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	result, err := s.requests.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// applyStatusTransition mutates timestamps for a status change. Entering
// in_progress stamps the start time once; entering closed is gated by the
// three preconditions checked in a fixed order; leaving closed reopens.
func (s *RequestService) applyStatusTransition(ctx context.Context, request *domain.ServiceRequest, newStatus domain.TaskStatus) error {
	switch newStatus {
	case domain.StatusInProgress:
		if request.InProgressAt == nil {
			now := s.now()
			request.InProgressAt = &now
		}
		if request.TaskStatus == domain.StatusClosed {
			request.ClosedAt = nil
		}
	case domain.StatusClosed:
		noteCount, err := s.requests.CountNotes(ctx, request.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if noteCount == 0 {
			return apperrors.NewPreconditionFailed("cannot close a request without at least one note", map[string]any{"queue_id": request.QueueID})
		}
		if request.InProgressAt == nil {
			return apperrors.NewPreconditionFailed("cannot close a request that was never started", map[string]any{"queue_id": request.QueueID})
		}
		if request.AssignedTo == nil {
			return apperrors.NewPreconditionFailed("cannot close an unassigned request", map[string]any{"queue_id": request.QueueID})
		}
		now := s.now()
		request.ClosedAt = &now
	case domain.StatusNew, domain.StatusOpen:
		if request.TaskStatus == domain.StatusClosed {
			request.ClosedAt = nil
		}
	}
	request.TaskStatus = newStatus
	return nil
}

// uploadFiles stores each file under its own bounded deadline. Failures are
// logged and skipped; successful uploads get a metadata row and an event.
func (s *RequestService) uploadFiles(ctx context.Context, actor domain.Actor, request *domain.ServiceRequest, files []blob.Upload) []domain.RequestAttachment {
	if len(files) == 0 || s.blobs == nil {
		return nil
	}

	var stored []domain.RequestAttachment
	for _, file := range files {
		uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
		result, err := s.blobs.Upload(uploadCtx, request.ID, file, actor.UserID)
		cancel()
		if err != nil {
			s.logger.Warn("attachment upload failed, skipping file",
				zap.String("queue_id", request.QueueID),
				zap.String("file_name", file.FileName),
				zap.Error(err))
			continue
		}

		attachment := &domain.RequestAttachment{
			RequestID:  request.ID,
			FileName:   file.FileName,
			FileURL:    result.URL,
			FileSize:   result.FileSize,
			MimeType:   result.MimeType,
			UploadedBy: actor.UserID,
		}
		if err := s.attachments.Create(ctx, attachment); err != nil {
			s.logger.Warn("attachment metadata insert failed",
				zap.String("queue_id", request.QueueID),
				zap.String("file_name", file.FileName),
				zap.Error(err))
			continue
		}
		stored = append(stored, *attachment)

		s.publish(ctx, events.Event{
			Type:      events.EventAttachmentUploaded,
			RequestID: request.ID,
			Actor:     actor,
			Payload: events.AttachmentUploadedPayload{
				QueueID:      request.QueueID,
				AttachmentID: attachment.ID,
				FileName:     attachment.FileName,
				UploadedBy:   attachment.UploadedBy,
			},
		})
	}
	return stored
}

func (s *RequestService) resolveCompany(assignedBy *domain.User, explicit *string, actor domain.Actor) (string, error) {
	if assignedBy.CompanyID != nil {
		return *assignedBy.CompanyID, nil
	}
	if explicit != nil && *explicit != "" {
		return *explicit, nil
	}
	if actor.CompanyID != nil {
		return *actor.CompanyID, nil
	}
	return "", apperrors.NewValidationError("owning company could not be determined", map[string]any{"field": "company_id"})
}

func (s *RequestService) validateAssignee(ctx context.Context, assigneeID string) error {
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !assignee.Role.Assignable() {
		return apperrors.NewValidationError("assignee must be an agent or agent manager", map[string]any{"field": "assigned_to"})
	}
	return nil
}

// checkAccess scopes visibility: customer roles are locked to their company,
// agency roles see every request.
func (s *RequestService) checkAccess(actor domain.Actor, request *domain.ServiceRequest) error {
	switch actor.Role {
	case domain.RoleCustomer, domain.RoleCustomerAdmin:
		if actor.CompanyID == nil || *actor.CompanyID != request.CompanyID {
			return apperrors.NewForbidden("request belongs to another company")
		}
		return nil
	case domain.RoleAgent, domain.RoleAgentManager, domain.RoleSuperAdmin:
		return nil
	default:
		return apperrors.NewForbidden("unknown role")
	}
}

func (s *RequestService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
