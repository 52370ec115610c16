package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/events"
	"github.com/spec-kit/service-queue/internal/repository"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

// AssignmentService runs the manager-gated reassignment workflow layered on
// top of the lifecycle manager.
type AssignmentService struct {
	requests   repository.RequestRepository
	changes    repository.AssignmentChangeRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	RequestRepo repository.RequestRepository
	ChangeRepo  repository.AssignmentChangeRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Now         func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	svc := &AssignmentService{
		requests:   deps.RequestRepo,
		changes:    deps.ChangeRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        deps.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// ReviewAction is the terminal decision on a pending change request.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// RequestChange files a pending reassignment proposal for a non-closed
// request. A nil requestedAssigneeID proposes unassignment. At most one
// pending proposal may exist per request.
func (s *AssignmentService) RequestChange(ctx context.Context, actor domain.Actor, requestID string, requestedAssigneeID *string, reason string) (*domain.AssignmentChangeRequest, error) {
	if !actor.Role.IsAgentSide() {
		return nil, apperrors.NewForbidden("only agency roles may request assignment changes")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required", map[string]any{"field": "reason"})
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if request.TaskStatus == domain.StatusClosed {
		return nil, apperrors.NewPreconditionFailed("cannot request reassignment of a closed request", map[string]any{"queue_id": request.QueueID})
	}

	pending, err := s.changes.HasPending(ctx, request.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if pending {
		return nil, apperrors.NewConflict("a pending assignment change already exists for this request", map[string]any{"queue_id": request.QueueID})
	}

	if requestedAssigneeID != nil {
		assignee, err := s.users.GetByID(ctx, *requestedAssigneeID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !assignee.Role.Assignable() {
			return nil, apperrors.NewValidationError("requested assignee must be an agent or agent manager", map[string]any{"field": "requested_assignee_id"})
		}
	}

	change := &domain.AssignmentChangeRequest{
		RequestID:           request.ID,
		RequestedBy:         actor.UserID,
		CurrentAssigneeID:   request.AssignedTo,
		RequestedAssigneeID: requestedAssigneeID,
		Reason:              reason,
		Status:              domain.ChangeStatusPending,
	}
	if err := s.changes.Create(ctx, change); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventAssignmentChangeRequested,
		RequestID: request.ID,
		Actor:     actor,
		Payload: events.AssignmentChangeRequestedPayload{
			QueueID:             request.QueueID,
			ChangeRequestID:     change.ID,
			RequestedBy:         change.RequestedBy,
			CurrentAssigneeID:   change.CurrentAssigneeID,
			RequestedAssigneeID: change.RequestedAssigneeID,
			Reason:              change.Reason,
		},
	})
	return change, nil
}

// Review settles a pending change request exactly once. Approval applies the
// proposed assignee to the underlying request before the fan-out fires.
func (s *AssignmentService) Review(ctx context.Context, actor domain.Actor, changeID string, action ReviewAction, comment *string) (*domain.AssignmentChangeRequest, error) {
	if !actor.Role.CanReviewAssignmentChange() {
		return nil, apperrors.NewForbidden("only agent managers may review assignment changes")
	}
	if action != ReviewApprove && action != ReviewReject {
		return nil, apperrors.NewValidationError("action must be approve or reject", map[string]any{"field": "action", "value": string(action)})
	}

	change, err := s.changes.GetByID(ctx, changeID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if change.Status != domain.ChangeStatusPending {
		return nil, apperrors.NewPreconditionFailed("assignment change has already been reviewed", map[string]any{"change_request_id": change.ID, "status": change.Status})
	}

	request, err := s.requests.GetByID(ctx, change.RequestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	reviewer := actor.UserID
	change.ReviewedBy = &reviewer
	change.ReviewComment = comment
	if action == ReviewApprove {
		change.Status = domain.ChangeStatusApproved
	} else {
		change.Status = domain.ChangeStatusRejected
	}

	if err := s.changes.Review(ctx, change); err != nil {
		// A concurrent reviewer settled it first.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewPreconditionFailed("assignment change has already been reviewed", map[string]any{"change_request_id": change.ID})
		}
		return nil, apperrors.MapError(err)
	}

	if change.Status == domain.ChangeStatusApproved {
		request.AssignedTo = change.RequestedAssigneeID
		request.ModifiedBy = &reviewer
		if err := s.requests.Update(ctx, request); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publish(ctx, events.Event{
		Type:      events.EventAssignmentChangeReviewed,
		RequestID: request.ID,
		Actor:     actor,
		Payload: events.AssignmentChangeReviewedPayload{
			QueueID:             request.QueueID,
			ChangeRequestID:     change.ID,
			RequestedBy:         change.RequestedBy,
			RequestedAssigneeID: change.RequestedAssigneeID,
			Outcome:             change.Status,
			Comment:             change.ReviewComment,
		},
	})
	if change.Status == domain.ChangeStatusApproved && change.RequestedAssigneeID != nil {
		s.publish(ctx, events.Event{
			Type:      events.EventRequestAssigned,
			RequestID: request.ID,
			Actor:     actor,
			Payload: events.RequestAssignedPayload{
				QueueID:    request.QueueID,
				AssigneeID: change.RequestedAssigneeID,
			},
		})
	}
	return change, nil
}

// ListForRequest returns the change history of one request.
func (s *AssignmentService) ListForRequest(ctx context.Context, actor domain.Actor, requestID string) ([]domain.AssignmentChangeRequest, error) {
	if !actor.Role.IsAgentSide() {
		return nil, apperrors.NewForbidden("only agency roles may view assignment changes")
	}
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, apperrors.MapError(err)
	}
	result, err := s.changes.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListPending returns the review backlog for managers.
func (s *AssignmentService) ListPending(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.AssignmentChangeRequest, error) {
	if !actor.Role.CanReviewAssignmentChange() {
		return nil, apperrors.NewForbidden("only agent managers may view the pending backlog")
	}
	result, err := s.changes.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
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
