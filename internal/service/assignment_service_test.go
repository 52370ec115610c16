package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/events"
)

type assignmentFixture struct {
	svc        *AssignmentService
	requests   *mockRequestRepo
	changes    *mockChangeRepo
	users      *mockUserRepo
	dispatcher *recordingDispatcher
}

func newAssignmentFixture() *assignmentFixture {
	f := &assignmentFixture{
		requests:   &mockRequestRepo{},
		changes:    &mockChangeRepo{},
		users:      &mockUserRepo{},
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewAssignmentService(AssignmentDependencies{
		RequestRepo: f.requests,
		ChangeRepo:  f.changes,
		UserRepo:    f.users,
		Dispatcher:  f.dispatcher,
		Now:         fixedClock,
	})
	return f
}

func TestRequestChange(t *testing.T) {
	ctx := context.Background()

	t.Run("agent files a pending change", func(t *testing.T) {
		f := newAssignmentFixture()
		request := existingRequest(func(r *domain.ServiceRequest) { r.AssignedTo = strPtr("A1") })
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }
		f.users.GetByIDFn = userDirectory(&domain.User{ID: "A2", Role: domain.RoleAgent, Active: true})

		change, err := f.svc.RequestChange(ctx, agentActor("A1"), "R1", strPtr("A2"), "workload balancing")
		require.NoError(t, err)
		assert.Equal(t, domain.ChangeStatusPending, change.Status)
		assert.Equal(t, "A1", change.RequestedBy)
		require.NotNil(t, change.CurrentAssigneeID)
		assert.Equal(t, "A1", *change.CurrentAssigneeID)
		require.NotNil(t, change.RequestedAssigneeID)
		assert.Equal(t, "A2", *change.RequestedAssigneeID)

		published := f.dispatcher.byType(events.EventAssignmentChangeRequested)
		require.Len(t, published, 1)
	})

	t.Run("customer roles are forbidden", func(t *testing.T) {
		f := newAssignmentFixture()
		_, err := f.svc.RequestChange(ctx, customerActor("U1", "C1"), "R1", nil, "reason")
		assert.Equal(t, "FORBIDDEN", domainErr(t, err).Code)
	})

	t.Run("reason is required", func(t *testing.T) {
		f := newAssignmentFixture()
		_, err := f.svc.RequestChange(ctx, agentActor("A1"), "R1", nil, "   ")
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
	})

	t.Run("closed request cannot be reassigned", func(t *testing.T) {
		f := newAssignmentFixture()
		request := existingRequest(func(r *domain.ServiceRequest) { r.TaskStatus = domain.StatusClosed })
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }

		_, err := f.svc.RequestChange(ctx, agentActor("A1"), "R1", nil, "reason")
		assert.Equal(t, "PRECONDITION_FAILED", domainErr(t, err).Code)
	})

	t.Run("second pending change is rejected without insert", func(t *testing.T) {
		f := newAssignmentFixture()
		request := existingRequest()
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }
		f.changes.HasPendingFn = func(context.Context, string) (bool, error) { return true, nil }

		_, err := f.svc.RequestChange(ctx, agentActor("A1"), "R1", nil, "reason")
		assert.Equal(t, "CONFLICT", domainErr(t, err).Code)
		assert.Empty(t, f.changes.created)
		assert.Empty(t, f.dispatcher.published())
	})

	t.Run("proposed assignee must be assignable", func(t *testing.T) {
		f := newAssignmentFixture()
		request := existingRequest()
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }
		f.users.GetByIDFn = userDirectory(&domain.User{ID: "U2", Role: domain.RoleCustomer, Active: true})

		_, err := f.svc.RequestChange(ctx, agentActor("A1"), "R1", strPtr("U2"), "reason")
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
	})

	t.Run("nil assignee proposes unassignment", func(t *testing.T) {
		f := newAssignmentFixture()
		request := existingRequest(func(r *domain.ServiceRequest) { r.AssignedTo = strPtr("A1") })
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }

		change, err := f.svc.RequestChange(ctx, agentActor("A1"), "R1", nil, "agent leaving team")
		require.NoError(t, err)
		assert.Nil(t, change.RequestedAssigneeID)
	})
}

func pendingChange() *domain.AssignmentChangeRequest {
	return &domain.AssignmentChangeRequest{
		ID:                  "CH1",
		RequestID:           "R1",
		RequestedBy:         "A1",
		CurrentAssigneeID:   strPtr("A1"),
		RequestedAssigneeID: strPtr("A2"),
		Reason:              "workload balancing",
		Status:              domain.ChangeStatusPending,
	}
}

func TestReviewChange(t *testing.T) {
	ctx := context.Background()

	t.Run("approval applies the proposed assignee", func(t *testing.T) {
		f := newAssignmentFixture()
		change := pendingChange()
		request := existingRequest(func(r *domain.ServiceRequest) { r.AssignedTo = strPtr("A1") })
		f.changes.GetByIDFn = func(context.Context, string) (*domain.AssignmentChangeRequest, error) { return change, nil }
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }

		reviewed, err := f.svc.Review(ctx, managerActor("M1"), "CH1", ReviewApprove, strPtr("ok"))
		require.NoError(t, err)
		assert.Equal(t, domain.ChangeStatusApproved, reviewed.Status)
		require.NotNil(t, reviewed.ReviewedBy)
		assert.Equal(t, "M1", *reviewed.ReviewedBy)

		require.Len(t, f.requests.updated, 1)
		assert.Equal(t, "A2", *f.requests.updated[0].AssignedTo)

		require.Len(t, f.dispatcher.byType(events.EventAssignmentChangeReviewed), 1)
		require.Len(t, f.dispatcher.byType(events.EventRequestAssigned), 1)
	})

	t.Run("rejection leaves the request untouched", func(t *testing.T) {
		f := newAssignmentFixture()
		change := pendingChange()
		request := existingRequest(func(r *domain.ServiceRequest) { r.AssignedTo = strPtr("A1") })
		f.changes.GetByIDFn = func(context.Context, string) (*domain.AssignmentChangeRequest, error) { return change, nil }
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }

		reviewed, err := f.svc.Review(ctx, managerActor("M1"), "CH1", ReviewReject, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.ChangeStatusRejected, reviewed.Status)
		assert.Empty(t, f.requests.updated)
		assert.Empty(t, f.dispatcher.byType(events.EventRequestAssigned))
		require.Len(t, f.dispatcher.byType(events.EventAssignmentChangeReviewed), 1)
	})

	t.Run("approved unassignment emits no assignment event", func(t *testing.T) {
		f := newAssignmentFixture()
		change := pendingChange()
		change.RequestedAssigneeID = nil
		request := existingRequest(func(r *domain.ServiceRequest) { r.AssignedTo = strPtr("A1") })
		f.changes.GetByIDFn = func(context.Context, string) (*domain.AssignmentChangeRequest, error) { return change, nil }
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }

		_, err := f.svc.Review(ctx, managerActor("M1"), "CH1", ReviewApprove, nil)
		require.NoError(t, err)
		require.Len(t, f.requests.updated, 1)
		assert.Nil(t, f.requests.updated[0].AssignedTo)
		assert.Empty(t, f.dispatcher.byType(events.EventRequestAssigned))
	})

	t.Run("agents cannot review", func(t *testing.T) {
		f := newAssignmentFixture()
		_, err := f.svc.Review(ctx, agentActor("A1"), "CH1", ReviewApprove, nil)
		assert.Equal(t, "FORBIDDEN", domainErr(t, err).Code)
	})

	t.Run("settled change cannot be reviewed again", func(t *testing.T) {
		f := newAssignmentFixture()
		change := pendingChange()
		change.Status = domain.ChangeStatusApproved
		f.changes.GetByIDFn = func(context.Context, string) (*domain.AssignmentChangeRequest, error) { return change, nil }

		_, err := f.svc.Review(ctx, managerActor("M1"), "CH1", ReviewReject, nil)
		assert.Equal(t, "PRECONDITION_FAILED", domainErr(t, err).Code)
		assert.Empty(t, f.changes.reviewed)
	})

	t.Run("concurrent settle surfaces as precondition failure", func(t *testing.T) {
		f := newAssignmentFixture()
		change := pendingChange()
		request := existingRequest()
		f.changes.GetByIDFn = func(context.Context, string) (*domain.AssignmentChangeRequest, error) { return change, nil }
		f.requests.GetByIDFn = func(context.Context, string) (*domain.ServiceRequest, error) { return request, nil }
		f.changes.ReviewFn = func(context.Context, *domain.AssignmentChangeRequest) error { return pgx.ErrNoRows }

		_, err := f.svc.Review(ctx, managerActor("M1"), "CH1", ReviewApprove, nil)
		assert.Equal(t, "PRECONDITION_FAILED", domainErr(t, err).Code)
		assert.Empty(t, f.requests.updated)
		assert.Empty(t, f.dispatcher.published())
	})

	t.Run("invalid action is rejected", func(t *testing.T) {
		f := newAssignmentFixture()
		_, err := f.svc.Review(ctx, managerActor("M1"), "CH1", ReviewAction("defer"), nil)
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
	})
}

func TestListChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("history requires agency role", func(t *testing.T) {
		f := newAssignmentFixture()
		_, err := f.svc.ListForRequest(ctx, customerActor("U1", "C1"), "R1")
		assert.Equal(t, "FORBIDDEN", domainErr(t, err).Code)
	})

	t.Run("pending backlog requires review rights", func(t *testing.T) {
		f := newAssignmentFixture()
		_, err := f.svc.ListPending(ctx, agentActor("A1"), 20, 0)
		assert.Equal(t, "FORBIDDEN", domainErr(t, err).Code)

		f.changes.ListPendingFn = func(_ context.Context, limit, offset int) ([]domain.AssignmentChangeRequest, error) {
			assert.Equal(t, 20, limit)
			return []domain.AssignmentChangeRequest{*pendingChange()}, nil
		}
		backlog, err := f.svc.ListPending(ctx, managerActor("M1"), 20, 0)
		require.NoError(t, err)
		assert.Len(t, backlog, 1)
	})
}
