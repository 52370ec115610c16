package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/email"
	"github.com/spec-kit/service-queue/internal/events"
	"github.com/spec-kit/service-queue/internal/repository"
)

// FanoutService translates one domain event into notification rows, a single
// activity-log row for the actor, and best-effort templated emails. Every
// side effect is individually recovered: a failed insert or enqueue is
// logged and the loop continues, nothing reaches the publisher.
type FanoutService struct {
	requests      repository.RequestRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	activity      repository.ActivityLogRepository
	mailer        email.Mailer
	logger        *zap.Logger
}

// FanoutDependencies bundles collaborators.
type FanoutDependencies struct {
	RequestRepo      repository.RequestRepository
	UserRepo         repository.UserRepository
	NotificationRepo repository.NotificationRepository
	ActivityRepo     repository.ActivityLogRepository
	Mailer           email.Mailer
	Logger           *zap.Logger
}

// NewFanoutService constructs the side-channel service.
func NewFanoutService(deps FanoutDependencies) *FanoutService {
	svc := &FanoutService{
		requests:      deps.RequestRepo,
		users:         deps.UserRepo,
		notifications: deps.NotificationRepo,
		activity:      deps.ActivityRepo,
		mailer:        deps.Mailer,
		logger:        deps.Logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Register subscribes the fan-out handlers to every event the lifecycle and
// assignment services publish.
func (f *FanoutService) Register(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventRequestCreated, f.handleRequestCreated)
	dispatcher.Subscribe(events.EventRequestUpdated, f.handleRequestUpdated)
	dispatcher.Subscribe(events.EventRequestAssigned, f.handleRequestAssigned)
	dispatcher.Subscribe(events.EventNoteAdded, f.handleNoteAdded)
	dispatcher.Subscribe(events.EventAttachmentUploaded, f.handleAttachmentUploaded)
	dispatcher.Subscribe(events.EventAssignmentChangeRequested, f.handleAssignmentChangeRequested)
	dispatcher.Subscribe(events.EventAssignmentChangeReviewed, f.handleAssignmentChangeReviewed)
	dispatcher.Subscribe(events.EventUserChanged, f.handleUserChanged)
	dispatcher.Subscribe(events.EventCompanyChanged, f.handleCompanyChanged)
}

func (f *FanoutService) handleRequestCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestCreatedPayload)
	if !ok {
		return nil
	}

	recipients := f.newRecipientSet(event.Actor.UserID)
	if payload.AssignedTo != nil {
		recipients.addByID(ctx, f, *payload.AssignedTo)
	}
	recipients.addByRoles(ctx, f, domain.RoleAgentManager)

	title := "New service request"
	message := fmt.Sprintf("Service request %s for insured %s was created.", payload.QueueID, payload.InsuredName)
	f.notifyAll(ctx, recipients, domain.NotifRequestCreated, title, message, map[string]any{
		"request_id": event.RequestID,
		"queue_id":   payload.QueueID,
		"category":   payload.Category,
	})
	f.logActivity(ctx, event, domain.ActivityRequestCreated,
		fmt.Sprintf("Created service request %s for insured %s.", payload.QueueID, payload.InsuredName),
		&payload.CompanyID)
	f.emailAll(ctx, recipients, email.TemplateRequestCreated, email.TemplateData{
		QueueID:     payload.QueueID,
		InsuredName: payload.InsuredName,
		Detail:      fmt.Sprintf("Category: %s", payload.Category),
		ActorName:   f.actorName(ctx, event.Actor),
	})
	return nil
}

func (f *FanoutService) handleRequestUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestUpdatedPayload)
	if !ok {
		return nil
	}
	request, err := f.loadRequest(ctx, event.RequestID)
	if err != nil {
		return nil
	}

	recipients := f.newRecipientSet(event.Actor.UserID)
	if request.AssignedTo != nil {
		recipients.addByID(ctx, f, *request.AssignedTo)
	}
	recipients.addByID(ctx, f, request.AssignedBy)

	notifType := domain.NotifRequestUpdated
	activityType := domain.ActivityRequestUpdated
	title := "Service request updated"
	message := fmt.Sprintf("Service request %s was updated.", payload.QueueID)
	description := fmt.Sprintf("Updated service request %s.", payload.QueueID)
	template := email.TemplateStatusUpdate
	status := string(request.TaskStatus)

	if payload.NewStatus != nil {
		notifType = domain.NotifStatusChanged
		activityType = domain.ActivityStatusChanged
		title = "Service request status changed"
		message = fmt.Sprintf("Service request %s moved from %s to %s.", payload.QueueID, *payload.OldStatus, *payload.NewStatus)
		description = fmt.Sprintf("Changed status of service request %s from %s to %s.", payload.QueueID, *payload.OldStatus, *payload.NewStatus)
		status = string(*payload.NewStatus)
	}

	f.notifyAll(ctx, recipients, notifType, title, message, map[string]any{
		"request_id": event.RequestID,
		"queue_id":   payload.QueueID,
		"diff":       payload.Diff,
	})
	f.logActivity(ctx, event, activityType, description, &request.CompanyID)
	f.emailAll(ctx, recipients, template, email.TemplateData{
		QueueID:     payload.QueueID,
		InsuredName: request.InsuredName,
		Status:      status,
		ActorName:   f.actorName(ctx, event.Actor),
	})
	return nil
}

func (f *FanoutService) handleRequestAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestAssignedPayload)
	if !ok || payload.AssigneeID == nil {
		return nil
	}
	request, err := f.loadRequest(ctx, event.RequestID)
	if err != nil {
		return nil
	}

	recipients := f.newRecipientSet(event.Actor.UserID)
	recipients.addByID(ctx, f, *payload.AssigneeID)

	f.notifyAll(ctx, recipients, domain.NotifRequestAssigned,
		"Service request assigned to you",
		fmt.Sprintf("Service request %s has been assigned to you.", payload.QueueID),
		map[string]any{"request_id": event.RequestID, "queue_id": payload.QueueID})
	f.logActivity(ctx, event, domain.ActivityRequestAssigned,
		fmt.Sprintf("Assigned service request %s.", payload.QueueID),
		&request.CompanyID)
	f.emailAll(ctx, recipients, email.TemplateRequestAssigned, email.TemplateData{
		QueueID:     payload.QueueID,
		InsuredName: request.InsuredName,
		ActorName:   f.actorName(ctx, event.Actor),
	})
	return nil
}

func (f *FanoutService) handleNoteAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NoteAddedPayload)
	if !ok {
		return nil
	}
	request, err := f.loadRequest(ctx, event.RequestID)
	if err != nil {
		return nil
	}

	recipients := f.newRecipientSet(payload.AuthorID)
	notifType := domain.NotifNoteAdded
	if payload.Internal {
		// Internal notes broadcast to the whole agency, never to customers.
		notifType = domain.NotifInternalNoteAdded
		recipients.addByRoles(ctx, f, domain.RoleAgent, domain.RoleAgentManager)
	} else {
		if request.AssignedTo != nil {
			recipients.addByID(ctx, f, *request.AssignedTo)
		}
		recipients.addByID(ctx, f, request.AssignedBy)
	}

	f.notifyAll(ctx, recipients, notifType,
		"New note on service request",
		fmt.Sprintf("A note was added to service request %s.", payload.QueueID),
		map[string]any{"request_id": event.RequestID, "queue_id": payload.QueueID, "note_id": payload.NoteID, "internal": payload.Internal})
	f.logActivity(ctx, event, domain.ActivityNoteAdded,
		fmt.Sprintf("Added a note to service request %s.", payload.QueueID),
		&request.CompanyID)
	f.emailAll(ctx, recipients, email.TemplateNoteAdded, email.TemplateData{
		QueueID:     payload.QueueID,
		InsuredName: request.InsuredName,
		Detail:      payload.BodyPreview,
		ActorName:   f.actorName(ctx, event.Actor),
	})
	return nil
}

func (f *FanoutService) handleAttachmentUploaded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AttachmentUploadedPayload)
	if !ok {
		return nil
	}
	request, err := f.loadRequest(ctx, event.RequestID)
	if err != nil {
		return nil
	}

	recipients := f.newRecipientSet(payload.UploadedBy)
	if request.AssignedTo != nil {
		recipients.addByID(ctx, f, *request.AssignedTo)
	}
	recipients.addByID(ctx, f, request.AssignedBy)

	f.notifyAll(ctx, recipients, domain.NotifAttachmentUploaded,
		"New attachment on service request",
		fmt.Sprintf("File %s was attached to service request %s.", payload.FileName, payload.QueueID),
		map[string]any{"request_id": event.RequestID, "queue_id": payload.QueueID, "attachment_id": payload.AttachmentID})
	f.logActivity(ctx, event, domain.ActivityAttachmentUploaded,
		fmt.Sprintf("Uploaded %s to service request %s.", payload.FileName, payload.QueueID),
		&request.CompanyID)
	f.emailAll(ctx, recipients, email.TemplateAttachmentUploaded, email.TemplateData{
		QueueID:     payload.QueueID,
		InsuredName: request.InsuredName,
		Detail:      payload.FileName,
		ActorName:   f.actorName(ctx, event.Actor),
	})
	return nil
}

func (f *FanoutService) handleAssignmentChangeRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AssignmentChangeRequestedPayload)
	if !ok {
		return nil
	}
	request, err := f.loadRequest(ctx, event.RequestID)
	if err != nil {
		return nil
	}

	recipients := f.newRecipientSet(event.Actor.UserID)
	recipients.addByRoles(ctx, f, domain.RoleAgentManager)

	f.notifyAll(ctx, recipients, domain.NotifAssignmentChangeRequested,
		"Assignment change requested",
		fmt.Sprintf("An assignment change was requested for service request %s.", payload.QueueID),
		map[string]any{"request_id": event.RequestID, "queue_id": payload.QueueID, "change_request_id": payload.ChangeRequestID})
	f.logActivity(ctx, event, domain.ActivityAssignmentChangeCreated,
		fmt.Sprintf("Requested an assignment change on service request %s.", payload.QueueID),
		&request.CompanyID)
	f.emailAll(ctx, recipients, email.TemplateAssignmentChangeRequest, email.TemplateData{
		QueueID:     payload.QueueID,
		InsuredName: request.InsuredName,
		Detail:      payload.Reason,
		ActorName:   f.actorName(ctx, event.Actor),
	})
	return nil
}

func (f *FanoutService) handleAssignmentChangeReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AssignmentChangeReviewedPayload)
	if !ok {
		return nil
	}
	request, err := f.loadRequest(ctx, event.RequestID)
	if err != nil {
		return nil
	}

	recipients := f.newRecipientSet(event.Actor.UserID)
	recipients.addByID(ctx, f, payload.RequestedBy)

	notifType := domain.NotifAssignmentChangeRejected
	if payload.Outcome == domain.ChangeStatusApproved {
		notifType = domain.NotifAssignmentChangeApproved
	}

	f.notifyAll(ctx, recipients, notifType,
		"Assignment change reviewed",
		fmt.Sprintf("The assignment change on service request %s was %s.", payload.QueueID, payload.Outcome),
		map[string]any{"request_id": event.RequestID, "queue_id": payload.QueueID, "change_request_id": payload.ChangeRequestID, "outcome": payload.Outcome})
	f.logActivity(ctx, event, domain.ActivityAssignmentChangeReviewed,
		fmt.Sprintf("Reviewed the assignment change on service request %s: %s.", payload.QueueID, payload.Outcome),
		&request.CompanyID)

	detail := ""
	if payload.Comment != nil {
		detail = *payload.Comment
	}
	f.emailAll(ctx, recipients, email.TemplateAssignmentChangeReview, email.TemplateData{
		QueueID:     payload.QueueID,
		InsuredName: request.InsuredName,
		Status:      string(payload.Outcome),
		Detail:      detail,
		ActorName:   f.actorName(ctx, event.Actor),
	})
	return nil
}

func (f *FanoutService) handleUserChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserChangedPayload)
	if !ok {
		return nil
	}

	recipients := f.newRecipientSet(event.Actor.UserID)
	recipients.addByID(ctx, f, payload.TargetUserID)

	notifType := domain.NotifUserUpdated
	switch payload.Action {
	case "created":
		notifType = domain.NotifUserCreated
	case "deactivated":
		notifType = domain.NotifUserDeactivated
	}

	f.notifyAll(ctx, recipients, notifType,
		"Account updated",
		fmt.Sprintf("Your account was %s by an administrator.", payload.Action),
		map[string]any{"target_user_id": payload.TargetUserID, "action": payload.Action})
	f.logActivity(ctx, event, domain.ActivityUserChanged,
		fmt.Sprintf("User account %s was %s.", payload.TargetUserID, payload.Action), nil)
	return nil
}

func (f *FanoutService) handleCompanyChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CompanyChangedPayload)
	if !ok {
		return nil
	}

	recipients := f.newRecipientSet(event.Actor.UserID)
	admins, err := f.users.ListByCompanyAndRoles(ctx, payload.CompanyID, domain.RoleCustomerAdmin)
	if err != nil {
		f.logger.Warn("company admin lookup failed", zap.String("company_id", payload.CompanyID), zap.Error(err))
	} else {
		for i := range admins {
			recipients.add(&admins[i])
		}
	}

	f.notifyAll(ctx, recipients, domain.NotifCompanyUpdated,
		"Company updated",
		fmt.Sprintf("Your company record was %s.", payload.Action),
		map[string]any{"company_id": payload.CompanyID, "action": payload.Action})
	f.logActivity(ctx, event, domain.ActivityCompanyChanged,
		fmt.Sprintf("Company %s was %s.", payload.CompanyID, payload.Action), &payload.CompanyID)
	return nil
}

// recipientSet deduplicates recipients and suppresses the acting user so no
// one is notified about their own action.
type recipientSet struct {
	suppressed string
	seen       map[string]struct{}
	users      []*domain.User
}

func (f *FanoutService) newRecipientSet(suppressedUserID string) *recipientSet {
	return &recipientSet{
		suppressed: suppressedUserID,
		seen:       map[string]struct{}{},
	}
}

func (r *recipientSet) add(user *domain.User) {
	if user == nil || user.ID == r.suppressed {
		return
	}
	if _, dup := r.seen[user.ID]; dup {
		return
	}
	r.seen[user.ID] = struct{}{}
	r.users = append(r.users, user)
}

func (r *recipientSet) addByID(ctx context.Context, f *FanoutService, userID string) {
	if userID == "" || userID == r.suppressed {
		return
	}
	if _, dup := r.seen[userID]; dup {
		return
	}
	user, err := f.users.GetByID(ctx, userID)
	if err != nil {
		f.logger.Warn("recipient lookup failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	r.add(user)
}

// addByRoles resolves role broadcasts platform-wide; agency roles are not
// tenant-scoped.
func (r *recipientSet) addByRoles(ctx context.Context, f *FanoutService, roles ...domain.Role) {
	users, err := f.users.ListByRoles(ctx, roles...)
	if err != nil {
		f.logger.Warn("role broadcast lookup failed", zap.Error(err))
		return
	}
	for i := range users {
		r.add(&users[i])
	}
}

func (f *FanoutService) notifyAll(ctx context.Context, recipients *recipientSet, notifType domain.NotificationType, title, message string, metadata map[string]any) {
	for _, user := range recipients.users {
		notification := &domain.Notification{
			UserID:   user.ID,
			Type:     notifType,
			Title:    title,
			Message:  message,
			Metadata: metadata,
		}
		if err := f.notifications.Create(ctx, notification); err != nil {
			f.logger.Warn("notification insert failed",
				zap.String("user_id", user.ID),
				zap.String("type", string(notifType)),
				zap.Error(err))
		}
	}
}

func (f *FanoutService) logActivity(ctx context.Context, event events.Event, activityType domain.ActivityType, description string, companyID *string) {
	var requestID *string
	if event.RequestID != "" {
		id := event.RequestID
		requestID = &id
	}
	entry := &domain.ActivityLog{
		UserID:      event.Actor.UserID,
		CompanyID:   companyID,
		Type:        activityType,
		Description: description,
		RequestID:   requestID,
		Metadata:    map[string]any{"event_id": event.ID},
	}
	if err := f.activity.Create(ctx, entry); err != nil {
		f.logger.Warn("activity log insert failed",
			zap.String("user_id", event.Actor.UserID),
			zap.String("type", string(activityType)),
			zap.Error(err))
	}
}

func (f *FanoutService) emailAll(ctx context.Context, recipients *recipientSet, template email.Template, data email.TemplateData) {
	if f.mailer == nil {
		return
	}
	for _, user := range recipients.users {
		msgData := data
		msgData.RecipientName = user.Name
		msgData.UserType = email.UserTypeCustomer
		if user.Role.IsAgentSide() {
			msgData.UserType = email.UserTypeAgent
		}
		f.mailer.Enqueue(email.Message{
			To:       user.Email,
			Template: template,
			Data:     msgData,
		})
	}
}

func (f *FanoutService) loadRequest(ctx context.Context, requestID string) (*domain.ServiceRequest, error) {
	request, err := f.requests.GetByID(ctx, requestID)
	if err != nil {
		f.logger.Warn("request lookup failed during fan-out", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}
	return request, nil
}

func (f *FanoutService) actorName(ctx context.Context, actor domain.Actor) string {
	user, err := f.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return actor.UserID
	}
	return user.Name
}
