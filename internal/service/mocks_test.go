package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-queue/internal/blob"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/email"
	"github.com/spec-kit/service-queue/internal/events"
	"github.com/spec-kit/service-queue/internal/repository"
)

// Function-field mocks. A nil field means "not expected": reads report no
// rows, writes succeed and assign a synthetic ID so follow-up logic works.

type mockRequestRepo struct {
	CreateFn         func(ctx context.Context, request *domain.ServiceRequest) error
	UpdateFn         func(ctx context.Context, request *domain.ServiceRequest) error
	GetByIDFn        func(ctx context.Context, id string) (*domain.ServiceRequest, error)
	GetByQueueIDFn   func(ctx context.Context, queueID string) (*domain.ServiceRequest, error)
	ListWithFilterFn func(ctx context.Context, filter repository.RequestFilter) ([]domain.ServiceRequest, error)
	CountNotesFn     func(ctx context.Context, requestID string) (int, error)

	created []*domain.ServiceRequest
	updated []*domain.ServiceRequest
}

func (m *mockRequestRepo) Create(ctx context.Context, request *domain.ServiceRequest) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, request)
	}
	if request.ID == "" {
		request.ID = fmt.Sprintf("req-%d", len(m.created)+1)
	}
	m.created = append(m.created, request)
	return nil
}

func (m *mockRequestRepo) Update(ctx context.Context, request *domain.ServiceRequest) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, request)
	}
	m.updated = append(m.updated, request)
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRequestRepo) GetByQueueID(ctx context.Context, queueID string) (*domain.ServiceRequest, error) {
	if m.GetByQueueIDFn != nil {
		return m.GetByQueueIDFn(ctx, queueID)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRequestRepo) ListWithFilter(ctx context.Context, filter repository.RequestFilter) ([]domain.ServiceRequest, error) {
	if m.ListWithFilterFn != nil {
		return m.ListWithFilterFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockRequestRepo) CountNotes(ctx context.Context, requestID string) (int, error) {
	if m.CountNotesFn != nil {
		return m.CountNotesFn(ctx, requestID)
	}
	return 0, nil
}

type mockNoteRepo struct {
	CreateFn        func(ctx context.Context, note *domain.RequestNote) error
	ListByRequestFn func(ctx context.Context, requestID string) ([]domain.RequestNote, error)

	created []*domain.RequestNote
}

func (m *mockNoteRepo) Create(ctx context.Context, note *domain.RequestNote) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, note)
	}
	if note.ID == "" {
		note.ID = fmt.Sprintf("note-%d", len(m.created)+1)
	}
	m.created = append(m.created, note)
	return nil
}

func (m *mockNoteRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestNote, error) {
	if m.ListByRequestFn != nil {
		return m.ListByRequestFn(ctx, requestID)
	}
	return nil, nil
}

type mockAttachmentRepo struct {
	CreateFn        func(ctx context.Context, attachment *domain.RequestAttachment) error
	ListByRequestFn func(ctx context.Context, requestID string) ([]domain.RequestAttachment, error)

	created []*domain.RequestAttachment
}

func (m *mockAttachmentRepo) Create(ctx context.Context, attachment *domain.RequestAttachment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, attachment)
	}
	if attachment.ID == "" {
		attachment.ID = fmt.Sprintf("att-%d", len(m.created)+1)
	}
	m.created = append(m.created, attachment)
	return nil
}

func (m *mockAttachmentRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestAttachment, error) {
	if m.ListByRequestFn != nil {
		return m.ListByRequestFn(ctx, requestID)
	}
	return nil, nil
}

type mockUserRepo struct {
	CreateFn                func(ctx context.Context, user *domain.User) error
	UpdateFn                func(ctx context.Context, user *domain.User) error
	GetByIDFn               func(ctx context.Context, id string) (*domain.User, error)
	GetByEmailFn            func(ctx context.Context, email string) (*domain.User, error)
	ListByRolesFn           func(ctx context.Context, roles ...domain.Role) ([]domain.User, error)
	ListByCompanyAndRolesFn func(ctx context.Context, companyID string, roles ...domain.Role) ([]domain.User, error)

	created []*domain.User
	updated []*domain.User
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(m.created)+1)
	}
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}
	m.updated = append(m.updated, user)
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) ListByRoles(ctx context.Context, roles ...domain.Role) ([]domain.User, error) {
	if m.ListByRolesFn != nil {
		return m.ListByRolesFn(ctx, roles...)
	}
	return nil, nil
}

func (m *mockUserRepo) ListByCompanyAndRoles(ctx context.Context, companyID string, roles ...domain.Role) ([]domain.User, error) {
	if m.ListByCompanyAndRolesFn != nil {
		return m.ListByCompanyAndRolesFn(ctx, companyID, roles...)
	}
	return nil, nil
}

// userDirectory builds a GetByID func over a fixed set of users.
func userDirectory(users ...*domain.User) func(ctx context.Context, id string) (*domain.User, error) {
	index := map[string]*domain.User{}
	for _, user := range users {
		index[user.ID] = user
	}
	return func(_ context.Context, id string) (*domain.User, error) {
		if user, ok := index[id]; ok {
			return user, nil
		}
		return nil, pgx.ErrNoRows
	}
}

type mockCompanyRepo struct {
	CreateFn    func(ctx context.Context, company *domain.Company) error
	UpdateFn    func(ctx context.Context, company *domain.Company) error
	GetByIDFn   func(ctx context.Context, id string) (*domain.Company, error)
	GetByCodeFn func(ctx context.Context, code string) (*domain.Company, error)
	ListFn      func(ctx context.Context, limit, offset int) ([]domain.Company, error)

	created []*domain.Company
	updated []*domain.Company
}

func (m *mockCompanyRepo) Create(ctx context.Context, company *domain.Company) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, company)
	}
	if company.ID == "" {
		company.ID = fmt.Sprintf("company-%d", len(m.created)+1)
	}
	m.created = append(m.created, company)
	return nil
}

func (m *mockCompanyRepo) Update(ctx context.Context, company *domain.Company) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, company)
	}
	m.updated = append(m.updated, company)
	return nil
}

func (m *mockCompanyRepo) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockCompanyRepo) GetByCode(ctx context.Context, code string) (*domain.Company, error) {
	if m.GetByCodeFn != nil {
		return m.GetByCodeFn(ctx, code)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockCompanyRepo) List(ctx context.Context, limit, offset int) ([]domain.Company, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, limit, offset)
	}
	return nil, nil
}

type mockChangeRepo struct {
	CreateFn        func(ctx context.Context, change *domain.AssignmentChangeRequest) error
	GetByIDFn       func(ctx context.Context, id string) (*domain.AssignmentChangeRequest, error)
	HasPendingFn    func(ctx context.Context, requestID string) (bool, error)
	ReviewFn        func(ctx context.Context, change *domain.AssignmentChangeRequest) error
	ListByRequestFn func(ctx context.Context, requestID string) ([]domain.AssignmentChangeRequest, error)
	ListPendingFn   func(ctx context.Context, limit, offset int) ([]domain.AssignmentChangeRequest, error)

	created  []*domain.AssignmentChangeRequest
	reviewed []*domain.AssignmentChangeRequest
}

func (m *mockChangeRepo) Create(ctx context.Context, change *domain.AssignmentChangeRequest) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, change)
	}
	if change.ID == "" {
		change.ID = fmt.Sprintf("change-%d", len(m.created)+1)
	}
	m.created = append(m.created, change)
	return nil
}

func (m *mockChangeRepo) GetByID(ctx context.Context, id string) (*domain.AssignmentChangeRequest, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockChangeRepo) HasPending(ctx context.Context, requestID string) (bool, error) {
	if m.HasPendingFn != nil {
		return m.HasPendingFn(ctx, requestID)
	}
	return false, nil
}

func (m *mockChangeRepo) Review(ctx context.Context, change *domain.AssignmentChangeRequest) error {
	if m.ReviewFn != nil {
		return m.ReviewFn(ctx, change)
	}
	m.reviewed = append(m.reviewed, change)
	return nil
}

func (m *mockChangeRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.AssignmentChangeRequest, error) {
	if m.ListByRequestFn != nil {
		return m.ListByRequestFn(ctx, requestID)
	}
	return nil, nil
}

func (m *mockChangeRepo) ListPending(ctx context.Context, limit, offset int) ([]domain.AssignmentChangeRequest, error) {
	if m.ListPendingFn != nil {
		return m.ListPendingFn(ctx, limit, offset)
	}
	return nil, nil
}

type mockNotificationRepo struct {
	CreateFn      func(ctx context.Context, notification *domain.Notification) error
	ListByUserFn  func(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkReadFn    func(ctx context.Context, userID, notificationID string) error
	MarkAllReadFn func(ctx context.Context, userID string) (int64, error)
	CountUnreadFn func(ctx context.Context, userID string) (int64, error)

	created []*domain.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, notification)
	}
	if notification.ID == "" {
		notification.ID = fmt.Sprintf("notif-%d", len(m.created)+1)
	}
	m.created = append(m.created, notification)
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID, unreadOnly, limit, offset)
	}
	return nil, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	if m.MarkReadFn != nil {
		return m.MarkReadFn(ctx, userID, notificationID)
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if m.MarkAllReadFn != nil {
		return m.MarkAllReadFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	if m.CountUnreadFn != nil {
		return m.CountUnreadFn(ctx, userID)
	}
	return 0, nil
}

// recipientIDs collects the user IDs of created notifications.
func (m *mockNotificationRepo) recipientIDs() []string {
	ids := make([]string, 0, len(m.created))
	for _, n := range m.created {
		ids = append(ids, n.UserID)
	}
	return ids
}

type mockActivityRepo struct {
	CreateFn         func(ctx context.Context, entry *domain.ActivityLog) error
	ListWithFilterFn func(ctx context.Context, filter repository.ActivityLogFilter) ([]domain.ActivityLog, error)

	created []*domain.ActivityLog
}

func (m *mockActivityRepo) Create(ctx context.Context, entry *domain.ActivityLog) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, entry)
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("activity-%d", len(m.created)+1)
	}
	m.created = append(m.created, entry)
	return nil
}

func (m *mockActivityRepo) ListWithFilter(ctx context.Context, filter repository.ActivityLogFilter) ([]domain.ActivityLog, error) {
	if m.ListWithFilterFn != nil {
		return m.ListWithFilterFn(ctx, filter)
	}
	return nil, nil
}

type mockResetRepo struct {
	CreateFn     func(ctx context.Context, token *repository.PasswordResetToken) error
	GetByTokenFn func(ctx context.Context, tokenStr string) (*repository.PasswordResetToken, error)
	MarkUsedFn   func(ctx context.Context, id string) error

	created []*repository.PasswordResetToken
	used    []string
}

func (m *mockResetRepo) Create(ctx context.Context, token *repository.PasswordResetToken) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, token)
	}
	if token.ID == "" {
		token.ID = fmt.Sprintf("reset-%d", len(m.created)+1)
	}
	m.created = append(m.created, token)
	return nil
}

func (m *mockResetRepo) GetByToken(ctx context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	if m.GetByTokenFn != nil {
		return m.GetByTokenFn(ctx, tokenStr)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockResetRepo) MarkUsed(ctx context.Context, id string) error {
	if m.MarkUsedFn != nil {
		return m.MarkUsedFn(ctx, id)
	}
	m.used = append(m.used, id)
	return nil
}

// recordingDispatcher captures published events without invoking handlers.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	var matched []events.Event
	for _, event := range d.published() {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// recordingMailer captures enqueued messages.
type recordingMailer struct {
	mu       sync.Mutex
	messages []email.Message
}

func (m *recordingMailer) Enqueue(msg email.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *recordingMailer) sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message{}, m.messages...)
}

type mockBlobClient struct {
	UploadFn func(ctx context.Context, requestID string, upload blob.Upload, uploaderID string) (*blob.Stored, error)

	uploads []blob.Upload
}

func (m *mockBlobClient) Upload(ctx context.Context, requestID string, upload blob.Upload, uploaderID string) (*blob.Stored, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, requestID, upload, uploaderID)
	}
	m.uploads = append(m.uploads, upload)
	return &blob.Stored{
		URL:      fmt.Sprintf("http://files.local/%s/%s", requestID, upload.FileName),
		FileSize: 64,
		MimeType: "application/octet-stream",
	}, nil
}

func strPtr(s string) *string { return &s }
