package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/repository"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

const unreadCountTTL = 5 * time.Minute

// InboxService serves the in-app notification inbox and the audit-trail
// listing. Unread counts are cached in Redis with a DB fallback; the cache is
// invalidated on every read-state change.
type InboxService struct {
	notifications repository.NotificationRepository
	activity      repository.ActivityLogRepository
	cache         *redis.Client
	logger        *zap.Logger
}

// InboxDependencies bundles collaborators.
type InboxDependencies struct {
	NotificationRepo repository.NotificationRepository
	ActivityRepo     repository.ActivityLogRepository
	Cache            *redis.Client
	Logger           *zap.Logger
}

// NewInboxService constructs the service.
func NewInboxService(deps InboxDependencies) *InboxService {
	svc := &InboxService{
		notifications: deps.NotificationRepo,
		activity:      deps.ActivityRepo,
		cache:         deps.Cache,
		logger:        deps.Logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// ListNotifications returns the actor's inbox, newest first.
func (s *InboxService) ListNotifications(ctx context.Context, actor domain.Actor, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	result, err := s.notifications.ListByUser(ctx, actor.UserID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// MarkRead flips one notification owned by the actor.
func (s *InboxService) MarkRead(ctx context.Context, actor domain.Actor, notificationID string) error {
	if err := s.notifications.MarkRead(ctx, actor.UserID, notificationID); err != nil {
		return apperrors.MapError(err)
	}
	s.invalidateUnread(ctx, actor.UserID)
	return nil
}

// MarkAllRead flips every unread notification owned by the actor.
func (s *InboxService) MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error) {
	count, err := s.notifications.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.invalidateUnread(ctx, actor.UserID)
	return count, nil
}

// UnreadCount returns the actor's unread total, served from Redis when warm.
func (s *InboxService) UnreadCount(ctx context.Context, actor domain.Actor) (int64, error) {
	key := unreadKey(actor.UserID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return count, nil
			}
		}
	}

	count, err := s.notifications.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, strconv.FormatInt(count, 10), unreadCountTTL).Err(); err != nil {
			s.logger.Debug("unread count cache set failed", zap.String("user_id", actor.UserID), zap.Error(err))
		}
	}
	return count, nil
}

// ListActivity returns audit entries. Super admins and agent managers see
// everything; customer admins see their company; everyone else sees only
// their own actions.
func (s *InboxService) ListActivity(ctx context.Context, actor domain.Actor, filter repository.ActivityLogFilter) ([]domain.ActivityLog, error) {
	switch actor.Role {
	case domain.RoleSuperAdmin, domain.RoleAgentManager:
		// unscoped
	case domain.RoleCustomerAdmin:
		if actor.CompanyID == nil {
			return nil, apperrors.NewForbidden("customer account has no company")
		}
		filter.CompanyID = actor.CompanyID
	case domain.RoleCustomer, domain.RoleAgent:
		self := actor.UserID
		filter.UserID = &self
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	result, err := s.activity.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func (s *InboxService) invalidateUnread(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadKey(userID)).Err(); err != nil {
		s.logger.Debug("unread count cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func unreadKey(userID string) string {
	return fmt.Sprintf("notif:unread:%s", userID)
}
