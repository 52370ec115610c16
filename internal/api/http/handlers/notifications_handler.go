package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-queue/internal/api/dto"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/repository"
	"github.com/spec-kit/service-queue/internal/service"
)

// NotificationsHandler exposes the inbox and the audit trail.
type NotificationsHandler struct {
	service *service.InboxService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(inboxService *service.InboxService) *NotificationsHandler {
	return &NotificationsHandler{service: inboxService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	unreadOnly := c.QueryBool("unread_only")
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	notifications, err := h.service.ListNotifications(c.UserContext(), actor, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, notificationResponse(&notifications[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	count, err := h.service.MarkAllRead(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked": count}})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	count, err := h.service.UnreadCount(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread": count}})
}

// ListActivity GET /activity-logs.
func (h *NotificationsHandler) ListActivity(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	filter := repository.ActivityLogFilter{
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
	}
	if requestID := c.Query("request_id"); requestID != "" {
		filter.RequestID = &requestID
	}
	if types := c.Query("type"); types != "" {
		for _, part := range strings.Split(types, ",") {
			filter.Types = append(filter.Types, domain.ActivityType(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	entries, err := h.service.ListActivity(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ActivityLogResponse, 0, len(entries))
	for i := range entries {
		items = append(items, activityResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func notificationResponse(notification *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        notification.ID,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		Metadata:  notification.Metadata,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}

func activityResponse(entry *domain.ActivityLog) dto.ActivityLogResponse {
	return dto.ActivityLogResponse{
		ID:          entry.ID,
		UserID:      entry.UserID,
		CompanyID:   entry.CompanyID,
		Type:        entry.Type,
		Description: entry.Description,
		RequestID:   entry.RequestID,
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
	}
}
