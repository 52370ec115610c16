package dto

import (
	"time"

	"github.com/spec-kit/service-queue/internal/domain"
)

// NotificationResponse projection.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Metadata  map[string]any          `json:"metadata"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}

// ActivityLogResponse projection.
type ActivityLogResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	CompanyID   *string             `json:"company_id"`
	Type        domain.ActivityType `json:"type"`
	Description string              `json:"description"`
	RequestID   *string             `json:"request_id"`
	Metadata    map[string]any      `json:"metadata"`
	CreatedAt   time.Time           `json:"created_at"`
}
