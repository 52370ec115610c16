package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-queue/internal/api/dto"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/service"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

// AssignmentChangesHandler exposes the reassignment workflow.
type AssignmentChangesHandler struct {
	service *service.AssignmentService
}

// NewAssignmentChangesHandler constructs handler.
func NewAssignmentChangesHandler(assignmentService *service.AssignmentService) *AssignmentChangesHandler {
	return &AssignmentChangesHandler{service: assignmentService}
}

// Create POST /requests/:id/assignment-changes.
func (h *AssignmentChangesHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.CreateAssignmentChangePayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(payload); err != nil {
		return err
	}

	change, err := h.service.RequestChange(c.UserContext(), actor, c.Params("id"), payload.RequestedAssigneeID, payload.Reason)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": changeResponse(change)})
}

// ListForRequest GET /requests/:id/assignment-changes.
func (h *AssignmentChangesHandler) ListForRequest(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	changes, err := h.service.ListForRequest(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponses(changes)})
}

// ListPending GET /assignment-changes/pending.
func (h *AssignmentChangesHandler) ListPending(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	changes, err := h.service.ListPending(c.UserContext(), actor, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponses(changes)})
}

// Review POST /assignment-changes/:id/review.
func (h *AssignmentChangesHandler) Review(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.ReviewAssignmentChangePayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(payload); err != nil {
		return err
	}

	change, err := h.service.Review(c.UserContext(), actor, c.Params("id"), service.ReviewAction(payload.Action), payload.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponse(change)})
}

func changeResponse(change *domain.AssignmentChangeRequest) dto.AssignmentChangeResponse {
	return dto.AssignmentChangeResponse{
		ID:                  change.ID,
		RequestID:           change.RequestID,
		RequestedBy:         change.RequestedBy,
		CurrentAssigneeID:   change.CurrentAssigneeID,
		RequestedAssigneeID: change.RequestedAssigneeID,
		Reason:              change.Reason,
		Status:              change.Status,
		ReviewedBy:          change.ReviewedBy,
		ReviewComment:       change.ReviewComment,
		CreatedAt:           change.CreatedAt,
		UpdatedAt:           change.UpdatedAt,
	}
}

func changeResponses(changes []domain.AssignmentChangeRequest) []dto.AssignmentChangeResponse {
	items := make([]dto.AssignmentChangeResponse, 0, len(changes))
	for i := range changes {
		items = append(items, changeResponse(&changes[i]))
	}
	return items
}
