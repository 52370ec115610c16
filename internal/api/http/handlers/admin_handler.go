package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-queue/internal/api/dto"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/service"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

// AdminHandler exposes user and company administration.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{service: adminService}
}

// CreateUser POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.AdminCreateUserPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(payload); err != nil {
		return err
	}

	user, err := h.service.CreateUser(c.UserContext(), actor, service.UserCreateInput{
		Name:        payload.Name,
		Email:       payload.Email,
		Password:    payload.Password,
		Role:        payload.Role,
		CompanyCode: payload.CompanyCode,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// UpdateUser PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.AdminUpdateUserPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.service.UpdateUser(c.UserContext(), actor, c.Params("id"), payload.Name, payload.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// CreateCompany POST /admin/companies.
func (h *AdminHandler) CreateCompany(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.CreateCompanyPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(payload); err != nil {
		return err
	}

	company, err := h.service.CreateCompany(c.UserContext(), actor, payload.Name, payload.Code)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": companyResponse(company)})
}

// UpdateCompany PATCH /admin/companies/:id.
func (h *AdminHandler) UpdateCompany(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.UpdateCompanyPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	company, err := h.service.UpdateCompany(c.UserContext(), actor, c.Params("id"), payload.Name, payload.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponse(company)})
}

// ListCompanies GET /admin/companies.
func (h *AdminHandler) ListCompanies(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	companies, err := h.service.ListCompanies(c.UserContext(), actor, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		items = append(items, companyResponse(&companies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAgents GET /agents.
func (h *AdminHandler) ListAgents(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	agents, err := h.service.ListAssignableAgents(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(agents))
	for i := range agents {
		items = append(items, userResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func companyResponse(company *domain.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:        company.ID,
		Name:      company.Name,
		Code:      company.Code,
		Active:    company.Active,
		CreatedAt: company.CreatedAt,
		UpdatedAt: company.UpdatedAt,
	}
}
