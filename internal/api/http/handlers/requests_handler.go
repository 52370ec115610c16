package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-queue/internal/api/dto"
	"github.com/spec-kit/service-queue/internal/auth"
	"github.com/spec-kit/service-queue/internal/blob"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/service"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

// RequestsHandler exposes the service-request lifecycle over HTTP.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// Create POST /requests. Accepts JSON, or multipart with the same fields as
// form values plus file parts under "files".
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	var payload dto.CreateRequestPayload
	var files []blob.Upload
	var closers []multipart.File

	if form, formErr := c.MultipartForm(); formErr == nil && form != nil {
		payload = dto.CreateRequestPayload{
			InsuredName: formValue(form, "insured_name"),
			Narrative:   formValue(form, "narrative"),
			Category:    formValue(form, "category"),
			AssignedBy:  formValue(form, "assigned_by"),
			AssignedTo:  formValuePtr(form, "assigned_to"),
			CompanyID:   formValuePtr(form, "company_id"),
			DueDate:     formValuePtr(form, "due_date"),
			DueTime:     formValuePtr(form, "due_time"),
		}
		files, closers, err = openUploads(form.File["files"])
		if err != nil {
			return err
		}
		defer closeAll(closers)
	} else if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := dto.Validate(payload); err != nil {
		return err
	}
	dueDate, err := parseDate(payload.DueDate)
	if err != nil {
		return err
	}

	input := service.RequestCreateInput{
		InsuredName: payload.InsuredName,
		Narrative:   payload.Narrative,
		Category:    payload.Category,
		AssignedBy:  payload.AssignedBy,
		AssignedTo:  payload.AssignedTo,
		CompanyID:   payload.CompanyID,
		DueDate:     dueDate,
		DueTime:     payload.DueTime,
		Files:       files,
	}
	request, err := h.service.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": requestSummary(request)})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}

	input := service.RequestListInput{
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			input.Statuses = append(input.Statuses, strings.TrimSpace(part))
		}
	}
	if categories := c.Query("category"); categories != "" {
		for _, part := range strings.Split(categories, ",") {
			input.Categories = append(input.Categories, strings.TrimSpace(part))
		}
	}
	if search := c.Query("search"); search != "" {
		input.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	input.Offset = (page - 1) * pageSize
	input.Limit = pageSize

	requests, err := h.service.List(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, requestSummary(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(detail)})
}

// Update PATCH /requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.UpdateRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dueDate, err := parseDate(payload.DueDate)
	if err != nil {
		return err
	}

	input := service.RequestUpdateInput{
		InsuredName:      payload.InsuredName,
		Narrative:        payload.Narrative,
		Category:         payload.Category,
		TaskStatus:       payload.TaskStatus,
		AssignedTo:       payload.AssignedTo,
		ClearAssignee:    payload.ClearAssignee,
		DueDate:          dueDate,
		ClearDueDate:     payload.ClearDueDate,
		DueTime:          payload.DueTime,
		TimeSpentMinutes: payload.TimeSpentMinutes,
	}
	request, err := h.service.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// AddNote POST /requests/:id/notes.
func (h *RequestsHandler) AddNote(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var payload dto.CreateNotePayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(payload); err != nil {
		return err
	}

	note, err := h.service.AddNote(c.UserContext(), actor, c.Params("id"), payload.Body, payload.Internal)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": noteResponse(note)})
}

// AddAttachments POST /requests/:id/attachments (multipart).
func (h *RequestsHandler) AddAttachments(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return apperrors.NewValidationError("multipart form required", nil)
	}
	files, closers, err := openUploads(form.File["files"])
	if err != nil {
		return err
	}
	defer closeAll(closers)
	if len(files) == 0 {
		return apperrors.NewValidationError("at least one file is required", map[string]any{"field": "files"})
	}

	stored, err := h.service.AddAttachments(c.UserContext(), actor, c.Params("id"), files)
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(stored))
	for i := range stored {
		items = append(items, attachmentResponse(&stored[i]))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": items})
}

func actorFromContext(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor, nil
}

func formValue(form *multipart.Form, key string) string {
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func formValuePtr(form *multipart.Form, key string) *string {
	values := form.Value[key]
	if len(values) == 0 || values[0] == "" {
		return nil
	}
	return &values[0]
}

func openUploads(headers []*multipart.FileHeader) ([]blob.Upload, []multipart.File, error) {
	var uploads []blob.Upload
	var closers []multipart.File
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, apperrors.NewValidationError("unreadable file part", map[string]any{"file": header.Filename})
		}
		closers = append(closers, file)
		uploads = append(uploads, blob.Upload{
			FileName: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Reader:   file,
		})
	}
	return uploads, closers, nil
}

func closeAll(files []multipart.File) {
	for _, file := range files {
		_ = file.Close()
	}
}

func parseDate(val *string) (*time.Time, error) {
	if val == nil || *val == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *val)
	if err != nil {
		return nil, apperrors.NewValidationError("due date must be YYYY-MM-DD", map[string]any{"field": "due_date"})
	}
	return &parsed, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func requestSummary(request *domain.ServiceRequest) dto.RequestSummary {
	return dto.RequestSummary{
		ID:          request.ID,
		QueueID:     request.QueueID,
		InsuredName: request.InsuredName,
		Category:    request.Category,
		CompanyID:   request.CompanyID,
		AssignedBy:  request.AssignedBy,
		AssignedTo:  request.AssignedTo,
		TaskStatus:  request.TaskStatus,
		DueDate:     request.DueDate,
		DueTime:     request.DueTime,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
}

func requestDetail(detail *service.RequestDetail) dto.RequestDetailResponse {
	notes := make([]dto.NoteResponse, 0, len(detail.Notes))
	for i := range detail.Notes {
		notes = append(notes, noteResponse(&detail.Notes[i]))
	}
	attachments := make([]dto.AttachmentResponse, 0, len(detail.Attachments))
	for i := range detail.Attachments {
		attachments = append(attachments, attachmentResponse(&detail.Attachments[i]))
	}
	request := detail.Request
	return dto.RequestDetailResponse{
		RequestSummary:   requestSummary(request),
		Narrative:        request.Narrative,
		InProgressAt:     request.InProgressAt,
		ClosedAt:         request.ClosedAt,
		TimeSpentMinutes: request.TimeSpentMinutes,
		ModifiedBy:       request.ModifiedBy,
		Notes:            notes,
		Attachments:      attachments,
	}
}

func noteResponse(note *domain.RequestNote) dto.NoteResponse {
	return dto.NoteResponse{
		ID:        note.ID,
		AuthorID:  note.AuthorID,
		Body:      note.Body,
		Internal:  note.Internal,
		CreatedAt: note.CreatedAt,
	}
}

func attachmentResponse(attachment *domain.RequestAttachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         attachment.ID,
		FileName:   attachment.FileName,
		FileURL:    attachment.FileURL,
		FileSize:   attachment.FileSize,
		MimeType:   attachment.MimeType,
		UploadedBy: attachment.UploadedBy,
		CreatedAt:  attachment.CreatedAt,
	}
}
