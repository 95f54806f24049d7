package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-inventory-api/internal/dto"
	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/permission"
	"github.com/noah-isme/office-inventory-api/internal/query"
	"github.com/noah-isme/office-inventory-api/internal/service"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/response"
)

// multipartOverhead is allowed on top of the image limit for the other form fields.
const multipartOverhead = 1 << 20

type equipmentService interface {
	List(ctx context.Context, criteria query.Criteria, sort query.Sort, page, pageSize int) (*service.EquipmentList, error)
	Get(ctx context.Context, id int64) (*models.EquipmentDetail, error)
	GetWithHistory(ctx context.Context, id int64, historyPage int) (*models.EquipmentWithHistory, error)
	ResponsibleCandidates(ctx context.Context) ([]models.ResponsibleCandidate, error)
	Create(ctx context.Context, req models.EquipmentRequest, upload *models.ImageUpload, actor service.Actor) (*models.EquipmentDetail, error)
	Update(ctx context.Context, id int64, req models.EquipmentRequest, upload *models.ImageUpload, actor service.Actor) (*models.EquipmentDetail, error)
	Delete(ctx context.Context, id int64, actor service.Actor) error
}

type categoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

// EquipmentHandler serves the equipment inventory endpoints.
type EquipmentHandler struct {
	service        equipmentService
	categories     categoryLister
	evaluator      *permission.Evaluator
	pageSize       int
	maxUploadBytes int64
}

// NewEquipmentHandler constructs an EquipmentHandler. The evaluator decides whether
// the detail response embeds service history; a nil evaluator never embeds it.
func NewEquipmentHandler(svc equipmentService, categories categoryLister, evaluator *permission.Evaluator, pageSize int, maxUploadBytes int64) *EquipmentHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &EquipmentHandler{service: svc, categories: categories, evaluator: evaluator, pageSize: pageSize, maxUploadBytes: maxUploadBytes}
}

// List godoc
// @Summary List equipment
// @Description Filter, sort and page equipment. Malformed filters are ignored and reported in meta.warnings.
// @Tags Equipment
// @Produce json
// @Param name_filter query string false "Name substring"
// @Param category_id query int false "Category ID"
// @Param status query string false "InOperation, UnderRepair or WrittenOff"
// @Param purchase_date_from query string false "YYYY-MM-DD"
// @Param purchase_date_to query string false "YYYY-MM-DD"
// @Param sort_by query string false "name, inventory_number, purchase_date, status, category_name"
// @Param sort_direction query string false "asc or desc"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment [get]
func (h *EquipmentHandler) List(c *gin.Context) {
	q, warnings := dto.ParseEquipmentListQuery(c.Request.URL.Query(), h.pageSize)

	list, err := h.service.List(c.Request.Context(), q.Criteria, q.Sort, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list.Items, list.Pagination, mergeMeta(c, dto.BuildWarningsMeta(warnings)))
}

// Filters godoc
// @Summary Equipment filter options
// @Description Statuses, categories and sort keys accepted by the list endpoint
// @Tags Equipment
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment/filters [get]
func (h *EquipmentHandler) Filters(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"statuses":        models.EquipmentStatuses,
		"categories":      categories,
		"sort_fields":     query.SortableFields(),
		"sort_directions": []query.Direction{query.Ascending, query.Descending},
		"default_sort":    query.DefaultSort,
	}, nil)
}

// Get godoc
// @Summary Get equipment
// @Description Equipment detail; includes one page of service history when the caller may view it
// @Tags Equipment
// @Produce json
// @Param id path int true "Equipment ID"
// @Param history_page query int false "Service history page"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment/{id} [get]
func (h *EquipmentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.canViewHistory(c) {
		item, err := h.service.Get(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, item, nil)
		return
	}
	item, err := h.service.GetWithHistory(c.Request.Context(), id, queryInt(c, "history_page", 1))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *EquipmentHandler) canViewHistory(c *gin.Context) bool {
	claims := claimsFromContext(c)
	if claims == nil || h.evaluator == nil {
		return false
	}
	return h.evaluator.Can(claims.Role, permission.ViewServiceHistory)
}

// ResponsibleCandidates godoc
// @Summary Responsible user candidates
// @Tags Equipment
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment/responsible-candidates [get]
func (h *EquipmentHandler) ResponsibleCandidates(c *gin.Context) {
	candidates, err := h.service.ResponsibleCandidates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Create godoc
// @Summary Create equipment
// @Description Accepts JSON or multipart/form-data with an optional "image" file
// @Tags Equipment
// @Accept json,mpfd
// @Produce json
// @Param payload body models.EquipmentRequest true "Equipment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment [post]
func (h *EquipmentHandler) Create(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, upload, err := h.bindEquipment(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	item, err := h.service.Create(c.Request.Context(), req, upload, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update equipment
// @Tags Equipment
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Equipment ID"
// @Param payload body models.EquipmentRequest true "Equipment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment/{id} [put]
func (h *EquipmentHandler) Update(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	req, upload, err := h.bindEquipment(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	item, err := h.service.Update(c.Request.Context(), id, req, upload, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete equipment
// @Tags Equipment
// @Param id path int true "Equipment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment/{id} [delete]
func (h *EquipmentHandler) Delete(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *EquipmentHandler) bindEquipment(c *gin.Context) (models.EquipmentRequest, *models.ImageUpload, error) {
	var req models.EquipmentRequest
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, nil, bindError(err, "invalid equipment payload")
		}
		return req, nil, nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "request body too large")
		}
		return req, nil, bindError(err, "invalid equipment form")
	}
	upload, err := h.readUpload(c)
	if err != nil {
		return req, nil, err
	}
	return req, upload, nil
}

// readUpload returns the "image" form file or nil when none was sent. The
// read is capped one byte past the limit so the image service can reject it.
func (h *EquipmentHandler) readUpload(c *gin.Context) (*models.ImageUpload, error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, bindError(err, "invalid image upload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, bindError(err, "invalid image upload")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, bindError(err, "failed to read image upload")
	}
	return &models.ImageUpload{FileName: header.Filename, Content: content}, nil
}
