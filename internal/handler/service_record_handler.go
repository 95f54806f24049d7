package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/service"
	"github.com/noah-isme/office-inventory-api/pkg/response"
)

type serviceRecordService interface {
	Add(ctx context.Context, equipmentID int64, req models.ServiceRecordRequest, actor service.Actor) (*models.ServiceRecord, error)
	List(ctx context.Context, equipmentID int64, page, pageSize int) ([]models.ServiceRecord, *models.Pagination, error)
}

// ServiceRecordHandler serves equipment service history.
type ServiceRecordHandler struct {
	service serviceRecordService
}

// NewServiceRecordHandler constructs a ServiceRecordHandler.
func NewServiceRecordHandler(svc serviceRecordService) *ServiceRecordHandler {
	return &ServiceRecordHandler{service: svc}
}

// List godoc
// @Summary Service history
// @Tags Service history
// @Produce json
// @Param id path int true "Equipment ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment/{id}/service-records [get]
func (h *ServiceRecordHandler) List(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, pagination, err := h.service.List(c.Request.Context(), id, queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Add godoc
// @Summary Add service record
// @Tags Service history
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Param payload body models.ServiceRecordRequest true "Service record"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /equipment/{id}/service-records [post]
func (h *ServiceRecordHandler) Add(c *gin.Context) {
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
	var req models.ServiceRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid service record payload"))
		return
	}

	record, err := h.service.Add(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
