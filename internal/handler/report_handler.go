package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/service"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/export"
	"github.com/noah-isme/office-inventory-api/pkg/response"
)

type reportService interface {
	Visits(ctx context.Context, actor service.Actor, filter models.VisitFilter) ([]models.VisitLog, *models.Pagination, error)
	PageStats(ctx context.Context) ([]models.PageStat, error)
	UserStats(ctx context.Context) ([]models.UserStat, error)
	Export(ctx context.Context, kind service.ReportKind, format export.Format) (*service.ExportFile, error)
}

// ReportHandler serves visit logs, statistics and report downloads.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Visits godoc
// @Summary Visit log
// @Description Administrators see every visit; other users only their own
// @Tags Reports
// @Produce json
// @Param user_id query int false "User ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/visits [get]
func (h *ReportHandler) Visits(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.VisitFilter{Page: queryInt(c, "page", 1), PageSize: queryInt(c, "page_size", 10)}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user_id"))
			return
		}
		filter.UserID = &id
	}

	logs, pagination, err := h.service.Visits(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// PageStats godoc
// @Summary Visits per page
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/pages [get]
func (h *ReportHandler) PageStats(c *gin.Context) {
	stats, err := h.service.PageStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// UserStats godoc
// @Summary Visits per user
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/users [get]
func (h *ReportHandler) UserStats(c *gin.Context) {
	stats, err := h.service.UserStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export report
// @Tags Reports
// @Produce text/csv,application/pdf
// @Param kind path string true "pages, users or equipment"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{kind}/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	file, err := h.service.Export(c.Request.Context(), service.ReportKind(c.Param("kind")), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.FileName, file.ContentType, file.Data)
}
