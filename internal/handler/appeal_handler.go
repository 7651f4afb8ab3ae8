package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/middleware"
	"github.com/noah-isme/gov-portal-api/internal/models"
	"github.com/noah-isme/gov-portal-api/internal/service"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
	"github.com/noah-isme/gov-portal-api/pkg/response"
)

type appealService interface {
	List(ctx context.Context, spec models.AppealFilterSpec) (*dto.AppealListResponse, error)
	ListMine(ctx context.Context, submitter *models.JWTClaims, spec models.AppealFilterSpec) (*dto.AppealListResponse, error)
	Stats(ctx context.Context) (models.AppealStats, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appeal, error)
	History(ctx context.Context, id string) ([]models.AuditLog, error)
	Submit(ctx context.Context, req dto.CreateAppealRequest, submitter *models.JWTClaims, refresh service.RefreshFunc) (*models.Appeal, error)
	Review(ctx context.Context, id string, req dto.ReviewAppealRequest, reviewer *models.JWTClaims, refresh service.RefreshFunc) (*models.Appeal, error)
}

type appealExporter interface {
	Appeals(ctx context.Context, spec models.AppealFilterSpec, format service.ExportFormat) (*service.ExportResult, error)
}

// AppealHandler exposes the resident submission and employee moderation endpoints.
type AppealHandler struct {
	service  appealService
	exporter appealExporter
	refresh  service.RefreshFunc
}

// NewAppealHandler constructs the handler. refresh runs after every successful mutation.
func NewAppealHandler(svc appealService, exporter appealExporter, refresh service.RefreshFunc) *AppealHandler {
	return &AppealHandler{service: svc, exporter: exporter, refresh: refresh}
}

// List godoc
// @Summary List appeals
// @Description Refetches the register and returns the filtered view with stats over all appeals
// @Tags Appeals
// @Produce json
// @Param search query string false "Free-text search over title, body, submitter and id"
// @Param status query string false "Under Review | In Progress | Completed | Rejected | all"
// @Param category query string false "technical | administrative | complaint | suggestion | other | all"
// @Param date query string false "all | today | week | month | quarter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals [get]
func (h *AppealHandler) List(c *gin.Context) {
	spec, ok := bindAppealFilter(c)
	if !ok {
		return
	}
	result, err := h.service.List(c.Request.Context(), spec)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Mine godoc
// @Summary List own appeals
// @Tags Appeals
// @Produce json
// @Param search query string false "Free-text search"
// @Param status query string false "Status filter"
// @Param category query string false "Category filter"
// @Param date query string false "Date bucket"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals/mine [get]
func (h *AppealHandler) Mine(c *gin.Context) {
	spec, ok := bindAppealFilter(c)
	if !ok {
		return
	}
	result, err := h.service.ListMine(c.Request.Context(), claimsFromContext(c), spec)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Stats godoc
// @Summary Appeal counts
// @Tags Appeals
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals/stats [get]
func (h *AppealHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Get godoc
// @Summary Get appeal
// @Tags Appeals
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals/{id} [get]
func (h *AppealHandler) Get(c *gin.Context) {
	appeal, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}

// History godoc
// @Summary Appeal audit trail
// @Tags Appeals
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals/{id}/history [get]
func (h *AppealHandler) History(c *gin.Context) {
	logs, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Submit godoc
// @Summary Submit appeal
// @Description Stores a resident appeal with status Under Review and priority Medium
// @Tags Appeals
// @Accept json
// @Produce json
// @Param payload body dto.CreateAppealRequest true "Appeal payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals [post]
func (h *AppealHandler) Submit(c *gin.Context) {
	var req dto.CreateAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appeal payload"))
		return
	}
	appeal, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c), h.refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appeal)
}

// Review godoc
// @Summary Review appeal
// @Description Sets status and priority and records the moderator response
// @Tags Appeals
// @Accept json
// @Produce json
// @Param id path string true "Appeal ID"
// @Param payload body dto.ReviewAppealRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals/{id}/review [put]
func (h *AppealHandler) Review(c *gin.Context) {
	var req dto.ReviewAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	appeal, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c), h.refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}

// Export godoc
// @Summary Export appeal register
// @Description Renders the filtered register as CSV or PDF
// @Tags Appeals
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv | pdf"
// @Param search query string false "Free-text search"
// @Param status query string false "Status filter"
// @Param category query string false "Category filter"
// @Param date query string false "Date bucket"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /appeals/export [get]
func (h *AppealHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export is disabled"))
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	spec, ok := bindAppealFilter(c)
	if !ok {
		return
	}
	result, err := h.exporter.Appeals(c.Request.Context(), spec, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}

func bindAppealFilter(c *gin.Context) (models.AppealFilterSpec, bool) {
	var query dto.AppealQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter parameters"))
		return models.AppealFilterSpec{}, false
	}
	spec, err := service.ParseAppealFilterSpec(query)
	if err != nil {
		response.Error(c, err)
		return models.AppealFilterSpec{}, false
	}
	return spec, true
}
