package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/middleware"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
	"github.com/noah-isme/gov-portal-api/pkg/response"
)

type dashboardService interface {
	Console(ctx context.Context) (*dto.DashboardResponse, bool, error)
}

type activityService interface {
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

// DashboardHandler serves the employee console landing data.
type DashboardHandler struct {
	service    dashboardService
	activities activityService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, activities activityService) *DashboardHandler {
	return &DashboardHandler{service: service, activities: activities}
}

// Console godoc
// @Summary Employee console summary
// @Description Appeal counts, recent activity and payment/resource summaries. Cached.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Console(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, cacheHit, err := h.service.Console(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Activities godoc
// @Summary Recent activity feed
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Number of entries (default 20, max 100)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /activities [get]
func (h *DashboardHandler) Activities(c *gin.Context) {
	if h.activities == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	items, err := h.activities.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
