package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
	"github.com/noah-isme/gov-portal-api/pkg/response"
)

type catalogService interface {
	List(ctx context.Context, filter models.CatalogFilter, actor *models.JWTClaims) ([]models.CatalogService, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.CatalogService, error)
	Create(ctx context.Context, req dto.UpsertCatalogServiceRequest, actor *models.JWTClaims) (*models.CatalogService, error)
	Update(ctx context.Context, id string, req dto.UpsertCatalogServiceRequest, actor *models.JWTClaims) (*models.CatalogService, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// CatalogHandler serves the municipal service catalog.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// List godoc
// @Summary List catalog services
// @Description Residents and anonymous callers only see active entries
// @Tags Services
// @Produce json
// @Param category query string false "Category"
// @Param search query string false "Search by name or description"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /services [get]
func (h *CatalogHandler) List(c *gin.Context) {
	filter := models.CatalogFilter{
		Category: strings.ToLower(c.Query("category")),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get catalog service
// @Tags Services
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /services/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create catalog service
// @Tags Services
// @Accept json
// @Produce json
// @Param payload body dto.UpsertCatalogServiceRequest true "Service payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /services [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	var req dto.UpsertCatalogServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update catalog service
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Service ID"
// @Param payload body dto.UpsertCatalogServiceRequest true "Service payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /services/{id} [put]
func (h *CatalogHandler) Update(c *gin.Context) {
	var req dto.UpsertCatalogServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete catalog service
// @Tags Services
// @Param id path string true "Service ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /services/{id} [delete]
func (h *CatalogHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
