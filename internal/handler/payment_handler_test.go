package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type fakePaymentSrv struct {
	filter    models.PaymentFilter
	actor     *models.JWTClaims
	statusReq dto.UpdatePaymentStatusRequest
	statusErr error
}

func (f *fakePaymentSrv) List(_ context.Context, filter models.PaymentFilter, actor *models.JWTClaims) ([]models.Payment, *models.Pagination, error) {
	f.filter = filter
	f.actor = actor
	return []models.Payment{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakePaymentSrv) Get(_ context.Context, id string, _ *models.JWTClaims) (*models.Payment, error) {
	return &models.Payment{ID: id}, nil
}

func (f *fakePaymentSrv) Create(_ context.Context, req dto.CreatePaymentRequest, _ *models.JWTClaims) (*models.Payment, error) {
	return &models.Payment{ID: "p-1", UserID: req.UserID, Amount: req.Amount, Status: models.PaymentPending}, nil
}

func (f *fakePaymentSrv) UpdateStatus(_ context.Context, id string, req dto.UpdatePaymentStatusRequest, _ *models.JWTClaims) (*models.Payment, error) {
	f.statusReq = req
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &models.Payment{ID: id, Status: req.Status}, nil
}

func TestPaymentHandlerListPassesFilterAndActor(t *testing.T) {
	svc := &fakePaymentSrv{}
	handler := NewPaymentHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/payments?status=paid&user_id=res-2", "", testResident)
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PaymentPaid, svc.filter.Status)
	assert.Equal(t, "res-2", svc.filter.UserID)
	assert.Equal(t, testResident, svc.actor)
}

func TestPaymentHandlerUpdateStatusConflict(t *testing.T) {
	svc := &fakePaymentSrv{statusErr: appErrors.Clone(appErrors.ErrConflict, "payment already settled")}
	handler := NewPaymentHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/payments/p-1/status", `{"status":"failed"}`, testEmployee)
	c.Params = gin.Params{{Key: "id", Value: "p-1"}}
	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.PaymentFailed, svc.statusReq.Status)
}

func TestPaymentHandlerCreate(t *testing.T) {
	handler := NewPaymentHandler(&fakePaymentSrv{})

	c, rec := newTestContext(http.MethodPost, "/payments", `{"user_id":"res-1","amount":120.5,"purpose":"Waste collection"}`, testEmployee)
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", decodeEnvelope(t, rec).Data["status"])
}

type fakeCatalogSrv struct {
	filter  models.CatalogFilter
	deleted string
}

func (f *fakeCatalogSrv) List(_ context.Context, filter models.CatalogFilter, _ *models.JWTClaims) ([]models.CatalogService, *models.Pagination, error) {
	f.filter = filter
	return []models.CatalogService{}, &models.Pagination{}, nil
}

func (f *fakeCatalogSrv) Get(_ context.Context, id string) (*models.CatalogService, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
}

func (f *fakeCatalogSrv) Create(_ context.Context, req dto.UpsertCatalogServiceRequest, _ *models.JWTClaims) (*models.CatalogService, error) {
	return &models.CatalogService{ID: "svc-1", Name: req.Name}, nil
}

func (f *fakeCatalogSrv) Update(_ context.Context, id string, req dto.UpsertCatalogServiceRequest, _ *models.JWTClaims) (*models.CatalogService, error) {
	return &models.CatalogService{ID: id, Name: req.Name}, nil
}

func (f *fakeCatalogSrv) Delete(_ context.Context, id string, _ *models.JWTClaims) error {
	f.deleted = id
	return nil
}

func TestCatalogHandlerEndpoints(t *testing.T) {
	svc := &fakeCatalogSrv{}
	handler := NewCatalogHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/services?category=Documents&page=3", "", nil)
	handler.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "documents", svc.filter.Category)
	assert.Equal(t, 3, svc.filter.Page)

	c, rec = newTestContext(http.MethodGet, "/services/missing", "", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/services", `{"name":"Passport issuance","category":"documents","department":"Migration office"}`, testEmployee)
	handler.Create(c)
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newTestContext(http.MethodDelete, "/services/svc-1", "", testEmployee)
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "svc-1", svc.deleted)
}

type fakeResourceSrv struct {
	filter models.ResourceFilter
}

func (f *fakeResourceSrv) List(_ context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error) {
	f.filter = filter
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown resource status")
	}
	return []models.Resource{}, &models.Pagination{}, nil
}

func (f *fakeResourceSrv) Get(_ context.Context, id string) (*models.Resource, error) {
	return &models.Resource{ID: id}, nil
}

func (f *fakeResourceSrv) Create(_ context.Context, req dto.UpsertResourceRequest, _ *models.JWTClaims) (*models.Resource, error) {
	return &models.Resource{ID: "r-1", Name: req.Name}, nil
}

func (f *fakeResourceSrv) Update(_ context.Context, id string, req dto.UpsertResourceRequest, _ *models.JWTClaims) (*models.Resource, error) {
	return &models.Resource{ID: id, Name: req.Name}, nil
}

func (f *fakeResourceSrv) Delete(context.Context, string, *models.JWTClaims) error {
	return nil
}

func TestResourceHandlerListStatusFilter(t *testing.T) {
	svc := &fakeResourceSrv{}
	handler := NewResourceHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/resources?status=maintenance&type=water", "", testEmployee)
	handler.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ResourceMaintenance, svc.filter.Status)
	assert.Equal(t, "water", svc.filter.Type)

	c, rec = newTestContext(http.MethodGet, "/resources?status=broken", "", testEmployee)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
