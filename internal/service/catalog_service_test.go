package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type fakeCatalogRepo struct {
	items      map[string]models.CatalogService
	lastFilter models.CatalogFilter
	listErr    error
}

func (f *fakeCatalogRepo) List(_ context.Context, filter models.CatalogFilter) ([]models.CatalogService, int, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	out := []models.CatalogService{}
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (f *fakeCatalogRepo) FindByID(_ context.Context, id string) (*models.CatalogService, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (f *fakeCatalogRepo) Create(_ context.Context, item *models.CatalogService) error {
	f.items[item.ID] = *item
	return nil
}

func (f *fakeCatalogRepo) Update(_ context.Context, item *models.CatalogService) error {
	f.items[item.ID] = *item
	return nil
}

func (f *fakeCatalogRepo) Delete(_ context.Context, id string) error {
	delete(f.items, id)
	return nil
}

func TestCatalogServiceResidentsSeeActiveOnly(t *testing.T) {
	repo := &fakeCatalogRepo{items: map[string]models.CatalogService{}}
	svc := NewCatalogService(CatalogServiceParams{Repo: repo})

	_, pagination, err := svc.List(context.Background(), models.CatalogFilter{Search: "  passport "}, residentClaims)
	require.NoError(t, err)
	assert.True(t, repo.lastFilter.ActiveOnly)
	assert.Equal(t, "passport", repo.lastFilter.Search)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)

	_, _, err = svc.List(context.Background(), models.CatalogFilter{}, employeeClaims)
	require.NoError(t, err)
	assert.False(t, repo.lastFilter.ActiveOnly)
}

func TestCatalogServiceCreateUpdateDelete(t *testing.T) {
	repo := &fakeCatalogRepo{items: map[string]models.CatalogService{}}
	audit := &fakeAuditTrail{}
	changes := 0
	svc := NewCatalogService(CatalogServiceParams{Repo: repo, Audit: audit, OnChange: func(context.Context) error { changes++; return nil }})

	item, err := svc.Create(context.Background(), dto.UpsertCatalogServiceRequest{
		Name:       "Passport issuance",
		Category:   "Documents",
		Department: "Migration office",
		Fee:        350,
	}, employeeClaims)
	require.NoError(t, err)
	assert.True(t, item.Active)
	assert.Equal(t, "documents", item.Category)

	inactive := false
	updated, err := svc.Update(context.Background(), item.ID, dto.UpsertCatalogServiceRequest{
		Name:       "Passport issuance",
		Category:   "documents",
		Department: "Migration office",
		Active:     &inactive,
	}, employeeClaims)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	require.NoError(t, svc.Delete(context.Background(), item.ID, employeeClaims))
	assert.Empty(t, repo.items)
	assert.Equal(t, 3, changes)
	require.Len(t, audit.logs, 3)
	assert.Nil(t, audit.logs[0].OldValues)
	assert.Nil(t, audit.logs[2].NewValues)
	assert.Equal(t, models.AuditActionCatalogChange, audit.logs[1].Action)
}

func TestCatalogServiceValidationAndNotFound(t *testing.T) {
	repo := &fakeCatalogRepo{items: map[string]models.CatalogService{}}
	svc := NewCatalogService(CatalogServiceParams{Repo: repo})

	_, err := svc.Create(context.Background(), dto.UpsertCatalogServiceRequest{Category: "x", Department: "y", Fee: -1}, employeeClaims)
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	repo.listErr = errors.New("down")
	_, _, err = svc.List(context.Background(), models.CatalogFilter{}, employeeClaims)
	assert.True(t, appErrors.IsPersistence(err))
}

type fakeResourceRepo struct {
	items  map[string]models.Resource
	counts map[models.ResourceStatus]int
}

func (f *fakeResourceRepo) List(context.Context, models.ResourceFilter) ([]models.Resource, int, error) {
	return []models.Resource{}, 0, nil
}

func (f *fakeResourceRepo) CountByStatus(context.Context) (map[models.ResourceStatus]int, error) {
	return f.counts, nil
}

func (f *fakeResourceRepo) FindByID(_ context.Context, id string) (*models.Resource, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (f *fakeResourceRepo) Create(_ context.Context, item *models.Resource) error {
	f.items[item.ID] = *item
	return nil
}

func (f *fakeResourceRepo) Update(_ context.Context, item *models.Resource) error {
	f.items[item.ID] = *item
	return nil
}

func (f *fakeResourceRepo) Delete(_ context.Context, id string) error {
	delete(f.items, id)
	return nil
}

func TestResourceServiceStatusValidation(t *testing.T) {
	repo := &fakeResourceRepo{items: map[string]models.Resource{}}
	svc := NewResourceService(ResourceServiceParams{Repo: repo})

	req := dto.UpsertResourceRequest{Name: "Pump station 3", Type: "Water", Location: "Dnipro embankment", Status: "broken"}
	_, err := svc.Create(context.Background(), req, employeeClaims)
	assert.True(t, appErrors.IsValidation(err))

	req.Status = models.ResourceMaintenance
	item, err := svc.Create(context.Background(), req, employeeClaims)
	require.NoError(t, err)
	assert.Equal(t, "water", item.Type)

	_, _, err = svc.List(context.Background(), models.ResourceFilter{Status: "broken"})
	assert.True(t, appErrors.IsValidation(err))
}

func TestResourceServiceSummary(t *testing.T) {
	repo := &fakeResourceRepo{counts: map[models.ResourceStatus]int{models.ResourceOperational: 4, models.ResourceOutOfService: 1}}
	svc := NewResourceService(ResourceServiceParams{Repo: repo})

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dto.DashboardResources{Operational: 4, OutOfService: 1}, summary)
}

type fakePaymentRepo struct {
	items      map[string]models.Payment
	lastFilter models.PaymentFilter
	updates    int
}

func (f *fakePaymentRepo) List(_ context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	f.lastFilter = filter
	return []models.Payment{}, 0, nil
}

func (f *fakePaymentRepo) CountByStatus(context.Context) (map[models.PaymentStatus]int, error) {
	return map[models.PaymentStatus]int{models.PaymentPending: 2}, nil
}

func (f *fakePaymentRepo) FindByID(_ context.Context, id string) (*models.Payment, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (f *fakePaymentRepo) Create(_ context.Context, item *models.Payment) error {
	f.items[item.ID] = *item
	return nil
}

func (f *fakePaymentRepo) UpdateStatus(_ context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error {
	f.updates++
	item := f.items[id]
	item.Status = status
	item.PaidAt = paidAt
	f.items[id] = item
	return nil
}

func TestPaymentServiceResidentListIsScoped(t *testing.T) {
	repo := &fakePaymentRepo{items: map[string]models.Payment{}}
	svc := NewPaymentService(PaymentServiceParams{Repo: repo})

	_, _, err := svc.List(context.Background(), models.PaymentFilter{UserID: "someone-else"}, residentClaims)
	require.NoError(t, err)
	assert.Equal(t, "res-1", repo.lastFilter.UserID)

	_, _, err = svc.List(context.Background(), models.PaymentFilter{UserID: "res-9"}, employeeClaims)
	require.NoError(t, err)
	assert.Equal(t, "res-9", repo.lastFilter.UserID)
}

func TestPaymentServiceLifecycle(t *testing.T) {
	repo := &fakePaymentRepo{items: map[string]models.Payment{}}
	activities := &fakeActivityRecorder{}
	svc := NewPaymentService(PaymentServiceParams{Repo: repo, Activities: activities})
	paidAt := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	payment, err := svc.Create(context.Background(), dto.CreatePaymentRequest{UserID: "res-1", Amount: 120.5, Purpose: " Waste collection "}, employeeClaims)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, "UAH", payment.Currency)
	assert.Equal(t, "Waste collection", payment.Purpose)

	paid, err := svc.UpdateStatus(context.Background(), payment.ID, dto.UpdatePaymentStatusRequest{Status: models.PaymentPaid}, employeeClaims)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, paidAt, *paid.PaidAt)

	require.Len(t, activities.activities, 2)
	assert.Equal(t, "Payment received: Waste collection", activities.activities[1].Title)
	assert.Equal(t, models.ActivityStatusCompleted, activities.activities[1].Status)
	assert.Equal(t, models.ActivityTypePayment, activities.activities[1].Type)

	_, err = svc.UpdateStatus(context.Background(), payment.ID, dto.UpdatePaymentStatusRequest{Status: models.PaymentFailed}, employeeClaims)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.Equal(t, 1, repo.updates)
}

func TestPaymentServiceGetHidesOtherResidents(t *testing.T) {
	repo := &fakePaymentRepo{items: map[string]models.Payment{"p-1": {ID: "p-1", UserID: "res-2"}}}
	svc := NewPaymentService(PaymentServiceParams{Repo: repo})

	_, err := svc.Get(context.Background(), "p-1", residentClaims)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Get(context.Background(), "p-1", employeeClaims)
	assert.NoError(t, err)
}

func TestPaymentServiceCreateValidation(t *testing.T) {
	repo := &fakePaymentRepo{items: map[string]models.Payment{}}
	svc := NewPaymentService(PaymentServiceParams{Repo: repo})

	_, err := svc.Create(context.Background(), dto.CreatePaymentRequest{UserID: "res-1", Amount: 0, Purpose: "x"}, employeeClaims)
	assert.True(t, appErrors.IsValidation(err))
	assert.Empty(t, repo.items)
}
