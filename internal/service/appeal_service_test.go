package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	"github.com/noah-isme/gov-portal-api/internal/repository"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type fakeAppealStore struct {
	appeals   map[string]models.Appeal
	order     []string
	listErr   error
	createErr error
	updateErr error

	listCalls   int
	createCalls int
	updateCalls int
}

func newFakeAppealStore(appeals ...models.Appeal) *fakeAppealStore {
	store := &fakeAppealStore{appeals: map[string]models.Appeal{}}
	for _, a := range appeals {
		store.appeals[a.ID] = a
		store.order = append(store.order, a.ID)
	}
	return store
}

func (f *fakeAppealStore) ListAll(context.Context) ([]models.Appeal, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Appeal, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.appeals[id])
	}
	return out, nil
}

func (f *fakeAppealStore) GetByID(_ context.Context, id string) (*models.Appeal, error) {
	appeal, ok := f.appeals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &appeal, nil
}

func (f *fakeAppealStore) Create(_ context.Context, appeal *models.Appeal) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.appeals[appeal.ID] = *appeal
	f.order = append([]string{appeal.ID}, f.order...)
	return nil
}

func (f *fakeAppealStore) UpdateReview(_ context.Context, params repository.UpdateAppealReviewParams) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	appeal, ok := f.appeals[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	appeal.Status = params.Status
	appeal.Priority = params.Priority
	appeal.UpdatedAt = params.UpdatedAt
	f.appeals[params.ID] = appeal
	return nil
}

type fakeActivityRecorder struct {
	activities []models.Activity
	err        error
}

func (f *fakeActivityRecorder) Create(_ context.Context, activity *models.Activity) error {
	if f.err != nil {
		return f.err
	}
	f.activities = append(f.activities, *activity)
	return nil
}

type fakeAuditTrail struct {
	logs []models.AuditLog
	err  error
}

func (f *fakeAuditTrail) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAuditTrail) ListAuditLogs(_ context.Context, resource, resourceID string, _ int) ([]models.AuditLog, error) {
	out := []models.AuditLog{}
	for _, log := range f.logs {
		if log.Resource == resource && log.ResourceID != nil && *log.ResourceID == resourceID {
			out = append(out, log)
		}
	}
	return out, nil
}

var (
	residentClaims = &models.JWTClaims{UserID: "res-1", Email: "maria@mail.com", Role: models.RoleResident}
	employeeClaims = &models.JWTClaims{UserID: "emp-1", Email: "clerk@city.gov", Role: models.RoleEmployee}
)

func newAppealServiceFixture(store *fakeAppealStore) (*AppealService, *fakeActivityRecorder, *fakeAuditTrail) {
	activities := &fakeActivityRecorder{}
	audit := &fakeAuditTrail{}
	svc := NewAppealService(AppealServiceParams{Store: store, Activities: activities, Audit: audit})
	svc.now = func() time.Time { return time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC) }
	return svc, activities, audit
}

func pendingAppeal() models.Appeal {
	created := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	return models.Appeal{
		ID:          "a-1",
		Title:       "Streetlight out",
		Content:     strPtr("Lamp on Shevchenka 4 is dark"),
		Category:    models.AppealCategoryTechnical,
		SubmittedBy: "maria@mail.com",
		Status:      models.AppealStatusUnderReview,
		Priority:    models.AppealPriorityMedium,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestAppealServiceSubmitStoresDefaults(t *testing.T) {
	store := newFakeAppealStore()
	svc, activities, audit := newAppealServiceFixture(store)
	refreshed := 0

	appeal, err := svc.Submit(context.Background(), dto.CreateAppealRequest{
		Title:    "  Pothole on Main St ",
		Category: models.AppealCategoryTechnical,
		Content:  "Deep pothole near the school crossing",
	}, residentClaims, func(context.Context) error { refreshed++; return nil })
	require.NoError(t, err)

	assert.NotEmpty(t, appeal.ID)
	assert.Equal(t, "Pothole on Main St", appeal.Title)
	assert.Equal(t, models.AppealStatusUnderReview, appeal.Status)
	assert.Equal(t, models.AppealPriorityMedium, appeal.Priority)
	assert.Equal(t, "maria@mail.com", appeal.SubmittedBy)
	assert.Equal(t, appeal.CreatedAt, appeal.UpdatedAt)
	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 1, refreshed)

	require.Len(t, activities.activities, 1)
	assert.Equal(t, "New appeal: Pothole on Main St", activities.activities[0].Title)
	assert.Equal(t, models.ActivityStatusPending, activities.activities[0].Status)
	assert.Equal(t, "medium", activities.activities[0].Priority)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAppealSubmit, audit.logs[0].Action)
}

func TestAppealServiceSubmitEmptyTitleSkipsInsert(t *testing.T) {
	store := newFakeAppealStore()
	svc, activities, _ := newAppealServiceFixture(store)

	_, err := svc.Submit(context.Background(), dto.CreateAppealRequest{
		Title:    "   ",
		Category: models.AppealCategoryTechnical,
		Content:  "Body",
	}, residentClaims, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Contains(t, err.Error(), "title is required")
	assert.Zero(t, store.createCalls)
	assert.Empty(t, activities.activities)
}

func TestAppealServiceSubmitRejectsUnknownCategory(t *testing.T) {
	store := newFakeAppealStore()
	svc, _, _ := newAppealServiceFixture(store)

	_, err := svc.Submit(context.Background(), dto.CreateAppealRequest{Title: "Roads", Category: "roads", Content: "Body"}, residentClaims, nil)
	assert.True(t, appErrors.IsValidation(err))
	assert.Zero(t, store.createCalls)
}

func TestAppealServiceSubmitRequiresIdentity(t *testing.T) {
	store := newFakeAppealStore()
	svc, _, _ := newAppealServiceFixture(store)

	_, err := svc.Submit(context.Background(), dto.CreateAppealRequest{Title: "Roads", Category: models.AppealCategoryOther, Content: "Body"}, nil, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
	assert.Zero(t, store.createCalls)
}

func TestAppealServiceSubmitStoreFailure(t *testing.T) {
	store := newFakeAppealStore()
	store.createErr = errors.New("connection refused")
	svc, activities, _ := newAppealServiceFixture(store)

	_, err := svc.Submit(context.Background(), dto.CreateAppealRequest{Title: "Roads", Category: models.AppealCategoryOther, Content: "Body"}, residentClaims, nil)
	assert.True(t, appErrors.IsPersistence(err))
	assert.Empty(t, activities.activities)
}

func TestAppealServiceReviewCompletedHigh(t *testing.T) {
	store := newFakeAppealStore(pendingAppeal())
	svc, activities, audit := newAppealServiceFixture(store)

	updated, err := svc.Review(context.Background(), "a-1", dto.ReviewAppealRequest{
		Status:   models.AppealStatusCompleted,
		Priority: models.AppealPriorityHigh,
		Response: "Crew dispatched and lamp replaced",
	}, employeeClaims, nil)
	require.NoError(t, err)

	assert.Equal(t, models.AppealStatusCompleted, updated.Status)
	assert.Equal(t, models.AppealPriorityHigh, updated.Priority)
	stored := store.appeals["a-1"]
	assert.Equal(t, models.AppealStatusCompleted, stored.Status)
	assert.Equal(t, models.AppealPriorityHigh, stored.Priority)
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))

	require.Len(t, activities.activities, 1)
	activity := activities.activities[0]
	assert.Equal(t, "Appeal reviewed: Streetlight out", activity.Title)
	assert.Equal(t, models.ActivityStatusCompleted, activity.Status)
	assert.Equal(t, "high", activity.Priority)
	assert.Equal(t, "Crew dispatched and lamp replaced", activity.Description)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAppealReview, audit.logs[0].Action)
	assert.Contains(t, string(audit.logs[0].NewValues), "Crew dispatched")
}

func TestAppealServiceReviewNonCompletedIsPending(t *testing.T) {
	store := newFakeAppealStore(pendingAppeal())
	svc, activities, _ := newAppealServiceFixture(store)

	_, err := svc.Review(context.Background(), "a-1", dto.ReviewAppealRequest{
		Status:   models.AppealStatusRejected,
		Priority: models.AppealPriorityLow,
		Response: strings.Repeat("x", 150),
	}, employeeClaims, nil)
	require.NoError(t, err)

	activity := activities.activities[0]
	assert.Equal(t, models.ActivityStatusPending, activity.Status)
	assert.Equal(t, strings.Repeat("x", 100)+"...", activity.Description)
}

func TestAppealServiceReviewValidatesBeforeStore(t *testing.T) {
	cases := map[string]dto.ReviewAppealRequest{
		"empty response":  {Status: models.AppealStatusCompleted, Priority: models.AppealPriorityHigh, Response: "   "},
		"unknown status":  {Status: "Closed", Priority: models.AppealPriorityHigh, Response: "ok"},
		"unknown priority": {Status: models.AppealStatusCompleted, Priority: "Urgent", Response: "ok"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			store := newFakeAppealStore(pendingAppeal())
			svc, activities, _ := newAppealServiceFixture(store)

			_, err := svc.Review(context.Background(), "a-1", req, employeeClaims, nil)
			assert.True(t, appErrors.IsValidation(err))
			assert.Zero(t, store.updateCalls)
			assert.Empty(t, activities.activities)
			assert.Equal(t, pendingAppeal(), store.appeals["a-1"])
		})
	}
}

func TestAppealServiceReviewStoreFailureLeavesAppealUnchanged(t *testing.T) {
	store := newFakeAppealStore(pendingAppeal())
	store.updateErr = errors.New("timeout")
	svc, activities, _ := newAppealServiceFixture(store)
	refreshed := false

	_, err := svc.Review(context.Background(), "a-1", dto.ReviewAppealRequest{
		Status:   models.AppealStatusInProgress,
		Priority: models.AppealPriorityHigh,
		Response: "Assigned",
	}, employeeClaims, func(context.Context) error { refreshed = true; return nil })
	assert.True(t, appErrors.IsPersistence(err))
	assert.Equal(t, pendingAppeal(), store.appeals["a-1"])
	assert.Empty(t, activities.activities)
	assert.False(t, refreshed)
}

func TestAppealServiceReviewMissingAppeal(t *testing.T) {
	store := newFakeAppealStore()
	svc, _, _ := newAppealServiceFixture(store)

	_, err := svc.Review(context.Background(), "missing", dto.ReviewAppealRequest{
		Status:   models.AppealStatusInProgress,
		Priority: models.AppealPriorityLow,
		Response: "ok",
	}, employeeClaims, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Zero(t, store.updateCalls)
}

func TestAppealServiceReviewSideEffectFailuresDoNotFail(t *testing.T) {
	store := newFakeAppealStore(pendingAppeal())
	svc, activities, audit := newAppealServiceFixture(store)
	activities.err = errors.New("activity table locked")
	audit.err = errors.New("audit down")

	updated, err := svc.Review(context.Background(), "a-1", dto.ReviewAppealRequest{
		Status:   models.AppealStatusInProgress,
		Priority: models.AppealPriorityLow,
		Response: "Working on it",
	}, employeeClaims, func(context.Context) error { return errors.New("refresh failed") })
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusInProgress, updated.Status)
}

func TestAppealServiceListStatsCoverFullCollection(t *testing.T) {
	now := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)
	store := newFakeAppealStore(sampleAppeals(now)...)
	svc, _, _ := newAppealServiceFixture(store)

	spec := allSpec()
	spec.Status = string(models.AppealStatusCompleted)
	result, err := svc.List(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-3"}, ids(result.Appeals))
	assert.Equal(t, 4, result.Stats.Total)
	assert.Equal(t, spec, result.Filter)
}

func TestAppealServiceListStoreFailure(t *testing.T) {
	store := newFakeAppealStore()
	store.listErr = errors.New("down")
	svc, _, _ := newAppealServiceFixture(store)

	_, err := svc.List(context.Background(), allSpec())
	assert.True(t, appErrors.IsPersistence(err))
}

func TestAppealServiceListMine(t *testing.T) {
	now := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)
	mine := pendingAppeal()
	mine.ID = "m-1"
	mine.SubmittedBy = "Maria@Mail.com"
	store := newFakeAppealStore(append(sampleAppeals(now), mine)...)
	svc, _, _ := newAppealServiceFixture(store)

	result, err := svc.ListMine(context.Background(), residentClaims, allSpec())
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1"}, ids(result.Appeals))
	assert.Equal(t, 1, result.Stats.Total)

	_, err = svc.ListMine(context.Background(), nil, allSpec())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestAppealServiceGetHidesOtherResidentsAppeals(t *testing.T) {
	other := pendingAppeal()
	other.SubmittedBy = "someone@mail.com"
	store := newFakeAppealStore(other)
	svc, _, _ := newAppealServiceFixture(store)

	_, err := svc.Get(context.Background(), "a-1", residentClaims)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	appeal, err := svc.Get(context.Background(), "a-1", employeeClaims)
	require.NoError(t, err)
	assert.Equal(t, "a-1", appeal.ID)
}

func TestAppealServiceHistory(t *testing.T) {
	store := newFakeAppealStore(pendingAppeal())
	svc, _, _ := newAppealServiceFixture(store)

	_, err := svc.Review(context.Background(), "a-1", dto.ReviewAppealRequest{
		Status:   models.AppealStatusInProgress,
		Priority: models.AppealPriorityHigh,
		Response: "Assigned to crew",
	}, employeeClaims, nil)
	require.NoError(t, err)

	logs, err := svc.History(context.Background(), "a-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "emp-1", *logs[0].UserID)
}

func TestChainRefreshRunsAllAndReturnsFirstError(t *testing.T) {
	var calls []string
	first := errors.New("first")
	refresh := ChainRefresh(
		func(context.Context) error { calls = append(calls, "a"); return first },
		nil,
		func(context.Context) error { calls = append(calls, "b"); return errors.New("second") },
	)
	err := refresh(context.Background())
	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b"}, calls)
}
