package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gov-portal-api/internal/models"
)

var appealRowColumns = []string{"id", "title", "content", "description", "category", "submitted_by", "status", "priority", "created_at", "updated_at"}

func TestAppealRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppealRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(appealRowColumns).
		AddRow("a2", "Broken streetlight", "Lamp on Main St is out", nil, "technical", "res@mail.com", "Under Review", "Medium", now, now).
		AddRow("a1", "Legacy import", nil, "Imported description", "other", "res@mail.com", "Completed", "Low", now.Add(-time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + appealColumns + " FROM appeals ORDER BY created_at DESC")).
		WillReturnRows(rows)

	appeals, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, appeals, 2)
	assert.Equal(t, "a2", appeals[0].ID)
	body, ok := appeals[1].Body()
	assert.True(t, ok)
	assert.Equal(t, "Imported description", body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryListAllEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppealRepository(db)

	mock.ExpectQuery("FROM appeals").WillReturnRows(sqlmock.NewRows(appealRowColumns))

	appeals, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, appeals)
	assert.Empty(t, appeals)
}

func TestAppealRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppealRepository(db)

	mock.ExpectQuery("FROM appeals WHERE id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppealRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appeals")).WillReturnResult(sqlmock.NewResult(1, 1))

	content := "Pothole near school"
	appeal := &models.Appeal{Title: "Pothole", Content: &content, Category: models.AppealCategoryComplaint, SubmittedBy: "res@mail.com", Status: models.AppealStatusUnderReview, Priority: models.AppealPriorityMedium}
	require.NoError(t, repo.Create(context.Background(), appeal))
	assert.NotEmpty(t, appeal.ID)
	assert.False(t, appeal.CreatedAt.IsZero())
	assert.Equal(t, appeal.CreatedAt, appeal.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryUpdateReview(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppealRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appeals SET status = ?, priority = ?, updated_at = ? WHERE id = ?")).
		WithArgs(models.AppealStatusCompleted, models.AppealPriorityHigh, now, "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateReview(context.Background(), UpdateAppealReviewParams{ID: "a1", Status: models.AppealStatusCompleted, Priority: models.AppealPriorityHigh, UpdatedAt: now})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppealRepositoryUpdateReviewMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppealRepository(db)

	mock.ExpectExec("UPDATE appeals").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateReview(context.Background(), UpdateAppealReviewParams{ID: "gone", Status: models.AppealStatusRejected, Priority: models.AppealPriorityLow, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAppealRepositoryUpdateReviewStoreFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppealRepository(db)

	mock.ExpectExec("UPDATE appeals").WillReturnError(errors.New("connection reset"))

	err := repo.UpdateReview(context.Background(), UpdateAppealReviewParams{ID: "a1", Status: models.AppealStatusRejected, Priority: models.AppealPriorityLow, UpdatedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update appeal review")
}
