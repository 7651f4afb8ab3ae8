package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gov-portal-api/internal/models"
)

func TestActivityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activities")).WillReturnResult(sqlmock.NewResult(1, 1))

	activity := &models.Activity{Title: "Appeal reviewed", Type: models.ActivityTypeAppeal, Priority: "high", Status: models.ActivityStatusCompleted}
	require.NoError(t, repo.Create(context.Background(), activity))
	assert.NotEmpty(t, activity.ID)
	assert.False(t, activity.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListRecentClampsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "type", "priority", "status", "created_at"}).
		AddRow("act-1", "New appeal", "Pothole", "appeal", "medium", "pending", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM activities ORDER BY created_at DESC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	activities, err := repo.ListRecent(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "pending", activities[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
