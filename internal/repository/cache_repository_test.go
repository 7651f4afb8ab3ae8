package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]int
	err := repo.Get(ctx, "dash:console", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "dash:console", map[string]int{"total": 1}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "dash:*"))
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())
}
