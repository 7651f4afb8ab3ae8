package service

import (
	"context"

	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type activityLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.Activity, error)
}

// ActivityService exposes the console activity feed.
type ActivityService struct {
	repo activityLister
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityLister) *ActivityService {
	return &ActivityService{repo: repo}
}

// Recent returns the newest activities first.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	items, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load activities")
	}
	if items == nil {
		items = []models.Activity{}
	}
	return items, nil
}
