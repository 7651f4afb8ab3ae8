package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

// maxSearchTermLength bounds free-text search input.
const maxSearchTermLength = 200

// ParseAppealFilterSpec normalises list query parameters into a filter spec.
// Empty values become "all"; unknown enum values are rejected.
func ParseAppealFilterSpec(query dto.AppealQuery) (models.AppealFilterSpec, error) {
	spec := models.AppealFilterSpec{
		SearchTerm: strings.TrimSpace(query.Search),
		Status:     models.FilterAll,
		Category:   models.FilterAll,
		DateBucket: models.AppealDateAll,
	}
	if len([]rune(spec.SearchTerm)) > maxSearchTermLength {
		return spec, appErrors.Clone(appErrors.ErrValidation, "search term is too long")
	}

	if status := strings.TrimSpace(query.Status); status != "" && !strings.EqualFold(status, models.FilterAll) {
		canonical, ok := canonicalStatus(status)
		if !ok {
			return spec, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		spec.Status = string(canonical)
	}

	if category := strings.ToLower(strings.TrimSpace(query.Category)); category != "" && category != models.FilterAll {
		if !models.AppealCategory(category).Valid() {
			return spec, appErrors.Clone(appErrors.ErrValidation, "unknown category filter")
		}
		spec.Category = category
	}

	if bucket := models.AppealDateBucket(strings.ToLower(strings.TrimSpace(query.Date))); bucket != "" {
		switch bucket {
		case models.AppealDateAll, models.AppealDateToday, models.AppealDateWeek, models.AppealDateMonth, models.AppealDateQuarter:
			spec.DateBucket = bucket
		default:
			return spec, appErrors.Clone(appErrors.ErrValidation, "unknown date filter")
		}
	}

	return spec, nil
}

// FilterAppeals returns the appeals matching every active dimension of spec, preserving input order.
// Date buckets are evaluated in now's location.
func FilterAppeals(appeals []models.Appeal, spec models.AppealFilterSpec, now time.Time) []models.Appeal {
	result := make([]models.Appeal, 0, len(appeals))
	term := strings.ToLower(spec.SearchTerm)
	cutoff, bounded := dateCutoff(spec.DateBucket, now)

	for _, appeal := range appeals {
		if term != "" && !matchesSearch(appeal, term) {
			continue
		}
		if !dimensionAll(spec.Status) && string(appeal.Status) != spec.Status {
			continue
		}
		if !dimensionAll(spec.Category) && string(appeal.Category) != spec.Category {
			continue
		}
		if spec.DateBucket == models.AppealDateToday {
			if !sameDay(appeal.CreatedAt.In(now.Location()), now) {
				continue
			}
		} else if bounded && appeal.CreatedAt.Before(cutoff) {
			continue
		}
		result = append(result, appeal)
	}
	return result
}

// ComputeStats counts appeals per headline status in one pass.
func ComputeStats(appeals []models.Appeal) models.AppealStats {
	stats := models.AppealStats{Total: len(appeals)}
	for _, appeal := range appeals {
		switch appeal.Status {
		case models.AppealStatusUnderReview:
			stats.New++
		case models.AppealStatusInProgress:
			stats.InProgress++
		case models.AppealStatusCompleted:
			stats.Completed++
		}
	}
	return stats
}

func canonicalStatus(raw string) (models.AppealStatus, bool) {
	for _, status := range models.AppealStatuses {
		if strings.EqualFold(raw, string(status)) {
			return status, true
		}
	}
	return "", false
}

func matchesSearch(appeal models.Appeal, term string) bool {
	if strings.Contains(strings.ToLower(appeal.Title), term) {
		return true
	}
	if body, ok := appeal.Body(); ok && strings.Contains(strings.ToLower(body), term) {
		return true
	}
	if strings.Contains(strings.ToLower(appeal.SubmittedBy), term) {
		return true
	}
	return strings.Contains(strings.ToLower(appeal.ID), term)
}

func dimensionAll(value string) bool {
	return value == "" || strings.EqualFold(value, models.FilterAll)
}

// dateCutoff resolves the inclusive lower bound for week, month and quarter buckets.
// Month arithmetic follows time.Date normalisation, so Mar 31 minus one month lands on Mar 2 or 3.
func dateCutoff(bucket models.AppealDateBucket, now time.Time) (time.Time, bool) {
	loc := now.Location()
	switch bucket {
	case models.AppealDateWeek:
		return now.Add(-7 * 24 * time.Hour), true
	case models.AppealDateMonth:
		return time.Date(now.Year(), now.Month()-1, now.Day(), 0, 0, 0, 0, loc), true
	case models.AppealDateQuarter:
		return time.Date(now.Year(), now.Month()-3, now.Day(), 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AppealLoader fetches the complete appeal collection.
type AppealLoader interface {
	ListAll(ctx context.Context) ([]models.Appeal, error)
}

// AppealBoard holds the last fetched appeal list and the active filter.
// Refresh always replaces the whole list; entries are never patched in place.
type AppealBoard struct {
	mu      sync.RWMutex
	loader  AppealLoader
	appeals []models.Appeal
	spec    models.AppealFilterSpec
	now     func() time.Time
	fetched time.Time
}

// NewAppealBoard constructs a board with an unconstrained filter.
func NewAppealBoard(loader AppealLoader) *AppealBoard {
	return &AppealBoard{
		loader:  loader,
		appeals: []models.Appeal{},
		spec:    models.AppealFilterSpec{Status: models.FilterAll, Category: models.FilterAll, DateBucket: models.AppealDateAll},
		now:     time.Now,
	}
}

// Refresh reloads the full list from the store. On error the previous list is kept.
func (b *AppealBoard) Refresh(ctx context.Context) error {
	appeals, err := b.loader.ListAll(ctx)
	if err != nil {
		return appErrors.Persistence(err, "failed to load appeals")
	}
	if appeals == nil {
		appeals = []models.Appeal{}
	}
	b.mu.Lock()
	b.appeals = appeals
	b.fetched = b.now()
	b.mu.Unlock()
	return nil
}

// SetFilter replaces the active filter.
func (b *AppealBoard) SetFilter(spec models.AppealFilterSpec) {
	b.mu.Lock()
	b.spec = spec
	b.mu.Unlock()
}

// Filter returns the active filter.
func (b *AppealBoard) Filter() models.AppealFilterSpec {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.spec
}

// Visible returns the appeals passing the active filter.
func (b *AppealBoard) Visible() []models.Appeal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return FilterAppeals(b.appeals, b.spec, b.now())
}

// Stats returns counts over the full fetched list, independent of the filter.
func (b *AppealBoard) Stats() models.AppealStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ComputeStats(b.appeals)
}

// FetchedAt reports when the list was last replaced.
func (b *AppealBoard) FetchedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fetched
}
