package recent

import (
	"context"
	"errors"
	"time"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// DefaultLimit bounds List when the caller passes no limit.
const DefaultLimit = 10

var errInvalidKind = errors.New("item_type must be organisation, contact, task or event")

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	return errors.Is(err, errInvalidKind)
}

// Service records which entities a user opened.
type Service struct {
	repo repository.RecentViewRepository
	now  func() time.Time
}

// New returns a recent-views service.
func New(repo repository.RecentViewRepository) Service {
	return Service{repo: repo, now: time.Now}
}

// Record upserts the view marker for (user, kind, id) with the current time.
func (s Service) Record(ctx context.Context, actor domain.Actor, kind domain.Kind, itemID string) (*domain.RecentView, error) {
	if !kind.Valid() {
		return nil, errInvalidKind
	}
	view := domain.RecentView{
		UserID:   actor.UserID,
		TeamID:   actor.TeamID,
		ItemType: kind,
		ItemID:   itemID,
		ViewedAt: s.now().UTC(),
	}
	if err := s.repo.UpsertRecentView(ctx, view); err != nil {
		return nil, err
	}
	return &view, nil
}

// List returns the actor's latest views, newest first.
func (s Service) List(ctx context.Context, actor domain.Actor, limit int) ([]domain.RecentView, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultLimit
	}
	return s.repo.ListRecentViews(ctx, actor.UserID, actor.TeamID, limit)
}
