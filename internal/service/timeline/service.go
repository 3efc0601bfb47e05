package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// Input is a new timeline entry. An empty Type means "other".
type Input struct {
	Type    domain.UpdateType `json:"type"`
	Content string            `json:"content"`
}

// Service manages the update timelines of contacts and organisations.
type Service struct {
	repo   repository.UpdateRepository
	logger *slog.Logger
}

// New returns a timeline service.
func New(repo repository.UpdateRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

var (
	// ErrNotDeletable is returned when deleting entries of a timeline that does not allow it.
	ErrNotDeletable = errors.New("updates of this kind cannot be deleted")

	errContentRequired = errors.New("content is required")
	errInvalidType     = errors.New("update type not allowed here")
	errInvalidParent   = errors.New("only contacts and organisations have timelines")
)

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	return errors.Is(err, errContentRequired) || errors.Is(err, errInvalidType) || errors.Is(err, errInvalidParent)
}

// List returns the parent's entries newest first.
func (s Service) List(ctx context.Context, actor domain.Actor, parent domain.Kind, parentID string) ([]domain.Update, error) {
	if domain.UpdateTypesFor(parent) == nil {
		return nil, errInvalidParent
	}
	return s.repo.ListUpdates(ctx, actor.TeamID, parent, parentID)
}

// Add appends an entry to the parent's timeline.
func (s Service) Add(ctx context.Context, actor domain.Actor, parent domain.Kind, parentID string, in Input) (*domain.Update, error) {
	if domain.UpdateTypesFor(parent) == nil {
		return nil, errInvalidParent
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, errContentRequired
	}
	if in.Type == "" {
		in.Type = domain.UpdateOther
	}
	if !domain.AcceptsUpdateType(parent, in.Type) {
		return nil, fmt.Errorf("%w: %s on %s", errInvalidType, in.Type, parent)
	}
	update := &domain.Update{
		ID:         uuid.NewString(),
		TeamID:     actor.TeamID,
		ParentKind: parent,
		ParentID:   parentID,
		Type:       in.Type,
		Content:    strings.TrimSpace(in.Content),
		CreatedBy:  actor.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateUpdate(ctx, update); err != nil {
		return nil, err
	}
	return update, nil
}

// Delete removes one entry. Only organisation timelines allow it.
func (s Service) Delete(ctx context.Context, actor domain.Actor, parent domain.Kind, id string) error {
	if !domain.UpdateDeletable(parent) {
		return ErrNotDeletable
	}
	if err := s.repo.DeleteUpdate(ctx, actor.TeamID, parent, id); err != nil {
		return err
	}
	s.logger.Info("update deleted", "update_id", id, "parent", parent, "team_id", actor.TeamID)
	return nil
}
