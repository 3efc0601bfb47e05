package organisation

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// Input carries the editable organisation fields.
type Input struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Website       string `json:"website"`
	CurrentStatus string `json:"current_status"`
}

// Service orchestrates organisation management.
type Service struct {
	repo   repository.OrganisationRepository
	logger *slog.Logger
}

// New returns an organisation service.
func New(repo repository.OrganisationRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

var errNameRequired = errors.New("name is required")

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	return errors.Is(err, errNameRequired)
}

// List returns the team's organisations.
func (s Service) List(ctx context.Context, actor domain.Actor, q repository.Query) ([]domain.Organisation, error) {
	return s.repo.ListOrganisations(ctx, actor.TeamID, q)
}

// Get returns one organisation.
func (s Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Organisation, error) {
	return s.repo.GetOrganisation(ctx, actor.TeamID, id)
}

// Create stores a new organisation stamped with the actor's team and id.
func (s Service) Create(ctx context.Context, actor domain.Actor, in Input) (*domain.Organisation, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errNameRequired
	}
	now := time.Now().UTC()
	org := &domain.Organisation{
		ID:        uuid.NewString(),
		TeamID:    actor.TeamID,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(org, in)
	if err := s.repo.CreateOrganisation(ctx, org); err != nil {
		return nil, err
	}
	s.logger.Info("organisation created", "organisation_id", org.ID, "team_id", org.TeamID)
	return org, nil
}

// Update replaces the editable fields and returns the stored row.
func (s Service) Update(ctx context.Context, actor domain.Actor, id string, in Input) (*domain.Organisation, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errNameRequired
	}
	org := &domain.Organisation{ID: id, TeamID: actor.TeamID}
	apply(org, in)
	if err := s.repo.UpdateOrganisation(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Delete removes an organisation together with its tasks and timeline.
func (s Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteOrganisation(ctx, actor.TeamID, id); err != nil {
		return err
	}
	s.logger.Info("organisation deleted", "organisation_id", id, "team_id", actor.TeamID)
	return nil
}

func apply(org *domain.Organisation, in Input) {
	org.Name = strings.TrimSpace(in.Name)
	org.Description = in.Description
	org.Website = strings.TrimSpace(in.Website)
	org.CurrentStatus = in.CurrentStatus
}
