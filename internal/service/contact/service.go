package contact

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// Input carries the editable contact fields.
type Input struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Role           string  `json:"role"`
	CurrentStatus  string  `json:"current_status"`
	OrganisationID *string `json:"organisation_id"`
}

// Service orchestrates contact management.
type Service struct {
	repo   repository.ContactRepository
	logger *slog.Logger
}

// New returns a contact service.
func New(repo repository.ContactRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

var errNameRequired = errors.New("name is required")

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	return errors.Is(err, errNameRequired)
}

// List returns the team's contacts with organisation names.
func (s Service) List(ctx context.Context, actor domain.Actor, q repository.Query) ([]domain.Contact, error) {
	return s.repo.ListContacts(ctx, actor.TeamID, q)
}

// Get returns one contact.
func (s Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Contact, error) {
	return s.repo.GetContact(ctx, actor.TeamID, id)
}

// Create stores a new contact. A referenced organisation must exist in the actor's team.
func (s Service) Create(ctx context.Context, actor domain.Actor, in Input) (*domain.Contact, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errNameRequired
	}
	now := time.Now().UTC()
	contact := &domain.Contact{
		ID:        uuid.NewString(),
		TeamID:    actor.TeamID,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(contact, in)
	if err := s.repo.CreateContact(ctx, contact); err != nil {
		return nil, err
	}
	s.logger.Info("contact created", "contact_id", contact.ID, "team_id", contact.TeamID)
	return contact, nil
}

// Update replaces the editable fields and returns the stored row.
func (s Service) Update(ctx context.Context, actor domain.Actor, id string, in Input) (*domain.Contact, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errNameRequired
	}
	contact := &domain.Contact{ID: id, TeamID: actor.TeamID}
	apply(contact, in)
	if err := s.repo.UpdateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// Delete removes a contact together with its tasks and timeline.
func (s Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteContact(ctx, actor.TeamID, id); err != nil {
		return err
	}
	s.logger.Info("contact deleted", "contact_id", id, "team_id", actor.TeamID)
	return nil
}

func apply(c *domain.Contact, in Input) {
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Role = in.Role
	c.CurrentStatus = in.CurrentStatus
	c.OrganisationID = optional(in.OrganisationID)
}

func optional(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
