package organisation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

var actor = domain.Actor{UserID: "user-1", TeamID: "team-1"}

func TestCreateStampsTenantAndCreator(t *testing.T) {
	repo := &orgRepoStub{byID: map[string]domain.Organisation{}}
	svc := New(repo, newLogger())

	org, err := svc.Create(context.Background(), actor, Input{Name: " Acme "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if org.Name != "Acme" || org.TeamID != "team-1" || org.CreatedBy != "user-1" || org.Website != "" {
		t.Fatalf("unexpected organisation: %+v", org)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected one stored organisation, got %d", len(repo.byID))
	}
	if _, err := svc.Create(context.Background(), actor, Input{}); !IsValidation(err) {
		t.Fatalf("expected name to be required, got %v", err)
	}
}

func TestUpdateReturnsStoredRow(t *testing.T) {
	repo := &orgRepoStub{byID: map[string]domain.Organisation{}}
	svc := New(repo, newLogger())
	org, _ := svc.Create(context.Background(), actor, Input{Name: "Acme"})

	updated, err := svc.Update(context.Background(), actor, org.ID, Input{Name: "Acme", CurrentStatus: "Negotiating"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CurrentStatus != "Negotiating" || updated.CreatedBy != "user-1" {
		t.Fatalf("expected full stored row, got %+v", updated)
	}
	if _, err := svc.Update(context.Background(), actor, "missing", Input{Name: "x"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type orgRepoStub struct {
	byID map[string]domain.Organisation
}

func (s *orgRepoStub) ListOrganisations(context.Context, string, repository.Query) ([]domain.Organisation, error) {
	return nil, nil
}

func (s *orgRepoStub) GetOrganisation(_ context.Context, _ string, id string) (*domain.Organisation, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (s *orgRepoStub) CreateOrganisation(_ context.Context, org *domain.Organisation) error {
	s.byID[org.ID] = *org
	return nil
}

// UpdateOrganisation mimics the database: untouched columns come back from storage.
func (s *orgRepoStub) UpdateOrganisation(_ context.Context, org *domain.Organisation) error {
	stored, ok := s.byID[org.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = org.Name
	stored.Description = org.Description
	stored.Website = org.Website
	stored.CurrentStatus = org.CurrentStatus
	s.byID[org.ID] = stored
	*org = stored
	return nil
}

func (s *orgRepoStub) DeleteOrganisation(_ context.Context, _ string, id string) error {
	delete(s.byID, id)
	return nil
}
