package timeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/splax/cornerstone/internal/domain"
)

var actor = domain.Actor{UserID: "user-1", TeamID: "team-1"}

func TestAddDefaultsToOtherAndChecksType(t *testing.T) {
	repo := &updateRepoStub{}
	svc := New(repo, newLogger())

	update, err := svc.Add(context.Background(), actor, domain.KindContact, "c1", Input{Content: "Called back"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if update.Type != domain.UpdateOther || update.ParentID != "c1" || update.CreatedBy != "user-1" {
		t.Fatalf("unexpected update: %+v", update)
	}

	if _, err := svc.Add(context.Background(), actor, domain.KindContact, "c1", Input{Type: domain.UpdateStatus, Content: "x"}); !IsValidation(err) {
		t.Fatalf("status updates are organisation-only, got %v", err)
	}
	if _, err := svc.Add(context.Background(), actor, domain.KindOrganisation, "o1", Input{Type: domain.UpdateEmail, Content: "x"}); !IsValidation(err) {
		t.Fatalf("email updates are contact-only, got %v", err)
	}
	if _, err := svc.Add(context.Background(), actor, domain.KindOrganisation, "o1", Input{Content: "  "}); !IsValidation(err) {
		t.Fatalf("expected content to be required, got %v", err)
	}
	if _, err := svc.Add(context.Background(), actor, domain.KindTask, "t1", Input{Content: "x"}); !IsValidation(err) {
		t.Fatalf("tasks have no timeline, got %v", err)
	}
}

func TestDeleteOnlyForOrganisations(t *testing.T) {
	repo := &updateRepoStub{}
	svc := New(repo, newLogger())

	if err := svc.Delete(context.Background(), actor, domain.KindContact, "u1"); !errors.Is(err, ErrNotDeletable) {
		t.Fatalf("expected ErrNotDeletable, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("contact update must not reach the repository")
	}
	if err := svc.Delete(context.Background(), actor, domain.KindOrganisation, "u2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "u2" {
		t.Fatalf("unexpected deletes: %v", repo.deleted)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type updateRepoStub struct {
	created []domain.Update
	deleted []string
}

func (s *updateRepoStub) ListUpdates(context.Context, string, domain.Kind, string) ([]domain.Update, error) {
	return s.created, nil
}

func (s *updateRepoStub) CreateUpdate(_ context.Context, u *domain.Update) error {
	s.created = append([]domain.Update{*u}, s.created...)
	return nil
}

func (s *updateRepoStub) DeleteUpdate(_ context.Context, _ string, _ domain.Kind, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}
