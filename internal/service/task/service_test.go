package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

var actor = domain.Actor{UserID: "user-1", TeamID: "team-1"}

func TestCreateDefaultsStatusAndAssignee(t *testing.T) {
	repo := newTaskRepoStub()
	svc := New(repo, newLogger())

	task, err := svc.Create(context.Background(), actor, Input{Title: "  Call Acme "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != domain.TaskPending {
		t.Fatalf("expected pending, got %s", task.Status)
	}
	if task.AssigneeID == nil || *task.AssigneeID != "user-1" {
		t.Fatalf("expected assignee to default to actor, got %v", task.AssigneeID)
	}
	if task.Title != "Call Acme" || task.TeamID != "team-1" || task.CreatedBy != "user-1" {
		t.Fatalf("unexpected stamped task: %+v", task)
	}
	if len(repo.tasks) != 1 {
		t.Fatalf("expected exactly one stored task, got %d", len(repo.tasks))
	}
}

func TestCreateHonoursExplicitUnassigned(t *testing.T) {
	svc := New(newTaskRepoStub(), newLogger())
	empty := ""
	task, err := svc.Create(context.Background(), actor, Input{Title: "Later", AssigneeID: &empty})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.AssigneeID != nil {
		t.Fatalf("expected no assignee, got %v", *task.AssigneeID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(newTaskRepoStub(), newLogger())
	if _, err := svc.Create(context.Background(), actor, Input{Title: " "}); !IsValidation(err) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	if _, err := svc.Create(context.Background(), actor, Input{Title: "x", Status: "done"}); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestToggleStatusCyclesBackAfterThreeSteps(t *testing.T) {
	repo := newTaskRepoStub()
	svc := New(repo, newLogger())
	task, err := svc.Create(context.Background(), actor, Input{Title: "Cycle"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	want := []domain.TaskStatus{domain.TaskInProgress, domain.TaskCompleted, domain.TaskPending}
	for i, status := range want {
		got, err := svc.ToggleStatus(context.Background(), actor, task.ID)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if got.Status != status {
			t.Fatalf("toggle %d: expected %s, got %s", i, status, got.Status)
		}
	}
}

func TestUpdateKeepsStatusWhenOmitted(t *testing.T) {
	repo := newTaskRepoStub()
	svc := New(repo, newLogger())
	task, _ := svc.Create(context.Background(), actor, Input{Title: "Keep", Status: domain.TaskInProgress})

	due := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(context.Background(), actor, task.ID, Input{Title: "Keep it", DueDate: &due})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.TaskInProgress {
		t.Fatalf("expected status to be kept, got %s", updated.Status)
	}
	if updated.DueDate == nil || !updated.DueDate.Equal(due) {
		t.Fatalf("expected due date to be stored")
	}
}

func TestAddLinkRequiresAbsoluteHTTPURL(t *testing.T) {
	repo := newTaskRepoStub()
	svc := New(repo, newLogger())

	for _, raw := range []string{"", "notaurl", "ftp://files.example.com/x"} {
		if _, err := svc.AddLink(context.Background(), actor, "task-1", LinkInput{URL: raw}); !IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", raw, err)
		}
	}
	link, err := svc.AddLink(context.Background(), actor, "task-1", LinkInput{URL: "https://example.com/spec", Title: " Spec "})
	if err != nil {
		t.Fatalf("add link: %v", err)
	}
	if link.Title != "Spec" || link.TaskID != "task-1" || link.ID == "" {
		t.Fatalf("unexpected link: %+v", link)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type taskRepoStub struct {
	tasks map[string]domain.Task
	links []domain.TaskLink
}

func newTaskRepoStub() *taskRepoStub {
	return &taskRepoStub{tasks: map[string]domain.Task{}}
}

func (s *taskRepoStub) ListTasks(context.Context, string, repository.Query) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (s *taskRepoStub) GetTask(_ context.Context, teamID, id string) (*domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.TeamID != teamID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *taskRepoStub) CreateTask(_ context.Context, task *domain.Task) error {
	s.tasks[task.ID] = *task
	return nil
}

func (s *taskRepoStub) UpdateTask(_ context.Context, task *domain.Task) error {
	if _, ok := s.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *taskRepoStub) SetTaskStatus(_ context.Context, teamID, id string, status domain.TaskStatus) (*domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.TeamID != teamID {
		return nil, repository.ErrNotFound
	}
	t.Status = status
	s.tasks[id] = t
	return &t, nil
}

func (s *taskRepoStub) DeleteTask(_ context.Context, _ string, id string) error {
	delete(s.tasks, id)
	return nil
}

func (s *taskRepoStub) CreateTaskLink(_ context.Context, _ string, link *domain.TaskLink) error {
	link.CreatedAt = time.Now()
	s.links = append(s.links, *link)
	return nil
}

func (s *taskRepoStub) DeleteTaskLink(context.Context, string, string) error { return nil }
