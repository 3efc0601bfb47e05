package task

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// Input carries the editable task fields. A nil AssigneeID on create assigns the actor.
type Input struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	DueDate        *time.Time        `json:"due_date"`
	Status         domain.TaskStatus `json:"status"`
	OrganisationID *string           `json:"organisation_id"`
	ContactID      *string           `json:"contact_id"`
	AssigneeID     *string           `json:"assignee_id"`
}

// LinkInput describes a URL to attach to a task.
type LinkInput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Service orchestrates task management.
type Service struct {
	repo   repository.TaskRepository
	logger *slog.Logger
}

// New returns a task service.
func New(repo repository.TaskRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

var (
	errTitleRequired = errors.New("title is required")
	errInvalidStatus = errors.New("status must be pending, in_progress or completed")
	errURLRequired   = errors.New("url is required")
	errInvalidURL    = errors.New("url must be an absolute http(s) address")
)

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	return errors.Is(err, errTitleRequired) || errors.Is(err, errInvalidStatus) ||
		errors.Is(err, errURLRequired) || errors.Is(err, errInvalidURL)
}

// List returns the team's tasks with relations and links expanded.
func (s Service) List(ctx context.Context, actor domain.Actor, q repository.Query) ([]domain.Task, error) {
	return s.repo.ListTasks(ctx, actor.TeamID, q)
}

// Get returns one task.
func (s Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Task, error) {
	return s.repo.GetTask(ctx, actor.TeamID, id)
}

// Create stores a new task. Status defaults to pending and the assignee to the actor.
func (s Service) Create(ctx context.Context, actor domain.Actor, in Input) (*domain.Task, error) {
	if err := validate(&in, domain.TaskPending); err != nil {
		return nil, err
	}
	if in.AssigneeID == nil {
		self := actor.UserID
		in.AssigneeID = &self
	}
	now := time.Now().UTC()
	task := &domain.Task{
		ID:        uuid.NewString(),
		TeamID:    actor.TeamID,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(task, in)
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "team_id", task.TeamID)
	return task, nil
}

// Update replaces the editable fields. An empty status keeps the stored one.
func (s Service) Update(ctx context.Context, actor domain.Actor, id string, in Input) (*domain.Task, error) {
	if in.Status == "" {
		current, err := s.repo.GetTask(ctx, actor.TeamID, id)
		if err != nil {
			return nil, err
		}
		in.Status = current.Status
	}
	if err := validate(&in, in.Status); err != nil {
		return nil, err
	}
	task := &domain.Task{ID: id, TeamID: actor.TeamID}
	apply(task, in)
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ToggleStatus advances the task one step through pending, in progress and completed.
func (s Service) ToggleStatus(ctx context.Context, actor domain.Actor, id string) (*domain.Task, error) {
	current, err := s.repo.GetTask(ctx, actor.TeamID, id)
	if err != nil {
		return nil, err
	}
	next := current.Status.Next()
	task, err := s.repo.SetTaskStatus(ctx, actor.TeamID, id, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task status changed", "task_id", id, "from", current.Status, "to", next)
	return task, nil
}

// Delete removes a task and its links.
func (s Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteTask(ctx, actor.TeamID, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", id, "team_id", actor.TeamID)
	return nil
}

// AddLink attaches a URL to a task.
func (s Service) AddLink(ctx context.Context, actor domain.Actor, taskID string, in LinkInput) (*domain.TaskLink, error) {
	raw := strings.TrimSpace(in.URL)
	if raw == "" {
		return nil, errURLRequired
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidURL, raw)
	}
	link := &domain.TaskLink{
		ID:     uuid.NewString(),
		TaskID: taskID,
		URL:    raw,
		Title:  strings.TrimSpace(in.Title),
	}
	if err := s.repo.CreateTaskLink(ctx, actor.TeamID, link); err != nil {
		return nil, err
	}
	return link, nil
}

// DeleteLink removes a link from its task.
func (s Service) DeleteLink(ctx context.Context, actor domain.Actor, id string) error {
	return s.repo.DeleteTaskLink(ctx, actor.TeamID, id)
}

func validate(in *Input, fallback domain.TaskStatus) error {
	if strings.TrimSpace(in.Title) == "" {
		return errTitleRequired
	}
	if in.Status == "" {
		in.Status = fallback
	}
	if !in.Status.Valid() {
		return errInvalidStatus
	}
	return nil
}

func apply(t *domain.Task, in Input) {
	t.Title = strings.TrimSpace(in.Title)
	t.Description = in.Description
	t.DueDate = in.DueDate
	t.Status = in.Status
	t.OrganisationID = optional(in.OrganisationID)
	t.ContactID = optional(in.ContactID)
	t.AssigneeID = optional(in.AssigneeID)
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
