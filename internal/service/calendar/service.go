package calendar

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

const mirrorTimeout = 10 * time.Second

// Input carries the editable event fields.
type Input struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	OrganisationID *string   `json:"organisation_id"`
	ContactID      *string   `json:"contact_id"`
	TaskID         *string   `json:"task_id"`
}

// Mirror receives copies of event changes, e.g. an external calendar.
type Mirror interface {
	Upsert(ctx context.Context, ev domain.CalendarEvent) error
	Remove(ctx context.Context, eventID string) error
}

// Service orchestrates calendar events.
type Service struct {
	repo   repository.EventRepository
	mirror Mirror
	logger *slog.Logger
}

// New returns a calendar service. mirror may be nil.
func New(repo repository.EventRepository, mirror Mirror, logger *slog.Logger) Service {
	return Service{repo: repo, mirror: mirror, logger: logger}
}

var (
	errTitleRequired = errors.New("title is required")
	errTimeRequired  = errors.New("start and end time are required")
	errInvalidRange  = errors.New("end time must not be before start time")
)

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool {
	return errors.Is(err, errTitleRequired) || errors.Is(err, errTimeRequired) || errors.Is(err, errInvalidRange)
}

// List returns the team's events with relations expanded.
func (s Service) List(ctx context.Context, actor domain.Actor, q repository.Query) ([]domain.CalendarEvent, error) {
	return s.repo.ListEvents(ctx, actor.TeamID, q)
}

// Get returns one event.
func (s Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.CalendarEvent, error) {
	return s.repo.GetEvent(ctx, actor.TeamID, id)
}

// Create stores a new event and mirrors it.
func (s Service) Create(ctx context.Context, actor domain.Actor, in Input) (*domain.CalendarEvent, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ev := &domain.CalendarEvent{
		ID:        uuid.NewString(),
		TeamID:    actor.TeamID,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(ev, in)
	if err := s.repo.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}
	s.logger.Info("event created", "event_id", ev.ID, "team_id", ev.TeamID)
	s.mirrorUpsert(ctx, *ev)
	return ev, nil
}

// Update replaces the editable fields and mirrors the change.
func (s Service) Update(ctx context.Context, actor domain.Actor, id string, in Input) (*domain.CalendarEvent, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	ev := &domain.CalendarEvent{ID: id, TeamID: actor.TeamID}
	apply(ev, in)
	if err := s.repo.UpdateEvent(ctx, ev); err != nil {
		return nil, err
	}
	s.mirrorUpsert(ctx, *ev)
	return ev, nil
}

// Delete removes an event and its mirrored copy.
func (s Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteEvent(ctx, actor.TeamID, id); err != nil {
		return err
	}
	s.logger.Info("event deleted", "event_id", id, "team_id", actor.TeamID)
	if s.mirror == nil {
		return nil
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
		defer cancel()
		if err := s.mirror.Remove(mctx, id); err != nil {
			s.logger.Warn("calendar mirror delete failed", "event_id", id, "error", err)
		}
	}()
	return nil
}

func (s Service) mirrorUpsert(ctx context.Context, ev domain.CalendarEvent) {
	if s.mirror == nil {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
		defer cancel()
		if err := s.mirror.Upsert(mctx, ev); err != nil {
			s.logger.Warn("calendar mirror update failed", "event_id", ev.ID, "error", err)
		}
	}()
}

func validate(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return errTitleRequired
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return errTimeRequired
	}
	if in.EndTime.Before(in.StartTime) {
		return errInvalidRange
	}
	return nil
}

func apply(ev *domain.CalendarEvent, in Input) {
	ev.Title = strings.TrimSpace(in.Title)
	ev.Description = in.Description
	ev.StartTime = in.StartTime
	ev.EndTime = in.EndTime
	ev.OrganisationID = optional(in.OrganisationID)
	ev.ContactID = optional(in.ContactID)
	ev.TaskID = optional(in.TaskID)
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
