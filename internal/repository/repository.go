package repository

import (
	"context"
	"time"

	"github.com/splax/cornerstone/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, userID string, hash []byte) error
}

// SessionRepository tracks revocable sign-ins.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
}

// ProfileRepository stores per-user display details.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, profile *domain.Profile) error
}

// TeamRepository manages teams and memberships.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team, owner domain.TeamMember) error
	UpsertMember(ctx context.Context, member *domain.TeamMember) error
	GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error)
	ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error)
	ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
}

// OrganisationRepository persists organisations scoped to a team.
type OrganisationRepository interface {
	ListOrganisations(ctx context.Context, teamID string, q Query) ([]domain.Organisation, error)
	GetOrganisation(ctx context.Context, teamID, id string) (*domain.Organisation, error)
	CreateOrganisation(ctx context.Context, org *domain.Organisation) error
	UpdateOrganisation(ctx context.Context, org *domain.Organisation) error
	DeleteOrganisation(ctx context.Context, teamID, id string) error
}

// ContactRepository persists contacts with their organisation expanded.
type ContactRepository interface {
	ListContacts(ctx context.Context, teamID string, q Query) ([]domain.Contact, error)
	GetContact(ctx context.Context, teamID, id string) (*domain.Contact, error)
	CreateContact(ctx context.Context, contact *domain.Contact) error
	UpdateContact(ctx context.Context, contact *domain.Contact) error
	DeleteContact(ctx context.Context, teamID, id string) error
}

// TaskRepository persists tasks with organisation, contact, assignee and links expanded.
type TaskRepository interface {
	ListTasks(ctx context.Context, teamID string, q Query) ([]domain.Task, error)
	GetTask(ctx context.Context, teamID, id string) (*domain.Task, error)
	CreateTask(ctx context.Context, task *domain.Task) error
	UpdateTask(ctx context.Context, task *domain.Task) error
	SetTaskStatus(ctx context.Context, teamID, id string, status domain.TaskStatus) (*domain.Task, error)
	DeleteTask(ctx context.Context, teamID, id string) error
	CreateTaskLink(ctx context.Context, teamID string, link *domain.TaskLink) error
	DeleteTaskLink(ctx context.Context, teamID, id string) error
}

// EventRepository persists calendar events.
type EventRepository interface {
	ListEvents(ctx context.Context, teamID string, q Query) ([]domain.CalendarEvent, error)
	GetEvent(ctx context.Context, teamID, id string) (*domain.CalendarEvent, error)
	CreateEvent(ctx context.Context, event *domain.CalendarEvent) error
	UpdateEvent(ctx context.Context, event *domain.CalendarEvent) error
	DeleteEvent(ctx context.Context, teamID, id string) error
}

// UpdateRepository persists contact and organisation timelines.
type UpdateRepository interface {
	ListUpdates(ctx context.Context, teamID string, parent domain.Kind, parentID string) ([]domain.Update, error)
	CreateUpdate(ctx context.Context, update *domain.Update) error
	DeleteUpdate(ctx context.Context, teamID string, parent domain.Kind, id string) error
}

// RecentViewRepository records which entities a user opened.
type RecentViewRepository interface {
	UpsertRecentView(ctx context.Context, view domain.RecentView) error
	ListRecentViews(ctx context.Context, userID, teamID string, limit int) ([]domain.RecentView, error)
}
