package team

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

// Service handles team workflows.
type Service struct {
	repo   repository.TeamRepository
	users  repository.UserRepository
	logger *slog.Logger
}

// New constructs a Service with default logging.
func New(repo repository.TeamRepository, users repository.UserRepository, logger *slog.Logger) Service {
	return Service{repo: repo, users: users, logger: logger}
}

var (
	// ErrNoTeam is returned when the user belongs to no team.
	ErrNoTeam = errors.New("user does not belong to a team")
	// ErrAmbiguousTeam is returned when several memberships exist and none was selected.
	ErrAmbiguousTeam = errors.New("user belongs to several teams; select one with X-Team-ID")
	// ErrNotMember is returned for teams the user cannot access.
	ErrNotMember = errors.New("not a member of this team")
	// ErrNotOwner is returned when a member-only user attempts an owner action.
	ErrNotOwner = errors.New("only the team owner can manage members")

	errInvalidTeamName = errors.New("team name is required")
	errInvalidRole     = errors.New("role must be owner or member")
)

// IsValidation reports whether err is a caller mistake rather than a lookup failure.
func IsValidation(err error) bool {
	return errors.Is(err, errInvalidTeamName) || errors.Is(err, errInvalidRole) || errors.Is(err, ErrAmbiguousTeam)
}

// Create registers a team for the owner.
func (s Service) Create(ctx context.Context, ownerID, name string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errInvalidTeamName
	}
	now := time.Now().UTC()
	team := &domain.Team{ID: uuid.NewString(), Name: name, OwnerID: ownerID, CreatedAt: now}
	owner := domain.TeamMember{TeamID: team.ID, UserID: ownerID, Role: domain.RoleOwner, CreatedAt: now}
	if err := s.repo.CreateTeam(ctx, team, owner); err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID, "owner_id", ownerID)
	return team, nil
}

// Current resolves the team a request acts on. A non-empty requested id must be
// one of the user's teams; otherwise the user must belong to exactly one.
func (s Service) Current(ctx context.Context, userID, requested string) (*domain.Team, error) {
	teams, err := s.repo.ListTeamsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if requested = strings.TrimSpace(requested); requested != "" {
		for i := range teams {
			if teams[i].ID == requested {
				return &teams[i], nil
			}
		}
		return nil, ErrNotMember
	}
	switch len(teams) {
	case 0:
		return nil, ErrNoTeam
	case 1:
		return &teams[0], nil
	default:
		return nil, ErrAmbiguousTeam
	}
}

// Teams lists every team the user belongs to.
func (s Service) Teams(ctx context.Context, userID string) ([]domain.Team, error) {
	return s.repo.ListTeamsByUser(ctx, userID)
}

// AddMember adds the account registered under email to the team. Only owners may do this.
func (s Service) AddMember(ctx context.Context, actorID, teamID, email, role string) (*domain.TeamMember, error) {
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleOwner && role != domain.RoleMember {
		return nil, errInvalidRole
	}
	if err := s.requireRole(ctx, actorID, teamID, domain.RoleOwner); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	member := &domain.TeamMember{
		TeamID:    teamID,
		UserID:    user.ID,
		Role:      role,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.UpsertMember(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("team member added", "team_id", teamID, "user_id", user.ID, "role", role)
	return member, nil
}

// Members lists a team's members for one of its members.
func (s Service) Members(ctx context.Context, actorID, teamID string) ([]domain.TeamMember, error) {
	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserID == actorID {
			return members, nil
		}
	}
	return nil, ErrNotMember
}

func (s Service) requireRole(ctx context.Context, userID, teamID, role string) error {
	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID != userID {
			continue
		}
		if role == domain.RoleOwner && m.Role != domain.RoleOwner {
			return ErrNotOwner
		}
		return nil
	}
	return ErrNotMember
}
