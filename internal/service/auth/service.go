package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
	"github.com/splax/cornerstone/pkg/config"
	"github.com/splax/cornerstone/pkg/crypto"
	jwtpkg "github.com/splax/cornerstone/pkg/jwt"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionInactive is returned for tokens whose session was revoked or has expired.
	ErrSessionInactive = errors.New("session is no longer active")
	// ErrPasswordMismatch is returned when the confirmation differs from the new password.
	ErrPasswordMismatch = errors.New("Passwords do not match")
	// ErrEmailRequired is returned by Signup for a blank email.
	ErrEmailRequired = errors.New("email is required")
	// ErrTokenRequired is returned for an empty bearer token.
	ErrTokenRequired = errors.New("token required")
)

// Service handles authentication workflows.
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	profiles repository.ProfileRepository
	teams    repository.TeamRepository
	events   Publisher
	logger   *slog.Logger
	cfg      config.APIConfig
}

// New constructs a Service. events may be nil.
func New(users repository.UserRepository, sessions repository.SessionRepository, profiles repository.ProfileRepository,
	teams repository.TeamRepository, events Publisher, logger *slog.Logger, cfg config.APIConfig) Service {
	if events == nil {
		events = nopPublisher{}
	}
	return Service{users: users, sessions: sessions, profiles: profiles, teams: teams, events: events, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	SessionID    string
}

// Signup registers a new user and signs them in.
func (s Service) Signup(ctx context.Context, email, password, fullName string) (*domain.User, TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, TokenPair{}, ErrEmailRequired
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}
	if name := strings.TrimSpace(fullName); name != "" {
		if err := s.profiles.UpsertProfile(ctx, &domain.Profile{ID: user.ID, FullName: name}); err != nil {
			s.logger.Warn("profile name not stored", "user_id", user.ID, "error", err)
		}
	}
	tokens, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login authenticates a user and opens a session.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	tokens, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID, "session_id", tokens.SessionID)
	return user, tokens, nil
}

// Authorize validates an access token against its session and returns the user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, ErrTokenRequired
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret, jwtpkg.KindAccess)
	if err != nil {
		return nil, nil, err
	}
	if err := s.ensureActive(ctx, claims); err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// Refresh exchanges a refresh token for a new pair bound to the same session.
func (s Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	trimmed := strings.TrimSpace(refreshToken)
	if trimmed == "" {
		return TokenPair{}, ErrTokenRequired
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret, jwtpkg.KindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.ensureActive(ctx, claims); err != nil {
		return TokenPair{}, err
	}
	tokens, err := s.issueTokens(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return TokenPair{}, err
	}
	s.publish(ctx, domain.SessionTokenRefreshed, claims.UserID, claims.SessionID)
	return tokens, nil
}

// Logout revokes the session behind claims.
func (s Service) Logout(ctx context.Context, claims *jwtpkg.Claims) error {
	if claims == nil || claims.SessionID == "" {
		return ErrSessionInactive
	}
	if err := s.sessions.RevokeSession(ctx, claims.SessionID, time.Now().UTC()); err != nil {
		return err
	}
	s.publish(ctx, domain.SessionSignedOut, claims.UserID, claims.SessionID)
	s.logger.Info("user logged out", "user_id", claims.UserID, "session_id", claims.SessionID)
	return nil
}

// Session returns the session record for claims if it is still active.
func (s Service) Session(ctx context.Context, claims *jwtpkg.Claims) (*domain.Session, error) {
	return s.activeSession(ctx, claims)
}

// UpdatePassword changes the user's password once the confirmation matches.
func (s Service) UpdatePassword(ctx context.Context, userID, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	s.publish(ctx, domain.SessionUserUpdated, userID, "")
	s.logger.Info("password updated", "user_id", userID)
	return nil
}

// NotifyUserUpdated tells the user's clients that their account details changed.
func (s Service) NotifyUserUpdated(ctx context.Context, userID string) {
	s.publish(ctx, domain.SessionUserUpdated, userID, "")
}

func (s Service) ensureActive(ctx context.Context, claims *jwtpkg.Claims) error {
	_, err := s.activeSession(ctx, claims)
	return err
}

// activeSession loads the session behind claims. Revoked, expired, unknown
// and foreign sessions all read as ErrSessionInactive.
func (s Service) activeSession(ctx context.Context, claims *jwtpkg.Claims) (*domain.Session, error) {
	if claims == nil || claims.SessionID == "" {
		return nil, ErrSessionInactive
	}
	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrSessionInactive
	case err != nil:
		return nil, err
	case !session.Active(time.Now()) || session.UserID != claims.UserID:
		return nil, ErrSessionInactive
	}
	return session, nil
}

func (s Service) startSession(ctx context.Context, userID string) (TokenPair, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return TokenPair{}, err
	}
	tokens, err := s.issueTokens(ctx, userID, session.ID)
	if err != nil {
		return TokenPair{}, err
	}
	s.publish(ctx, domain.SessionSignedIn, userID, session.ID)
	return tokens, nil
}

// soleTeam stamps the team into tokens when the user belongs to exactly one.
func (s Service) soleTeam(ctx context.Context, userID string) string {
	if s.teams == nil {
		return ""
	}
	teams, err := s.teams.ListTeamsByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("team lookup for token failed", "user_id", userID, "error", err)
		return ""
	}
	if len(teams) != 1 {
		return ""
	}
	return teams[0].ID
}

func (s Service) issueTokens(ctx context.Context, userID, sessionID string) (TokenPair, error) {
	sub := jwtpkg.Subject{UserID: userID, TeamID: s.soleTeam(ctx, userID), SessionID: sessionID}
	access, err := jwtpkg.GenerateToken(sub, jwtpkg.KindAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.GenerateToken(sub, jwtpkg.KindRefresh, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.cfg.AccessTokenTTL, SessionID: sessionID}, nil
}

func (s Service) publish(ctx context.Context, kind, userID, sessionID string) {
	s.events.Publish(ctx, domain.SessionEvent{Type: kind, UserID: userID, SessionID: sessionID, At: time.Now().UTC()})
}
