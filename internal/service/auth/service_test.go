package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
	"github.com/splax/cornerstone/pkg/config"
	"github.com/splax/cornerstone/pkg/crypto"
	jwtpkg "github.com/splax/cornerstone/pkg/jwt"
)

func testConfig() config.APIConfig {
	return config.APIConfig{
		JWTSecret:       "super-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
}

func TestSignupCreatesSessionAndPublishesSignIn(t *testing.T) {
	users := &userRepoMock{}
	sessions := newSessionRepoMock()
	profiles := &profileRepoMock{}
	events := &eventRecorder{}
	svc := New(users, sessions, profiles, teamRepoMock{}, events, newLogger(), testConfig())

	user, tokens, err := svc.Signup(context.Background(), " Ada@Example.com ", "secret1", "Ada Lovelace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalised email, got %q", user.Email)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens")
	}
	if _, ok := sessions.byID[tokens.SessionID]; !ok {
		t.Fatalf("expected session %s to be stored", tokens.SessionID)
	}
	if profiles.saved == nil || profiles.saved.FullName != "Ada Lovelace" {
		t.Fatalf("expected profile name to be stored")
	}
	if got := events.types(); len(got) != 1 || got[0] != domain.SessionSignedIn {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc := New(&userRepoMock{}, newSessionRepoMock(), &profileRepoMock{}, nil, nil, newLogger(), testConfig())
	if _, _, err := svc.Signup(context.Background(), "a@b.c", "123", ""); !errors.Is(err, crypto.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestLoginWrongPasswordIsInvalidCredentials(t *testing.T) {
	hash, err := crypto.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &userRepoMock{users: map[string]*domain.User{"u1": {ID: "u1", Email: "a@b.c", PasswordHash: hash}}}
	svc := New(users, newSessionRepoMock(), &profileRepoMock{}, nil, nil, newLogger(), testConfig())

	if _, _, err := svc.Login(context.Background(), "a@b.c", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@b.c", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLoginStampsSoleTeam(t *testing.T) {
	hash, _ := crypto.HashPassword("correct-horse")
	users := &userRepoMock{users: map[string]*domain.User{"u1": {ID: "u1", Email: "a@b.c", PasswordHash: hash}}}
	teams := teamRepoMock{teams: []domain.Team{{ID: "team-1"}}}
	cfg := testConfig()
	svc := New(users, newSessionRepoMock(), &profileRepoMock{}, teams, nil, newLogger(), cfg)

	_, tokens, err := svc.Login(context.Background(), "a@b.c", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := jwtpkg.Parse(tokens.AccessToken, cfg.JWTSecret, jwtpkg.KindAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TeamID != "team-1" || claims.SessionID != tokens.SessionID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthorizeRejectsRevokedSession(t *testing.T) {
	hash, _ := crypto.HashPassword("correct-horse")
	users := &userRepoMock{users: map[string]*domain.User{"u1": {ID: "u1", Email: "a@b.c", PasswordHash: hash}}}
	sessions := newSessionRepoMock()
	events := &eventRecorder{}
	svc := New(users, sessions, &profileRepoMock{}, nil, events, newLogger(), testConfig())

	_, tokens, err := svc.Login(context.Background(), "a@b.c", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_, claims, err := svc.Authorize(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := svc.Authorize(context.Background(), tokens.AccessToken); !errors.Is(err, ErrSessionInactive) {
		t.Fatalf("expected ErrSessionInactive after logout, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionInactive) {
		t.Fatalf("expected refresh to fail after logout, got %v", err)
	}
	got := events.types()
	if len(got) != 2 || got[1] != domain.SessionSignedOut {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestAuthorizeRejectsRefreshToken(t *testing.T) {
	hash, _ := crypto.HashPassword("correct-horse")
	users := &userRepoMock{users: map[string]*domain.User{"u1": {ID: "u1", Email: "a@b.c", PasswordHash: hash}}}
	svc := New(users, newSessionRepoMock(), &profileRepoMock{}, nil, nil, newLogger(), testConfig())

	_, tokens, err := svc.Login(context.Background(), "a@b.c", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Authorize(context.Background(), tokens.RefreshToken); !errors.Is(err, jwtpkg.ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
	refreshed, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.SessionID != tokens.SessionID {
		t.Fatalf("expected refresh to keep the session")
	}
}

func TestUpdatePasswordRequiresMatchingConfirmation(t *testing.T) {
	users := &userRepoMock{}
	events := &eventRecorder{}
	svc := New(users, newSessionRepoMock(), &profileRepoMock{}, nil, events, newLogger(), testConfig())

	err := svc.UpdatePassword(context.Background(), "u1", "new-secret", "new-secreT")
	if !errors.Is(err, ErrPasswordMismatch) || err.Error() != "Passwords do not match" {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if users.updatedHash != nil {
		t.Fatalf("password must not change on mismatch")
	}
	if err := svc.UpdatePassword(context.Background(), "u1", "new-secret", "new-secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crypto.ComparePassword(users.updatedHash, "new-secret") != nil {
		t.Fatalf("expected stored hash to match new password")
	}
	if got := events.types(); len(got) != 1 || got[0] != domain.SessionUserUpdated {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestBrokerDeliversLocallyWithoutRedis(t *testing.T) {
	local := &broadcastRecorder{}
	broker := NewBroker(local, nil, "chan", newLogger())
	broker.Publish(context.Background(), domain.SessionEvent{Type: domain.SessionSignedOut, UserID: "u1"})
	if len(local.users) != 1 || local.users[0] != "u1" {
		t.Fatalf("expected local delivery to u1, got %v", local.users)
	}
	broker.Run(context.Background())
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type broadcastRecorder struct {
	users    []string
	payloads [][]byte
}

func (b *broadcastRecorder) Broadcast(userID string, payload []byte) {
	b.users = append(b.users, userID)
	b.payloads = append(b.payloads, payload)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (r *eventRecorder) Publish(_ context.Context, event domain.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type userRepoMock struct {
	users       map[string]*domain.User
	updatedHash []byte
}

func (m *userRepoMock) CreateUser(_ context.Context, user *domain.User) error {
	if m.users == nil {
		m.users = map[string]*domain.User{}
	}
	m.users[user.ID] = user
	return nil
}

func (m *userRepoMock) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) UpdatePasswordHash(_ context.Context, _ string, hash []byte) error {
	m.updatedHash = hash
	return nil
}

type sessionRepoMock struct {
	byID map[string]*domain.Session
}

func newSessionRepoMock() *sessionRepoMock {
	return &sessionRepoMock{byID: map[string]*domain.Session{}}
}

func (m *sessionRepoMock) CreateSession(_ context.Context, s *domain.Session) error {
	m.byID[s.ID] = s
	return nil
}

func (m *sessionRepoMock) GetSession(_ context.Context, id string) (*domain.Session, error) {
	if s, ok := m.byID[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *sessionRepoMock) RevokeSession(_ context.Context, id string, at time.Time) error {
	s, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.RevokedAt = &at
	return nil
}

type profileRepoMock struct {
	saved *domain.Profile
}

func (m *profileRepoMock) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	if m.saved != nil && m.saved.ID == userID {
		return m.saved, nil
	}
	return nil, repository.ErrNotFound
}

func (m *profileRepoMock) UpsertProfile(_ context.Context, p *domain.Profile) error {
	m.saved = p
	return nil
}

type teamRepoMock struct {
	teams []domain.Team
}

func (m teamRepoMock) CreateTeam(context.Context, *domain.Team, domain.TeamMember) error { return nil }
func (m teamRepoMock) UpsertMember(context.Context, *domain.TeamMember) error { return nil }
func (m teamRepoMock) GetTeamByID(context.Context, string) (*domain.Team, error) {
	return nil, repository.ErrNotFound
}
func (m teamRepoMock) ListTeamsByUser(context.Context, string) ([]domain.Team, error) {
	return m.teams, nil
}
func (m teamRepoMock) ListMembers(context.Context, string) ([]domain.TeamMember, error) {
	return nil, nil
}
