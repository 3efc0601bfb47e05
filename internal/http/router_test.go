package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
	"github.com/splax/cornerstone/internal/service/auth"
	"github.com/splax/cornerstone/internal/service/calendar"
	"github.com/splax/cornerstone/internal/service/contact"
	"github.com/splax/cornerstone/internal/service/organisation"
	"github.com/splax/cornerstone/internal/service/profile"
	"github.com/splax/cornerstone/internal/service/recent"
	"github.com/splax/cornerstone/internal/service/task"
	"github.com/splax/cornerstone/internal/service/team"
	"github.com/splax/cornerstone/internal/service/timeline"
	"github.com/splax/cornerstone/internal/storage"
	"github.com/splax/cornerstone/pkg/config"
)

type rateLimitCall struct {
	key    string
	limit  int
	window time.Duration
}

type rateLimiterStub struct {
	mu      sync.Mutex
	calls   []rateLimitCall
	allowFn func(key string, limit int, window time.Duration) RateDecision
}

func (s *rateLimiterStub) Allow(_ context.Context, key string, limit int, window time.Duration) RateDecision {
	s.mu.Lock()
	s.calls = append(s.calls, rateLimitCall{key: key, limit: limit, window: window})
	s.mu.Unlock()
	if s.allowFn != nil {
		return s.allowFn(key, limit, window)
	}
	return RateDecision{Allowed: true, Count: 1, Reset: time.Now().Add(window)}
}

func (s *rateLimiterStub) Close() {}

// memStore backs every repository the router tests touch.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	sessions map[string]*domain.Session
	profiles map[string]*domain.Profile
	teams    map[string]*domain.Team
	members  []domain.TeamMember
	orgs     []domain.Organisation
	tasks    map[string]*domain.Task
	updates  []domain.Update
	views    []domain.RecentView
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*domain.User{},
		sessions: map[string]*domain.Session{},
		profiles: map[string]*domain.Profile{},
		teams:    map[string]*domain.Team{},
		tasks:    map[string]*domain.Task{},
	}
}

func (m *memStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) UpdatePasswordHash(_ context.Context, userID string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memStore) CreateSession(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) RevokeSession(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.RevokedAt = &at
	return nil
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := domain.Profile{ID: userID, Email: u.Email}
	if stored, ok := m.profiles[userID]; ok {
		p.FullName = stored.FullName
		p.AvatarURL = stored.AvatarURL
	}
	return &p, nil
}

func (m *memStore) UpsertProfile(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memStore) CreateTeam(_ context.Context, t *domain.Team, owner domain.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[t.ID] = t
	m.members = append(m.members, owner)
	return nil
}

func (m *memStore) UpsertMember(_ context.Context, member *domain.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, *member)
	return nil
}

func (m *memStore) GetTeamByID(_ context.Context, id string) (*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.teams[id]; ok {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListTeamsByUser(_ context.Context, userID string) ([]domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Team
	for _, member := range m.members {
		if member.UserID == userID {
			out = append(out, *m.teams[member.TeamID])
		}
	}
	return out, nil
}

func (m *memStore) ListMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TeamMember
	for _, member := range m.members {
		if member.TeamID == teamID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *memStore) ListOrganisations(_ context.Context, teamID string, _ repository.Query) ([]domain.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Organisation
	for _, o := range m.orgs {
		if o.TeamID == teamID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) GetOrganisation(_ context.Context, teamID, id string) (*domain.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.ID == id && o.TeamID == teamID {
			cp := o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CreateOrganisation(_ context.Context, org *domain.Organisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs = append(m.orgs, *org)
	return nil
}

func (m *memStore) UpdateOrganisation(_ context.Context, org *domain.Organisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.orgs {
		if o.ID == org.ID && o.TeamID == org.TeamID {
			org.CreatedBy = o.CreatedBy
			org.CreatedAt = o.CreatedAt
			org.UpdatedAt = time.Now().UTC()
			m.orgs[i] = *org
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) DeleteOrganisation(_ context.Context, teamID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.orgs {
		if o.ID == id && o.TeamID == teamID {
			m.orgs = append(m.orgs[:i], m.orgs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) ListTasks(_ context.Context, teamID string, _ repository.Query) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.TeamID == teamID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) GetTask(_ context.Context, teamID, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.TeamID != teamID {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) CreateTask(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) UpdateTask(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) SetTaskStatus(_ context.Context, teamID, id string, status domain.TaskStatus) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.TeamID != teamID {
		return nil, repository.ErrNotFound
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

func (m *memStore) DeleteTask(_ context.Context, teamID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; !ok || t.TeamID != teamID {
		return repository.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memStore) CreateTaskLink(_ context.Context, teamID string, link *domain.TaskLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[link.TaskID]
	if !ok || t.TeamID != teamID {
		return repository.ErrNotFound
	}
	t.Links = append(t.Links, *link)
	return nil
}

func (m *memStore) DeleteTaskLink(context.Context, string, string) error {
	return nil
}

func (m *memStore) ListUpdates(_ context.Context, teamID string, parent domain.Kind, parentID string) ([]domain.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Update
	for i := len(m.updates) - 1; i >= 0; i-- {
		u := m.updates[i]
		if u.TeamID == teamID && u.ParentKind == parent && u.ParentID == parentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) CreateUpdate(_ context.Context, u *domain.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, *u)
	return nil
}

func (m *memStore) DeleteUpdate(_ context.Context, teamID string, parent domain.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.updates {
		if u.ID == id && u.TeamID == teamID && u.ParentKind == parent {
			m.updates = append(m.updates[:i], m.updates[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) UpsertRecentView(_ context.Context, view domain.RecentView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, view)
	return nil
}

func (m *memStore) ListRecentViews(_ context.Context, userID, teamID string, limit int) ([]domain.RecentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RecentView
	for _, v := range m.views {
		if v.UserID == userID && v.TeamID == teamID {
			out = append(out, v)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testEnv struct {
	router *Router
	store  *memStore
	token  string
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(t *testing.T, limiter RateLimiter, bucket *storage.Bucket) *testEnv {
	t.Helper()
	logger := newTestLogger()
	store := newMemStore()
	cfg := config.APIConfig{JWTSecret: "router-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
	authSvc := auth.New(store, store, store, store, nil, logger, cfg)
	svc := Services{
		Auth:          authSvc,
		Team:          team.New(store, store, logger),
		Organisations: organisation.New(store, logger),
		Contacts:      contact.New(nil, logger),
		Tasks:         task.New(store, logger),
		Calendar:      calendar.New(nil, nil, logger),
		Timeline:      timeline.New(store, logger),
		Profiles:      profile.New(store, authSvc, logger),
		Recent:        recent.New(store),
	}
	if limiter == nil {
		limiter = &rateLimiterStub{}
	}
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		svc:     svc,
		bucket:  bucket,
		limiter: limiter,
		now:     func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
	}
	r.register()
	t.Cleanup(r.Close)
	return &testEnv{router: r, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:5000"
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and keeps its access token for later requests.
func (e *testEnv) signup(t *testing.T, email string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/signup", map[string]string{"email": email, "password": "secret123", "full_name": "Ada"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	e.token = resp.AccessToken
}

func (e *testEnv) createTeam(t *testing.T) domain.Team {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/teams", map[string]string{"name": "Sales"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create team: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Team
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode team: %v", err)
	}
	return created
}

func TestHealthzReportsDatabaseFailure(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.router.dbHealth = func(context.Context) error { return errors.New("connection refused") }

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Fatalf("expected degraded status, got %s", rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupRouter(t, nil, nil)
	for _, path := range []string{"/organisations", "/tasks", "/profile", "/reports/status"} {
		rec := env.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestLoginWithWrongPasswordIsUnauthorized(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.token = ""

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "nope-nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCRMRoutesNeedATeam(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")

	rec := env.do(t, http.MethodGet, "/organisations", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a team, got %d", rec.Code)
	}
}

func TestOrganisationCreateListUpdate(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	created := env.createTeam(t)

	rec := env.do(t, http.MethodPost, "/organisations", map[string]string{"name": "Acme"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var org domain.Organisation
	if err := json.Unmarshal(rec.Body.Bytes(), &org); err != nil {
		t.Fatalf("decode org: %v", err)
	}
	if org.TeamID != created.ID || org.Website != "" {
		t.Fatalf("unexpected organisation %+v", org)
	}

	rec = env.do(t, http.MethodPut, "/organisations/"+org.ID, map[string]string{"name": "Acme", "current_status": "Negotiating"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/organisations?order=name", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listed []domain.Organisation
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != org.ID || listed[0].CurrentStatus != "Negotiating" {
		t.Fatalf("unexpected list %+v", listed)
	}
}

func TestOrganisationCreateRequiresName(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.createTeam(t)

	rec := env.do(t, http.MethodPost, "/organisations", map[string]string{"website": "https://acme.test"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListRejectsMalformedFilter(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.createTeam(t)

	rec := env.do(t, http.MethodGet, "/tasks?status=like.done", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTaskToggleCycles(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.createTeam(t)

	rec := env.do(t, http.MethodPost, "/tasks", map[string]string{"title": "Call back"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if created.Status != domain.TaskPending || created.AssigneeID == nil {
		t.Fatalf("expected pending task assigned to the creator, got %+v", created)
	}

	want := []domain.TaskStatus{domain.TaskInProgress, domain.TaskCompleted, domain.TaskPending}
	for _, status := range want {
		rec = env.do(t, http.MethodPost, "/tasks/"+created.ID+"/toggle", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle: expected 200, got %d", rec.Code)
		}
		var toggled domain.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &toggled); err != nil {
			t.Fatalf("decode toggled: %v", err)
		}
		if toggled.Status != status {
			t.Fatalf("expected %s, got %s", status, toggled.Status)
		}
	}
}

func TestTaskLinkRejectsRelativeURL(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.createTeam(t)
	rec := env.do(t, http.MethodPost, "/tasks", map[string]string{"title": "Send deck"})
	var created domain.Task
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = env.do(t, http.MethodPost, "/tasks/"+created.ID+"/links", map[string]string{"url": "/deck.pdf"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/tasks/"+created.ID+"/links", map[string]string{"url": "https://example.com/deck.pdf"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOrganisationTimelineAddAndDelete(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.createTeam(t)

	rec := env.do(t, http.MethodPost, "/organisations/org-1/updates", map[string]string{"content": "Kick-off"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var update domain.Update
	if err := json.Unmarshal(rec.Body.Bytes(), &update); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if update.Type != domain.UpdateOther {
		t.Fatalf("expected default type other, got %s", update.Type)
	}

	rec = env.do(t, http.MethodPost, "/organisations/org-1/updates", map[string]string{"type": "phone", "content": "Rang"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("phone updates belong to contacts; expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/organisation-updates/"+update.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRecentViewsRecordAndList(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.createTeam(t)

	rec := env.do(t, http.MethodPost, "/recent-views", map[string]string{"item_type": "contact", "item_id": "c-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/recent-views", map[string]string{"item_type": "invoice", "item_id": "i-1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/recent-views", nil)
	var views []domain.RecentView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	if len(views) != 1 || views[0].ItemID != "c-1" {
		t.Fatalf("unexpected views %+v", views)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")

	if rec := env.do(t, http.MethodGet, "/auth/session", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/auth/logout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/auth/session", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestPasswordMismatchIsRejected(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")

	rec := env.do(t, http.MethodPut, "/auth/password", map[string]string{"password": "newsecret", "confirm_password": "other"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Passwords do not match") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestStatusReportPDF(t *testing.T) {
	env := setupRouter(t, nil, nil)
	env.signup(t, "ada@example.com")
	env.createTeam(t)
	env.do(t, http.MethodPost, "/organisations", map[string]string{"name": "Acme"})

	rec := env.do(t, http.MethodGet, "/reports/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No status") && !strings.Contains(rec.Body.String(), `"status":""`) {
		t.Fatalf("unexpected digest %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/reports/status.pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}
}

func uploadRequest(t *testing.T, token, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(avatarFormField, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(content)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/storage/avatars", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAvatarUpload(t *testing.T) {
	bucket, err := storage.NewBucket(t.TempDir(), "http://files.test/storage", 16)
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	env := setupRouter(t, nil, bucket)
	env.signup(t, "ada@example.com")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, uploadRequest(t, env.token, "notes.txt", []byte("hello")))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, uploadRequest(t, env.token, "me.png", bytes.Repeat([]byte("x"), 64)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, uploadRequest(t, env.token, "me.png", []byte("png")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !strings.HasPrefix(resp["url"], "http://files.test/storage/avatars/") || !strings.HasSuffix(resp["url"], ".png") {
		t.Fatalf("unexpected url %q", resp["url"])
	}
}

func TestRateLimitRejectsWithHeaders(t *testing.T) {
	stub := &rateLimiterStub{allowFn: func(key string, limit int, window time.Duration) RateDecision {
		return RateDecision{Allowed: false, Count: limit, Reset: time.Now().Add(window)}
	}}
	env := setupRouter(t, stub, nil)

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.c", "password": "secret123"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected remaining 0, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.calls) != 1 || stub.calls[0].key != "login|ip:203.0.113.7" || stub.calls[0].limit != ratePolicies[rateLogin].limit {
		t.Fatalf("unexpected limiter calls %+v", stub.calls)
	}
}

func TestSessionEventsRequireToken(t *testing.T) {
	env := setupRouter(t, nil, nil)
	rec := env.do(t, http.MethodGet, "/auth/events", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPathID(t *testing.T) {
	id, rest := pathID("/tasks/abc/links", "/tasks/")
	if id != "abc" || len(rest) != 1 || rest[0] != "links" {
		t.Fatalf("unexpected split %q %v", id, rest)
	}
	if id, _ := pathID("/tasks/", "/tasks/"); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
