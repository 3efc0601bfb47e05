package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
	jwtpkg "github.com/splax/cornerstone/pkg/jwt"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cli, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return cli
}

func TestLoginStoresSessionAndSendsHeaders(t *testing.T) {
	var gotAuth, gotTeam string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "acc",
			"refresh_token": "ref",
			"session_id":    "s1",
		})
	})
	mux.HandleFunc("/organisations", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTeam = r.Header.Get("X-Team-ID")
		_, _ = w.Write([]byte(`[{"id":"o1","name":"Acme"}]`))
	})
	cli := newTestClient(t, mux)

	if _, err := cli.Login(context.Background(), "a@b.c", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s := cli.Session(); s.AccessToken != "acc" || s.RefreshToken != "ref" || s.SessionID != "s1" {
		t.Fatalf("unexpected session %+v", s)
	}
	cli.SetTeam("team-1")
	orgs, err := cli.Organisations().List(context.Background(), repository.Query{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orgs) != 1 || orgs[0].Name != "Acme" {
		t.Fatalf("unexpected organisations %+v", orgs)
	}
	if gotAuth != "Bearer acc" || gotTeam != "team-1" {
		t.Fatalf("unexpected headers auth=%q team=%q", gotAuth, gotTeam)
	}
}

func TestListEncodesQuery(t *testing.T) {
	var raw string
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	q := repository.Query{}.Where("name", repository.OpIlike, "%acme%").OrderBy("name", false).WithLimit(5)
	if _, err := cli.Organisations().List(context.Background(), q); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(raw, "limit=5") || !strings.Contains(raw, "order=name") || !strings.Contains(raw, "name=ilike.") {
		t.Fatalf("unexpected query %q", raw)
	}
}

func TestErrorsCarryStatusAndMessage(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authentication failed"}`))
	}))
	_, err := cli.CurrentSession(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestCreateTaskOmitsNilAssignee(t *testing.T) {
	var body map[string]any
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"t1","title":"Call","status":"pending"}`))
	}))
	task, err := cli.Tasks().Create(context.Background(), TaskInput{Title: "Call"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != "t1" || task.Status != domain.TaskPending {
		t.Fatalf("unexpected task %+v", task)
	}
	if _, ok := body["assignee_id"]; ok {
		t.Fatalf("expected assignee_id to be omitted, got %v", body)
	}
}

func TestLogoutClearsSessionEvenOnFailure(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	cli.SetSession(Session{AccessToken: "acc", RefreshToken: "ref"})
	cli.SetTeam("team-1")
	if err := cli.Logout(context.Background()); err == nil {
		t.Fatalf("expected error from failing server")
	}
	if cli.Session().Valid() || cli.TeamID() != "" {
		t.Fatalf("expected local session to be cleared")
	}
}

func TestUploadAvatarSendsMultipart(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "me.png" || string(data) != "img" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"url":"http://files/avatars/u1-abc.png"}`))
	}))
	url, err := cli.UploadAvatar(context.Background(), "me.png", strings.NewReader("img"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "http://files/avatars/u1-abc.png" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestStatusReportPDFReturnsBytes(t *testing.T) {
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.3 test"))
	}))
	data, err := cli.StatusReportPDF(context.Background())
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestAccessExpired(t *testing.T) {
	cli, err := New("http://localhost:4000")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	now := time.Now()
	if !cli.AccessExpired(now) {
		t.Fatalf("expected missing token to count as expired")
	}
	token, err := jwtpkg.GenerateToken(jwtpkg.Subject{UserID: "u1", SessionID: "s1"}, jwtpkg.KindAccess, "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	cli.SetSession(Session{AccessToken: token})
	if cli.AccessExpired(now) {
		t.Fatalf("expected fresh token to be valid")
	}
	if !cli.AccessExpired(now.Add(2 * time.Minute)) {
		t.Fatalf("expected token to expire after its ttl")
	}
}

func TestSessionEventsStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	authCh := make(chan string, 1)
	cli := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/events" {
			http.NotFound(w, r)
			return
		}
		authCh <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		payload, _ := json.Marshal(domain.SessionEvent{Type: domain.SessionSignedOut, UserID: "u1"})
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		_, _, _ = conn.ReadMessage()
	}))
	cli.SetSession(Session{AccessToken: "acc"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := cli.SessionEvents(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Type != domain.SessionSignedOut || ev.UserID != "u1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	if got := <-authCh; got != "Bearer acc" {
		t.Fatalf("unexpected auth header %q", got)
	}
	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}
