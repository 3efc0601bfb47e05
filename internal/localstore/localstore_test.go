package localstore

import (
	"context"
	"testing"

	"github.com/splax/cornerstone/pkg/api/client"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	if _, ok, err := st.LoadSession(ctx); err != nil || ok {
		t.Fatalf("fresh store should have no session: ok=%v err=%v", ok, err)
	}

	sess := client.Session{AccessToken: "a", RefreshToken: "r", SessionID: "s"}
	if err := st.SaveSession(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.SetTeam(ctx, "team-1"); err != nil {
		t.Fatalf("set team: %v", err)
	}
	got, ok, err := st.LoadSession(ctx)
	if err != nil || !ok || got != sess {
		t.Fatalf("unexpected session %+v ok=%v err=%v", got, ok, err)
	}

	sess.AccessToken = "b"
	if err := st.SaveSession(ctx, sess); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _, _ := st.LoadSession(ctx); got.AccessToken != "b" {
		t.Fatalf("expected overwrite, got %q", got.AccessToken)
	}

	if err := st.ClearSession(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := st.LoadSession(ctx); ok {
		t.Fatalf("session should be gone")
	}
	if team, _ := st.Team(ctx); team != "" {
		t.Fatalf("team should be cleared with the session, got %q", team)
	}
}

func TestLastViewPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.SetLastView(ctx, "tasks"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = st.Close()

	reopened, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if view, err := reopened.LastView(ctx); err != nil || view != "tasks" {
		t.Fatalf("unexpected last view %q err=%v", view, err)
	}
}
