package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

type listerStub[T any] struct {
	rows  []T
	err   error
	calls atomic.Int32
	last  atomic.Value
}

func (l *listerStub[T]) List(_ context.Context, q repository.Query) ([]T, error) {
	l.calls.Add(1)
	l.last.Store(q)
	return l.rows, l.err
}

func TestSearchBlankSkipsServer(t *testing.T) {
	orgs := &listerStub[domain.Organisation]{}
	contacts := &listerStub[domain.Contact]{}
	results, err := New(orgs, contacts).Search(context.Background(), "   ")
	if err != nil || results != nil {
		t.Fatalf("expected nothing, got %v %v", results, err)
	}
	if orgs.calls.Load() != 0 || contacts.calls.Load() != 0 {
		t.Fatalf("blank search must not hit the server")
	}
}

func TestSearchMergesOrganisationsFirst(t *testing.T) {
	orgName := "Acme"
	orgs := &listerStub[domain.Organisation]{rows: []domain.Organisation{{ID: "o1", Name: "Acme"}}}
	contacts := &listerStub[domain.Contact]{rows: []domain.Contact{
		{ID: "c1", Name: "Acme Jones", Organisation: &domain.Ref{ID: "o1", Name: orgName}},
		{ID: "c2", Name: "Pat Acme", Role: "Buyer"},
	}}
	results, err := New(orgs, contacts).Search(context.Background(), "acme")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 || results[0].Kind != domain.KindOrganisation {
		t.Fatalf("organisations should lead: %+v", results)
	}
	subtitles := map[string]string{}
	for _, r := range results[1:] {
		if r.Kind != domain.KindContact {
			t.Fatalf("expected contacts after organisations: %+v", results)
		}
		subtitles[r.ID] = r.Subtitle
	}
	if subtitles["c1"] != "Acme" || subtitles["c2"] != "Buyer" {
		t.Fatalf("unexpected subtitles %v", subtitles)
	}

	q := orgs.last.Load().(repository.Query)
	if q.Limit != PerKind || len(q.Filters) != 1 || q.Filters[0].Op != repository.OpIlike || q.Filters[0].Value != "%acme%" {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestSearchCapsEachGroup(t *testing.T) {
	var rows []domain.Organisation
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"} {
		rows = append(rows, domain.Organisation{ID: name, Name: name})
	}
	got := Merge("a", rows, nil)
	if len(got) != PerKind {
		t.Fatalf("expected %d results, got %d", PerKind, len(got))
	}
}

func TestSearchPropagatesErrors(t *testing.T) {
	orgs := &listerStub[domain.Organisation]{}
	contacts := &listerStub[domain.Contact]{err: errors.New("down")}
	if _, err := New(orgs, contacts).Search(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPopoverStates(t *testing.T) {
	var p Popover
	if _, ok := p.SetQuery(""); ok || p.Open() {
		t.Fatalf("empty query should keep popover closed")
	}

	first, ok := p.SetQuery("ac")
	if !ok || p.Status() != Searching {
		t.Fatalf("expected searching, got %v", p.Status())
	}
	second, _ := p.SetQuery("acm")
	if p.Due(first) || !p.Due(second) {
		t.Fatalf("only the latest keystroke should fire")
	}
	if p.Apply(first, []Result{{ID: "stale"}}, nil) {
		t.Fatalf("stale results must be dropped")
	}
	if !p.Apply(second, nil, nil) || p.Status() != NoResults {
		t.Fatalf("zero hits should show no results, got %v", p.Status())
	}

	third, _ := p.SetQuery("acme")
	p.Apply(third, []Result{{ID: "o1"}}, nil)
	if p.Status() != Showing || len(p.Results()) != 1 {
		t.Fatalf("expected results to show")
	}

	p.Close()
	if p.Open() || p.Query() != "acme" {
		t.Fatalf("close should hide and keep the query")
	}

	p.SetQuery("")
	if p.Open() || p.Results() != nil {
		t.Fatalf("clearing should drop results")
	}
}
