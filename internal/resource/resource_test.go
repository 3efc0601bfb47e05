package resource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
	"github.com/splax/cornerstone/pkg/api/client"
)

type remoteStub struct {
	rows    []domain.Organisation
	listErr error
	lastQ   repository.Query
	created []client.OrganisationInput
	updated map[string]client.OrganisationInput
	deleted []string
}

func (r *remoteStub) List(_ context.Context, q repository.Query) ([]domain.Organisation, error) {
	r.lastQ = q
	return r.rows, r.listErr
}

func (r *remoteStub) Create(_ context.Context, in client.OrganisationInput) (domain.Organisation, error) {
	r.created = append(r.created, in)
	return domain.Organisation{ID: "org-new", Name: in.Name, Website: in.Website}, nil
}

func (r *remoteStub) Update(_ context.Context, id string, in client.OrganisationInput) (domain.Organisation, error) {
	if r.updated == nil {
		r.updated = map[string]client.OrganisationInput{}
	}
	r.updated[id] = in
	return domain.Organisation{ID: id, Name: in.Name, CurrentStatus: in.CurrentStatus, CreatedBy: "server"}, nil
}

func (r *remoteStub) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func TestStoreCreateAppendsOneRow(t *testing.T) {
	remote := &remoteStub{rows: []domain.Organisation{{ID: "org-1", Name: "Beta"}}}
	store := NewStore(Organisations(), Remote[domain.Organisation, client.OrganisationInput](remote))
	col := NewCollection(store.Schema.ID)

	rows, err := store.Load(context.Background())
	col.Reset(rows, err)
	if col.Len() != 1 || remote.lastQ.Order != "name" {
		t.Fatalf("unexpected load: len=%d order=%q", col.Len(), remote.lastQ.Order)
	}

	values := store.Schema.Blank()
	values["name"] = "  Acme "
	created, err := store.Create(context.Background(), values)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	col.Append(created)
	if col.Len() != 2 {
		t.Fatalf("expected exactly one new row, got %d rows", col.Len())
	}
	got, ok := col.Find("org-new")
	if !ok || got.Name != "Acme" || got.Website != "" {
		t.Fatalf("unexpected created row: %+v", got)
	}
}

func TestStoreCreateRequiresName(t *testing.T) {
	remote := &remoteStub{}
	store := NewStore(Organisations(), Remote[domain.Organisation, client.OrganisationInput](remote))
	_, err := store.Create(context.Background(), store.Schema.Blank())
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if len(remote.created) != 0 {
		t.Fatalf("remote should not be called on invalid input")
	}
}

func TestUpdateReplacesInPlace(t *testing.T) {
	remote := &remoteStub{}
	store := NewStore(Organisations(), Remote[domain.Organisation, client.OrganisationInput](remote))
	col := NewCollection(store.Schema.ID)
	col.Reset([]domain.Organisation{{ID: "a", Name: "Acme"}, {ID: "b", Name: "Beta"}}, nil)

	values := store.Schema.Values(col.Items()[0])
	values["current_status"] = "signed"
	updated, err := store.Update(context.Background(), "a", values)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !col.ReplaceByID(updated) {
		t.Fatalf("expected replace to find row")
	}
	if col.Index("a") != 0 || col.Items()[0].CurrentStatus != "signed" || col.Items()[0].CreatedBy != "server" {
		t.Fatalf("row not replaced in place: %+v", col.Items())
	}
}

func TestCollectionResetKeepsRowsOnError(t *testing.T) {
	col := NewCollection(func(o domain.Organisation) string { return o.ID })
	col.Reset([]domain.Organisation{{ID: "a"}}, nil)
	col.Reset(nil, errors.New("boom"))
	if col.Err == nil || col.Len() != 1 || !col.Loaded() {
		t.Fatalf("unexpected collection state: err=%v len=%d", col.Err, col.Len())
	}
	if !col.Remove("a") || col.Remove("a") {
		t.Fatalf("remove should succeed once")
	}
}

func TestDeleteMessages(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"organisation", Organisations().DeleteMessage("Acme"), `Are you sure you want to delete "Acme"? This will also remove all associated tasks and unlink all contacts. This action cannot be undone.`},
		{"contact", Contacts().DeleteMessage("Ann"), `Are you sure you want to delete "Ann"? This will also remove all associated tasks and updates. This action cannot be undone.`},
		{"task", Tasks(loc).DeleteMessage("Call"), `Are you sure you want to delete "Call"? This action cannot be undone.`},
		{"event", Events(loc).DeleteMessage("Lunch"), `Are you sure you want to delete "Lunch"? This action cannot be undone.`},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestTaskInputCarriesAssignee(t *testing.T) {
	schema := Tasks(time.UTC)

	blank := schema.Blank()
	blank["title"] = "Call"
	in, err := schema.Input(blank)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.AssigneeID != nil || in.DueDate != nil || in.Status != "" {
		t.Fatalf("new task should leave assignee and status to the server: %+v", in)
	}

	assignee := "user-2"
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	values := schema.Values(domain.Task{Title: "Call", AssigneeID: &assignee, DueDate: &due, Status: domain.TaskInProgress})
	in, err = schema.Input(values)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.AssigneeID == nil || *in.AssigneeID != "user-2" || in.Status != domain.TaskInProgress {
		t.Fatalf("edit should keep assignee and status: %+v", in)
	}
	if in.DueDate == nil || !in.DueDate.Equal(due) {
		t.Fatalf("unexpected due date: %v", in.DueDate)
	}

	values["due_date"] = "01/03/2026"
	if _, err := schema.Input(values); err == nil {
		t.Fatalf("expected bad date error")
	}
}

func TestEventInputParsesTimes(t *testing.T) {
	schema := Events(time.UTC)
	values := schema.Blank()
	values["title"] = "Lunch"
	values["start_time"] = "2026-03-01 12:00"
	if err := schema.Validate(values); !errors.Is(err, ErrMissingField) {
		t.Fatalf("end time should be required, got %v", err)
	}
	values["end_time"] = "2026-03-01 13:30"
	in, err := schema.Input(values)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.EndTime.Sub(in.StartTime) != 90*time.Minute || in.OrganisationID != nil {
		t.Fatalf("unexpected event input: %+v", in)
	}
}

func TestValuesCarryExpandedReferenceNames(t *testing.T) {
	org, contact := "o1", "c1"
	values := Events(time.UTC).Values(domain.CalendarEvent{
		Title:          "Lunch",
		OrganisationID: &org,
		Organisation:   &domain.Ref{ID: org, Name: "Acme"},
		ContactID:      &contact,
	})
	if values["organisation_id"] != "o1" || values[RefNameKey("organisation_id")] != "Acme" {
		t.Fatalf("unexpected organisation values: %v", values)
	}
	if values["contact_id"] != "c1" {
		t.Fatalf("contact id lost: %v", values)
	}
	if _, ok := values[RefNameKey("contact_id")]; ok {
		t.Fatalf("unexpanded reference should carry no name")
	}
	if values["task_id"] != "" {
		t.Fatalf("unset reference should be blank, got %q", values["task_id"])
	}
}
