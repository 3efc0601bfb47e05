package resource

import (
	"fmt"
	"time"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
	"github.com/splax/cornerstone/pkg/api/client"
)

// Input layouts for date and date-time fields.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

func deleteWithCascade(cascade string) func(string) string {
	return func(label string) string {
		if cascade == "" {
			return fmt.Sprintf("Are you sure you want to delete \"%s\"? This action cannot be undone.", label)
		}
		return fmt.Sprintf("Are you sure you want to delete \"%s\"? %s This action cannot be undone.", label, cascade)
	}
}

func refID(r *string) string {
	if r == nil {
		return ""
	}
	return *r
}

// withRefs records each reference id and, when expanded, its name.
func withRefs(v Values, refs map[string]refValue) Values {
	for key, r := range refs {
		v[key] = refID(r.id)
		if r.ref != nil && r.ref.Name != "" {
			v[RefNameKey(key)] = r.ref.Name
		}
	}
	return v
}

type refValue struct {
	id  *string
	ref *domain.Ref
}

// Organisations is the organisation schema, ordered by name.
func Organisations() Schema[domain.Organisation, client.OrganisationInput] {
	return Schema[domain.Organisation, client.OrganisationInput]{
		Kind:     domain.KindOrganisation,
		Title:    "Organisations",
		Singular: "Organisation",
		Fields: []Field{
			{Key: "name", Label: "Name", Required: true},
			{Key: "description", Label: "Description", Kind: FieldMultiline},
			{Key: "website", Label: "Website"},
			{Key: "current_status", Label: "Current status", Kind: FieldMultiline},
		},
		Query: repository.Query{}.OrderBy("name", false),
		ID:    func(o domain.Organisation) string { return o.ID },
		Label: func(o domain.Organisation) string { return o.Name },
		Values: func(o domain.Organisation) Values {
			return Values{
				"name":           o.Name,
				"description":    o.Description,
				"website":        o.Website,
				"current_status": o.CurrentStatus,
			}
		},
		Input: func(v Values) (client.OrganisationInput, error) {
			return client.OrganisationInput{
				Name:          v.Get("name"),
				Description:   v.Get("description"),
				Website:       v.Get("website"),
				CurrentStatus: v.Get("current_status"),
			}, nil
		},
		DeleteMessage: deleteWithCascade("This will also remove all associated tasks and unlink all contacts."),
	}
}

// Contacts is the contact schema, ordered by name.
func Contacts() Schema[domain.Contact, client.ContactInput] {
	return Schema[domain.Contact, client.ContactInput]{
		Kind:     domain.KindContact,
		Title:    "Contacts",
		Singular: "Contact",
		Fields: []Field{
			{Key: "name", Label: "Name", Required: true},
			{Key: "email", Label: "Email"},
			{Key: "phone", Label: "Phone"},
			{Key: "role", Label: "Role"},
			{Key: "organisation_id", Label: "Organisation", Kind: FieldRef, Ref: domain.KindOrganisation},
			{Key: "current_status", Label: "Current status", Kind: FieldMultiline},
		},
		Query: repository.Query{}.OrderBy("name", false),
		ID:    func(c domain.Contact) string { return c.ID },
		Label: func(c domain.Contact) string { return c.Name },
		Values: func(c domain.Contact) Values {
			return withRefs(Values{
				"name":           c.Name,
				"email":          c.Email,
				"phone":          c.Phone,
				"role":           c.Role,
				"current_status": c.CurrentStatus,
			}, map[string]refValue{
				"organisation_id": {c.OrganisationID, c.Organisation},
			})
		},
		Input: func(v Values) (client.ContactInput, error) {
			return client.ContactInput{
				Name:           v.Get("name"),
				Email:          v.Get("email"),
				Phone:          v.Get("phone"),
				Role:           v.Get("role"),
				CurrentStatus:  v.Get("current_status"),
				OrganisationID: v.Optional("organisation_id"),
			}, nil
		},
		DeleteMessage: deleteWithCascade("This will also remove all associated tasks and updates."),
	}
}

// Tasks is the task schema, ordered by due date. Dates are read in loc.
//
// The form has no assignee input: a new task is assigned to its creator, and an
// edit sends back whatever assignee the row already had.
func Tasks(loc *time.Location) Schema[domain.Task, client.TaskInput] {
	return Schema[domain.Task, client.TaskInput]{
		Kind:     domain.KindTask,
		Title:    "Tasks",
		Singular: "Task",
		Fields: []Field{
			{Key: "title", Label: "Title", Required: true},
			{Key: "description", Label: "Description", Kind: FieldMultiline},
			{Key: "due_date", Label: "Due date", Kind: FieldDate},
			{Key: "organisation_id", Label: "Organisation", Kind: FieldRef, Ref: domain.KindOrganisation},
			{Key: "contact_id", Label: "Contact", Kind: FieldRef, Ref: domain.KindContact},
		},
		Query: repository.Query{}.OrderBy("due_date", false),
		ID:    func(t domain.Task) string { return t.ID },
		Label: func(t domain.Task) string { return t.Title },
		Values: func(t domain.Task) Values {
			v := withRefs(Values{
				"title":       t.Title,
				"description": t.Description,
				"due_date":    "",
				"status":      string(t.Status),
				"assignee_id": refID(t.AssigneeID),
			}, map[string]refValue{
				"organisation_id": {t.OrganisationID, t.Organisation},
				"contact_id":      {t.ContactID, t.Contact},
			})
			if t.DueDate != nil {
				v["due_date"] = t.DueDate.In(loc).Format(DateLayout)
			}
			return v
		},
		Input: func(v Values) (client.TaskInput, error) {
			in := client.TaskInput{
				Title:          v.Get("title"),
				Description:    v.Get("description"),
				Status:         domain.TaskStatus(v.Get("status")),
				OrganisationID: v.Optional("organisation_id"),
				ContactID:      v.Optional("contact_id"),
			}
			if raw := v.Get("due_date"); raw != "" {
				due, err := time.ParseInLocation(DateLayout, raw, loc)
				if err != nil {
					return client.TaskInput{}, fmt.Errorf("due date must look like %s", DateLayout)
				}
				in.DueDate = &due
			}
			if assignee, ok := v["assignee_id"]; ok {
				in.AssigneeID = &assignee
			}
			return in, nil
		},
		DeleteMessage: deleteWithCascade(""),
	}
}

// Events is the calendar event schema, ordered by start time. Times are read in loc.
func Events(loc *time.Location) Schema[domain.CalendarEvent, client.EventInput] {
	return Schema[domain.CalendarEvent, client.EventInput]{
		Kind:     domain.KindEvent,
		Title:    "Calendar",
		Singular: "Event",
		Fields: []Field{
			{Key: "title", Label: "Title", Required: true},
			{Key: "start_time", Label: "Starts", Required: true, Kind: FieldDateTime},
			{Key: "end_time", Label: "Ends", Required: true, Kind: FieldDateTime},
			{Key: "description", Label: "Description", Kind: FieldMultiline},
			{Key: "organisation_id", Label: "Organisation", Kind: FieldRef, Ref: domain.KindOrganisation},
			{Key: "contact_id", Label: "Contact", Kind: FieldRef, Ref: domain.KindContact},
			{Key: "task_id", Label: "Task", Kind: FieldRef, Ref: domain.KindTask},
		},
		Query: repository.Query{}.OrderBy("start_time", false),
		ID:    func(e domain.CalendarEvent) string { return e.ID },
		Label: func(e domain.CalendarEvent) string { return e.Title },
		Values: func(e domain.CalendarEvent) Values {
			return withRefs(Values{
				"title":       e.Title,
				"start_time":  e.StartTime.In(loc).Format(DateTimeLayout),
				"end_time":    e.EndTime.In(loc).Format(DateTimeLayout),
				"description": e.Description,
			}, map[string]refValue{
				"organisation_id": {e.OrganisationID, e.Organisation},
				"contact_id":      {e.ContactID, e.Contact},
				"task_id":         {e.TaskID, e.Task},
			})
		},
		Input: func(v Values) (client.EventInput, error) {
			start, err := time.ParseInLocation(DateTimeLayout, v.Get("start_time"), loc)
			if err != nil {
				return client.EventInput{}, fmt.Errorf("start must look like %s", DateTimeLayout)
			}
			end, err := time.ParseInLocation(DateTimeLayout, v.Get("end_time"), loc)
			if err != nil {
				return client.EventInput{}, fmt.Errorf("end must look like %s", DateTimeLayout)
			}
			return client.EventInput{
				Title:          v.Get("title"),
				Description:    v.Get("description"),
				StartTime:      start,
				EndTime:        end,
				OrganisationID: v.Optional("organisation_id"),
				ContactID:      v.Optional("contact_id"),
				TaskID:         v.Optional("task_id"),
			}, nil
		},
		DeleteMessage: deleteWithCascade(""),
	}
}
