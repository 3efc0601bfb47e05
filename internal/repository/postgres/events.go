package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

const eventSelect = `SELECT e.id, e.team_id, e.title, e.description, e.start_time, e.end_time,
		e.organisation_id, o.name, e.contact_id, c.name, e.task_id, t.title,
		COALESCE(NULLIF(cp.full_name, ''), cu.email, ''), e.created_by, e.created_at, e.updated_at
	FROM calendar_events e
	LEFT JOIN organisations o ON o.id = e.organisation_id
	LEFT JOIN contacts c ON c.id = e.contact_id
	LEFT JOIN tasks t ON t.id = e.task_id
	LEFT JOIN users cu ON cu.id = e.created_by
	LEFT JOIN profiles cp ON cp.id = e.created_by`

var eventColumns = columnSet{
	"id":              {"e.id", colUUID},
	"title":           {"e.title", colText},
	"description":     {"e.description", colText},
	"start_time":      {"e.start_time", colTime},
	"end_time":        {"e.end_time", colTime},
	"organisation_id": {"e.organisation_id", colUUID},
	"contact_id":      {"e.contact_id", colUUID},
	"task_id":         {"e.task_id", colUUID},
	"created_by":      {"e.created_by", colUUID},
	"created_at":      {"e.created_at", colTime},
	"updated_at":      {"e.updated_at", colTime},
}

func scanEvent(row pgx.Row) (*domain.CalendarEvent, error) {
	var (
		e                              domain.CalendarEvent
		orgName, contactName, taskName *string
	)
	err := row.Scan(&e.ID, &e.TeamID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.OrganisationID, &orgName, &e.ContactID, &contactName, &e.TaskID, &taskName,
		&e.CreatorName, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	e.Organisation = ref(e.OrganisationID, orgName)
	e.Contact = ref(e.ContactID, contactName)
	e.Task = ref(e.TaskID, taskName)
	return &e, nil
}

// ListEvents returns the team's events matching q, earliest start first by default.
func (r *Repository) ListEvents(ctx context.Context, teamID string, q repository.Query) ([]domain.CalendarEvent, error) {
	query, args, err := eventColumns.listSQL(eventSelect, "e.team_id", teamID, q, "start_time")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]domain.CalendarEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetEvent returns one event of the team.
func (r *Repository) GetEvent(ctx context.Context, teamID, id string) (*domain.CalendarEvent, error) {
	return scanEvent(r.pool.QueryRow(ctx, eventSelect+` WHERE e.team_id = $1 AND e.id = $2`, teamID, id))
}

const eventRefsCheck = `($7::uuid IS NULL OR EXISTS (SELECT 1 FROM organisations WHERE id = $7::uuid AND team_id = $1))
		AND ($8::uuid IS NULL OR EXISTS (SELECT 1 FROM contacts WHERE id = $8::uuid AND team_id = $1))
		AND ($9::uuid IS NULL OR EXISTS (SELECT 1 FROM tasks WHERE id = $9::uuid AND team_id = $1))`

// CreateEvent inserts event after checking its references, then reloads it.
func (r *Repository) CreateEvent(ctx context.Context, event *domain.CalendarEvent) error {
	const query = `INSERT INTO calendar_events (team_id, id, title, description, start_time, end_time, organisation_id, contact_id, task_id, created_by)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::timestamptz, $6::timestamptz, $7::uuid, $8::uuid, $9::uuid, $10::uuid
		WHERE ` + eventRefsCheck
	err := expectRows(r.pool.Exec(ctx, query, event.TeamID, event.ID, event.Title, event.Description, event.StartTime, event.EndTime,
		nullableUUID(event.OrganisationID), nullableUUID(event.ContactID), nullableUUID(event.TaskID), event.CreatedBy))
	if err != nil {
		return err
	}
	return r.reloadEvent(ctx, event)
}

// UpdateEvent overwrites the editable fields and reloads the event.
func (r *Repository) UpdateEvent(ctx context.Context, event *domain.CalendarEvent) error {
	const query = `UPDATE calendar_events
		SET title = $3, description = $4, start_time = $5, end_time = $6,
			organisation_id = $7::uuid, contact_id = $8::uuid, task_id = $9::uuid, updated_at = NOW()
		WHERE team_id = $1 AND id = $2 AND ` + eventRefsCheck
	err := expectRows(r.pool.Exec(ctx, query, event.TeamID, event.ID, event.Title, event.Description, event.StartTime, event.EndTime,
		nullableUUID(event.OrganisationID), nullableUUID(event.ContactID), nullableUUID(event.TaskID)))
	if err != nil {
		return err
	}
	return r.reloadEvent(ctx, event)
}

func (r *Repository) reloadEvent(ctx context.Context, event *domain.CalendarEvent) error {
	stored, err := r.GetEvent(ctx, event.TeamID, event.ID)
	if err != nil {
		return err
	}
	*event = *stored
	return nil
}

// DeleteEvent removes an event.
func (r *Repository) DeleteEvent(ctx context.Context, teamID, id string) error {
	return expectRows(r.pool.Exec(ctx, `DELETE FROM calendar_events WHERE team_id = $1 AND id = $2`, teamID, id))
}
