package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

const taskSelect = `SELECT t.id, t.team_id, t.title, t.description, t.due_date, t.status,
		t.organisation_id, o.name, t.contact_id, c.name, t.assignee_id, COALESCE(NULLIF(ap.full_name, ''), au.email),
		t.created_by, t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN organisations o ON o.id = t.organisation_id
	LEFT JOIN contacts c ON c.id = t.contact_id
	LEFT JOIN users au ON au.id = t.assignee_id
	LEFT JOIN profiles ap ON ap.id = t.assignee_id`

var taskColumns = columnSet{
	"id":                {"t.id", colUUID},
	"title":             {"t.title", colText},
	"description":       {"t.description", colText},
	"due_date":          {"t.due_date", colTime},
	"status":            {"t.status", colText},
	"organisation_id":   {"t.organisation_id", colUUID},
	"organisation_name": {"o.name", colText},
	"contact_id":        {"t.contact_id", colUUID},
	"contact_name":      {"c.name", colText},
	"assignee_id":       {"t.assignee_id", colUUID},
	"created_by":        {"t.created_by", colUUID},
	"created_at":        {"t.created_at", colTime},
	"updated_at":        {"t.updated_at", colTime},
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t                                domain.Task
		orgName, contactName, assigneeNm *string
	)
	err := row.Scan(&t.ID, &t.TeamID, &t.Title, &t.Description, &t.DueDate, &t.Status,
		&t.OrganisationID, &orgName, &t.ContactID, &contactName, &t.AssigneeID, &assigneeNm,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	t.Organisation = ref(t.OrganisationID, orgName)
	t.Contact = ref(t.ContactID, contactName)
	t.Assignee = ref(t.AssigneeID, assigneeNm)
	t.Links = []domain.TaskLink{}
	return &t, nil
}

// ListTasks returns the team's tasks matching q, soonest due first by default.
func (r *Repository) ListTasks(ctx context.Context, teamID string, q repository.Query) ([]domain.Task, error) {
	query, args, err := taskColumns.listSQL(taskSelect, "t.team_id", teamID, q, "due_date")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	tasks := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	if err := r.attachLinks(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns one task of the team with its links.
func (r *Repository) GetTask(ctx context.Context, teamID, id string) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, taskSelect+` WHERE t.team_id = $1 AND t.id = $2`, teamID, id))
	if err != nil {
		return nil, err
	}
	tasks := []domain.Task{*t}
	if err := r.attachLinks(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (r *Repository) attachLinks(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}
	const query = `SELECT id, task_id, url, title, created_at FROM task_links WHERE task_id = ANY($1::uuid[]) ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.TaskLink
		if err := rows.Scan(&l.ID, &l.TaskID, &l.URL, &l.Title, &l.CreatedAt); err != nil {
			return err
		}
		if i, ok := index[l.TaskID]; ok {
			tasks[i].Links = append(tasks[i].Links, l)
		}
	}
	return rows.Err()
}

// taskRefsCheck ensures optional organisation, contact and assignee belong to the team ($1).
const taskRefsCheck = `($5::uuid IS NULL OR EXISTS (SELECT 1 FROM organisations WHERE id = $5::uuid AND team_id = $1))
		AND ($6::uuid IS NULL OR EXISTS (SELECT 1 FROM contacts WHERE id = $6::uuid AND team_id = $1))
		AND ($7::uuid IS NULL OR EXISTS (SELECT 1 FROM team_members WHERE user_id = $7::uuid AND team_id = $1))`

// CreateTask inserts task after checking its references, then reloads it.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	const query = `INSERT INTO tasks (team_id, id, title, description, organisation_id, contact_id, assignee_id, due_date, status, created_by)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::uuid, $6::uuid, $7::uuid, $8::timestamptz, $9::text, $10::uuid
		WHERE ` + taskRefsCheck
	err := expectRows(r.pool.Exec(ctx, query, task.TeamID, task.ID, task.Title, task.Description,
		nullableUUID(task.OrganisationID), nullableUUID(task.ContactID), nullableUUID(task.AssigneeID),
		task.DueDate, string(task.Status), task.CreatedBy))
	if err != nil {
		return err
	}
	return r.reloadTask(ctx, task)
}

// UpdateTask overwrites the editable fields and reloads the task.
func (r *Repository) UpdateTask(ctx context.Context, task *domain.Task) error {
	const query = `UPDATE tasks
		SET title = $3, description = $4, organisation_id = $5::uuid, contact_id = $6::uuid, assignee_id = $7::uuid,
			due_date = $8::timestamptz, status = $9::text, updated_at = NOW()
		WHERE team_id = $1 AND id = $2 AND ` + taskRefsCheck
	err := expectRows(r.pool.Exec(ctx, query, task.TeamID, task.ID, task.Title, task.Description,
		nullableUUID(task.OrganisationID), nullableUUID(task.ContactID), nullableUUID(task.AssigneeID),
		task.DueDate, string(task.Status)))
	if err != nil {
		return err
	}
	return r.reloadTask(ctx, task)
}

func (r *Repository) reloadTask(ctx context.Context, task *domain.Task) error {
	stored, err := r.GetTask(ctx, task.TeamID, task.ID)
	if err != nil {
		return err
	}
	*task = *stored
	return nil
}

// SetTaskStatus changes only the status and returns the updated task.
func (r *Repository) SetTaskStatus(ctx context.Context, teamID, id string, status domain.TaskStatus) (*domain.Task, error) {
	const query = `UPDATE tasks SET status = $3, updated_at = NOW() WHERE team_id = $1 AND id = $2`
	if err := expectRows(r.pool.Exec(ctx, query, teamID, id, string(status))); err != nil {
		return nil, err
	}
	return r.GetTask(ctx, teamID, id)
}

// DeleteTask removes a task and its links. Events pointing at it are unlinked.
func (r *Repository) DeleteTask(ctx context.Context, teamID, id string) error {
	return expectRows(r.pool.Exec(ctx, `DELETE FROM tasks WHERE team_id = $1 AND id = $2`, teamID, id))
}

// CreateTaskLink attaches a URL to a task of the team.
func (r *Repository) CreateTaskLink(ctx context.Context, teamID string, link *domain.TaskLink) error {
	const query = `INSERT INTO task_links (id, task_id, url, title)
		SELECT $2::uuid, t.id, $4::text, $5::text FROM tasks t WHERE t.team_id = $1 AND t.id = $3
		RETURNING created_at`
	return mapError(r.pool.QueryRow(ctx, query, teamID, link.ID, link.TaskID, link.URL, link.Title).Scan(&link.CreatedAt))
}

// DeleteTaskLink removes a link whose task belongs to the team.
func (r *Repository) DeleteTaskLink(ctx context.Context, teamID, id string) error {
	const query = `DELETE FROM task_links l USING tasks t WHERE l.task_id = t.id AND t.team_id = $1 AND l.id = $2`
	return expectRows(r.pool.Exec(ctx, query, teamID, id))
}
