package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

const organisationSelect = `SELECT o.id, o.team_id, o.name, o.description, o.website, o.current_status, o.created_by, o.created_at, o.updated_at
	FROM organisations o`

var organisationColumns = columnSet{
	"id":             {"o.id", colUUID},
	"name":           {"o.name", colText},
	"description":    {"o.description", colText},
	"website":        {"o.website", colText},
	"current_status": {"o.current_status", colText},
	"created_by":     {"o.created_by", colUUID},
	"created_at":     {"o.created_at", colTime},
	"updated_at":     {"o.updated_at", colTime},
}

func scanOrganisation(row pgx.Row) (*domain.Organisation, error) {
	var o domain.Organisation
	if err := row.Scan(&o.ID, &o.TeamID, &o.Name, &o.Description, &o.Website, &o.CurrentStatus, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

// ListOrganisations returns the team's organisations matching q, ordered by name unless q says otherwise.
func (r *Repository) ListOrganisations(ctx context.Context, teamID string, q repository.Query) ([]domain.Organisation, error) {
	query, args, err := organisationColumns.listSQL(organisationSelect, "o.team_id", teamID, q, "name")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	orgs := make([]domain.Organisation, 0)
	for rows.Next() {
		o, err := scanOrganisation(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}

// GetOrganisation returns one organisation of the team.
func (r *Repository) GetOrganisation(ctx context.Context, teamID, id string) (*domain.Organisation, error) {
	return scanOrganisation(r.pool.QueryRow(ctx, organisationSelect+` WHERE o.team_id = $1 AND o.id = $2`, teamID, id))
}

// CreateOrganisation inserts org and fills in the stored timestamps.
func (r *Repository) CreateOrganisation(ctx context.Context, org *domain.Organisation) error {
	const query = `INSERT INTO organisations (id, team_id, name, description, website, current_status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, org.ID, org.TeamID, org.Name, org.Description, org.Website, org.CurrentStatus, org.CreatedBy).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	return mapError(err)
}

// UpdateOrganisation overwrites the editable fields and reloads the row into org.
func (r *Repository) UpdateOrganisation(ctx context.Context, org *domain.Organisation) error {
	const query = `UPDATE organisations
		SET name = $3, description = $4, website = $5, current_status = $6, updated_at = NOW()
		WHERE team_id = $1 AND id = $2
		RETURNING id, team_id, name, description, website, current_status, created_by, created_at, updated_at`
	stored, err := scanOrganisation(r.pool.QueryRow(ctx, query, org.TeamID, org.ID, org.Name, org.Description, org.Website, org.CurrentStatus))
	if err != nil {
		return err
	}
	*org = *stored
	return nil
}

// DeleteOrganisation removes an organisation. Its tasks and timeline go with it; contacts and events are unlinked.
func (r *Repository) DeleteOrganisation(ctx context.Context, teamID, id string) error {
	return expectRows(r.pool.Exec(ctx, `DELETE FROM organisations WHERE team_id = $1 AND id = $2`, teamID, id))
}
