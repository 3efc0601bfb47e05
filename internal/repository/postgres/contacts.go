package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

const contactSelect = `SELECT c.id, c.team_id, c.name, c.email, c.phone, c.role, c.current_status, c.organisation_id, o.name,
		c.created_by, c.created_at, c.updated_at
	FROM contacts c
	LEFT JOIN organisations o ON o.id = c.organisation_id`

var contactColumns = columnSet{
	"id":                {"c.id", colUUID},
	"name":              {"c.name", colText},
	"email":             {"c.email", colText},
	"phone":             {"c.phone", colText},
	"role":              {"c.role", colText},
	"current_status":    {"c.current_status", colText},
	"organisation_id":   {"c.organisation_id", colUUID},
	"organisation_name": {"o.name", colText},
	"created_by":        {"c.created_by", colUUID},
	"created_at":        {"c.created_at", colTime},
	"updated_at":        {"c.updated_at", colTime},
}

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var (
		c       domain.Contact
		orgName *string
	)
	err := row.Scan(&c.ID, &c.TeamID, &c.Name, &c.Email, &c.Phone, &c.Role, &c.CurrentStatus, &c.OrganisationID, &orgName,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	c.Organisation = ref(c.OrganisationID, orgName)
	return &c, nil
}

// ListContacts returns the team's contacts with their organisation expanded.
func (r *Repository) ListContacts(ctx context.Context, teamID string, q repository.Query) ([]domain.Contact, error) {
	query, args, err := contactColumns.listSQL(contactSelect, "c.team_id", teamID, q, "name")
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	contacts := make([]domain.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// GetContact returns one contact of the team.
func (r *Repository) GetContact(ctx context.Context, teamID, id string) (*domain.Contact, error) {
	return scanContact(r.pool.QueryRow(ctx, contactSelect+` WHERE c.team_id = $1 AND c.id = $2`, teamID, id))
}

// CreateContact inserts contact. A linked organisation must belong to the same team.
func (r *Repository) CreateContact(ctx context.Context, contact *domain.Contact) error {
	const query = `INSERT INTO contacts (id, team_id, name, email, phone, role, current_status, organisation_id, created_by)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::text, $8::uuid, $9::uuid
		WHERE $8::uuid IS NULL OR EXISTS (SELECT 1 FROM organisations WHERE id = $8::uuid AND team_id = $2)`
	err := expectRows(r.pool.Exec(ctx, query, contact.ID, contact.TeamID, contact.Name, contact.Email, contact.Phone,
		contact.Role, contact.CurrentStatus, nullableUUID(contact.OrganisationID), contact.CreatedBy))
	if err != nil {
		return err
	}
	return r.reloadContact(ctx, contact)
}

// UpdateContact overwrites the editable fields and reloads the row into contact.
func (r *Repository) UpdateContact(ctx context.Context, contact *domain.Contact) error {
	const query = `UPDATE contacts
		SET name = $3, email = $4, phone = $5, role = $6, current_status = $7, organisation_id = $8::uuid, updated_at = NOW()
		WHERE team_id = $1 AND id = $2
			AND ($8::uuid IS NULL OR EXISTS (SELECT 1 FROM organisations WHERE id = $8::uuid AND team_id = $1))`
	err := expectRows(r.pool.Exec(ctx, query, contact.TeamID, contact.ID, contact.Name, contact.Email, contact.Phone,
		contact.Role, contact.CurrentStatus, nullableUUID(contact.OrganisationID)))
	if err != nil {
		return err
	}
	return r.reloadContact(ctx, contact)
}

func (r *Repository) reloadContact(ctx context.Context, contact *domain.Contact) error {
	stored, err := r.GetContact(ctx, contact.TeamID, contact.ID)
	if err != nil {
		return err
	}
	*contact = *stored
	return nil
}

// DeleteContact removes a contact with its tasks and timeline. Events keep existing, unlinked.
func (r *Repository) DeleteContact(ctx context.Context, teamID, id string) error {
	return expectRows(r.pool.Exec(ctx, `DELETE FROM contacts WHERE team_id = $1 AND id = $2`, teamID, id))
}
