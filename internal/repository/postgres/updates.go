package postgres

import (
	"context"
	"fmt"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// updateTable maps a timeline parent onto its table and parent column.
func updateTable(parent domain.Kind) (table, parentCol string, err error) {
	switch parent {
	case domain.KindContact:
		return "contact_updates", "contact_id", nil
	case domain.KindOrganisation:
		return "organisation_updates", "organisation_id", nil
	}
	return "", "", fmt.Errorf("%w: %q has no timeline", repository.ErrInvalidArgument, parent)
}

func parentTable(parent domain.Kind) string {
	if parent == domain.KindContact {
		return "contacts"
	}
	return "organisations"
}

// ListUpdates returns the parent's timeline, newest first.
func (r *Repository) ListUpdates(ctx context.Context, teamID string, parent domain.Kind, parentID string) ([]domain.Update, error) {
	table, parentCol, err := updateTable(parent)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT u.id, u.team_id, u.%[2]s, u.type, u.content, u.created_by,
			COALESCE(NULLIF(p.full_name, ''), us.email, ''), u.created_at
		FROM %[1]s u
		LEFT JOIN users us ON us.id = u.created_by
		LEFT JOIN profiles p ON p.id = u.created_by
		WHERE u.team_id = $1 AND u.%[2]s = $2
		ORDER BY u.created_at DESC, u.id`, table, parentCol)
	rows, err := r.pool.Query(ctx, query, teamID, parentID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	updates := make([]domain.Update, 0)
	for rows.Next() {
		u := domain.Update{ParentKind: parent}
		if err := rows.Scan(&u.ID, &u.TeamID, &u.ParentID, &u.Type, &u.Content, &u.CreatedBy, &u.CreatorName, &u.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// CreateUpdate appends a timeline entry to a parent of the same team.
func (r *Repository) CreateUpdate(ctx context.Context, update *domain.Update) error {
	table, parentCol, err := updateTable(update.ParentKind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %[1]s (id, team_id, %[2]s, type, content, created_by)
		SELECT $1::uuid, p.team_id, p.id, $4::text, $5::text, $6::uuid FROM %[3]s p WHERE p.team_id = $2 AND p.id = $3
		RETURNING created_at,
			(SELECT COALESCE(NULLIF(pr.full_name, ''), us.email, '') FROM users us LEFT JOIN profiles pr ON pr.id = us.id WHERE us.id = $6)`,
		table, parentCol, parentTable(update.ParentKind))
	err = r.pool.QueryRow(ctx, query, update.ID, update.TeamID, update.ParentID, string(update.Type), update.Content, update.CreatedBy).
		Scan(&update.CreatedAt, &update.CreatorName)
	return mapError(err)
}

// DeleteUpdate removes a single timeline entry.
func (r *Repository) DeleteUpdate(ctx context.Context, teamID string, parent domain.Kind, id string) error {
	table, _, err := updateTable(parent)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE team_id = $1 AND id = $2`, table)
	return expectRows(r.pool.Exec(ctx, query, teamID, id))
}
