package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/cornerstone/internal/domain"
)

const teamColumns = `t.id, t.name, t.owner_id, t.created_at`

func scanTeam(row pgx.CollectableRow) (domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt)
	return t, err
}

// CreateTeam inserts the team and its owner's membership in one transaction.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team, owner domain.TeamMember) error {
	return mapError(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO teams (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
			team.ID, team.Name, team.OwnerID, team.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO team_members (team_id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`,
			team.ID, owner.UserID, owner.Role, owner.CreatedAt)
		return err
	}))
}

// UpsertMember adds a member or changes the role of an existing one.
func (r *Repository) UpsertMember(ctx context.Context, m *domain.TeamMember) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.TeamID, m.UserID, m.Role, m.CreatedAt)
	return mapError(err)
}

func (r *Repository) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1`, teamID)
	if err != nil {
		return nil, mapError(err)
	}
	team, err := pgx.CollectExactlyOneRow(rows, scanTeam)
	if err != nil {
		return nil, mapError(err)
	}
	return &team, nil
}

// ListTeamsByUser orders by membership age, newest first.
func (r *Repository) ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+teamColumns+`
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.user_id = $1
		ORDER BY tm.created_at DESC`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	return collect(rows, scanTeam)
}

// ListMembers includes each member's email and profile name, sorted by display name.
func (r *Repository) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tm.team_id, tm.user_id, tm.role, u.email, COALESCE(p.full_name, ''), tm.created_at
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		LEFT JOIN profiles p ON p.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY COALESCE(NULLIF(p.full_name, ''), u.email)`, teamID)
	if err != nil {
		return nil, mapError(err)
	}
	return collect(rows, func(row pgx.CollectableRow) (domain.TeamMember, error) {
		var m domain.TeamMember
		err := row.Scan(&m.TeamID, &m.UserID, &m.Role, &m.Email, &m.FullName, &m.CreatedAt)
		return m, err
	})
}
