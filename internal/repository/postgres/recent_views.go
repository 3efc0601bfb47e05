package postgres

import (
	"context"

	"github.com/splax/cornerstone/internal/domain"
)

// UpsertRecentView records or refreshes a view.
func (r *Repository) UpsertRecentView(ctx context.Context, view domain.RecentView) error {
	const query = `INSERT INTO recent_views (user_id, team_id, item_type, item_id, viewed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, item_type, item_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at, team_id = EXCLUDED.team_id`
	_, err := r.pool.Exec(ctx, query, view.UserID, view.TeamID, string(view.ItemType), view.ItemID, view.ViewedAt)
	return mapError(err)
}

// ListRecentViews returns the user's most recent views within a team.
func (r *Repository) ListRecentViews(ctx context.Context, userID, teamID string, limit int) ([]domain.RecentView, error) {
	const query = `SELECT user_id, team_id, item_type, item_id, viewed_at
		FROM recent_views
		WHERE user_id = $1 AND team_id = $2
		ORDER BY viewed_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, userID, teamID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	views := make([]domain.RecentView, 0)
	for rows.Next() {
		var v domain.RecentView
		if err := rows.Scan(&v.UserID, &v.TeamID, &v.ItemType, &v.ItemID, &v.ViewedAt); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
