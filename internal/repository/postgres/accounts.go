package postgres

import (
	"context"
	"time"

	"github.com/splax/cornerstone/internal/domain"
)

// CreateUser inserts a user and an empty profile in one transaction.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertUser = `INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertUser, user.ID, user.Email, user.PasswordHash, user.CreatedAt); err != nil {
		return mapError(err)
	}
	const insertProfile = `INSERT INTO profiles (id, updated_at) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, insertProfile, user.ID, user.CreatedAt); err != nil {
		return mapError(err)
	}
	return tx.Commit(ctx)
}

// GetUserByEmail fetches a user by email, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`
	var u domain.User
	if err := r.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	var u domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// UpdatePasswordHash replaces a user's password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, userID string, hash []byte) error {
	return expectRows(r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash))
}

// CreateSession records a new sign-in.
func (r *Repository) CreateSession(ctx context.Context, session *domain.Session) error {
	const query = `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	return mapError(err)
}

// GetSession returns a session by id.
func (r *Repository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	const query = `SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = $1`
	var s domain.Session
	if err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt); err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// RevokeSession marks a session revoked. Revoking twice keeps the first timestamp.
func (r *Repository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE sessions SET revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`
	return expectRows(r.pool.Exec(ctx, query, id, at))
}

// GetProfile returns the profile joined with the account email.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `SELECT u.id, u.email, COALESCE(p.full_name, ''), COALESCE(p.avatar_url, ''), COALESCE(p.updated_at, u.created_at)
		FROM users u
		LEFT JOIN profiles p ON p.id = u.id
		WHERE u.id = $1`
	var p domain.Profile
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// UpsertProfile writes full name and avatar URL, then reloads the stored row into profile.
func (r *Repository) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	const query = `INSERT INTO profiles (id, full_name, avatar_url, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, avatar_url = EXCLUDED.avatar_url, updated_at = EXCLUDED.updated_at`
	if _, err := r.pool.Exec(ctx, query, profile.ID, profile.FullName, profile.AvatarURL); err != nil {
		return mapError(err)
	}
	stored, err := r.GetProfile(ctx, profile.ID)
	if err != nil {
		return err
	}
	*profile = *stored
	return nil
}
