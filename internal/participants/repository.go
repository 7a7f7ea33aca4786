package participants

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// Repository provides PostgreSQL backed persistence for role assignments.
// It is the local source of truth for trip membership.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns every participant of a trip with user details and role name.
func (r *Repository) List(ctx context.Context, tripID string) ([]Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.email, ro.name
		FROM trip_roles tr
		JOIN users u ON u.id = tr.user_id
		JOIN roles ro ON ro.id = tr.role_id
		WHERE tr.trip_id = $1
		ORDER BY tr.created_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("participants: list: %w", err)
	}
	defer rows.Close()

	var result []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.Role); err != nil {
			return nil, fmt.Errorf("participants: scan: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("participants: rows: %w", err)
	}
	return result, nil
}

// Get returns one participant of a trip, or shared.ErrNotFound.
func (r *Repository) Get(ctx context.Context, tripID, userID string) (Participant, error) {
	var p Participant
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, ro.name
		FROM trip_roles tr
		JOIN users u ON u.id = tr.user_id
		JOIN roles ro ON ro.id = tr.role_id
		WHERE tr.trip_id = $1 AND tr.user_id = $2`, tripID, userID).
		Scan(&p.UserID, &p.Name, &p.Email, &p.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Participant{}, shared.ErrNotFound
		}
		return Participant{}, fmt.Errorf("participants: get: %w", err)
	}
	return p, nil
}

// ForUser resolves the caller's assignment on a trip, with the role name
// joined in so the local evaluation strategy avoids a second lookup. Returns
// shared.ErrNotFound when the user holds no role on the trip.
func (r *Repository) ForUser(ctx context.Context, tripID, userID string) (authz.RoleAssignment, error) {
	var a authz.RoleAssignment
	err := r.pool.QueryRow(ctx, `
		SELECT tr.trip_id, tr.user_id, tr.role_id, ro.name
		FROM trip_roles tr
		JOIN roles ro ON ro.id = tr.role_id
		WHERE tr.trip_id = $1 AND tr.user_id = $2`, tripID, userID).
		Scan(&a.TripID, &a.UserID, &a.RoleID, &a.RoleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.RoleAssignment{}, shared.ErrNotFound
		}
		return authz.RoleAssignment{}, fmt.Errorf("participants: assignment: %w", err)
	}
	return a, nil
}

// Upsert installs or replaces the assignment for (tripID, userID) as one
// atomic statement, preserving the one-role-per-user-per-trip invariant under
// role changes.
func (r *Repository) Upsert(ctx context.Context, tripID, userID, roleID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trip_roles (trip_id, user_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (trip_id, user_id) DO UPDATE SET role_id = EXCLUDED.role_id`,
		tripID, userID, roleID)
	if err != nil {
		return upsertError(err)
	}
	return nil
}

// upsertError maps the insert failure onto the error taxonomy. A foreign key
// violation means the trip, user or role does not exist.
func upsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("participants: unknown trip, user or role: %w", shared.ErrNotFound)
	}
	return fmt.Errorf("participants: upsert: %w", err)
}

// Remove deletes the assignment for (tripID, userID). A missing pair is
// shared.ErrNotFound so callers can tell "removed" from "nothing to remove".
func (r *Repository) Remove(ctx context.Context, tripID, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM trip_roles WHERE trip_id = $1 AND user_id = $2`, tripID, userID)
	if err != nil {
		return fmt.Errorf("participants: remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListAll returns every assignment in the system with role names, ordered by
// trip. Used by the reconciliation sweep to rebuild the remote fact set.
func (r *Repository) ListAll(ctx context.Context) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tr.trip_id, tr.user_id, tr.role_id, ro.name, tr.created_at
		FROM trip_roles tr
		JOIN roles ro ON ro.id = tr.role_id
		ORDER BY tr.trip_id, tr.user_id`)
	if err != nil {
		return nil, fmt.Errorf("participants: list all: %w", err)
	}
	defer rows.Close()

	var result []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.TripID, &a.UserID, &a.RoleID, &a.RoleName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("participants: scan: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("participants: rows: %w", err)
	}
	return result, nil
}

// UserExists reports whether the user id refers to a known user.
func (r *Repository) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("participants: user exists: %w", err)
	}
	return exists, nil
}
