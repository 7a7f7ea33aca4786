package trips

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarer-app/wayfarer/internal/platform/db"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForUser returns the trips the user participates in, joined with their
// role on each.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]UserTrip, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.destination, t.start_date, t.end_date, t.owner_id, t.created_at,
		       tr.role_id, ro.name
		FROM trip_roles tr
		JOIN trips t ON t.id = tr.trip_id
		JOIN roles ro ON ro.id = tr.role_id
		WHERE tr.user_id = $1
		ORDER BY t.start_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("trips: list for user: %w", err)
	}
	defer rows.Close()

	var result []UserTrip
	for rows.Next() {
		var t UserTrip
		if err := rows.Scan(&t.ID, &t.Name, &t.Destination, &t.StartDate, &t.EndDate,
			&t.OwnerID, &t.CreatedAt, &t.RoleID, &t.RoleName); err != nil {
			return nil, fmt.Errorf("trips: scan: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trips: rows: %w", err)
	}
	return result, nil
}

// Create inserts a new trip and the owner's organizer assignment in a single
// transaction, so a trip never exists without an organizer.
func (r *Repository) Create(ctx context.Context, input CreateTripInput, ownerID, organizerRoleID string) (Trip, error) {
	var t Trip
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO trips (name, destination, start_date, end_date, owner_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, name, destination, start_date, end_date, owner_id, created_at`,
			input.Name, input.Destination, input.StartDate, input.EndDate, ownerID).
			Scan(&t.ID, &t.Name, &t.Destination, &t.StartDate, &t.EndDate, &t.OwnerID, &t.CreatedAt)
		if err != nil {
			return fmt.Errorf("trips: create: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO trip_roles (trip_id, user_id, role_id)
			VALUES ($1, $2, $3)`, t.ID, ownerID, organizerRoleID)
		if err != nil {
			return fmt.Errorf("trips: assign organizer: %w", err)
		}
		return nil
	})
	if err != nil {
		return Trip{}, err
	}
	return t, nil
}

// Get fetches a trip by id, or shared.ErrNotFound.
func (r *Repository) Get(ctx context.Context, tripID string) (Trip, error) {
	var t Trip
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, destination, start_date, end_date, owner_id, created_at
		FROM trips WHERE id = $1`, tripID).
		Scan(&t.ID, &t.Name, &t.Destination, &t.StartDate, &t.EndDate, &t.OwnerID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trip{}, shared.ErrNotFound
		}
		return Trip{}, fmt.Errorf("trips: get: %w", err)
	}
	return t, nil
}

// Update applies the non-nil fields and returns the updated trip.
func (r *Repository) Update(ctx context.Context, tripID string, input UpdateTripInput) (Trip, error) {
	var t Trip
	err := r.pool.QueryRow(ctx, `
		UPDATE trips SET
			name        = COALESCE($2, name),
			destination = COALESCE($3, destination),
			start_date  = COALESCE($4, start_date),
			end_date    = COALESCE($5, end_date)
		WHERE id = $1
		RETURNING id, name, destination, start_date, end_date, owner_id, created_at`,
		tripID, input.Name, input.Destination, input.StartDate, input.EndDate).
		Scan(&t.ID, &t.Name, &t.Destination, &t.StartDate, &t.EndDate, &t.OwnerID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trip{}, shared.ErrNotFound
		}
		return Trip{}, fmt.Errorf("trips: update: %w", err)
	}
	return t, nil
}

// Delete removes a trip. Role assignments cascade in the schema.
func (r *Repository) Delete(ctx context.Context, tripID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripID)
	if err != nil {
		return fmt.Errorf("trips: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
