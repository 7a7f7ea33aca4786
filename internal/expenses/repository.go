package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

// List returns all expenses of a trip.
func (r *Repository) List(ctx context.Context, tripID string) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, trip_id, description, amount, created_by, created_at
		FROM expenses WHERE trip_id = $1 ORDER BY created_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	defer rows.Close()

	var result []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.TripID, &e.Description, &e.Amount, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("expenses: scan: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expenses: rows: %w", err)
	}
	return result, nil
}

// Create inserts a new expense and returns it.
func (r *Repository) Create(ctx context.Context, tripID, userID string, input CreateExpenseInput) (Expense, error) {
	var e Expense
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (trip_id, description, amount, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, trip_id, description, amount, created_by, created_at`,
		tripID, input.Description, input.Amount, userID).
		Scan(&e.ID, &e.TripID, &e.Description, &e.Amount, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return Expense{}, fmt.Errorf("expenses: create: %w", err)
	}
	return e, nil
}

// Update applies the non-nil fields to an expense scoped to its trip.
func (r *Repository) Update(ctx context.Context, tripID, expenseID string, input UpdateExpenseInput) (Expense, error) {
	var e Expense
	err := r.pool.QueryRow(ctx, `
		UPDATE expenses SET
			description = COALESCE($3, description),
			amount      = COALESCE($4, amount)
		WHERE id = $2 AND trip_id = $1
		RETURNING id, trip_id, description, amount, created_by, created_at`,
		tripID, expenseID, input.Description, input.Amount).
		Scan(&e.ID, &e.TripID, &e.Description, &e.Amount, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, shared.ErrNotFound
		}
		return Expense{}, fmt.Errorf("expenses: update: %w", err)
	}
	return e, nil
}

// Delete removes an expense scoped to its trip.
func (r *Repository) Delete(ctx context.Context, tripID, expenseID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM expenses WHERE id = $2 AND trip_id = $1`, tripID, expenseID)
	if err != nil {
		return fmt.Errorf("expenses: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TripForExpense resolves the trip an expense belongs to. The local
// evaluation strategy uses this to derive expense permissions from trip
// membership.
func (r *Repository) TripForExpense(ctx context.Context, expenseID string) (string, error) {
	var tripID string
	err := r.pool.QueryRow(ctx,
		`SELECT trip_id FROM expenses WHERE id = $1`, expenseID).Scan(&tripID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("expenses: trip for expense: %w", err)
	}
	return tripID, nil
}
