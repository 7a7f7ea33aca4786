// Package expenses implements per-trip expense tracking.
package expenses

import "time"

// Expense represents a cost recorded against a trip. Amount is a decimal
// string to avoid floating point drift on money values.
type Expense struct {
	ID          string    `json:"expense_id"`
	TripID      string    `json:"trip_id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateExpenseInput carries an expense creation request.
type CreateExpenseInput struct {
	Description string `json:"description" validate:"required"`
	Amount      string `json:"amount" validate:"required,numeric"`
}

// UpdateExpenseInput carries a partial expense update. Nil fields are
// unchanged.
type UpdateExpenseInput struct {
	Description *string `json:"description" validate:"omitempty,min=1"`
	Amount      *string `json:"amount" validate:"omitempty,numeric"`
}
