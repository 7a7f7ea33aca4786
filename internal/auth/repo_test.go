package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wayfarer-app/wayfarer/internal/shared"
)

func TestCreateUserErrorMapsUniqueViolation(t *testing.T) {
	cause := fmt.Errorf("scan: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := createUserError(cause)
	if !errors.Is(err, shared.ErrInvalidRequest) {
		t.Fatalf("expected duplicate email to map to ErrInvalidRequest, got %v", err)
	}
}

func TestCreateUserErrorKeepsOtherFailures(t *testing.T) {
	err := createUserError(errors.New("connection reset"))
	if errors.Is(err, shared.ErrInvalidRequest) {
		t.Fatalf("unexpected taxonomy mapping for %v", err)
	}

	err = createUserError(&pgconn.PgError{Code: "23503"})
	if errors.Is(err, shared.ErrInvalidRequest) {
		t.Fatalf("only unique violations map to invalid request, got %v", err)
	}
}
