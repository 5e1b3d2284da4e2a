package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationUnwrapsChain(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "client_pco_assignments_one_active"}
	wrapped := fmt.Errorf("failed to insert assignment: %w", pgErr)

	if !IsUniqueViolation(wrapped) {
		t.Fatal("expected wrapped unique violation to be detected")
	}
	if got := ConstraintName(wrapped); got != "client_pco_assignments_one_active" {
		t.Fatalf("expected constraint name, got %q", got)
	}
	if IsForeignKeyViolation(wrapped) {
		t.Fatal("unique violation must not be reported as foreign key violation")
	}
}

func TestIsUniqueViolationPlainError(t *testing.T) {
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error must not be a unique violation")
	}
	if ConstraintName(nil) != "" {
		t.Fatal("nil error has no constraint")
	}
}
