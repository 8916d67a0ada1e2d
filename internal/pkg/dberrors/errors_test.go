package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "students_email_key"})
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "payments_student_id_fkey"}

	assert.True(t, IsDuplicateConstraintError(dup, "students_email_key"))
	assert.False(t, IsDuplicateConstraintError(dup, "users_email_key"))
	assert.True(t, IsUniqueViolation(dup))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsCheckViolation(errors.New("boom")))

	overflow := fmt.Errorf("insert payment: %w", &pgconn.PgError{Code: "22003"})
	assert.True(t, IsNumericOutOfRange(overflow))
	assert.False(t, IsNumericOutOfRange(fk))
}
