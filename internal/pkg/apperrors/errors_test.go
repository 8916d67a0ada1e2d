package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category error
	}{
		{name: "capacity is a conflict", err: ErrCapacityExceeded, category: ErrConflict},
		{name: "duplicate enrollment is a conflict", err: ErrDuplicateEnrollment, category: ErrConflict},
		{name: "invalid amount is validation", err: ErrInvalidAmount, category: ErrValidationFailed},
		{name: "missing notes is validation", err: ErrMissingVerificationNotes, category: ErrValidationFailed},
		{name: "unsupported file type", err: ErrUnsupportedFileType, category: ErrUnsupportedMedia},
		{name: "file too large", err: ErrFileTooLarge, category: ErrPayloadTooLarge},
		{name: "student lookup", err: ErrStudentNotFound, category: ErrResourceNotFound},
		{name: "wrapped", err: fmt.Errorf("enroll: %w", ErrOfferingClosed), category: ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.category))
		})
	}
}

func TestCustomErrorCopiesKeepIdentity(t *testing.T) {
	custom := ErrInvalidTransition.WithMessage("payment is already complete")

	assert.True(t, errors.Is(custom, ErrInvalidTransition))
	assert.True(t, errors.Is(custom, ErrConflict))
	assert.False(t, errors.Is(custom, ErrCapacityExceeded))
	assert.Equal(t, "payment is already complete", custom.Error())
	assert.Equal(t, "status transition is not allowed", ErrInvalidTransition.Error(), "sentinel must not be mutated")
	assert.Equal(t, "InvalidTransition", Code(fmt.Errorf("wrap: %w", custom)))
}

func TestIsAny(t *testing.T) {
	assert.True(t, Is(ErrEmailAlreadyExists, ErrResourceNotFound, ErrConflict))
	assert.False(t, Is(ErrEmailAlreadyExists, ErrResourceNotFound, ErrValidationFailed))
	assert.Equal(t, "", Code(errors.New("plain")))
}
