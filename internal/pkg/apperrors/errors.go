package apperrors

import "errors"

// Error categories. Every error returned by a service unwraps to one of these,
// which is what the HTTP layer maps to a status code.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
	ErrValidationFailed = errors.New("validation failed")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
)

// Authentication errors
var (
	ErrInvalidCredentials = &CustomError{Err: ErrUnauthorized, Code: "InvalidCredentials", Message: "invalid email or password"}
	ErrTokenExpired       = &CustomError{Err: ErrUnauthorized, Code: "TokenExpired", Message: "token expired"}
	ErrTokenInvalid       = &CustomError{Err: ErrUnauthorized, Code: "TokenInvalid", Message: "invalid token"}
	ErrAccountDisabled    = &CustomError{Err: ErrPermissionDenied, Code: "AccountDisabled", Message: "account is disabled"}
	ErrForbidden          = &CustomError{Err: ErrPermissionDenied, Code: "Forbidden", Message: "you don't have permission for this action"}
)

// Lookup errors
var (
	ErrUserNotFound        = &CustomError{Err: ErrResourceNotFound, Code: "UserNotFound", Message: "user not found"}
	ErrStudentNotFound     = &CustomError{Err: ErrResourceNotFound, Code: "StudentNotFound", Message: "student not found"}
	ErrCourseNotFound      = &CustomError{Err: ErrResourceNotFound, Code: "CourseNotFound", Message: "course not found"}
	ErrOfferingNotFound    = &CustomError{Err: ErrResourceNotFound, Code: "OfferingNotFound", Message: "course offering not found"}
	ErrEnrollmentNotFound  = &CustomError{Err: ErrResourceNotFound, Code: "EnrollmentNotFound", Message: "enrollment not found"}
	ErrPaymentNotFound     = &CustomError{Err: ErrResourceNotFound, Code: "PaymentNotFound", Message: "payment not found"}
	ErrDocumentNotFound    = &CustomError{Err: ErrResourceNotFound, Code: "DocumentNotFound", Message: "document not found"}
	ErrScholarshipNotFound = &CustomError{Err: ErrResourceNotFound, Code: "ScholarshipNotFound", Message: "scholarship offer not found"}
	ErrReferralNotFound    = &CustomError{Err: ErrResourceNotFound, Code: "ReferralNotFound", Message: "referral not found"}
	ErrFileNotFound        = &CustomError{Err: ErrResourceNotFound, Code: "FileNotFound", Message: "stored file not found"}
)

// Business rule errors
var (
	ErrInvalidAmount            = &CustomError{Err: ErrValidationFailed, Code: "InvalidAmount", Message: "amount must be a positive decimal"}
	ErrMissingVerificationNotes = &CustomError{Err: ErrValidationFailed, Code: "MissingVerificationNotes", Message: "notes are required unless the document is verified"}
	ErrInvalidTransition        = &CustomError{Err: ErrConflict, Code: "InvalidTransition", Message: "status transition is not allowed"}
	ErrCapacityExceeded         = &CustomError{Err: ErrConflict, Code: "CapacityExceeded", Message: "course offering is at capacity"}
	ErrDuplicateEnrollment      = &CustomError{Err: ErrConflict, Code: "DuplicateEnrollment", Message: "student already holds an active enrollment in this offering"}
	ErrOfferingClosed           = &CustomError{Err: ErrConflict, Code: "OfferingClosed", Message: "course offering is not open for enrollment"}
	ErrEmailAlreadyExists       = &CustomError{Err: ErrConflict, Code: "EmailAlreadyExists", Message: "email already exists"}
	ErrCourseCodeExists         = &CustomError{Err: ErrConflict, Code: "CourseCodeExists", Message: "course code already exists"}
	ErrBatchExists              = &CustomError{Err: ErrConflict, Code: "BatchExists", Message: "batch already exists for this course"}
	ErrCapacityBelowEnrolled    = &CustomError{Err: ErrConflict, Code: "CapacityBelowEnrolled", Message: "capacity cannot be lower than the active enrollment count"}
	ErrNotEligibleToGraduate    = &CustomError{Err: ErrConflict, Code: "NotEligibleForGraduation", Message: "student is not eligible for graduation"}
	ErrUnsupportedFileType      = &CustomError{Err: ErrUnsupportedMedia, Code: "UnsupportedFileType", Message: "file type is not allowed"}
	ErrFileTooLarge             = &CustomError{Err: ErrPayloadTooLarge, Code: "FileTooLarge", Message: "file exceeds the maximum upload size"}
)

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *CustomError {
	return &CustomError{
		Err:     ErrValidationFailed,
		Code:    "ValidationFailed",
		Message: message,
		Field:   field,
	}
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Code:    "Forbidden",
		Message: message,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Field   string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is matches another CustomError carrying the same code, so copies made with
// WithMessage or WithDetails still compare equal to the package-level values.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithMessage returns a copy with a more specific message
func (e *CustomError) WithMessage(msg string) *CustomError {
	c := *e
	c.Message = msg
	return &c
}

// WithDetails returns a copy carrying context details
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	c := *e
	c.Details = details
	return &c
}

// WithField returns a copy bound to a request field
func (e *CustomError) WithField(field string) *CustomError {
	c := *e
	c.Field = field
	return &c
}

// Code extracts the machine readable code of err, if any
func Code(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
