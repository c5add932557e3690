package domain

import (
	"errors"
	"strings"
)

var (
	// ErrConfiguration is returned when a required setting is missing at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrConnection indicates the backing database could not be reached.
	ErrConnection = errors.New("database unreachable")
	// ErrValidation marks a malformed question or form payload.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateRegistration is returned when an email already has a student or result.
	ErrDuplicateRegistration = errors.New("this email has already been registered for the quiz")
	// ErrAlreadySubmitted is returned on any submit after the first one for a student.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrNotFound is the store-level miss for find_one lookups.
	ErrNotFound = errors.New("document not found")
	// ErrStudentNotFound indicates an unknown student id.
	ErrStudentNotFound = errors.New("student not found")
	// ErrSessionNotFound is returned when a student acts before starting the quiz.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotReady means there are no questions to serve yet.
	ErrQuizNotReady = errors.New("quiz is not ready yet, please contact the administrator")
	// ErrInvalidCredentials is returned by a failed admin login.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized is returned when a token is missing, expired or forged.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError lists every problem found in a payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError from one or more problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}
