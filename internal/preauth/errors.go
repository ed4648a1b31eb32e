package preauth

import (
	"errors"
	"fmt"
)

// User-facing alerts for a run that could not be assembled.
const (
	DraftFailedMessage  = "Error saving draft. Please try again."
	SubmitFailedMessage = "Error submitting request. Please try again."
)

var (
	ErrInProgress         = errors.New("a run is already in progress for this session")
	ErrMissingSession     = errors.New("session id is required")
	ErrMissingPatientID   = errors.New("patient id is required")
	ErrInvalidForm        = errors.New("invalid form")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAssessmentNotFound = errors.New("no assessment stored for this session")
)

// FormError names the form field that stopped a run from being assembled.
type FormError struct {
	Field string
	Value string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("%s: %s %q is not a valid date", ErrInvalidForm, e.Field, e.Value)
}

func (e *FormError) Unwrap() error {
	return ErrInvalidForm
}
