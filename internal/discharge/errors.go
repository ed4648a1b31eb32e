package discharge

import (
	"errors"
	"fmt"
)

// User-facing messages for the validation failures.
const (
	InvalidICDCodeMessage = "Unable to generate plan: the selected assessment is missing a valid ICD-10 code. " +
		"Please ensure the code follows the ICD-10 pattern (e.g., S72.001) and try again."
	MissingPatientIDMessage = "Missing patient ID or ICD-10 code for the selected assessment."
	PlanGenerationMessage   = "Failed to generate discharge plan."
)

var (
	ErrInvalidICDCode   = errors.New("assessment has no valid ICD-10 code")
	ErrMissingPatientID = errors.New("assessment has no patient id")
	ErrPlanGeneration   = errors.New("failed to generate discharge plan")
	ErrPlanNotFound     = errors.New("no discharge plan stored for this session")
	ErrMissingSession   = errors.New("session id is required")
)

// GenerationError carries the generator's message for a failed plan call.
type GenerationError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPlanGeneration, e.Message)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrPlanGeneration, e.Err}
}
