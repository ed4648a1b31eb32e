package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys
const (
	EventDraftSaved           = "preauth.draft_saved"
	EventSubmitted            = "preauth.submitted"
	EventAuthorizationCreated = "authorization.created"
	EventPlanGenerated        = "discharge.plan_generated"
)

const serviceName = "preauth-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: serviceName,
	}
}

// EntityIDs lists the upstream identifiers a workflow run captured.
type EntityIDs struct {
	PatientID   string `json:"patient_id,omitempty"`
	ProviderID  string `json:"provider_id,omitempty"`
	InsuranceID string `json:"insurance_id,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
}

// DraftSavedEvent is emitted after a draft save finishes, whatever the
// per-step outcomes were.
type DraftSavedEvent struct {
	BaseEvent
	Data DraftSavedData `json:"data"`
}

type DraftSavedData struct {
	SubmissionID string    `json:"submission_id"`
	SessionID    string    `json:"session_id"`
	IDs          EntityIDs `json:"ids"`
	FailedSteps  []string  `json:"failed_steps,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// SubmittedEvent is emitted after a submit run reaches the handoff step.
type SubmittedEvent struct {
	BaseEvent
	Data SubmittedData `json:"data"`
}

type SubmittedData struct {
	SubmissionID         string    `json:"submission_id"`
	SessionID            string    `json:"session_id"`
	IdempotencyKey       string    `json:"idempotency_key,omitempty"`
	IDs                  EntityIDs `json:"ids"`
	AuthorizationCreated bool      `json:"authorization_created"`
	FailedSteps          []string  `json:"failed_steps,omitempty"`
	SubmittedAt          time.Time `json:"submitted_at"`
}

// AuthorizationCreatedEvent is emitted when the create-full call succeeds.
type AuthorizationCreatedEvent struct {
	BaseEvent
	Data AuthorizationCreatedData `json:"data"`
}

type AuthorizationCreatedData struct {
	SubmissionID string    `json:"submission_id"`
	IDs          EntityIDs `json:"ids"`
	PracticeID   int       `json:"practice_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlanGeneratedEvent is emitted after a discharge plan is generated and stored.
type PlanGeneratedEvent struct {
	BaseEvent
	Data PlanGeneratedData `json:"data"`
}

type PlanGeneratedData struct {
	SessionID          string    `json:"session_id"`
	PatientID          string    `json:"patient_id"`
	ICDCode            string    `json:"icd_code"`
	SecondaryDiagnoses []string  `json:"secondary_diagnoses"`
	EstimatedTotal     *float64  `json:"estimated_total,omitempty"`
	GeneratedAt        time.Time `json:"generated_at"`
}
