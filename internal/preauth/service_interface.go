package preauth

import (
	"context"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// OrchestratorInterface defines the contract for pre-authorization workflows
type OrchestratorInterface interface {
	SaveDraft(ctx context.Context, sessionID string, form Form) (*DraftResult, error)
	Submit(ctx context.Context, sessionID, idempotencyKey string, form Form) (*SubmitResult, error)
	Autofill(ctx context.Context, customPatientID string) (*Form, error)
	SearchPatients(ctx context.Context, query string) ([]upstream.PatientRecord, error)
	ListSubmissions(ctx context.Context, sessionID string, params pagination.Params) (*SubmissionList, error)
	CurrentAssessment(ctx context.Context, sessionID string) (*AssessmentSnapshot, error)
}

// Backend is the claims backend, one method per call.
type Backend interface {
	CreatePatient(ctx context.Context, p upstream.PatientWrite) (upstream.ID, error)
	UpdatePatient(ctx context.Context, customPatientID string, p upstream.PatientWrite) (upstream.ID, error)
	CreateProvider(ctx context.Context, p upstream.ProviderWrite) (upstream.ID, error)
	UpdateProvider(ctx context.Context, npi string, p upstream.ProviderWrite) (upstream.ID, error)
	CreateInsurance(ctx context.Context, p upstream.InsuranceWrite) (upstream.ID, error)
	UpdateInsurance(ctx context.Context, customInsuranceID string, p upstream.InsuranceWrite) (upstream.ID, error)
	CreateOrder(ctx context.Context, o upstream.OrderWrite) (upstream.ID, error)
	CreateAuthorization(ctx context.Context, a upstream.AuthorizationRequest) error
	OrdersForPatient(ctx context.Context, customPatientID string) ([]upstream.OrderRecord, error)
	ProviderByNPI(ctx context.Context, npi string) (*upstream.ProviderRecord, error)
	InsuranceByCustomID(ctx context.Context, customInsuranceID string) (*upstream.InsuranceRecord, error)
	Patient(ctx context.Context, customPatientID string) (*upstream.PatientRecord, error)
	SearchPatients(ctx context.Context, query string) ([]upstream.PatientRecord, error)
}

var (
	_ OrchestratorInterface = (*Orchestrator)(nil)
	_ Backend               = (*upstream.ClaimsClient)(nil)
)
