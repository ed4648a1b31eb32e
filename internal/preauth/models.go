package preauth

import (
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// Form is the pre-authorization form state the dashboard posts. PatientID and
// InsuranceID are the custom identifiers typed by the user; Known holds the
// backend identifiers captured by earlier calls.
type Form struct {
	PatientID         string `json:"patientId"`
	PatientName       string `json:"patientName"`
	DateOfBirth       string `json:"dateOfBirth"`
	InjuryDate        string `json:"injuryDate"`
	InjuryDescription string `json:"injuryDescription"`

	ProviderName    string `json:"providerName"`
	ProviderType    string `json:"providerType"`
	ProviderNPI     string `json:"providerNpi"`
	ProviderContact string `json:"providerContact"`
	TaxID           string `json:"taxId"`

	InsuranceID  string `json:"insuranceId"`
	PayerName    string `json:"payerName"`
	PayerID      string `json:"payerId"`
	PayerAddress string `json:"payerAddress"`
	PayerContact string `json:"payerContact"`

	TreatmentType   string `json:"treatmentType"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	ICDCode         string `json:"icdCode"`
	DrugType        string `json:"drugType"`
	NoOfChemo       string `json:"noOfChemo"`
	Quantity        string `json:"quantity"`
	QuantityUnit    string `json:"quantityUnit"`
	DrugDescription string `json:"drugDescription"`

	Known KnownIDs `json:"known"`
}

// KnownIDs are backend identifiers carried between calls.
type KnownIDs struct {
	PatientID   upstream.ID `json:"patientId"`
	ProviderID  upstream.ID `json:"providerId"`
	InsuranceID upstream.ID `json:"insuranceId"`
	OrderID     upstream.ID `json:"orderId"`
}

// AssessmentSnapshot is handed off under imms.currentAssessment for the
// serious-injury screen.
type AssessmentSnapshot struct {
	CaseID          string      `json:"caseId"`
	PatientName     string      `json:"patientName"`
	InjuryType      string      `json:"injuryType"`
	Severity        string      `json:"severity"`
	AssessmentDate  string      `json:"assessmentDate"`
	Recommendations string      `json:"recommendations"`
	Status          string      `json:"status"`
	ICDCode         string      `json:"icdCode"`
	ProviderID      upstream.ID `json:"providerId"`
	InsuranceID     upstream.ID `json:"insuranceId"`
	OrderID         upstream.ID `json:"orderId"`
	PatientIDAuth   upstream.ID `json:"patientIdAuth"`
}

// DraftResult reports what a draft save captured.
type DraftResult struct {
	SubmissionID string          `json:"submission_id"`
	Known        KnownIDs        `json:"known"`
	Outcomes     []OutcomeRecord `json:"outcomes"`
	FailedSteps  []string        `json:"failed_steps"`
}

// SubmitResult reports a submit run and where the dashboard goes next.
type SubmitResult struct {
	SubmissionID         string             `json:"submission_id"`
	Known                KnownIDs           `json:"known"`
	AuthorizationCreated bool               `json:"authorization_created"`
	Outcomes             []OutcomeRecord    `json:"outcomes"`
	FailedSteps          []string           `json:"failed_steps"`
	Assessment           AssessmentSnapshot `json:"assessment"`
	NextRoute            string             `json:"next_route"`
}

// Submission is one ledger row.
type Submission struct {
	ID                   string          `json:"id"`
	SessionID            string          `json:"session_id"`
	Kind                 string          `json:"kind"`
	IdempotencyKey       string          `json:"idempotency_key,omitempty"`
	Known                KnownIDs        `json:"known"`
	AuthorizationCreated bool            `json:"authorization_created"`
	Outcomes             []OutcomeRecord `json:"outcomes"`
	CreatedAt            time.Time       `json:"created_at"`
}

// SubmissionList is a page of ledger rows.
type SubmissionList struct {
	Submissions []Submission    `json:"submissions"`
	Pagination  pagination.Meta `json:"pagination"`
}

const (
	KindDraft  = "draft"
	KindSubmit = "submit"
)
