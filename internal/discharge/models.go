package discharge

// Device is an assistive device line item of a discharge plan.
type Device struct {
	Name           string  `json:"name"`
	Code           *string `json:"code"`
	Cost           *string `json:"cost"`
	ApprovalStatus string  `json:"approval_status"`
}

type Summary struct {
	PrimaryDiagnosis     string   `json:"primary_diagnosis"`
	SecondaryDiagnoses   []string `json:"secondary_diagnoses"`
	TreatmentSummary     string   `json:"treatment_summary"`
	DischargeDate        *string  `json:"discharge_date"`
	DischargeDisposition string   `json:"discharge_disposition"`
}

type AssistiveDevices struct {
	Devices            []Device `json:"devices"`
	TotalEquipmentCost *string  `json:"total_equipment_cost"`
}

type Rehabilitation struct {
	TherapyTypes []string `json:"therapy_types"`
	TherapyGoals string   `json:"therapy_goals"`
	Provider     *string  `json:"provider"`
	StartDate    *string  `json:"start_date"`
}

type CaregiverReferral struct {
	Requirement         string   `json:"caregiver_requirement"`
	DurationWeeks       *int     `json:"duration_weeks"`
	CareRequirements    []string `json:"care_requirements"`
	SpecialInstructions *string  `json:"special_instructions"`
}

// Plan is a normalized discharge plan.
type Plan struct {
	Summary        Summary           `json:"discharge_summary"`
	Devices        AssistiveDevices  `json:"assistive_devices"`
	Rehabilitation Rehabilitation    `json:"rehabilitation_plan"`
	Caregiver      CaregiverReferral `json:"caregiver_referral"`
	GeneratedAt    string            `json:"generated_at"`
	PatientID      string            `json:"patient_id"`
}

// Assessment is the serious-injury assessment a plan is generated from.
type Assessment struct {
	CaseID          string `json:"caseId"`
	PatientName     string `json:"patientName"`
	InjuryType      string `json:"injuryType"`
	Severity        string `json:"severity"`
	AssessmentDate  string `json:"assessmentDate"`
	Recommendations string `json:"recommendations"`
	ICDCode         string `json:"icdCode"`
}

// Context is the clinical context sent to the plan generator. It is stored
// under imms.dischargePlanContext with secondaries as a comma separated list.
type Context struct {
	PatientID               string `json:"patientId"`
	ICDCode                 string `json:"icdCode"`
	SecondaryDiagnoses      string `json:"secondaryDiagnoses"`
	CurrentFunctionalStatus string `json:"currentFunctionalStatus"`
	SocialSupport           string `json:"socialSupport"`
	InsuranceType           string `json:"insuranceType"`
}

// ContextOverrides replaces individual context fields. Nil fields keep the
// value derived from the assessment.
type ContextOverrides struct {
	SecondaryDiagnoses      *string `json:"secondaryDiagnoses,omitempty"`
	CurrentFunctionalStatus *string `json:"currentFunctionalStatus,omitempty"`
	SocialSupport           *string `json:"socialSupport,omitempty"`
	InsuranceType           *string `json:"insuranceType,omitempty"`
}

// Meta describes the assessment a stored plan belongs to.
type Meta struct {
	PatientName    string `json:"patientName"`
	CaseID         string `json:"caseId"`
	InjuryType     string `json:"injuryType"`
	AssessmentDate string `json:"assessmentDate"`
	Severity       string `json:"severity"`
	ICDCode        string `json:"icdCode"`
}

// Breakdown is the cost estimate of a plan. A nil amount means the input
// was insufficient to estimate it, which is distinct from zero.
type Breakdown struct {
	Equipment      *float64 `json:"equipment"`
	Rehabilitation *float64 `json:"rehabilitation"`
	Caregiver      *float64 `json:"caregiver"`
	Total          *float64 `json:"total"`

	EquipmentDisplay      string `json:"equipment_display"`
	RehabilitationDisplay string `json:"rehabilitation_display"`
	CaregiverDisplay      string `json:"caregiver_display"`
	TotalDisplay          string `json:"total_display"`
}

// GeneratedPlan is the result of a plan generation.
type GeneratedPlan struct {
	Plan      Plan      `json:"plan"`
	Context   Context   `json:"context"`
	Meta      Meta      `json:"meta"`
	Costs     Breakdown `json:"costs"`
	NextRoute string    `json:"next_route"`
}

// StoredPlan is the plan currently handed off for a session.
type StoredPlan struct {
	Plan    Plan      `json:"plan"`
	Context Context   `json:"context"`
	Meta    Meta      `json:"meta"`
	Costs   Breakdown `json:"costs"`
}
