package discharge

import (
	"fmt"
	"strings"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/icd"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

const (
	DefaultInsuranceType = "RAF Medical Benefit Scheme"

	defaultNarrative = "Patient requires discharge planning support following hospitalization. " +
		"Functional status and social supports require evaluation."
	defaultRecommendation = "Further multidisciplinary review recommended."
)

// ClinicalNarrative summarizes an assessment for the plan generator.
func ClinicalNarrative(a *Assessment) string {
	if a == nil {
		return defaultNarrative
	}
	return fmt.Sprintf(
		"%s is being evaluated for discharge following %s. Severity is classified as %s. Key clinical considerations include: %s",
		orDefault(a.PatientName, "The patient"),
		orDefault(a.InjuryType, "injury"),
		orDefault(a.Severity, "moderate"),
		orDefault(a.Recommendations, defaultRecommendation),
	)
}

// DefaultContext derives the plan context from an assessment and its
// normalized primary code.
func DefaultContext(a *Assessment, icdCode string) Context {
	var caseID, patientName, injuryType string
	if a != nil {
		caseID = a.CaseID
		patientName = a.PatientName
		injuryType = a.InjuryType
	}
	return Context{
		PatientID:               caseID,
		ICDCode:                 icdCode,
		SecondaryDiagnoses:      strings.Join(icd.DeriveSecondary(injuryType, icdCode), ", "),
		CurrentFunctionalStatus: ClinicalNarrative(a),
		SocialSupport:           orDefault(patientName, "Patient") + " lives with immediate family who can provide moderate support during recovery.",
		InsuranceType:           DefaultInsuranceType,
	}
}

// Apply returns c with every non-nil override applied.
func (o ContextOverrides) Apply(c Context) Context {
	if o.SecondaryDiagnoses != nil {
		c.SecondaryDiagnoses = *o.SecondaryDiagnoses
	}
	if o.CurrentFunctionalStatus != nil {
		c.CurrentFunctionalStatus = *o.CurrentFunctionalStatus
	}
	if o.SocialSupport != nil {
		c.SocialSupport = *o.SocialSupport
	}
	if o.InsuranceType != nil {
		c.InsuranceType = *o.InsuranceType
	}
	return c
}

// BuildRequest assembles the generator request. The primary code must
// already be normalized. Secondaries that are not canonical codes, or equal
// the primary, are dropped.
func BuildRequest(a Assessment, icdCode string, c Context) (upstream.PlanRequest, error) {
	if icdCode == "" || !icd.Valid(icdCode) {
		return upstream.PlanRequest{}, ErrInvalidICDCode
	}
	patientID := strings.TrimSpace(a.CaseID)
	if patientID == "" {
		return upstream.PlanRequest{}, ErrMissingPatientID
	}
	return upstream.PlanRequest{
		PatientID:               patientID,
		ICDCode:                 icdCode,
		SecondaryDiagnoses:      icd.FilterSecondary(c.SecondaryDiagnoses, icdCode),
		CurrentFunctionalStatus: c.CurrentFunctionalStatus,
		SocialSupport:           c.SocialSupport,
		InsuranceType:           c.InsuranceType,
	}, nil
}

func metaFor(a Assessment, icdCode string) Meta {
	return Meta{
		PatientName:    a.PatientName,
		CaseID:         a.CaseID,
		InjuryType:     a.InjuryType,
		AssessmentDate: a.AssessmentDate,
		Severity:       a.Severity,
		ICDCode:        icdCode,
	}
}

// fillMeta completes a stored meta from the plan when fields are missing.
func fillMeta(m Meta, p Plan) Meta {
	m.CaseID = orDefault(m.CaseID, p.PatientID)
	return m
}

// fillContext completes a stored context from the plan when fields are missing.
func fillContext(c Context, p Plan) Context {
	c.PatientID = orDefault(c.PatientID, p.PatientID)
	c.SecondaryDiagnoses = orDefault(c.SecondaryDiagnoses, strings.Join(p.Summary.SecondaryDiagnoses, ", "))
	c.CurrentFunctionalStatus = orDefault(c.CurrentFunctionalStatus, p.Summary.TreatmentSummary)
	c.InsuranceType = orDefault(c.InsuranceType, DefaultInsuranceType)
	return c
}
