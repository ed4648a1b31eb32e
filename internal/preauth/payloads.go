package preauth

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

const (
	dateLayout  = "2006-01-02"
	orderLayout = "2006-01-02T15:04:05.000Z"

	defaultOrderType      = "Medical Treatment"
	draftOrderStatus      = "DRAFT"
	defaultPriority       = "MEDIUM"
	defaultServiceSpan    = 30 * 24 * time.Hour
	authorizationPractice = 1
)

var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// validateDates rejects form dates that are set but not YYYY-MM-DD.
func validateDates(f Form) error {
	fields := []struct {
		name  string
		value string
	}{
		{"dateOfBirth", f.DateOfBirth},
		{"injuryDate", f.InjuryDate},
		{"startDate", f.StartDate},
		{"endDate", f.EndDate},
	}
	for _, field := range fields {
		v := strings.TrimSpace(field.value)
		if v == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, v); err != nil {
			return &FormError{Field: field.name, Value: field.value}
		}
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if !blank(v) {
			return v
		}
	}
	return ""
}

// units is the leading integer of the quantity, 0 when there is none.
func units(quantity string) int {
	m := leadingInt.FindStringSubmatch(quantity)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// serviceWindow fills missing service dates with today and today + 30 days.
func serviceWindow(f Form, now time.Time) (string, string) {
	from := strings.TrimSpace(f.StartDate)
	if from == "" {
		from = now.UTC().Format(dateLayout)
	}
	to := strings.TrimSpace(f.EndDate)
	if to == "" {
		to = now.UTC().Add(defaultServiceSpan).Format(dateLayout)
	}
	return from, to
}

func draftOrder(f Form, now time.Time) upstream.OrderWrite {
	from, to := serviceWindow(f, now)
	return upstream.OrderWrite{
		OrderDate:               now.UTC().Format(orderLayout),
		FromDateOfService:       from,
		ToDateOfService:         to,
		OrderType:               firstNonBlank(f.TreatmentType, f.DrugDescription, defaultOrderType),
		OrderDescription:        firstNonBlank(f.DrugDescription, f.InjuryDescription),
		OrderICDCode:            f.ICDCode,
		OrderStatus:             draftOrderStatus,
		OrderPriority:           defaultPriority,
		DrugName:                f.DrugDescription,
		DrugType:                f.DrugType,
		ChemoCount:              f.NoOfChemo,
		AmountDispensed:         f.Quantity,
		AmountDispensedUnit:     f.QuantityUnit,
		ProviderNPINumber:       f.ProviderNPI,
		InsuranceID:             f.InsuranceID,
		ProviderName:            f.ProviderName,
		UniquePatientIdentifier: f.PatientID,
		Units:                   units(f.Quantity),
		DeletedStatus:           false,
	}
}

func draftPatient(f Form, now time.Time) upstream.PatientWrite {
	from, to := serviceWindow(f, now)
	gender := ""
	return upstream.PatientWrite{
		FullName:          f.PatientName,
		DateOfBirth:       optional(f.DateOfBirth),
		SubscriberID:      f.PatientID,
		InsuranceID:       f.InsuranceID,
		FacilityName:      f.ProviderName,
		FromDateOfService: &from,
		ToDateOfService:   &to,
		ICDCode:           f.ICDCode,
		ProcedureCode:     f.TreatmentType,
		DateOfService:     f.InjuryDate,
		Description:       f.InjuryDescription,
		ContactNumber:     f.ProviderContact,
		Gender:            &gender,
	}
}

func submitPatient(f Form) upstream.PatientWrite {
	precertification := ""
	return upstream.PatientWrite{
		FullName:             f.PatientName,
		DateOfBirth:          optional(f.DateOfBirth),
		SubscriberID:         f.PatientID,
		InsuranceID:          f.InsuranceID,
		FacilityName:         f.ProviderName,
		FromDateOfService:    optional(f.StartDate),
		ToDateOfService:      optional(f.EndDate),
		ICDCode:              f.ICDCode,
		PrecertificationType: &precertification,
		ProcedureCode:        f.TreatmentType,
		DateOfService:        f.InjuryDate,
		Description:          f.InjuryDescription,
		ContactNumber:        f.ProviderContact,
	}
}

func providerPayload(f Form) upstream.ProviderWrite {
	return upstream.ProviderWrite{
		NPINumber:       f.ProviderNPI,
		ProviderName:    f.ProviderName,
		ProviderType:    f.ProviderType,
		ProviderContact: f.ProviderContact,
		TaxID:           f.TaxID,
	}
}

func insurancePayload(f Form) upstream.InsuranceWrite {
	return upstream.InsuranceWrite{
		PayerName:    f.PayerName,
		PayerID:      f.PayerID,
		PayerContact: f.PayerContact,
		Address:      f.PayerAddress,
	}
}

func authorizationPayload(providerID, insuranceID, orderID, patientID upstream.ID) upstream.AuthorizationRequest {
	req := upstream.AuthorizationRequest{
		Provider:  upstream.ProviderRef{ProviderID: providerID},
		Insurance: upstream.InsuranceRef{InsuranceID: insuranceID},
		Practice:  upstream.PracticeRef{PracticeID: authorizationPractice},
	}
	if orderID != "" {
		req.Order = &upstream.OrderRef{OrderID: orderID}
	}
	if patientID != "" {
		req.Patient = &upstream.PatientRef{PatientID: patientID}
	}
	return req
}

// snapshot derives the assessment handed to the serious-injury screen.
func snapshot(f Form, known KnownIDs, patientIDAuth upstream.ID, now time.Time) AssessmentSnapshot {
	caseID := strings.TrimSpace(f.PatientID)
	if caseID == "" {
		caseID = "CASE-" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	return AssessmentSnapshot{
		CaseID:          caseID,
		PatientName:     f.PatientName,
		InjuryType:      firstNonBlank(f.DrugDescription, f.TreatmentType, defaultOrderType),
		Severity:        defaultPriority,
		AssessmentDate:  now.UTC().Format(dateLayout),
		Recommendations: firstNonBlank(f.InjuryDescription, f.DrugDescription),
		Status:          "PENDING",
		ICDCode:         f.ICDCode,
		ProviderID:      known.ProviderID,
		InsuranceID:     known.InsuranceID,
		OrderID:         known.OrderID,
		PatientIDAuth:   patientIDAuth,
	}
}
