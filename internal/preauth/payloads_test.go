package preauth

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDates(t *testing.T) {
	testCases := []struct {
		name      string
		form      Form
		wantField string
	}{
		{name: "all empty", form: Form{}},
		{name: "all valid", form: Form{DateOfBirth: "1980-02-29", InjuryDate: "2026-03-01", StartDate: "2026-03-02", EndDate: "2026-04-01"}},
		{name: "bad dob", form: Form{DateOfBirth: "29/02/1980"}, wantField: "dateOfBirth"},
		{name: "impossible end", form: Form{EndDate: "2026-02-30"}, wantField: "endDate"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateDates(tc.form)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			var fe *FormError
			if !errors.As(err, &fe) || fe.Field != tc.wantField {
				t.Fatalf("Expected FormError on %s, got %v", tc.wantField, err)
			}
			if !errors.Is(err, ErrInvalidForm) {
				t.Error("Expected FormError to match ErrInvalidForm")
			}
		})
	}
}

func TestUnits(t *testing.T) {
	testCases := []struct {
		quantity string
		want     int
	}{
		{"12", 12},
		{" 3 vials", 3},
		{"2.5", 2},
		{"abc", 0},
		{"", 0},
	}

	for _, tc := range testCases {
		if got := units(tc.quantity); got != tc.want {
			t.Errorf("units(%q) = %d, want %d", tc.quantity, got, tc.want)
		}
	}
}

func TestDraftOrder_Defaults(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	order := draftOrder(Form{Quantity: "4 mg"}, now)

	if order.OrderDate != "2026-03-14T09:30:00.000Z" {
		t.Errorf("Unexpected order date %q", order.OrderDate)
	}
	if order.FromDateOfService != "2026-03-14" || order.ToDateOfService != "2026-04-13" {
		t.Errorf("Unexpected service window %s..%s", order.FromDateOfService, order.ToDateOfService)
	}
	if order.OrderType != "Medical Treatment" || order.OrderStatus != "DRAFT" || order.OrderPriority != "MEDIUM" {
		t.Errorf("Unexpected defaults: %+v", order)
	}
	if order.Units != 4 {
		t.Errorf("Expected 4 units, got %d", order.Units)
	}
}

func TestDraftOrder_UsesForm(t *testing.T) {
	now := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	order := draftOrder(Form{
		StartDate:       "2026-05-01",
		EndDate:         "2026-05-20",
		DrugDescription: "Cisplatin",
		PatientID:       "P-1",
	}, now)

	if order.FromDateOfService != "2026-05-01" || order.ToDateOfService != "2026-05-20" {
		t.Errorf("Expected form dates, got %s..%s", order.FromDateOfService, order.ToDateOfService)
	}
	if order.OrderType != "Cisplatin" || order.DrugName != "Cisplatin" {
		t.Errorf("Expected drug description as order type, got %+v", order)
	}
	if order.UniquePatientIdentifier != "P-1" {
		t.Errorf("Expected patient identifier P-1, got %q", order.UniquePatientIdentifier)
	}
}

func TestSubmitPatient_EmptyDatesAreNull(t *testing.T) {
	p := submitPatient(Form{PatientName: "Thandi", StartDate: "2026-05-01"})

	if p.DateOfBirth != nil || p.ToDateOfService != nil {
		t.Error("Expected empty dates to be omitted")
	}
	if p.FromDateOfService == nil || *p.FromDateOfService != "2026-05-01" {
		t.Error("Expected start date to be sent")
	}
	if p.PrecertificationType == nil || *p.PrecertificationType != "" {
		t.Error("Expected empty precertification type")
	}
}

func TestSnapshot(t *testing.T) {
	now := time.UnixMilli(1773446400000).UTC()

	testCases := []struct {
		name            string
		form            Form
		wantCaseID      string
		wantInjury      string
		wantRecommended string
	}{
		{
			name:            "from form",
			form:            Form{PatientID: "P-1", DrugDescription: "Cisplatin", InjuryDescription: "Fractured femur"},
			wantCaseID:      "P-1",
			wantInjury:      "Cisplatin",
			wantRecommended: "Fractured femur",
		},
		{
			name:            "treatment fallback",
			form:            Form{TreatmentType: "Chemotherapy"},
			wantCaseID:      "CASE-1773446400000",
			wantInjury:      "Chemotherapy",
			wantRecommended: "",
		},
		{
			name:       "defaults",
			form:       Form{},
			wantCaseID: "CASE-1773446400000",
			wantInjury: "Medical Treatment",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := snapshot(tc.form, KnownIDs{ProviderID: "5"}, "12", now)
			if s.CaseID != tc.wantCaseID || s.InjuryType != tc.wantInjury || s.Recommendations != tc.wantRecommended {
				t.Errorf("Unexpected snapshot %+v", s)
			}
			if s.Severity != "MEDIUM" || s.Status != "PENDING" || s.AssessmentDate != "2026-03-14" {
				t.Errorf("Unexpected fixed fields %+v", s)
			}
			if s.ProviderID != "5" || s.PatientIDAuth != "12" {
				t.Errorf("Unexpected ids %+v", s)
			}
		})
	}
}
