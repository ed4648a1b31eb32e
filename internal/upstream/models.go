package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an identifier issued by the claims backend. The backend returns
// numbers; ID also accepts strings and treats null as empty.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a number or string: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical decimal identifiers back as numbers. Forms
// such as "007" or "+5" stay strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Text is a free-text field the backend sometimes stores as a number.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Text(id)
	return nil
}

// PatientWrite is the body of /patient/write and /patient/editpatient.
type PatientWrite struct {
	FullName             string  `json:"fullName"`
	DateOfBirth          *string `json:"dateOfBirth"`
	SubscriberID         string  `json:"subscriberId"`
	InsuranceID          string  `json:"insuranceId"`
	FacilityName         string  `json:"facilityName"`
	FromDateOfService    *string `json:"fromDateOfService"`
	ToDateOfService      *string `json:"toDateOfService"`
	ICDCode              string  `json:"icdCode"`
	PrecertificationType *string `json:"precertificationType,omitempty"`
	ProcedureCode        string  `json:"procedureCode"`
	DateOfService        string  `json:"dateOfService"`
	Description          string  `json:"description"`
	ContactNumber        string  `json:"contactNumber"`
	Gender               *string `json:"gender,omitempty"`
}

// ProviderWrite is the body of /provider/write and /provider/edit/{npi}.
type ProviderWrite struct {
	NPINumber       string `json:"npiNumber"`
	ProviderName    string `json:"providerName"`
	ProviderType    string `json:"providerType"`
	ProviderContact string `json:"providerContact"`
	TaxID           string `json:"taxId"`
}

// InsuranceWrite is the body of /insurance/write and /insurance/update.
type InsuranceWrite struct {
	PayerName    string `json:"payerName"`
	PayerID      string `json:"payerId"`
	PayerContact string `json:"payerContact"`
	Address      string `json:"address"`
}

// OrderWrite is the body of /orders/write.
type OrderWrite struct {
	OrderDate               string `json:"orderDate"`
	FromDateOfService       string `json:"fromDateOfService"`
	ToDateOfService         string `json:"toDateOfService"`
	OrderType               string `json:"orderType"`
	OrderDescription        string `json:"orderDescription"`
	OrderICDCode            string `json:"orderIcdCode"`
	OrderStatus             string `json:"orderStatus"`
	OrderPriority           string `json:"orderPriority"`
	DrugName                string `json:"icddrugname"`
	DrugType                string `json:"icddrugType"`
	ChemoCount              string `json:"icdnumberofchempresent"`
	AmountDispensed         string `json:"icddrugamtdispensed"`
	AmountDispensedUnit     string `json:"icddrugamtdispensedType"`
	ProviderNPINumber       string `json:"providerNpiNumber"`
	InsuranceID             string `json:"insuranceId"`
	ProviderName            string `json:"providerName"`
	UniquePatientIdentifier string `json:"uniquepatientI"`
	Units                   int    `json:"units"`
	DeletedStatus           bool   `json:"deletedStatus"`
}

type ProviderRef struct {
	ProviderID ID `json:"providerId"`
}

type InsuranceRef struct {
	InsuranceID ID `json:"insuranceId"`
}

type PracticeRef struct {
	PracticeID int `json:"practiceId"`
}

type OrderRef struct {
	OrderID ID `json:"orderId"`
}

type PatientRef struct {
	PatientID ID `json:"patientId"`
}

// AuthorizationRequest is the body of /authorizations/create-full.
type AuthorizationRequest struct {
	Provider  ProviderRef  `json:"provider"`
	Insurance InsuranceRef `json:"insurance"`
	Practice  PracticeRef  `json:"practice"`
	Order     *OrderRef    `json:"order,omitempty"`
	Patient   *PatientRef  `json:"patient,omitempty"`
}

// PatientRecord is a patient as returned by the claims backend.
type PatientRecord struct {
	PatientID         ID     `json:"patientId"`
	CustomPatientID   string `json:"customPatientId,omitempty"`
	FullName          string `json:"fullName"`
	DateOfBirth       string `json:"dateOfBirth"`
	DateOfService     string `json:"dateOfService"`
	Description       string `json:"description"`
	ProcedureCode     string `json:"procedureCode"`
	ICDCode           string `json:"icdCode"`
	FromDateOfService string `json:"fromDateOfService"`
	ToDateOfService   string `json:"toDateOfService"`
}

// ProviderRecord is a provider as returned by the claims backend.
type ProviderRecord struct {
	ProviderID      ID     `json:"providerId"`
	NPINumber       string `json:"npiNumber"`
	ProviderName    string `json:"providerName"`
	ProviderType    string `json:"providerType"`
	ProviderContact string `json:"providerContact"`
	TaxID           string `json:"taxId"`
}

// InsuranceRecord is an insurance payer as returned by the claims backend.
// Older records carry the payer name in Name.
type InsuranceRecord struct {
	InsuranceID  ID     `json:"insuranceId"`
	PayerName    string `json:"payerName"`
	Name         string `json:"name"`
	PayerID      string `json:"payerId"`
	Address      string `json:"address"`
	PayerContact string `json:"payerContact"`
}

// OrderRecord is an order as returned by /orders/exists.
type OrderRecord struct {
	OrderID             ID     `json:"orderId"`
	ProviderNPINumber   string `json:"providerNpiNumber"`
	InsuranceID         string `json:"insuranceId"`
	FromDateOfService   string `json:"fromDateOfService"`
	ToDateOfService     string `json:"toDateOfService"`
	OrderDescription    string `json:"orderDescription"`
	OrderICDCode        string `json:"orderIcdCode"`
	DrugName            string `json:"icddrugname"`
	DrugType            string `json:"icddrugType"`
	ChemoCount          Text   `json:"icdnumberofchempresent"`
	AmountDispensed     Text   `json:"icddrugamtdispensed"`
	AmountDispensedUnit string `json:"icddrugamtdispensedType"`
}

// PlanRequest is the body of /generate-discharge-plan-groq.
type PlanRequest struct {
	PatientID               string   `json:"patient_id"`
	ICDCode                 string   `json:"icd_code"`
	SecondaryDiagnoses      []string `json:"secondary_diagnoses"`
	CurrentFunctionalStatus string   `json:"current_functional_status"`
	SocialSupport           string   `json:"social_support"`
	InsuranceType           string   `json:"insurance_type"`
}
