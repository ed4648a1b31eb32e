package upstream

import (
	"context"
	"net/http"
	"net/url"
)

// ClaimsClient talks to the core claims backend.
type ClaimsClient struct {
	*Client
}

func NewClaimsClient(c *Client) *ClaimsClient {
	return &ClaimsClient{Client: c}
}

type patientIDResponse struct {
	PatientID ID `json:"patientId"`
}

type providerIDResponse struct {
	ProviderID ID `json:"providerId"`
}

type insuranceIDResponse struct {
	InsuranceID ID `json:"insuranceId"`
}

type orderIDResponse struct {
	OrderID ID `json:"orderId"`
}

// CreatePatient posts a new patient and returns its identifier.
func (c *ClaimsClient) CreatePatient(ctx context.Context, p PatientWrite) (ID, error) {
	var resp patientIDResponse
	if err := c.call(ctx, "patient.write", http.MethodPost, "/patient/write", nil, p, &resp); err != nil {
		return "", err
	}
	return resp.PatientID, nil
}

// UpdatePatient updates the patient with the given custom patient id.
func (c *ClaimsClient) UpdatePatient(ctx context.Context, customPatientID string, p PatientWrite) (ID, error) {
	q := url.Values{"customPatientId": {customPatientID}}
	var resp patientIDResponse
	if err := c.call(ctx, "patient.edit", http.MethodPut, "/patient/editpatient", q, p, &resp); err != nil {
		return "", err
	}
	return resp.PatientID, nil
}

func (c *ClaimsClient) CreateProvider(ctx context.Context, p ProviderWrite) (ID, error) {
	var resp providerIDResponse
	if err := c.call(ctx, "provider.write", http.MethodPost, "/provider/write", nil, p, &resp); err != nil {
		return "", err
	}
	return resp.ProviderID, nil
}

// UpdateProvider updates the provider registered under npi.
func (c *ClaimsClient) UpdateProvider(ctx context.Context, npi string, p ProviderWrite) (ID, error) {
	var resp providerIDResponse
	path := "/provider/edit/" + url.PathEscape(npi)
	if err := c.call(ctx, "provider.edit", http.MethodPut, path, nil, p, &resp); err != nil {
		return "", err
	}
	return resp.ProviderID, nil
}

func (c *ClaimsClient) CreateInsurance(ctx context.Context, p InsuranceWrite) (ID, error) {
	var resp insuranceIDResponse
	if err := c.call(ctx, "insurance.write", http.MethodPost, "/insurance/write", nil, p, &resp); err != nil {
		return "", err
	}
	return resp.InsuranceID, nil
}

// UpdateInsurance updates the payer with the given custom insurance id.
func (c *ClaimsClient) UpdateInsurance(ctx context.Context, customInsuranceID string, p InsuranceWrite) (ID, error) {
	q := url.Values{"customInsuranceId": {customInsuranceID}}
	var resp insuranceIDResponse
	if err := c.call(ctx, "insurance.update", http.MethodPut, "/insurance/update", q, p, &resp); err != nil {
		return "", err
	}
	return resp.InsuranceID, nil
}

func (c *ClaimsClient) CreateOrder(ctx context.Context, o OrderWrite) (ID, error) {
	var resp orderIDResponse
	if err := c.call(ctx, "orders.write", http.MethodPost, "/orders/write", nil, o, &resp); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

// CreateAuthorization posts a full authorization. The response body is
// not interpreted.
func (c *ClaimsClient) CreateAuthorization(ctx context.Context, a AuthorizationRequest) error {
	return c.call(ctx, "authorizations.create_full", http.MethodPost, "/authorizations/create-full", nil, a, nil)
}

// OrdersForPatient lists the orders recorded for a custom patient id.
func (c *ClaimsClient) OrdersForPatient(ctx context.Context, customPatientID string) ([]OrderRecord, error) {
	q := url.Values{"patId": {customPatientID}}
	var orders []OrderRecord
	if err := c.call(ctx, "orders.exists", http.MethodGet, "/orders/exists", q, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *ClaimsClient) ProviderByNPI(ctx context.Context, npi string) (*ProviderRecord, error) {
	q := url.Values{"npiNumber": {npi}}
	var p ProviderRecord
	if err := c.call(ctx, "provider.get", http.MethodGet, "/provider", q, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ClaimsClient) InsuranceByCustomID(ctx context.Context, customInsuranceID string) (*InsuranceRecord, error) {
	q := url.Values{"customInsuranceId": {customInsuranceID}}
	var ins InsuranceRecord
	if err := c.call(ctx, "insurance.fetch", http.MethodGet, "/insurance/fetch", q, nil, &ins); err != nil {
		return nil, err
	}
	return &ins, nil
}

func (c *ClaimsClient) Patient(ctx context.Context, customPatientID string) (*PatientRecord, error) {
	var p PatientRecord
	path := "/patient/" + url.PathEscape(customPatientID)
	if err := c.call(ctx, "patient.get", http.MethodGet, path, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPatients runs the backend's free-text patient search.
func (c *ClaimsClient) SearchPatients(ctx context.Context, query string) ([]PatientRecord, error) {
	q := url.Values{"query": {query}}
	var patients []PatientRecord
	if err := c.call(ctx, "patient.search", http.MethodGet, "/patient/search", q, nil, &patients); err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []PatientRecord{}
	}
	return patients, nil
}
