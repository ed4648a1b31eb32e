package preauth

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/handoff"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/testutil"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// mockBackend answers every create with a fresh id unless a func field
// overrides it, and records each call as "<method>".
type mockBackend struct {
	mu     sync.Mutex
	calls  []string
	nextID int

	createPatientFunc       func(ctx context.Context, p upstream.PatientWrite) (upstream.ID, error)
	updatePatientFunc       func(ctx context.Context, id string, p upstream.PatientWrite) (upstream.ID, error)
	createProviderFunc      func(ctx context.Context, p upstream.ProviderWrite) (upstream.ID, error)
	updateProviderFunc      func(ctx context.Context, npi string, p upstream.ProviderWrite) (upstream.ID, error)
	createInsuranceFunc     func(ctx context.Context, p upstream.InsuranceWrite) (upstream.ID, error)
	updateInsuranceFunc     func(ctx context.Context, id string, p upstream.InsuranceWrite) (upstream.ID, error)
	createOrderFunc         func(ctx context.Context, o upstream.OrderWrite) (upstream.ID, error)
	createAuthorizationFunc func(ctx context.Context, a upstream.AuthorizationRequest) error
	ordersForPatientFunc    func(ctx context.Context, id string) ([]upstream.OrderRecord, error)
	providerByNPIFunc       func(ctx context.Context, npi string) (*upstream.ProviderRecord, error)
	insuranceByIDFunc       func(ctx context.Context, id string) (*upstream.InsuranceRecord, error)
	patientFunc             func(ctx context.Context, id string) (*upstream.PatientRecord, error)
	searchPatientsFunc      func(ctx context.Context, q string) ([]upstream.PatientRecord, error)
}

func (m *mockBackend) record(call string) upstream.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	m.nextID++
	return upstream.ID(strconv.Itoa(m.nextID))
}

func (m *mockBackend) count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockBackend) CreatePatient(ctx context.Context, p upstream.PatientWrite) (upstream.ID, error) {
	id := m.record("CreatePatient")
	if m.createPatientFunc != nil {
		return m.createPatientFunc(ctx, p)
	}
	return "p" + id, nil
}

func (m *mockBackend) UpdatePatient(ctx context.Context, customID string, p upstream.PatientWrite) (upstream.ID, error) {
	id := m.record("UpdatePatient")
	if m.updatePatientFunc != nil {
		return m.updatePatientFunc(ctx, customID, p)
	}
	return "p" + id, nil
}

func (m *mockBackend) CreateProvider(ctx context.Context, p upstream.ProviderWrite) (upstream.ID, error) {
	id := m.record("CreateProvider")
	if m.createProviderFunc != nil {
		return m.createProviderFunc(ctx, p)
	}
	return "pr" + id, nil
}

func (m *mockBackend) UpdateProvider(ctx context.Context, npi string, p upstream.ProviderWrite) (upstream.ID, error) {
	m.record("UpdateProvider")
	if m.updateProviderFunc != nil {
		return m.updateProviderFunc(ctx, npi, p)
	}
	return "", nil
}

func (m *mockBackend) CreateInsurance(ctx context.Context, p upstream.InsuranceWrite) (upstream.ID, error) {
	id := m.record("CreateInsurance")
	if m.createInsuranceFunc != nil {
		return m.createInsuranceFunc(ctx, p)
	}
	return "in" + id, nil
}

func (m *mockBackend) UpdateInsurance(ctx context.Context, customID string, p upstream.InsuranceWrite) (upstream.ID, error) {
	id := m.record("UpdateInsurance")
	if m.updateInsuranceFunc != nil {
		return m.updateInsuranceFunc(ctx, customID, p)
	}
	return "in" + id, nil
}

func (m *mockBackend) CreateOrder(ctx context.Context, o upstream.OrderWrite) (upstream.ID, error) {
	id := m.record("CreateOrder")
	if m.createOrderFunc != nil {
		return m.createOrderFunc(ctx, o)
	}
	return "o" + id, nil
}

func (m *mockBackend) CreateAuthorization(ctx context.Context, a upstream.AuthorizationRequest) error {
	m.record("CreateAuthorization")
	if m.createAuthorizationFunc != nil {
		return m.createAuthorizationFunc(ctx, a)
	}
	return nil
}

func (m *mockBackend) OrdersForPatient(ctx context.Context, id string) ([]upstream.OrderRecord, error) {
	m.record("OrdersForPatient")
	if m.ordersForPatientFunc != nil {
		return m.ordersForPatientFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBackend) ProviderByNPI(ctx context.Context, npi string) (*upstream.ProviderRecord, error) {
	m.record("ProviderByNPI")
	if m.providerByNPIFunc != nil {
		return m.providerByNPIFunc(ctx, npi)
	}
	return nil, &upstream.StatusError{StatusCode: 404}
}

func (m *mockBackend) InsuranceByCustomID(ctx context.Context, id string) (*upstream.InsuranceRecord, error) {
	m.record("InsuranceByCustomID")
	if m.insuranceByIDFunc != nil {
		return m.insuranceByIDFunc(ctx, id)
	}
	return nil, &upstream.StatusError{StatusCode: 404}
}

func (m *mockBackend) Patient(ctx context.Context, id string) (*upstream.PatientRecord, error) {
	m.record("Patient")
	if m.patientFunc != nil {
		return m.patientFunc(ctx, id)
	}
	return nil, &upstream.StatusError{StatusCode: 404}
}

func (m *mockBackend) SearchPatients(ctx context.Context, q string) ([]upstream.PatientRecord, error) {
	m.record("SearchPatients")
	if m.searchPatientsFunc != nil {
		return m.searchPatientsFunc(ctx, q)
	}
	return []upstream.PatientRecord{}, nil
}

type testDeps struct {
	store     *handoff.Store
	ledger    *MemoryRepository
	publisher *testutil.MockPublisher
}

func newTestOrchestrator(backend Backend) (*Orchestrator, testDeps) {
	deps := testDeps{
		store:     handoff.NewStore(handoff.NewMemoryRepository(), testutil.NopLogger(), nil),
		ledger:    NewMemoryRepository(),
		publisher: testutil.NewMockPublisher(),
	}
	o := NewOrchestrator(backend, deps.store, deps.ledger, deps.publisher, nil, testutil.NopLogger())
	o.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return o, deps
}

func fullForm() Form {
	return Form{
		PatientName:       "Thandi Nkosi",
		DateOfBirth:       "1980-05-01",
		InjuryDate:        "2026-03-01",
		InjuryDescription: "Fractured femur",
		ProviderName:      "Dr Mokoena",
		ProviderNPI:       "1234567890",
		PayerName:         "Discovery Health",
		PayerID:           "DH-1",
		TreatmentType:     "Surgery",
		ICDCode:           "S72.001",
	}
}

func TestSaveDraft_CreatesEveryFilledEntity(t *testing.T) {
	backend := &mockBackend{}
	o, deps := newTestOrchestrator(backend)

	result, err := o.SaveDraft(context.Background(), "sess-1", fullForm())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"CreateOrder", "CreatePatient", "CreateProvider", "CreateInsurance"}
	if !reflect.DeepEqual(backend.calls, want) {
		t.Errorf("Expected calls %v, got %v", want, backend.calls)
	}
	if result.Known.OrderID == "" || result.Known.PatientID == "" || result.Known.ProviderID == "" || result.Known.InsuranceID == "" {
		t.Errorf("Expected every id captured, got %+v", result.Known)
	}
	if len(result.FailedSteps) != 0 {
		t.Errorf("Expected no failed steps, got %v", result.FailedSteps)
	}

	deps.publisher.AssertEventCount(t, messaging.EventDraftSaved, 1)
	list, _, _ := deps.ledger.List(context.Background(), "sess-1", pagination.Params{Page: 1, Limit: 10})
	if len(list) != 1 || list[0].Kind != KindDraft {
		t.Errorf("Expected one draft ledger row, got %+v", list)
	}
}

func TestSaveDraft_ToleratesFailures(t *testing.T) {
	backend := &mockBackend{
		createOrderFunc: func(ctx context.Context, o upstream.OrderWrite) (upstream.ID, error) {
			return "", errBackend
		},
	}
	o, _ := newTestOrchestrator(backend)

	result, err := o.SaveDraft(context.Background(), "sess-1", Form{PayerName: "Discovery"})
	if err != nil {
		t.Fatalf("Expected failures to be tolerated, got: %v", err)
	}

	want := []string{"CreateOrder", "CreateInsurance"}
	if !reflect.DeepEqual(backend.calls, want) {
		t.Errorf("Expected calls %v, got %v", want, backend.calls)
	}
	if result.Known.OrderID != "" {
		t.Errorf("Expected no order id, got %q", result.Known.OrderID)
	}
	if !reflect.DeepEqual(result.FailedSteps, []string{"order"}) {
		t.Errorf("Expected failed order step, got %v", result.FailedSteps)
	}
}

func TestSubmit_FullRun(t *testing.T) {
	var authReq upstream.AuthorizationRequest
	backend := &mockBackend{
		createAuthorizationFunc: func(ctx context.Context, a upstream.AuthorizationRequest) error {
			authReq = a
			return nil
		},
	}
	o, deps := newTestOrchestrator(backend)

	form := fullForm()
	form.Known.OrderID = "o-7"
	result, err := o.Submit(context.Background(), "sess-1", "", form)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"CreatePatient", "CreateProvider", "CreateInsurance", "CreateAuthorization"}
	if !reflect.DeepEqual(backend.calls, want) {
		t.Errorf("Expected calls %v, got %v", want, backend.calls)
	}
	if !result.AuthorizationCreated || result.NextRoute != NextRoute {
		t.Errorf("Unexpected result %+v", result)
	}
	if authReq.Practice.PracticeID != 1 || authReq.Order == nil || authReq.Order.OrderID != "o-7" || authReq.Patient == nil {
		t.Errorf("Unexpected authorization request %+v", authReq)
	}
	if authReq.Provider.ProviderID != result.Known.ProviderID || authReq.Insurance.InsuranceID != result.Known.InsuranceID {
		t.Errorf("Authorization ids %+v do not match captured ids %+v", authReq, result.Known)
	}

	stored, err := o.CurrentAssessment(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Expected stored assessment, got: %v", err)
	}
	if stored.PatientName != "Thandi Nkosi" || stored.PatientIDAuth != result.Known.PatientID {
		t.Errorf("Unexpected stored assessment %+v", stored)
	}

	deps.publisher.AssertEventCount(t, messaging.EventSubmitted, 1)
	deps.publisher.AssertEventCount(t, messaging.EventAuthorizationCreated, 1)
}

func TestSubmit_ProviderFailureSkipsAuthorization(t *testing.T) {
	backend := &mockBackend{
		createProviderFunc: func(ctx context.Context, p upstream.ProviderWrite) (upstream.ID, error) {
			return "", errBackend
		},
	}
	o, deps := newTestOrchestrator(backend)

	result, err := o.Submit(context.Background(), "sess-1", "", fullForm())
	if err != nil {
		t.Fatalf("Expected the run to complete, got: %v", err)
	}

	if backend.count("CreateAuthorization") != 0 {
		t.Error("Expected authorization to be skipped without a provider id")
	}
	if backend.count("CreateInsurance") != 1 {
		t.Error("Expected insurance to be attempted after the provider failure")
	}
	if result.AuthorizationCreated {
		t.Error("Expected no authorization")
	}
	if !reflect.DeepEqual(result.FailedSteps, []string{"provider"}) {
		t.Errorf("Expected failed provider step, got %v", result.FailedSteps)
	}

	if _, err := o.CurrentAssessment(context.Background(), "sess-1"); err != nil {
		t.Errorf("Expected the assessment to be handed off anyway, got: %v", err)
	}
	deps.publisher.AssertEventCount(t, messaging.EventAuthorizationCreated, 0)
}

func TestSubmit_UpdatesWhenIdentified(t *testing.T) {
	var updatedNPI, updatedPatient, updatedInsurance string
	backend := &mockBackend{
		updatePatientFunc: func(ctx context.Context, id string, p upstream.PatientWrite) (upstream.ID, error) {
			updatedPatient = id
			return "p-1", nil
		},
		updateProviderFunc: func(ctx context.Context, npi string, p upstream.ProviderWrite) (upstream.ID, error) {
			updatedNPI = npi
			return "", nil
		},
		updateInsuranceFunc: func(ctx context.Context, id string, p upstream.InsuranceWrite) (upstream.ID, error) {
			updatedInsurance = id
			return "in-1", nil
		},
	}
	o, _ := newTestOrchestrator(backend)

	form := fullForm()
	form.PatientID = "P-100"
	form.InsuranceID = "INS-9"
	form.Known.ProviderID = "pr-1"

	result, err := o.Submit(context.Background(), "sess-1", "", form)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"UpdatePatient", "UpdateProvider", "UpdateInsurance", "CreateAuthorization"}
	if !reflect.DeepEqual(backend.calls, want) {
		t.Errorf("Expected calls %v, got %v", want, backend.calls)
	}
	if updatedPatient != "P-100" || updatedNPI != "1234567890" || updatedInsurance != "INS-9" {
		t.Errorf("Unexpected update keys %q %q %q", updatedPatient, updatedNPI, updatedInsurance)
	}
	if result.Known.ProviderID != "pr-1" {
		t.Errorf("Expected known provider id to be kept, got %q", result.Known.ProviderID)
	}
	if result.Assessment.CaseID != "P-100" {
		t.Errorf("Expected case id from custom patient id, got %q", result.Assessment.CaseID)
	}
}

func TestSubmit_PatientUpdateFailureCreates(t *testing.T) {
	backend := &mockBackend{
		updatePatientFunc: func(ctx context.Context, id string, p upstream.PatientWrite) (upstream.ID, error) {
			return "", &upstream.StatusError{StatusCode: 404}
		},
	}
	o, _ := newTestOrchestrator(backend)

	form := fullForm()
	form.PatientID = "P-404"
	result, err := o.Submit(context.Background(), "sess-1", "", form)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if backend.count("UpdatePatient") != 1 || backend.count("CreatePatient") != 1 {
		t.Errorf("Expected update then create, got %v", backend.calls)
	}
	if result.Known.PatientID == "" {
		t.Error("Expected the created patient id")
	}
}

func TestSubmit_WithoutKeyDuplicates(t *testing.T) {
	backend := &mockBackend{}
	o, _ := newTestOrchestrator(backend)

	for i := 0; i < 2; i++ {
		if _, err := o.Submit(context.Background(), "sess-1", "", fullForm()); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}

	if got := backend.count("CreatePatient"); got != 2 {
		t.Errorf("Expected two patient creates without an idempotency key, got %d", got)
	}
}

func TestSubmit_IdempotencyKeyReusesIdentifiers(t *testing.T) {
	var keys []string
	backend := &mockBackend{}
	backend.createPatientFunc = func(ctx context.Context, p upstream.PatientWrite) (upstream.ID, error) {
		return "p-1", nil
	}
	o, _ := newTestOrchestrator(backend)

	first, err := o.Submit(context.Background(), "sess-1", "key-1", fullForm())
	if err != nil {
		t.Fatalf("First submit failed: %v", err)
	}

	backend.createAuthorizationFunc = func(ctx context.Context, a upstream.AuthorizationRequest) error {
		keys = append(keys, a.Patient.PatientID.String())
		return nil
	}
	second, err := o.Submit(context.Background(), "sess-1", "key-1", fullForm())
	if err != nil {
		t.Fatalf("Second submit failed: %v", err)
	}

	if got := backend.count("CreatePatient"); got != 1 {
		t.Errorf("Expected one patient create across the repeat, got %d", got)
	}
	if got := backend.count("CreateProvider"); got != 1 {
		t.Errorf("Expected one provider create across the repeat, got %d", got)
	}
	if got := backend.count("CreateInsurance"); got != 1 {
		t.Errorf("Expected one insurance create across the repeat, got %d", got)
	}
	if got := backend.count("UpdateProvider"); got != 1 {
		t.Errorf("Expected the repeat to update the known provider, got %d", got)
	}
	if second.Known.PatientID != first.Known.PatientID {
		t.Errorf("Expected patient id %q to be reused, got %q", first.Known.PatientID, second.Known.PatientID)
	}
	if !reflect.DeepEqual(keys, []string{"p-1"}) {
		t.Errorf("Expected the repeat authorization to reference p-1, got %v", keys)
	}
}

func TestSubmit_IdempotencyKeyIsScopedToSession(t *testing.T) {
	backend := &mockBackend{}
	o, _ := newTestOrchestrator(backend)

	if _, err := o.Submit(context.Background(), "user-a/tab-1", "shared-key", fullForm()); err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	second, err := o.Submit(context.Background(), "user-b/tab-1", "shared-key", fullForm())
	if err != nil {
		t.Fatalf("Second submit failed: %v", err)
	}

	if got := backend.count("CreatePatient"); got != 2 {
		t.Errorf("Expected another session's key not to seed identifiers, got %d patient creates", got)
	}
	if got := backend.count("UpdateProvider"); got != 0 {
		t.Errorf("Expected no provider update from a foreign ledger row, got %d", got)
	}
	if second.Known.ProviderID == "" {
		t.Error("Expected the second session to capture its own provider id")
	}
}

func TestSubmit_IdempotencyKeyForwardedPerStep(t *testing.T) {
	fake := testutil.NewFakeUpstream(t)
	fake.Handle("POST", "/patient/write", 200, map[string]any{"patientId": 12})
	fake.Handle("POST", "/provider/write", 200, map[string]any{"providerId": 5})
	fake.Handle("POST", "/insurance/write", 200, map[string]any{"insuranceId": "8"})
	fake.Handle("POST", "/authorizations/create-full", 200, map[string]any{})

	client, err := upstream.NewClient(fake.URL, 5*time.Second, testutil.NopLogger(), nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	o, _ := newTestOrchestrator(upstream.NewClaimsClient(client))

	result, err := o.Submit(context.Background(), "sess-1", "abc", fullForm())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.AuthorizationCreated || result.Known.PatientID != "12" || result.Known.InsuranceID != "8" {
		t.Errorf("Unexpected result %+v", result)
	}

	testCases := []struct {
		path string
		key  string
	}{
		{"/patient/write", "abc/patient"},
		{"/provider/write", "abc/provider"},
		{"/insurance/write", "abc/insurance"},
		{"/authorizations/create-full", "abc/authorization"},
	}
	for _, tc := range testCases {
		calls := fake.CallsTo("POST", tc.path)
		if len(calls) != 1 || calls[0].IdempotencyKey != tc.key {
			t.Errorf("Expected one call to %s with key %s, got %+v", tc.path, tc.key, calls)
		}
	}
}

func TestSubmit_InvalidDates(t *testing.T) {
	backend := &mockBackend{}
	o, deps := newTestOrchestrator(backend)

	form := fullForm()
	form.StartDate = "14/03/2026"
	_, err := o.Submit(context.Background(), "sess-1", "", form)
	if !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("Expected ErrInvalidForm, got %v", err)
	}
	if len(backend.calls) != 0 {
		t.Errorf("Expected no backend calls, got %v", backend.calls)
	}
	if deps.publisher.GetEventCount() != 0 {
		t.Error("Expected no events")
	}

	if _, err := o.Submit(context.Background(), "sess-1", "", fullForm()); err != nil {
		t.Errorf("Expected the in-progress flag to be cleared, got %v", err)
	}
}

func TestSubmit_InProgress(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &mockBackend{
		createPatientFunc: func(ctx context.Context, p upstream.PatientWrite) (upstream.ID, error) {
			close(entered)
			<-release
			return "p-1", nil
		},
	}
	o, _ := newTestOrchestrator(backend)

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), "sess-1", "", fullForm())
		done <- err
	}()
	<-entered

	if _, err := o.Submit(context.Background(), "sess-1", "", fullForm()); !errors.Is(err, ErrInProgress) {
		t.Errorf("Expected ErrInProgress, got %v", err)
	}
	if _, err := o.Submit(context.Background(), "sess-2", "", Form{}); err != nil {
		t.Errorf("Expected other sessions to proceed, got %v", err)
	}
	if _, err := o.SaveDraft(context.Background(), "sess-1", Form{}); err != nil {
		t.Errorf("Expected a draft alongside a submit to proceed, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
}

func TestSubmit_PublishFailureIsTolerated(t *testing.T) {
	o, deps := newTestOrchestrator(&mockBackend{})
	deps.publisher.Err = testutil.ErrPublishFailed

	if _, err := o.Submit(context.Background(), "sess-1", "", fullForm()); err != nil {
		t.Errorf("Expected publish failures to be tolerated, got %v", err)
	}
}

func TestSubmit_MissingSession(t *testing.T) {
	o, _ := newTestOrchestrator(&mockBackend{})

	if _, err := o.Submit(context.Background(), "", "", fullForm()); !errors.Is(err, ErrMissingSession) {
		t.Errorf("Expected ErrMissingSession, got %v", err)
	}
	if _, err := o.SaveDraft(context.Background(), "", fullForm()); !errors.Is(err, ErrMissingSession) {
		t.Errorf("Expected ErrMissingSession, got %v", err)
	}
}

func TestAutofill(t *testing.T) {
	backend := &mockBackend{
		ordersForPatientFunc: func(ctx context.Context, id string) ([]upstream.OrderRecord, error) {
			return []upstream.OrderRecord{
				{
					OrderID:           "o-3",
					ProviderNPINumber: "1234567890",
					InsuranceID:       "INS-9",
					FromDateOfService: "2026-03-01",
					ToDateOfService:   "2026-03-31",
					OrderDescription:  "Hip repair",
					OrderICDCode:      "S72.001",
					AmountDispensed:   "4",
				},
				{OrderID: "o-1"},
			}, nil
		},
		providerByNPIFunc: func(ctx context.Context, npi string) (*upstream.ProviderRecord, error) {
			return &upstream.ProviderRecord{ProviderID: "pr-1", ProviderName: "Dr Mokoena", TaxID: "TX-1"}, nil
		},
		insuranceByIDFunc: func(ctx context.Context, id string) (*upstream.InsuranceRecord, error) {
			return &upstream.InsuranceRecord{InsuranceID: "in-1", Name: "Discovery Health"}, nil
		},
		patientFunc: func(ctx context.Context, id string) (*upstream.PatientRecord, error) {
			return &upstream.PatientRecord{FullName: "Thandi Nkosi", DateOfBirth: "1980-05-01", FromDateOfService: "2026-03-02"}, nil
		},
	}
	o, _ := newTestOrchestrator(backend)

	form, err := o.Autofill(context.Background(), " P-100 ")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if form.PatientID != "P-100" || form.PatientName != "Thandi Nkosi" {
		t.Errorf("Unexpected patient fields %+v", form)
	}
	if form.Known != (KnownIDs{ProviderID: "pr-1", InsuranceID: "in-1", OrderID: "o-3"}) {
		t.Errorf("Unexpected known ids %+v", form.Known)
	}
	if form.DrugDescription != "Hip repair" || form.Quantity != "4" || form.PayerName != "Discovery Health" {
		t.Errorf("Unexpected order fields %+v", form)
	}
	if form.StartDate != "2026-03-02" || form.EndDate != "2026-03-31" {
		t.Errorf("Expected patient dates to win where present, got %s..%s", form.StartDate, form.EndDate)
	}
}

func TestAutofill_LookupsTolerated(t *testing.T) {
	backend := &mockBackend{
		ordersForPatientFunc: func(ctx context.Context, id string) ([]upstream.OrderRecord, error) {
			return nil, errBackend
		},
	}
	o, _ := newTestOrchestrator(backend)

	form, err := o.Autofill(context.Background(), "P-100")
	if err != nil {
		t.Fatalf("Expected lookups to be tolerated, got: %v", err)
	}
	if form.PatientID != "P-100" || form.PatientName != "" {
		t.Errorf("Unexpected form %+v", form)
	}
	if backend.count("ProviderByNPI") != 0 {
		t.Error("Expected no provider lookup without an order")
	}

	if _, err := o.Autofill(context.Background(), " "); !errors.Is(err, ErrMissingPatientID) {
		t.Errorf("Expected ErrMissingPatientID, got %v", err)
	}
}

func TestSearchPatients(t *testing.T) {
	backend := &mockBackend{
		searchPatientsFunc: func(ctx context.Context, q string) ([]upstream.PatientRecord, error) {
			if q == "boom" {
				return nil, errBackend
			}
			return []upstream.PatientRecord{{FullName: "Thandi Nkosi"}}, nil
		},
	}
	o, _ := newTestOrchestrator(backend)

	testCases := []struct {
		query     string
		wantCount int
		wantCalls int
	}{
		{"T", 0, 0},
		{" é ", 0, 0},
		{"Th", 1, 1},
		{"boom", 0, 2},
	}

	for _, tc := range testCases {
		got, err := o.SearchPatients(context.Background(), tc.query)
		if err != nil {
			t.Fatalf("SearchPatients(%q) failed: %v", tc.query, err)
		}
		if got == nil || len(got) != tc.wantCount {
			t.Errorf("SearchPatients(%q) = %v, want %d results", tc.query, got, tc.wantCount)
		}
		if calls := backend.count("SearchPatients"); calls != tc.wantCalls {
			t.Errorf("After %q expected %d backend calls, got %d", tc.query, tc.wantCalls, calls)
		}
	}
}

func TestListSubmissions(t *testing.T) {
	o, _ := newTestOrchestrator(&mockBackend{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := o.SaveDraft(ctx, "sess-1", Form{}); err != nil {
			t.Fatalf("SaveDraft failed: %v", err)
		}
	}
	if _, err := o.SaveDraft(ctx, "sess-2", Form{}); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}

	list, err := o.ListSubmissions(ctx, "sess-1", pagination.Params{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(list.Submissions) != 1 || list.Pagination.TotalRecords != 3 || list.Pagination.TotalPages != 2 {
		t.Errorf("Unexpected page %+v", list)
	}
	if _, err := o.ListSubmissions(ctx, "", pagination.Params{}); !errors.Is(err, ErrMissingSession) {
		t.Errorf("Expected ErrMissingSession, got %v", err)
	}
}

func TestCurrentAssessment_NotFound(t *testing.T) {
	o, _ := newTestOrchestrator(&mockBackend{})

	if _, err := o.CurrentAssessment(context.Background(), "sess-1"); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("Expected ErrAssessmentNotFound, got %v", err)
	}
}
