package discharge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/auth"
)

// withSession attaches the principal user-1 and the dashboard tab header.
func withSession(req *http.Request, tab string) *http.Request {
	req.Header.Set(auth.SessionHeader, tab)
	return req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{UserID: "user-1"}))
}

type mockService struct {
	generatePlanFunc      func(ctx context.Context, sessionID string, a Assessment, o ContextOverrides) (*GeneratedPlan, error)
	currentPlanFunc       func(ctx context.Context, sessionID string) (*StoredPlan, error)
	currentAssessmentFunc func(ctx context.Context, sessionID string) (*Assessment, bool)
}

func (m *mockService) GeneratePlan(ctx context.Context, sessionID string, a Assessment, o ContextOverrides) (*GeneratedPlan, error) {
	if m.generatePlanFunc != nil {
		return m.generatePlanFunc(ctx, sessionID, a, o)
	}
	return &GeneratedPlan{NextRoute: NextRoute}, nil
}

func (m *mockService) CurrentPlan(ctx context.Context, sessionID string) (*StoredPlan, error) {
	if m.currentPlanFunc != nil {
		return m.currentPlanFunc(ctx, sessionID)
	}
	return &StoredPlan{}, nil
}

func (m *mockService) CurrentAssessment(ctx context.Context, sessionID string) (*Assessment, bool) {
	if m.currentAssessmentFunc != nil {
		return m.currentAssessmentFunc(ctx, sessionID)
	}
	return nil, false
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestHandler_GeneratePlan_Success(t *testing.T) {
	var gotSession string
	var gotAssessment Assessment
	svc := &mockService{
		generatePlanFunc: func(ctx context.Context, sessionID string, a Assessment, o ContextOverrides) (*GeneratedPlan, error) {
			gotSession = sessionID
			gotAssessment = a
			return &GeneratedPlan{NextRoute: NextRoute, Meta: Meta{CaseID: a.CaseID}}, nil
		},
	}
	handler := NewHandler(svc)

	body, _ := json.Marshal(GeneratePlanRequest{Assessment: &Assessment{CaseID: "12345", ICDCode: "S72.001"}})
	req := httptest.NewRequest(http.MethodPost, "/discharge/plans", bytes.NewReader(body))
	req = withSession(req, "tab-1")
	rec := httptest.NewRecorder()

	handler.GeneratePlan(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotSession != "user-1/tab-1" || gotAssessment.CaseID != "12345" {
		t.Errorf("Unexpected service input %q %+v", gotSession, gotAssessment)
	}

	var resp PlanSuccessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || resp.NextRoute != "payments" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestHandler_GeneratePlan_UsesStoredAssessment(t *testing.T) {
	var gotAssessment Assessment
	svc := &mockService{
		currentAssessmentFunc: func(ctx context.Context, sessionID string) (*Assessment, bool) {
			return &Assessment{CaseID: "from-submit", ICDCode: "S72.001"}, true
		},
		generatePlanFunc: func(ctx context.Context, sessionID string, a Assessment, o ContextOverrides) (*GeneratedPlan, error) {
			gotAssessment = a
			return &GeneratedPlan{}, nil
		},
	}
	handler := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/discharge/plans", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{UserID: "user-1"}))
	rec := httptest.NewRecorder()

	handler.GeneratePlan(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotAssessment.CaseID != "from-submit" {
		t.Errorf("Expected stored assessment to be used, got %+v", gotAssessment)
	}
}

func TestHandler_GeneratePlan_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		session    string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "no session",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_session",
		},
		{
			name:       "malformed json",
			body:       `{"assessment":`,
			session:    "tab-1",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "no assessment anywhere",
			body:       `{}`,
			session:    "tab-1",
			wantStatus: http.StatusBadRequest,
			wantCode:   "no_assessment",
		},
		{
			name:       "invalid icd",
			body:       `{"assessment":{"caseId":"1"}}`,
			session:    "tab-1",
			err:        ErrInvalidICDCode,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_icd_code",
			wantMsg:    InvalidICDCodeMessage,
		},
		{
			name:       "missing patient id",
			body:       `{"assessment":{"icdCode":"S72.001"}}`,
			session:    "tab-1",
			err:        ErrMissingPatientID,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "missing_patient_id",
			wantMsg:    MissingPatientIDMessage,
		},
		{
			name:       "generator failure",
			body:       `{"assessment":{"caseId":"1","icdCode":"S72.001"}}`,
			session:    "tab-1",
			err:        &GenerationError{StatusCode: 503, Message: "model overloaded"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "plan_generation_failed",
			wantMsg:    "model overloaded",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{
				generatePlanFunc: func(ctx context.Context, sessionID string, a Assessment, o ContextOverrides) (*GeneratedPlan, error) {
					return nil, tc.err
				},
			}
			handler := NewHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/discharge/plans", bytes.NewBufferString(tc.body))
			if tc.session != "" {
				req = withSession(req, tc.session)
			}
			rec := httptest.NewRecorder()

			handler.GeneratePlan(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			body := decodeError(t, rec)
			if body["error"] != tc.wantCode {
				t.Errorf("Expected error code %q, got %v", tc.wantCode, body["error"])
			}
			if body["success"] != false {
				t.Errorf("Expected success false, got %v", body["success"])
			}
			if tc.wantMsg != "" && body["message"] != tc.wantMsg {
				t.Errorf("Expected message %q, got %v", tc.wantMsg, body["message"])
			}
		})
	}
}

func TestHandler_CurrentPlan_NotFound(t *testing.T) {
	svc := &mockService{
		currentPlanFunc: func(ctx context.Context, sessionID string) (*StoredPlan, error) {
			return nil, ErrPlanNotFound
		},
	}
	handler := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/discharge/plans/current", nil)
	req = withSession(req, "tab-1")
	rec := httptest.NewRecorder()

	handler.CurrentPlan(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body["error"] != "plan_not_found" {
		t.Errorf("Unexpected error body %v", body)
	}
}

func TestHandler_Estimate(t *testing.T) {
	handler := NewHandler(&mockService{})

	body := `{
		"assistive_devices": {"devices": [{"name": "Wheelchair", "cost": "R4,500"}, {"name": "Bed", "cost": "R12,000"}]},
		"rehabilitation_plan": {"therapy_types": ["Occupational therapy"]},
		"caregiver_referral": {"caregiver_requirement": "Part-time caregiver", "duration_weeks": 12}
	}`
	req := httptest.NewRequest(http.MethodPost, "/discharge/estimate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Estimate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp EstimateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Costs.Total == nil || *resp.Costs.Total != 16500+9920+40800 {
		t.Errorf("Unexpected total %v", resp.Costs.Total)
	}
	if resp.Plan.Summary.DischargeDisposition != "Home" {
		t.Errorf("Expected normalized plan in response, got %+v", resp.Plan.Summary)
	}
}

func TestHandler_Estimate_InvalidBody(t *testing.T) {
	handler := NewHandler(&mockService{})

	req := httptest.NewRequest(http.MethodPost, "/discharge/estimate", bytes.NewBufferString(`[1,2]`))
	rec := httptest.NewRecorder()

	handler.Estimate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}
