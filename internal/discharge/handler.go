package discharge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/auth"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// GeneratePlanRequest is the body of POST /discharge/plans. Without an
// assessment the one handed off by the last submit is used.
type GeneratePlanRequest struct {
	Assessment *Assessment       `json:"assessment,omitempty"`
	Overrides  *ContextOverrides `json:"overrides,omitempty"`
}

type PlanSuccessResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Plan      Plan      `json:"plan"`
	Context   Context   `json:"context"`
	Meta      Meta      `json:"meta"`
	Costs     Breakdown `json:"costs"`
	NextRoute string    `json:"next_route,omitempty"`
}

type EstimateResponse struct {
	Success bool      `json:"success"`
	Plan    Plan      `json:"plan"`
	Costs   Breakdown `json:"costs"`
}

func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header or authenticated subject is required")
		return
	}

	var req GeneratePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	assessment := req.Assessment
	if assessment == nil {
		stored, ok := h.service.CurrentAssessment(r.Context(), sessionID)
		if !ok {
			respondError(w, http.StatusBadRequest, "no_assessment", "No assessment selected")
			return
		}
		assessment = stored
	}

	var overrides ContextOverrides
	if req.Overrides != nil {
		overrides = *req.Overrides
	}

	result, err := h.service.GeneratePlan(r.Context(), sessionID, *assessment, overrides)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(PlanSuccessResponse{
		Success:   true,
		Message:   "Discharge plan generated successfully",
		Plan:      result.Plan,
		Context:   result.Context,
		Meta:      result.Meta,
		Costs:     result.Costs,
		NextRoute: result.NextRoute,
	})
}

func (h *Handler) CurrentPlan(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header or authenticated subject is required")
		return
	}

	stored, err := h.service.CurrentPlan(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PlanSuccessResponse{
		Success: true,
		Message: "Discharge plan retrieved successfully",
		Plan:    stored.Plan,
		Context: stored.Context,
		Meta:    stored.Meta,
		Costs:   stored.Costs,
	})
}

// Estimate normalizes a posted plan and returns its cost breakdown.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	plan := NormalizePlan(raw)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EstimateResponse{
		Success: true,
		Plan:    plan,
		Costs:   Estimate(plan),
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var ge *GenerationError
	switch {
	case errors.Is(err, ErrInvalidICDCode):
		respondError(w, http.StatusUnprocessableEntity, "invalid_icd_code", InvalidICDCodeMessage)
	case errors.Is(err, ErrMissingPatientID):
		respondError(w, http.StatusUnprocessableEntity, "missing_patient_id", MissingPatientIDMessage)
	case errors.As(err, &ge):
		respondError(w, http.StatusBadGateway, "plan_generation_failed", ge.Message)
	case errors.Is(err, ErrPlanNotFound):
		respondError(w, http.StatusNotFound, "plan_not_found", "No discharge plan has been generated for this session")
	case errors.Is(err, ErrMissingSession):
		respondError(w, http.StatusBadRequest, "missing_session", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errorType,
		"message": message,
	})
}
