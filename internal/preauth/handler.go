package preauth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/auth"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// IdempotencyHeader carries the client's idempotency key on submit.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	service OrchestratorInterface
}

func NewHandler(service OrchestratorInterface) *Handler {
	return &Handler{service: service}
}

type DraftResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	DraftResult
}

type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SubmitResult
}

type AutofillResponse struct {
	Success bool `json:"success"`
	Form    Form `json:"form"`
}

type SearchResponse struct {
	Success  bool                     `json:"success"`
	Patients []upstream.PatientRecord `json:"patients"`
}

type SubmissionListResponse struct {
	Success bool `json:"success"`
	SubmissionList
}

type AssessmentResponse struct {
	Success    bool               `json:"success"`
	Assessment AssessmentSnapshot `json:"assessment"`
}

func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header or authenticated subject is required")
		return
	}

	var form Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	result, err := h.service.SaveDraft(r.Context(), sessionID, form)
	if err != nil {
		respondRunError(w, err, DraftFailedMessage)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(DraftResponse{
		Success:     true,
		Message:     "Draft saved successfully",
		DraftResult: *result,
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header or authenticated subject is required")
		return
	}

	var form Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	result, err := h.service.Submit(r.Context(), sessionID, r.Header.Get(IdempotencyHeader), form)
	if err != nil {
		respondRunError(w, err, SubmitFailedMessage)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SubmitResponse{
		Success:      true,
		Message:      "Request submitted successfully",
		SubmitResult: *result,
	})
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header or authenticated subject is required")
		return
	}

	list, err := h.service.ListSubmissions(r.Context(), sessionID, pagination.ParseParams(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SubmissionListResponse{
		Success:        true,
		SubmissionList: *list,
	})
}

func (h *Handler) Autofill(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]

	form, err := h.service.Autofill(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrMissingPatientID) {
			respondError(w, http.StatusBadRequest, "missing_patient_id", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AutofillResponse{Success: true, Form: *form})
}

func (h *Handler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.SearchPatients(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SearchResponse{Success: true, Patients: patients})
}

func (h *Handler) CurrentAssessment(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionID(r)
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header or authenticated subject is required")
		return
	}

	a, err := h.service.CurrentAssessment(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrAssessmentNotFound) {
			respondError(w, http.StatusNotFound, "assessment_not_found", "No assessment selected")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AssessmentResponse{Success: true, Assessment: *a})
}

// respondRunError maps a failed draft or submit run. Assembly failures
// carry the single user-facing alert.
func respondRunError(w http.ResponseWriter, err error, alert string) {
	switch {
	case errors.Is(err, ErrInProgress):
		respondError(w, http.StatusConflict, "in_progress", err.Error())
	case errors.Is(err, ErrInvalidForm):
		respondError(w, http.StatusBadRequest, "invalid_form", alert)
	case errors.Is(err, ErrMissingSession):
		respondError(w, http.StatusBadRequest, "missing_session", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", alert)
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
