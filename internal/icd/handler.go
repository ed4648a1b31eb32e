package icd

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Handler exposes code normalization to the dashboard.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type NormalizeRequest struct {
	Code       string `json:"code"`
	InjuryType string `json:"injury_type,omitempty"`
}

type NormalizeResponse struct {
	Success            bool     `json:"success"`
	Input              string   `json:"input"`
	Code               string   `json:"code"`
	SecondaryDiagnoses []string `json:"secondary_diagnoses"`
}

// Normalize answers POST /icd/normalize. Codes that cannot be normalized
// are 422 so the dashboard can block plan generation.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	code, ok := Normalize(req.Code)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "invalid_icd_code",
			"The code must follow the ICD-10 pattern (e.g., S72.001)")
		return
	}

	secondary := []string{}
	if strings.TrimSpace(req.InjuryType) != "" {
		secondary = DeriveSecondary(req.InjuryType, code)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NormalizeResponse{
		Success:            true,
		Input:              req.Code,
		Code:               code,
		SecondaryDiagnoses: secondary,
	})
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
