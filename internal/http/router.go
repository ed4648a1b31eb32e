package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/auth"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/discharge"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/icd"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/preauth"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/telemetry"
)

// Dependencies are the services and settings the router wires.
type Dependencies struct {
	Verifier       *auth.Verifier
	Permissions    auth.Permissions
	Discharge      discharge.ServiceInterface
	Preauth        preauth.OrchestratorInterface
	Metrics        *telemetry.Metrics
	Logger         zerolog.Logger
	AllowedOrigins []string
	ServiceName    string
}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Dependencies) *mux.Router {
	icdHandler := icd.NewHandler()
	dischargeHandler := discharge.NewHandler(deps.Discharge)
	preauthHandler := preauth.NewHandler(deps.Preauth)

	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "preauth-service"
	}

	r := mux.NewRouter()
	r.Use(Recovery(deps.Logger))
	r.Use(otelmux.Middleware(serviceName))
	r.Use(RequestLogger(deps.Logger, deps.Metrics))
	r.Use(mux.MiddlewareFunc(CORSMiddleware(deps.AllowedOrigins)))

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"` + serviceName + `"}`))
	}).Methods(http.MethodGet)

	protect := func(permission string, h http.HandlerFunc) http.Handler {
		return auth.MiddlewareWithMetrics(deps.Verifier, deps.Metrics)(
			auth.RequirePermissionWithMetrics(permission, deps.Permissions, deps.Metrics)(h),
		)
	}

	// ICD-10 normalization
	r.Handle("/icd/normalize", protect("icd:normalize", icdHandler.Normalize)).Methods(http.MethodPost, http.MethodOptions)

	// Discharge planning
	r.Handle("/discharge/estimate", protect("discharge:view", dischargeHandler.Estimate)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/discharge/plans", protect("discharge:generate", dischargeHandler.GeneratePlan)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/discharge/plans/current", protect("discharge:view", dischargeHandler.CurrentPlan)).Methods(http.MethodGet, http.MethodOptions)

	// Pre-authorization workflow
	r.Handle("/preauth/drafts", protect("preauth:create", preauthHandler.SaveDraft)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/preauth/submissions", protect("preauth:submit", preauthHandler.Submit)).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/preauth/submissions", protect("preauth:view", preauthHandler.ListSubmissions)).Methods(http.MethodGet)
	r.Handle("/preauth/autofill/{patientId}", protect("preauth:view", preauthHandler.Autofill)).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/preauth/patients/search", protect("preauth:view", preauthHandler.SearchPatients)).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/assessments/current", protect("preauth:view", preauthHandler.CurrentAssessment)).Methods(http.MethodGet, http.MethodOptions)

	return r
}
