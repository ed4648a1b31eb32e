package discharge

import (
	"context"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// ServiceInterface defines the contract for discharge planning operations
type ServiceInterface interface {
	GeneratePlan(ctx context.Context, sessionID string, a Assessment, overrides ContextOverrides) (*GeneratedPlan, error)
	CurrentPlan(ctx context.Context, sessionID string) (*StoredPlan, error)
	CurrentAssessment(ctx context.Context, sessionID string) (*Assessment, bool)
}

// PlanGenerator is the discharge plan backend.
type PlanGenerator interface {
	GenerateDischargePlan(ctx context.Context, req upstream.PlanRequest) (map[string]any, error)
}

var (
	_ ServiceInterface = (*Service)(nil)
	_ PlanGenerator    = (*upstream.PlannerClient)(nil)
)
