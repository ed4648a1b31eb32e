package upstream

import (
	"context"
	"net/http"
)

// PlannerClient talks to the discharge plan generator.
type PlannerClient struct {
	*Client
}

func NewPlannerClient(c *Client) *PlannerClient {
	return &PlannerClient{Client: c}
}

// GenerateDischargePlan returns the generator's plan as loosely typed JSON.
// Callers are expected to normalize it.
func (c *PlannerClient) GenerateDischargePlan(ctx context.Context, req PlanRequest) (map[string]any, error) {
	if req.SecondaryDiagnoses == nil {
		req.SecondaryDiagnoses = []string{}
	}
	var plan map[string]any
	if err := c.call(ctx, "discharge.generate_plan", http.MethodPost, "/generate-discharge-plan-groq", nil, req, &plan); err != nil {
		return nil, err
	}
	if plan == nil {
		plan = map[string]any{}
	}
	return plan, nil
}
