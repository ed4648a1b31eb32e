package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Upstream metrics
	UpstreamCallsTotal metric.Int64Counter
	UpstreamDurationMs metric.Float64Histogram

	// Workflow metrics
	WorkflowRunsTotal    metric.Int64Counter
	WorkflowStepsTotal   metric.Int64Counter
	PlanGenerationsTotal metric.Int64Counter
	HandoffOpsTotal      metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/WailSalutem-Health-Care/preauth-service")

	var (
		m   Metrics
		err error
	)

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.UpstreamCallsTotal, err = meter.Int64Counter(
		"upstream_calls_total",
		metric.WithDescription("Total number of calls to claims and discharge backends"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.UpstreamDurationMs, err = meter.Float64Histogram(
		"upstream_call_duration_milliseconds",
		metric.WithDescription("Upstream call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.WorkflowRunsTotal, err = meter.Int64Counter(
		"preauth_workflow_runs_total",
		metric.WithDescription("Total number of draft and submit runs"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, err
	}

	if m.WorkflowStepsTotal, err = meter.Int64Counter(
		"preauth_workflow_steps_total",
		metric.WithDescription("Total number of orchestrator steps by outcome"),
		metric.WithUnit("{step}"),
	); err != nil {
		return nil, err
	}

	if m.PlanGenerationsTotal, err = meter.Int64Counter(
		"discharge_plan_generations_total",
		metric.WithDescription("Total number of discharge plan generation attempts"),
		metric.WithUnit("{plan}"),
	); err != nil {
		return nil, err
	}

	if m.HandoffOpsTotal, err = meter.Int64Counter(
		"handoff_operations_total",
		metric.WithDescription("Total number of snapshot reads and writes"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}

	if m.AuthFailuresTotal, err = meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}

	if m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordUpstreamCall records one call to a backend endpoint.
func (m *Metrics) RecordUpstreamCall(ctx context.Context, endpoint string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.Int("status_code", statusCode),
	}

	m.UpstreamCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.UpstreamDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordWorkflowRun records a finished draft or submit run.
func (m *Metrics) RecordWorkflowRun(ctx context.Context, kind string, authorizationCreated bool) {
	if m == nil {
		return
	}
	m.WorkflowRunsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("authorization_created", authorizationCreated),
	))
}

// RecordWorkflowStep records a single orchestrator step outcome.
func (m *Metrics) RecordWorkflowStep(ctx context.Context, step, action string, failed bool) {
	if m == nil {
		return
	}
	m.WorkflowStepsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("action", action),
		attribute.Bool("failed", failed),
	))
}

// RecordPlanGeneration records a plan generation attempt by result.
func (m *Metrics) RecordPlanGeneration(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.PlanGenerationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// RecordHandoff records a snapshot read or write.
func (m *Metrics) RecordHandoff(ctx context.Context, operation, key, result string) {
	if m == nil {
		return
	}
	m.HandoffOpsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("key", key),
		attribute.String("result", result),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
