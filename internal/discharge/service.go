package discharge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/handoff"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/icd"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// NextRoute is the dashboard screen shown after a plan is generated.
const NextRoute = "payments"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/preauth-service/internal/discharge")

type Service struct {
	planner   PlanGenerator
	store     handoff.StoreInterface
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(planner PlanGenerator, store handoff.StoreInterface, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		planner:   planner,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "discharge").Logger(),
		now:       time.Now,
	}
}

// GeneratePlan validates the assessment, asks the generator for a plan and
// hands the plan, its context and meta off to the session. Validation
// failures never reach the generator.
func (s *Service) GeneratePlan(ctx context.Context, sessionID string, a Assessment, overrides ContextOverrides) (*GeneratedPlan, error) {
	ctx, span := tracer.Start(ctx, "discharge.GeneratePlan")
	defer span.End()

	if sessionID == "" {
		return nil, ErrMissingSession
	}

	code, ok := icd.Normalize(a.ICDCode)
	if !ok {
		s.metrics.RecordPlanGeneration(ctx, "invalid_icd")
		span.SetStatus(codes.Error, "invalid icd code")
		s.logger.Info().Str("raw_icd", a.ICDCode).Str("case_id", a.CaseID).Msg("plan blocked: icd code could not be normalized")
		return nil, ErrInvalidICDCode
	}
	span.SetAttributes(attribute.String("icd.code", code))

	planCtx := overrides.Apply(DefaultContext(&a, code))
	req, err := BuildRequest(a, code, planCtx)
	if err != nil {
		s.metrics.RecordPlanGeneration(ctx, "missing_patient")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	raw, err := s.planner.GenerateDischargePlan(ctx, req)
	if err != nil {
		s.metrics.RecordPlanGeneration(ctx, "upstream_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan generation failed")
		s.logger.Error().Err(err).Str("patient_id", req.PatientID).Msg("discharge plan generation failed")
		return nil, generationError(err)
	}

	plan := NormalizePlan(raw)
	storedCtx := planCtx
	storedCtx.SecondaryDiagnoses = strings.Join(req.SecondaryDiagnoses, ", ")
	meta := metaFor(a, code)

	s.handOff(ctx, sessionID, handoff.KeyDischargePlan, plan)
	s.handOff(ctx, sessionID, handoff.KeyDischargePlanContext, storedCtx)
	s.handOff(ctx, sessionID, handoff.KeyDischargePlanMeta, meta)

	costs := Estimate(plan)

	event := messaging.PlanGeneratedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPlanGenerated),
		Data: messaging.PlanGeneratedData{
			SessionID:          sessionID,
			PatientID:          req.PatientID,
			ICDCode:            code,
			SecondaryDiagnoses: req.SecondaryDiagnoses,
			EstimatedTotal:     costs.Total,
			GeneratedAt:        s.now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventPlanGenerated, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish plan generated event")
	}

	s.metrics.RecordPlanGeneration(ctx, "success")
	span.SetStatus(codes.Ok, "plan generated")
	s.logger.Info().Str("patient_id", req.PatientID).Str("icd_code", code).Msg("✓ Discharge plan generated")

	return &GeneratedPlan{
		Plan:      plan,
		Context:   storedCtx,
		Meta:      meta,
		Costs:     costs,
		NextRoute: NextRoute,
	}, nil
}

func (s *Service) handOff(ctx context.Context, sessionID, key string, payload any) {
	if err := s.store.Write(ctx, sessionID, key, payload); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("unable to persist discharge snapshot")
	}
}

func generationError(err error) error {
	ge := &GenerationError{Message: PlanGenerationMessage, Err: err}
	var se *upstream.StatusError
	if errors.As(err, &se) {
		ge.StatusCode = se.StatusCode
		ge.Message = se.Body
		if ge.Message == "" {
			ge.Message = fmt.Sprintf("Failed to generate plan (status %d)", se.StatusCode)
		}
	}
	return ge
}

// CurrentPlan reads the plan handed off for the session. Missing context or
// meta fields are completed from the plan; a missing plan is ErrPlanNotFound.
func (s *Service) CurrentPlan(ctx context.Context, sessionID string) (*StoredPlan, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}

	var raw map[string]any
	if !s.store.Read(ctx, sessionID, handoff.KeyDischargePlan, &raw) {
		return nil, ErrPlanNotFound
	}
	plan := NormalizePlan(raw)

	var meta Meta
	if !s.store.Read(ctx, sessionID, handoff.KeyDischargePlanMeta, &meta) {
		meta = Meta{}
	}
	var planCtx Context
	if !s.store.Read(ctx, sessionID, handoff.KeyDischargePlanContext, &planCtx) {
		planCtx = Context{}
	}

	return &StoredPlan{
		Plan:    plan,
		Meta:    fillMeta(meta, plan),
		Context: fillContext(planCtx, plan),
		Costs:   Estimate(plan),
	}, nil
}

// CurrentAssessment reads the assessment the pre-authorization submit left
// for the session.
func (s *Service) CurrentAssessment(ctx context.Context, sessionID string) (*Assessment, bool) {
	var a Assessment
	if !s.store.Read(ctx, sessionID, handoff.KeyCurrentAssessment, &a) {
		return nil, false
	}
	return &a, true
}
