package preauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/handoff"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

// NextRoute is the dashboard screen shown after a submit.
const NextRoute = "serious-injury"

const minSearchLength = 2

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/preauth-service/internal/preauth")

type Orchestrator struct {
	backend   Backend
	store     handoff.StoreInterface
	ledger    RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewOrchestrator(backend Backend, store handoff.StoreInterface, ledger RepositoryInterface, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		backend:   backend,
		store:     store,
		ledger:    ledger,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "preauth").Logger(),
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
}

// begin marks a run of kind as in progress for the session. The returned
// func clears the mark.
func (o *Orchestrator) begin(kind, sessionID string) (func(), error) {
	key := kind + "\x00" + sessionID

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[key]; busy {
		return nil, ErrInProgress
	}
	o.inFlight[key] = struct{}{}

	return func() {
		o.mu.Lock()
		delete(o.inFlight, key)
		o.mu.Unlock()
	}, nil
}

// SaveDraft records whatever the form holds so far: an order, then the
// patient, provider and insurance when their fields are filled in. A failed
// call leaves its identifier empty and the run goes on.
func (o *Orchestrator) SaveDraft(ctx context.Context, sessionID string, form Form) (*DraftResult, error) {
	ctx, span := tracer.Start(ctx, "preauth.SaveDraft")
	defer span.End()

	if sessionID == "" {
		return nil, ErrMissingSession
	}
	done, err := o.begin(KindDraft, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "in progress")
		return nil, err
	}
	defer done()

	if err := validateDates(form); err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn().Err(err).Str("session_id", sessionID).Msg("draft could not be assembled")
		return nil, err
	}

	now := o.now()
	var outcomes Outcomes
	for _, step := range draftSteps {
		action := DecideDraft(step, form, outcomes)
		if action == ActionSkip {
			continue
		}
		outcomes = append(outcomes, o.draftCall(ctx, step, form, now))
	}

	known := resolveAll(form, outcomes)
	result := &DraftResult{
		SubmissionID: uuid.NewString(),
		Known:        known,
		Outcomes:     outcomes.Records(),
		FailedSteps:  outcomes.Failed(),
	}

	o.record(ctx, &Submission{
		ID:        result.SubmissionID,
		SessionID: sessionID,
		Kind:      KindDraft,
		Known:     known,
		Outcomes:  result.Outcomes,
		CreatedAt: now.UTC(),
	})

	event := messaging.DraftSavedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventDraftSaved),
		Data: messaging.DraftSavedData{
			SubmissionID: result.SubmissionID,
			SessionID:    sessionID,
			IDs:          entityIDs(known),
			FailedSteps:  result.FailedSteps,
			SavedAt:      now.UTC(),
		},
	}
	o.publish(ctx, messaging.EventDraftSaved, event)

	o.metrics.RecordWorkflowRun(ctx, KindDraft, false)
	span.SetAttributes(attribute.Int("preauth.failed_steps", len(result.FailedSteps)))
	span.SetStatus(codes.Ok, "draft saved")
	o.logger.Info().Str("session_id", sessionID).Strs("failed_steps", result.FailedSteps).Msg("✓ Draft saved")

	return result, nil
}

func (o *Orchestrator) draftCall(ctx context.Context, step Step, form Form, now time.Time) Outcome {
	out := Outcome{Step: step, Action: ActionCreate}
	switch step {
	case StepOrder:
		out.ID, out.Err = o.backend.CreateOrder(ctx, draftOrder(form, now))
	case StepPatient:
		out.ID, out.Err = o.backend.CreatePatient(ctx, draftPatient(form, now))
	case StepProvider:
		out.ID, out.Err = o.backend.CreateProvider(ctx, providerPayload(form))
	case StepInsurance:
		out.ID, out.Err = o.backend.CreateInsurance(ctx, insurancePayload(form))
	}
	o.logOutcome(ctx, out)
	return out
}

// Submit upserts the patient, provider and insurance, creates the
// authorization when both provider and insurance are identified, and hands
// the resulting assessment to the serious-injury screen. Per-call failures
// are tolerated; only an unassemblable form or a concurrent run fails it.
//
// A non-empty idempotencyKey is forwarded to the backend on every create,
// and identifiers captured by an earlier submit under the same key are
// reused so a repeat does not create the entities again.
func (o *Orchestrator) Submit(ctx context.Context, sessionID, idempotencyKey string, form Form) (*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "preauth.Submit")
	defer span.End()

	if sessionID == "" {
		return nil, ErrMissingSession
	}
	done, err := o.begin(KindSubmit, sessionID)
	if err != nil {
		span.SetStatus(codes.Error, "in progress")
		return nil, err
	}
	defer done()

	if err := validateDates(form); err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn().Err(err).Str("session_id", sessionID).Msg("submission could not be assembled")
		return nil, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		span.SetAttributes(attribute.String("preauth.idempotency_key", idempotencyKey))
		form.Known = o.seedKnown(ctx, sessionID, idempotencyKey, form.Known)
	}

	var outcomes Outcomes
	for _, step := range submitSteps {
		stepCtx := ctx
		if idempotencyKey != "" {
			stepCtx = upstream.WithIdempotencyKey(ctx, idempotencyKey+"/"+string(step))
		}
		for {
			action := Decide(step, form, outcomes)
			if action == ActionSkip {
				break
			}
			outcomes = append(outcomes, o.submitCall(stepCtx, step, action, form, outcomes))
		}
	}

	now := o.now()
	known := resolveAll(form, outcomes)
	authorized := outcomes.Succeeded(StepAuthorization)
	assessment := snapshot(form, known, Resolve(StepPatient, form, outcomes), now)

	if err := o.store.Write(ctx, sessionID, handoff.KeyCurrentAssessment, assessment); err != nil {
		o.logger.Warn().Err(err).Str("session_id", sessionID).Msg("unable to persist current assessment")
	}

	result := &SubmitResult{
		SubmissionID:         uuid.NewString(),
		Known:                known,
		AuthorizationCreated: authorized,
		Outcomes:             outcomes.Records(),
		FailedSteps:          outcomes.Failed(),
		Assessment:           assessment,
		NextRoute:            NextRoute,
	}

	o.record(ctx, &Submission{
		ID:                   result.SubmissionID,
		SessionID:            sessionID,
		Kind:                 KindSubmit,
		IdempotencyKey:       idempotencyKey,
		Known:                known,
		AuthorizationCreated: authorized,
		Outcomes:             result.Outcomes,
		CreatedAt:            now.UTC(),
	})

	ids := entityIDs(known)
	o.publish(ctx, messaging.EventSubmitted, messaging.SubmittedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventSubmitted),
		Data: messaging.SubmittedData{
			SubmissionID:         result.SubmissionID,
			SessionID:            sessionID,
			IdempotencyKey:       idempotencyKey,
			IDs:                  ids,
			AuthorizationCreated: authorized,
			FailedSteps:          result.FailedSteps,
			SubmittedAt:          now.UTC(),
		},
	})
	if authorized {
		o.publish(ctx, messaging.EventAuthorizationCreated, messaging.AuthorizationCreatedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventAuthorizationCreated),
			Data: messaging.AuthorizationCreatedData{
				SubmissionID: result.SubmissionID,
				IDs:          ids,
				PracticeID:   authorizationPractice,
				CreatedAt:    now.UTC(),
			},
		})
	}

	o.metrics.RecordWorkflowRun(ctx, KindSubmit, authorized)
	span.SetAttributes(
		attribute.Bool("preauth.authorization_created", authorized),
		attribute.Int("preauth.failed_steps", len(result.FailedSteps)),
	)
	span.SetStatus(codes.Ok, "submitted")
	o.logger.Info().
		Str("session_id", sessionID).
		Bool("authorization_created", authorized).
		Strs("failed_steps", result.FailedSteps).
		Msg("✓ Pre-authorization submitted")

	return result, nil
}

// seedKnown fills identifiers the form does not carry from the latest
// submit the same session recorded under key.
func (o *Orchestrator) seedKnown(ctx context.Context, sessionID, key string, known KnownIDs) KnownIDs {
	prev, err := o.ledger.FindByIdempotencyKey(ctx, sessionID, key)
	if err != nil {
		if !errors.Is(err, ErrSubmissionNotFound) {
			o.logger.Warn().Err(err).Str("idempotency_key", key).Msg("unable to look up earlier submission")
		}
		return known
	}

	fill := func(dst *upstream.ID, src upstream.ID) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&known.PatientID, prev.Known.PatientID)
	fill(&known.ProviderID, prev.Known.ProviderID)
	fill(&known.InsuranceID, prev.Known.InsuranceID)
	fill(&known.OrderID, prev.Known.OrderID)

	o.logger.Info().Str("idempotency_key", key).Str("submission_id", prev.ID).Msg("reusing identifiers from earlier submission")
	return known
}

func (o *Orchestrator) submitCall(ctx context.Context, step Step, action Action, form Form, outcomes Outcomes) Outcome {
	out := Outcome{Step: step, Action: action}
	switch {
	case step == StepPatient && action == ActionUpdate:
		out.ID, out.Err = o.backend.UpdatePatient(ctx, strings.TrimSpace(form.PatientID), submitPatient(form))
	case step == StepPatient:
		out.ID, out.Err = o.backend.CreatePatient(ctx, submitPatient(form))
	case step == StepProvider && action == ActionUpdate:
		out.ID, out.Err = o.backend.UpdateProvider(ctx, strings.TrimSpace(form.ProviderNPI), providerPayload(form))
	case step == StepProvider:
		out.ID, out.Err = o.backend.CreateProvider(ctx, providerPayload(form))
	case step == StepInsurance && action == ActionUpdate:
		out.ID, out.Err = o.backend.UpdateInsurance(ctx, strings.TrimSpace(form.InsuranceID), insurancePayload(form))
	case step == StepInsurance:
		out.ID, out.Err = o.backend.CreateInsurance(ctx, insurancePayload(form))
	case step == StepAuthorization:
		out.Err = o.backend.CreateAuthorization(ctx, authorizationPayload(
			Resolve(StepProvider, form, outcomes),
			Resolve(StepInsurance, form, outcomes),
			form.Known.OrderID,
			Resolve(StepPatient, form, outcomes),
		))
	default:
		out.Err = fmt.Errorf("no call for %s %s", action, step)
	}
	o.logOutcome(ctx, out)
	return out
}

func (o *Orchestrator) logOutcome(ctx context.Context, out Outcome) {
	o.metrics.RecordWorkflowStep(ctx, string(out.Step), string(out.Action), out.Err != nil)

	if out.Err != nil {
		o.logger.Error().
			Err(out.Err).
			Str("step", string(out.Step)).
			Str("action", string(out.Action)).
			Msg("workflow step failed")
		return
	}
	o.logger.Info().
		Str("step", string(out.Step)).
		Str("action", string(out.Action)).
		Str("id", out.ID.String()).
		Msg("workflow step completed")
}

func resolveAll(form Form, outcomes Outcomes) KnownIDs {
	return KnownIDs{
		PatientID:   Resolve(StepPatient, form, outcomes),
		ProviderID:  Resolve(StepProvider, form, outcomes),
		InsuranceID: Resolve(StepInsurance, form, outcomes),
		OrderID:     Resolve(StepOrder, form, outcomes),
	}
}

func entityIDs(k KnownIDs) messaging.EntityIDs {
	return messaging.EntityIDs{
		PatientID:   k.PatientID.String(),
		ProviderID:  k.ProviderID.String(),
		InsuranceID: k.InsuranceID.String(),
		OrderID:     k.OrderID.String(),
	}
}

func (o *Orchestrator) record(ctx context.Context, s *Submission) {
	if err := o.ledger.Record(ctx, s); err != nil {
		o.logger.Warn().Err(err).Str("submission_id", s.ID).Msg("failed to record submission")
	}
}

func (o *Orchestrator) publish(ctx context.Context, routingKey string, event any) {
	if err := o.publisher.Publish(ctx, routingKey, event); err != nil {
		o.logger.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}

// Autofill rebuilds a form from what the backend knows about a patient:
// the first recorded order, the provider and insurance it references and
// the patient record. Lookups that fail leave their fields empty.
func (o *Orchestrator) Autofill(ctx context.Context, customPatientID string) (*Form, error) {
	ctx, span := tracer.Start(ctx, "preauth.Autofill")
	defer span.End()

	customPatientID = strings.TrimSpace(customPatientID)
	if customPatientID == "" {
		return nil, ErrMissingPatientID
	}

	form := &Form{PatientID: customPatientID}

	orders, err := o.backend.OrdersForPatient(ctx, customPatientID)
	if err != nil {
		o.logger.Warn().Err(err).Str("patient_id", customPatientID).Msg("order lookup failed")
	}
	if len(orders) > 0 {
		o.fillFromOrder(ctx, form, orders[0])
	}

	p, err := o.backend.Patient(ctx, customPatientID)
	if err != nil {
		o.logger.Warn().Err(err).Str("patient_id", customPatientID).Msg("patient lookup failed")
	} else {
		form.PatientName = p.FullName
		form.DateOfBirth = p.DateOfBirth
		form.InjuryDate = p.DateOfService
		setIf(&form.InjuryDescription, p.Description)
		setIf(&form.TreatmentType, p.ProcedureCode)
		setIf(&form.ICDCode, p.ICDCode)
		setIf(&form.StartDate, p.FromDateOfService)
		setIf(&form.EndDate, p.ToDateOfService)
	}

	span.SetAttributes(attribute.Int("preauth.orders", len(orders)))
	span.SetStatus(codes.Ok, "autofilled")
	return form, nil
}

func (o *Orchestrator) fillFromOrder(ctx context.Context, form *Form, order upstream.OrderRecord) {
	form.ProviderNPI = order.ProviderNPINumber
	form.InsuranceID = order.InsuranceID
	form.Known.OrderID = order.OrderID
	form.StartDate = order.FromDateOfService
	form.EndDate = order.ToDateOfService
	form.DrugDescription = firstNonBlank(order.DrugName, order.OrderDescription)
	setIf(&form.ICDCode, order.OrderICDCode)
	setIf(&form.DrugType, order.DrugType)
	setIf(&form.NoOfChemo, string(order.ChemoCount))
	setIf(&form.Quantity, string(order.AmountDispensed))
	setIf(&form.QuantityUnit, order.AmountDispensedUnit)

	if order.ProviderNPINumber != "" {
		pr, err := o.backend.ProviderByNPI(ctx, order.ProviderNPINumber)
		if err != nil {
			o.logger.Warn().Err(err).Str("npi", order.ProviderNPINumber).Msg("provider lookup failed")
		} else {
			form.ProviderName = pr.ProviderName
			form.ProviderType = pr.ProviderType
			setIf(&form.ProviderContact, pr.ProviderContact)
			setIf(&form.TaxID, pr.TaxID)
			form.Known.ProviderID = pr.ProviderID
		}
	}

	if order.InsuranceID != "" {
		ins, err := o.backend.InsuranceByCustomID(ctx, order.InsuranceID)
		if err != nil {
			o.logger.Warn().Err(err).Str("insurance_id", order.InsuranceID).Msg("insurance lookup failed")
		} else {
			form.Known.InsuranceID = ins.InsuranceID
			form.PayerName = firstNonBlank(ins.PayerName, ins.Name)
			setIf(&form.PayerID, ins.PayerID)
			setIf(&form.PayerAddress, ins.Address)
			setIf(&form.PayerContact, ins.PayerContact)
		}
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// SearchPatients looks patients up by name. Queries shorter than two
// characters, and backend failures, give an empty list.
func (o *Orchestrator) SearchPatients(ctx context.Context, query string) ([]upstream.PatientRecord, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchLength {
		return []upstream.PatientRecord{}, nil
	}

	patients, err := o.backend.SearchPatients(ctx, query)
	if err != nil {
		o.logger.Warn().Err(err).Str("query", query).Msg("patient search failed")
		return []upstream.PatientRecord{}, nil
	}
	return patients, nil
}

func (o *Orchestrator) ListSubmissions(ctx context.Context, sessionID string, params pagination.Params) (*SubmissionList, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	params.Validate()

	rows, total, err := o.ledger.List(ctx, sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return &SubmissionList{
		Submissions: rows,
		Pagination:  params.CalculateMeta(total),
	}, nil
}

func (o *Orchestrator) CurrentAssessment(ctx context.Context, sessionID string) (*AssessmentSnapshot, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	var a AssessmentSnapshot
	if !o.store.Read(ctx, sessionID, handoff.KeyCurrentAssessment, &a) {
		return nil, ErrAssessmentNotFound
	}
	return &a, nil
}
