package preauth

import (
	"strings"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/upstream"
)

type Step string

const (
	StepOrder         Step = "order"
	StepPatient       Step = "patient"
	StepProvider      Step = "provider"
	StepInsurance     Step = "insurance"
	StepAuthorization Step = "authorization"
)

// Step order of each run kind.
var (
	draftSteps  = []Step{StepOrder, StepPatient, StepProvider, StepInsurance}
	submitSteps = []Step{StepPatient, StepProvider, StepInsurance, StepAuthorization}
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Outcome is the result of one backend call. A call that failed, or
// answered without an identifier, leaves ID empty.
type Outcome struct {
	Step   Step
	Action Action
	ID     upstream.ID
	Err    error
}

// OutcomeRecord is the JSON form of an Outcome.
type OutcomeRecord struct {
	Step   Step        `json:"step"`
	Action Action      `json:"action"`
	ID     upstream.ID `json:"id"`
	Error  string      `json:"error,omitempty"`
}

func (o Outcome) Record() OutcomeRecord {
	r := OutcomeRecord{Step: o.Step, Action: o.Action, ID: o.ID}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

type Outcomes []Outcome

func (os Outcomes) attempts(step Step) []Outcome {
	var out []Outcome
	for _, o := range os {
		if o.Step == step {
			out = append(out, o)
		}
	}
	return out
}

// ID returns the last identifier a step produced.
func (os Outcomes) ID(step Step) upstream.ID {
	for i := len(os) - 1; i >= 0; i-- {
		if os[i].Step == step && os[i].ID != "" {
			return os[i].ID
		}
	}
	return ""
}

// Succeeded reports whether the last attempt of step returned without error.
func (os Outcomes) Succeeded(step Step) bool {
	attempts := os.attempts(step)
	return len(attempts) > 0 && attempts[len(attempts)-1].Err == nil
}

// Failed lists the steps whose calls errored, in order, once each.
func (os Outcomes) Failed() []string {
	failed := []string{}
	seen := map[Step]bool{}
	for _, o := range os {
		if o.Err != nil && !seen[o.Step] {
			seen[o.Step] = true
			failed = append(failed, string(o.Step))
		}
	}
	return failed
}

func (os Outcomes) Records() []OutcomeRecord {
	out := make([]OutcomeRecord, 0, len(os))
	for _, o := range os {
		out = append(out, o.Record())
	}
	return out
}

// Resolve is the identifier a step ends up with on submit: the one it
// produced, else the one already known.
func Resolve(step Step, form Form, outcomes Outcomes) upstream.ID {
	if id := outcomes.ID(step); id != "" {
		return id
	}
	switch step {
	case StepPatient:
		return form.Known.PatientID
	case StepProvider:
		return form.Known.ProviderID
	case StepInsurance:
		return form.Known.InsuranceID
	case StepOrder:
		return form.Known.OrderID
	}
	return ""
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Decide returns the next call of a submit step given the outcomes so far.
// It is called repeatedly until it answers ActionSkip, which lets a failed
// patient update fall through to a create.
func Decide(step Step, form Form, outcomes Outcomes) Action {
	attempts := outcomes.attempts(step)
	if outcomes.ID(step) != "" {
		return ActionSkip
	}

	switch step {
	case StepPatient:
		if len(attempts) == 0 {
			if !blank(form.PatientID) {
				return ActionUpdate
			}
			if form.Known.PatientID != "" {
				return ActionSkip
			}
			if !blank(form.PatientName) {
				return ActionCreate
			}
			return ActionSkip
		}
		last := attempts[len(attempts)-1]
		if last.Action == ActionUpdate && last.Err != nil && !blank(form.PatientName) {
			return ActionCreate
		}

	case StepProvider:
		if len(attempts) == 0 {
			if form.Known.ProviderID != "" {
				if !blank(form.ProviderNPI) {
					return ActionUpdate
				}
				return ActionSkip
			}
			if !blank(form.ProviderName) && !blank(form.ProviderNPI) {
				return ActionCreate
			}
		}

	case StepInsurance:
		if len(attempts) == 0 {
			if !blank(form.InsuranceID) {
				return ActionUpdate
			}
			if form.Known.InsuranceID != "" {
				return ActionSkip
			}
			if !blank(form.PayerName) {
				return ActionCreate
			}
		}

	case StepAuthorization:
		if len(attempts) == 0 &&
			Resolve(StepProvider, form, outcomes) != "" &&
			Resolve(StepInsurance, form, outcomes) != "" {
			return ActionCreate
		}
	}
	return ActionSkip
}

// DecideDraft returns the call of a draft step. Draft steps are creates
// attempted at most once.
func DecideDraft(step Step, form Form, outcomes Outcomes) Action {
	if len(outcomes.attempts(step)) > 0 {
		return ActionSkip
	}

	var proceed bool
	switch step {
	case StepOrder:
		proceed = true
	case StepPatient:
		proceed = !blank(form.PatientName) || !blank(form.DateOfBirth) || !blank(form.InjuryDate)
	case StepProvider:
		proceed = !blank(form.ProviderName) || !blank(form.ProviderNPI)
	case StepInsurance:
		proceed = !blank(form.PayerName) || !blank(form.PayerID)
	}
	if proceed {
		return ActionCreate
	}
	return ActionSkip
}
