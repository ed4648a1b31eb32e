package discharge

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDeviceName     = "Assistive device"
	defaultApprovalStatus = "Pending"
	defaultDisposition    = "Home"
	defaultRequirement    = "none"

	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

var (
	plainDate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	leadingInteger = regexp.MustCompile(`^\s*([+-]?\d+)`)
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// NormalizePlan coerces a loosely typed plan from the generator into a Plan.
// It never fails: missing sections become empty, strings are trimmed, empty
// list entries dropped and the documented defaults applied.
func NormalizePlan(raw map[string]any) Plan {
	return normalizePlanAt(raw, time.Now())
}

func normalizePlanAt(raw map[string]any, now time.Time) Plan {
	summary := object(raw["discharge_summary"])
	devices := object(raw["assistive_devices"])
	rehab := object(raw["rehabilitation_plan"])
	caregiver := object(raw["caregiver_referral"])

	plan := Plan{
		Summary: Summary{
			PrimaryDiagnosis:     trimmed(summary["primary_diagnosis"]),
			SecondaryDiagnoses:   stringList(summary["secondary_diagnoses"]),
			TreatmentSummary:     trimmed(summary["treatment_summary"]),
			DischargeDate:        normalizeDate(summary["discharge_date"]),
			DischargeDisposition: orDefault(trimmed(summary["discharge_disposition"]), defaultDisposition),
		},
		Devices: AssistiveDevices{
			Devices:            deviceList(devices["devices"]),
			TotalEquipmentCost: optionalString(devices["total_equipment_cost"], true),
		},
		Rehabilitation: Rehabilitation{
			TherapyTypes: stringList(rehab["therapy_types"]),
			TherapyGoals: trimmed(rehab["therapy_goals"]),
			Provider:     optionalString(rehab["provider"], false),
			StartDate:    normalizeDate(rehab["start_date"]),
		},
		Caregiver: CaregiverReferral{
			Requirement:         orDefault(trimmed(caregiver["caregiver_requirement"]), defaultRequirement),
			DurationWeeks:       durationWeeks(caregiver["duration_weeks"]),
			CareRequirements:    stringList(caregiver["care_requirements"]),
			SpecialInstructions: optionalString(caregiver["special_instructions"], false),
		},
		GeneratedAt: normalizeDateTime(raw["generated_at"], now),
		PatientID:   trimmed(raw["patient_id"]),
	}
	return plan
}

func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// text renders scalar JSON values as strings. Nil, objects and arrays
// yield "".
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func trimmed(v any) string {
	return strings.TrimSpace(text(v))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// optionalString returns nil for absent or blank values. With stringOnly,
// non-string values are treated as absent.
func optionalString(v any, stringOnly bool) *string {
	if v == nil {
		return nil
	}
	if _, ok := v.(string); stringOnly && !ok {
		return nil
	}
	s := trimmed(v)
	if s == "" {
		return nil
	}
	return &s
}

func stringList(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s := trimmed(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deviceList(v any) []Device {
	out := []Device{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Device{
			Name:           orDefault(trimmed(entry["name"]), defaultDeviceName),
			Code:           optionalString(entry["code"], false),
			Cost:           optionalString(entry["cost"], false),
			ApprovalStatus: orDefault(trimmed(entry["approval_status"]), defaultApprovalStatus),
		})
	}
	return out
}

// durationWeeks accepts a finite number (truncated) or a string starting
// with an integer. Negative values clamp to zero, huge ones to MaxInt32.
func durationWeeks(v any) *int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		m := leadingInteger.FindStringSubmatch(t)
		if m == nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := clampWeeks(f)
	return &n
}

// clampWeeks truncates f into [0, MaxInt32] before converting.
func clampWeeks(f float64) int {
	switch {
	case f <= 0:
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(math.Trunc(f))
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDate reduces a date or timestamp to YYYY-MM-DD, nil when it
// cannot be parsed.
func normalizeDate(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if plainDate.MatchString(s) {
		return &s
	}
	t, ok := parseTime(s)
	if !ok {
		return nil
	}
	d := t.UTC().Format("2006-01-02")
	return &d
}

func normalizeDateTime(v any, now time.Time) string {
	if s, ok := v.(string); ok {
		if t, ok := parseTime(strings.TrimSpace(s)); ok {
			return t.UTC().Format(isoMillis)
		}
		if plainDate.MatchString(strings.TrimSpace(s)) {
			t, _ := time.Parse("2006-01-02", strings.TrimSpace(s))
			return t.UTC().Format(isoMillis)
		}
	}
	return now.UTC().Format(isoMillis)
}
