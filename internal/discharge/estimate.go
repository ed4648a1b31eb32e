package discharge

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultSessionsPerWeek = 2
	defaultTherapyWeeks    = 8

	occupationalSessionRate = 620
	therapySessionRate      = 650
)

var (
	sessionsPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:x|times)\s*(?:/|per)?\s*week`)
	weeksPattern    = regexp.MustCompile(`(?i)(\d+)\s*weeks?`)
)

// caregiverRates are checked in order against the lower-cased tier text.
var caregiverRates = []struct {
	match string
	rate  float64
}{
	{"full", 5200},
	{"part", 3400},
	{"visit", 2200},
}

const defaultCaregiverRate = 2800

// EquipmentTotal prefers the reported aggregate when it parses. Otherwise it
// sums the device costs that parse, skipping the rest. Nil means no cost
// could be determined.
func EquipmentTotal(devices []Device, reportedTotal *string) *float64 {
	if reportedTotal != nil {
		if v, ok := ParseCurrency(*reportedTotal); ok {
			return &v
		}
	}

	var total float64
	counted := false
	for _, d := range devices {
		if d.Cost == nil {
			continue
		}
		if v, ok := ParseCurrency(*d.Cost); ok {
			total += v
			counted = true
		}
	}
	if !counted {
		return nil
	}
	return &total
}

// RehabilitationCost estimates therapy cost from descriptors such as
// "Physiotherapy - 3x/week for 12 weeks". Missing frequency defaults to 2
// sessions a week and missing duration to 8 weeks.
func RehabilitationCost(therapies []string) *float64 {
	if len(therapies) == 0 {
		return nil
	}

	var total float64
	counted := false
	for _, therapy := range therapies {
		sessions, ok := captureCount(sessionsPattern, therapy, defaultSessionsPerWeek)
		if !ok {
			continue
		}
		weeks, ok := captureCount(weeksPattern, therapy, defaultTherapyWeeks)
		if !ok {
			continue
		}
		rate := float64(therapySessionRate)
		if strings.Contains(strings.ToLower(therapy), "occupational") {
			rate = occupationalSessionRate
		}
		total += sessions * weeks * rate
		counted = true
	}
	if !counted {
		return nil
	}
	return &total
}

// captureCount reads the digits captured by re as a float, so counts
// beyond the int range still price. Only a non-finite count is rejected.
func captureCount(re *regexp.Regexp, s string, def int) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return float64(def), true
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// CaregiverCost multiplies the weekly rate of the tier by the duration.
// Nil when the tier is empty or the duration is unknown or zero.
func CaregiverCost(tier string, weeks *int) *float64 {
	if tier == "" || weeks == nil || *weeks == 0 {
		return nil
	}

	rate := float64(defaultCaregiverRate)
	lower := strings.ToLower(tier)
	for _, r := range caregiverRates {
		if strings.Contains(lower, r.match) {
			rate = r.rate
			break
		}
	}
	total := rate * float64(*weeks)
	return &total
}

// EstimateTotal sums the sub-estimates that could be computed. Nil only when
// none could.
func EstimateTotal(devices []Device, reportedTotal *string, therapies []string, tier string, weeks *int) *float64 {
	return sum(
		EquipmentTotal(devices, reportedTotal),
		RehabilitationCost(therapies),
		CaregiverCost(tier, weeks),
	)
}

func sum(parts ...*float64) *float64 {
	var total float64
	counted := false
	for _, p := range parts {
		if p != nil {
			total += *p
			counted = true
		}
	}
	if !counted {
		return nil
	}
	return &total
}

// Estimate computes the full cost breakdown of a plan with display strings.
// The equipment display falls back to the reported total text, then "R 0";
// the others fall back to "N/A".
func Estimate(plan Plan) Breakdown {
	equipment := EquipmentTotal(plan.Devices.Devices, plan.Devices.TotalEquipmentCost)
	rehab := RehabilitationCost(plan.Rehabilitation.TherapyTypes)
	caregiver := CaregiverCost(plan.Caregiver.Requirement, plan.Caregiver.DurationWeeks)
	total := sum(equipment, rehab, caregiver)

	b := Breakdown{
		Equipment:             equipment,
		Rehabilitation:        rehab,
		Caregiver:             caregiver,
		Total:                 total,
		RehabilitationDisplay: displayOr(rehab, "N/A"),
		CaregiverDisplay:      displayOr(caregiver, "N/A"),
		TotalDisplay:          displayOr(total, "N/A"),
	}

	fallback := "R 0"
	if r := plan.Devices.TotalEquipmentCost; r != nil && *r != "" {
		fallback = *r
	}
	b.EquipmentDisplay = displayOr(equipment, fallback)
	return b
}

func displayOr(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return FormatRand(*v)
}
