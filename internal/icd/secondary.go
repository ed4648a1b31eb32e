package icd

import "strings"

// Codes appended to every derived secondary list: dependency on care provider
// and unspecified health status.
const (
	CodeCareDependency    = "Z74.09"
	CodeHealthStatusOther = "Z78.9"
)

type injuryCode struct {
	keyword string
	code    string
}

// injuryCodes is ordered; derived lists follow this order.
var injuryCodes = []injuryCode{
	{"fracture", "S72.001"},
	{"brain", "S06.9"},
	{"spinal", "S14.109"},
	{"amputation", "S88.919"},
	{"burns", "T30.0"},
	{"stroke", "I63.9"},
	{"amenorrhea", "N91.0"},
	{"trauma", "T14.90"},
}

// DeriveSecondary maps an injury description onto likely secondary diagnosis
// codes, excluding the primary code.
func DeriveSecondary(injuryType, primary string) []string {
	normalized := strings.ToLower(injuryType)
	seen := make(map[string]struct{})
	var codes []string
	add := func(code string) {
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	for _, ic := range injuryCodes {
		if strings.Contains(normalized, ic.keyword) && ic.code != primary {
			add(ic.code)
		}
	}
	add(CodeCareDependency)
	add(CodeHealthStatusOther)
	return codes
}

// FilterSecondary splits a comma separated list and keeps the canonical codes
// that differ from primary.
func FilterSecondary(csv, primary string) []string {
	codes := []string{}
	for _, part := range strings.Split(csv, ",") {
		code := strings.TrimSpace(part)
		if Valid(code) && code != primary {
			codes = append(codes, code)
		}
	}
	return codes
}
