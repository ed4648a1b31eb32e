// Package icd validates and reshapes free-text diagnosis codes into canonical
// ICD-10 form before they are sent to downstream services.
package icd

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	canonicalPattern = regexp.MustCompile(`^[A-Z][0-9]{2}(\.[A-Z0-9]{1,4})?$`)
	undottedPattern  = regexp.MustCompile(`^[A-Z][0-9]{3,6}$`)
)

// Valid reports whether code is already in canonical ICD-10 form (e.g. S72.001).
func Valid(code string) bool {
	return canonicalPattern.MatchString(code)
}

// Normalize derives a canonical ICD-10 code from raw text. The boolean is false
// when no valid code could be derived.
func Normalize(raw string) (string, bool) {
	compact := strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))
	if compact == "" {
		return "", false
	}
	if Valid(compact) {
		return compact, true
	}

	alphanumeric := strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, compact)
	if Valid(alphanumeric) {
		return alphanumeric, true
	}

	// Missing separator: letter + two digits, then the subcategory.
	if undottedPattern.MatchString(alphanumeric) {
		candidate := alphanumeric[:3] + "." + alphanumeric[3:]
		if Valid(candidate) {
			return candidate, true
		}
	}

	return "", false
}
