package discharge

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	nonCurrencyChars = regexp.MustCompile(`[^0-9.,-]`)
	leadingFloat     = regexp.MustCompile(`^-?(?:\d+\.?\d*|\.\d+)`)
)

// ParseCurrency extracts an amount from free text such as "R 17,950".
// Everything except digits, '.', ',' and '-' is dropped, thousands
// separators are removed and the longest leading decimal is parsed, so
// "1.2.3" yields 1.2. It reports false when no finite number is found.
func ParseCurrency(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	cleaned := nonCurrencyChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	prefix := leadingFloat.FindString(cleaned)
	if prefix == "" || prefix == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

const nbsp = '\u00a0'

var zaPrinter = message.NewPrinter(language.MustParse("en-ZA"))

// FormatRand renders an amount as whole South African rand, e.g. "R 17 950"
// with non-breaking spaces.
func FormatRand(v float64) string {
	rounded := math.Round(v)
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	digits := zaPrinter.Sprint(number.Decimal(rounded, number.MaxFractionDigits(0)))
	digits = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u202f', nbsp:
			return nbsp
		}
		return r
	}, digits)
	return sign + "R" + string(nbsp) + digits
}
