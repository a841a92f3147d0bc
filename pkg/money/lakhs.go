// Package money converts between the units dealers type and the whole-rupee
// amounts stored on deals.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RupeesPerLakh is the number of rupees in one lakh.
const RupeesPerLakh = 100_000

var lakh = decimal.NewFromInt(RupeesPerLakh)

// LakhsToRupees converts a decimal lakh string such as "9.5" into whole rupees.
// Input finer than one rupee (more than five lakh decimals that are not zero)
// is rejected.
func LakhsToRupees(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("amount is required")
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not numeric", value)
	}
	rupees := parsed.Mul(lakh)
	if !rupees.Equal(rupees.Truncate(0)) {
		return 0, fmt.Errorf("amount %q is finer than one rupee", value)
	}
	if !rupees.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	if !rupees.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q is too large", value)
	}
	return rupees.IntPart(), nil
}

// RupeesToLakhs renders rupees as lakhs with two decimal places.
func RupeesToLakhs(rupees int64) string {
	return decimal.NewFromInt(rupees).Div(lakh).StringFixed(2)
}

// PercentDelta returns (value-reference)/reference as a percentage rounded to
// one decimal place. A zero reference yields zero.
func PercentDelta(value, reference int64) decimal.Decimal {
	if reference == 0 {
		return decimal.Zero
	}
	diff := decimal.NewFromInt(value - reference)
	return diff.Div(decimal.NewFromInt(reference)).Mul(decimal.NewFromInt(100)).Round(1)
}

// FormatINR renders rupees with Indian digit grouping, e.g. ₹9,50,000.
func FormatINR(rupees int64) string {
	sign := ""
	if rupees < 0 {
		sign = "-"
		rupees = -rupees
	}
	digits := fmt.Sprintf("%d", rupees)
	if len(digits) <= 3 {
		return sign + "₹" + digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}
