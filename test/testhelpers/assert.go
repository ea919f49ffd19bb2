package testhelpers

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// AssertDecimalEqual compares decimals numerically, so "0.5" equals "0.50".
func AssertDecimalEqual(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) bool {
	t.Helper()
	want, err := decimal.NewFromString(expected)
	if err != nil {
		t.Fatalf("invalid expected decimal %q: %v", expected, err)
	}
	if !want.Equal(actual) {
		return assert.Fail(t, fmt.Sprintf("Not equal: \nexpected: %s\nactual  : %s", want, actual), msgAndArgs...)
	}
	return true
}
