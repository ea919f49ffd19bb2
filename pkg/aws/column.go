package aws

import (
	"strings"
	"unicode"
)

// Line item types found in the lineItem/LineItemType column of a Cost and
// Usage Report.
const (
	LineItemTypeUsage           = "Usage"
	LineItemTypeTax             = "Tax"
	LineItemTypeFee             = "Fee"
	LineItemTypeCredit          = "Credit"
	LineItemTypeRefund          = "Refund"
	LineItemTypeDiscountedUsage = "DiscountedUsage"
)

// Column is a description of a field from an AWS Cost and Usage Report.
type Column struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

var (
	UnblendedCostColumn = Column{Category: "lineItem", Name: "UnblendedCost"}
	LineItemTypeColumn  = Column{Category: "lineItem", Name: "LineItemType"}
	ServiceCodeColumn   = Column{Category: "product", Name: "servicecode"}
)

// MatchKey is the identity of the column used when resolving it against the
// columns of an ingested file.
func (c Column) MatchKey() string {
	return MatchKey(c.Category + c.Name)
}

// MatchKey reduces a column name to lower-case letters and digits, so that
// "lineItem/UnblendedCost", "line_item_unblended_cost" and
// "Line_item_unblended_cost" are considered the same column.
func MatchKey(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Columns are a set of AWS Usage columns.
type Columns []Column

// Resolve finds the first of names matching each wanted column. The result
// maps each wanted column's MatchKey to the matching name. Wanted columns
// without a match are returned in missing.
func (cols Columns) Resolve(names []string) (found map[string]string, missing Columns) {
	byKey := make(map[string]string, len(names))
	for _, name := range names {
		key := MatchKey(name)
		if _, exists := byKey[key]; !exists {
			byKey[key] = name
		}
	}

	found = make(map[string]string, len(cols))
	for _, c := range cols {
		if name, ok := byKey[c.MatchKey()]; ok {
			found[c.MatchKey()] = name
		} else {
			missing = append(missing, c)
		}
	}
	return found, missing
}

func (cols Columns) String() string {
	s := make([]string, len(cols))
	for i, c := range cols {
		s[i] = c.Category + "/" + c.Name
	}
	return strings.Join(s, ", ")
}
