package aws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKey(t *testing.T) {
	tests := map[string]struct {
		names []string
		key   string
	}{
		"unblended cost": {
			names: []string{"lineItem/UnblendedCost", "line_item_unblended_cost", "Line_item_unblended_cost", "LINE_ITEM_UNBLENDED_COST"},
			key:   UnblendedCostColumn.MatchKey(),
		},
		"service code": {
			names: []string{"product/servicecode", "product_servicecode", "Product_servicecode", "product.ServiceCode"},
			key:   ServiceCodeColumn.MatchKey(),
		},
		"line item type": {
			names: []string{"lineItem/LineItemType", "line_item_line_item_type", "Line_item_line_item_type"},
			key:   LineItemTypeColumn.MatchKey(),
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			for _, n := range tt.names {
				assert.Equal(t, tt.key, MatchKey(n), "column %q", n)
			}
		})
	}
}

func TestColumnsResolve(t *testing.T) {
	required := Columns{UnblendedCostColumn, ServiceCodeColumn, LineItemTypeColumn}

	tests := map[string]struct {
		names           []string
		expectedFound   map[string]string
		expectedMissing Columns
	}{
		"cost and usage report names": {
			names: []string{"identity_line_item_id", "Line_item_unblended_cost", "Product_servicecode", "Line_item_line_item_type"},
			expectedFound: map[string]string{
				UnblendedCostColumn.MatchKey(): "Line_item_unblended_cost",
				ServiceCodeColumn.MatchKey():   "Product_servicecode",
				LineItemTypeColumn.MatchKey():  "Line_item_line_item_type",
			},
		},
		"CUR header names": {
			names: []string{"lineItem/UnblendedCost", "product/servicecode", "lineItem/LineItemType"},
			expectedFound: map[string]string{
				UnblendedCostColumn.MatchKey(): "lineItem/UnblendedCost",
				ServiceCodeColumn.MatchKey():   "product/servicecode",
				LineItemTypeColumn.MatchKey():  "lineItem/LineItemType",
			},
		},
		"first duplicate wins": {
			names: []string{"line_item_unblended_cost", "lineItem/UnblendedCost", "product_servicecode", "line_item_line_item_type"},
			expectedFound: map[string]string{
				UnblendedCostColumn.MatchKey(): "line_item_unblended_cost",
				ServiceCodeColumn.MatchKey():   "product_servicecode",
				LineItemTypeColumn.MatchKey():  "line_item_line_item_type",
			},
		},
		"missing columns are reported": {
			names: []string{"line_item_unblended_cost"},
			expectedFound: map[string]string{
				UnblendedCostColumn.MatchKey(): "line_item_unblended_cost",
			},
			expectedMissing: Columns{ServiceCodeColumn, LineItemTypeColumn},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			found, missing := required.Resolve(tt.names)
			assert.Equal(t, tt.expectedFound, found)
			assert.Equal(t, tt.expectedMissing, missing)
		})
	}
}

func TestColumnsString(t *testing.T) {
	cols := Columns{ServiceCodeColumn, LineItemTypeColumn}
	assert.Equal(t, "product/servicecode, lineItem/LineItemType", cols.String())
}
