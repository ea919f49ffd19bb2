package testhelpers

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/operator-framework/cost-reporting/pkg/duckdb"
)

// ExportColumns names the required columns of a fixture export.
type ExportColumns struct {
	UnblendedCost string
	ServiceCode   string
	LineItemType  string
}

var (
	// CURColumns are the column names used by AWS Cost and Usage Reports.
	CURColumns = ExportColumns{
		UnblendedCost: "lineItem/UnblendedCost",
		ServiceCode:   "product/servicecode",
		LineItemType:  "lineItem/LineItemType",
	}

	// CanonicalColumns are the column names of the billing table.
	CanonicalColumns = ExportColumns{
		UnblendedCost: "Line_item_unblended_cost",
		ServiceCode:   "Product_servicecode",
		LineItemType:  "Line_item_line_item_type",
	}
)

// UsageAccountColumn is an extra column written to every fixture.
const UsageAccountColumn = "lineItem/UsageAccountId"

type LineItem struct {
	UnblendedCost float64
	ServiceCode   string
	LineItemType  string
	AccountID     string
}

// Usage returns a usage line item of serviceCode.
func Usage(serviceCode string, cost float64) LineItem {
	return LineItem{UnblendedCost: cost, ServiceCode: serviceCode, LineItemType: "Usage", AccountID: "123456789012"}
}

// WriteParquet writes items to a Parquet file at path using cols as the
// names of the required columns.
func WriteParquet(t *testing.T, path string, cols ExportColumns, items []LineItem) {
	t.Helper()
	conn := openFixtureDB(t)
	defer conn.Close()

	_, err := conn.Exec(fmt.Sprintf("CREATE TABLE fixture (%s DOUBLE, %s VARCHAR, %s VARCHAR, %s VARCHAR)",
		duckdb.QuoteIdentifier(cols.UnblendedCost),
		duckdb.QuoteIdentifier(cols.ServiceCode),
		duckdb.QuoteIdentifier(cols.LineItemType),
		duckdb.QuoteIdentifier(UsageAccountColumn),
	))
	require.NoError(t, err)
	for _, item := range items {
		_, err := conn.Exec("INSERT INTO fixture VALUES (?, ?, ?, ?)", item.UnblendedCost, item.ServiceCode, item.LineItemType, item.AccountID)
		require.NoError(t, err)
	}
	copyToParquet(t, conn, "SELECT * FROM fixture", path)
}

// WriteParquetQuery writes the result of query to a Parquet file at path.
func WriteParquetQuery(t *testing.T, path, query string) {
	t.Helper()
	conn := openFixtureDB(t)
	defer conn.Close()
	copyToParquet(t, conn, query, path)
}

func openFixtureDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open(duckdb.DriverName, "")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	return conn
}

func copyToParquet(t *testing.T, conn *sql.DB, query, path string) {
	t.Helper()
	_, err := conn.Exec(fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET)", query, duckdb.QuoteString(path)))
	require.NoError(t, err, "unable to write parquet fixture %s", path)
}
