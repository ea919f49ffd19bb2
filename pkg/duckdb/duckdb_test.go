package duckdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = logrus.New()

func newTestConn(t *testing.T) *sql.DB {
	conn, err := NewDuckDBConnWithRetry(context.Background(), testLogger, "", time.Millisecond, 1)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestQuoting(t *testing.T) {
	tests := map[string]struct {
		fn       func(string) string
		input    string
		expected string
	}{
		"plain identifier": {
			fn:       QuoteIdentifier,
			input:    "billing_data",
			expected: `"billing_data"`,
		},
		"identifier with quotes": {
			fn:       QuoteIdentifier,
			input:    `bad"name`,
			expected: `"bad""name"`,
		},
		"string literal": {
			fn:       QuoteString,
			input:    "/data/cur.parquet",
			expected: `'/data/cur.parquet'`,
		},
		"string literal with quote": {
			fn:       QuoteString,
			input:    "/data/o'brien.parquet",
			expected: `'/data/o''brien.parquet'`,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fn(tt.input))
		})
	}
}

func TestTableLifecycle(t *testing.T) {
	conn := newTestConn(t)

	exists, err := TableExists(conn, "billing_data")
	require.NoError(t, err)
	assert.False(t, exists)

	err = CreateTableAs(conn, "billing_data_next", "SELECT 10.0::DOUBLE AS cost, 'AmazonS3' AS code", false)
	require.NoError(t, err)

	err = RenameTable(conn, "billing_data_next", "billing_data")
	require.NoError(t, err)

	exists, err = TableExists(conn, "billing_data")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = TableExists(conn, "billing_data_next")
	require.NoError(t, err)
	assert.False(t, exists)

	cols, err := QueryMetadata(conn, "billing_data")
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "cost", Type: "DOUBLE"}, {Name: "code", Type: "VARCHAR"}}, cols)

	rows, err := ExecuteSelect(conn, "SELECT code, cost FROM billing_data WHERE code = ?", "AmazonS3")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AmazonS3", rows[0]["code"])
	assert.Equal(t, 10.0, rows[0]["cost"])

	err = CreateTableAs(conn, "billing_data", "SELECT 1 AS x", true)
	require.NoError(t, err)
	cols, err = QueryMetadata(conn, "billing_data")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "x", cols[0].Name)

	require.NoError(t, DropTable(conn, "billing_data", false))
	require.NoError(t, DropTable(conn, "billing_data", true))
	assert.Error(t, DropTable(conn, "billing_data", false))
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "billing.duckdb")
	conn, err := NewDuckDBConnWithRetry(context.Background(), testLogger, path, time.Millisecond, 1)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, CreateTableAs(conn, "t", "SELECT 1 AS x", false))
	exists, err := TableExists(conn, "t")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpenCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDuckDBConnWithRetry(ctx, testLogger, "", time.Millisecond, 3)
	assert.Equal(t, context.Canceled, err)
}
