package db

import (
	"database/sql"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	queries []string
	execs   []string
}

func (f *fakeConn) Query(query string, args ...interface{}) (*sql.Rows, error) {
	f.queries = append(f.queries, query)
	return nil, nil
}

func (f *fakeConn) Exec(query string, args ...interface{}) (sql.Result, error) {
	f.execs = append(f.execs, query)
	return nil, nil
}

func TestArgsString(t *testing.T) {
	tests := map[string]struct {
		args     []interface{}
		expected string
	}{
		"no args": {
			expected: "",
		},
		"strings are quoted": {
			args:     []interface{}{"AmazonS3"},
			expected: `1:"AmazonS3"`,
		},
		"mixed args are numbered": {
			args:     []interface{}{0.88, "AmazonS3", []byte("x")},
			expected: `1:0.88 2:"AmazonS3" 3:"x"`,
		},
		"valuers are unwrapped": {
			args:     []interface{}{sql.NullString{String: "Usage", Valid: true}},
			expected: `1:"Usage"`,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, argsString(tt.args...))
		})
	}
}

func TestLoggingExecQueryer(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	conn := &fakeConn{}
	wrapped := NewLoggingExecQueryer(conn, logger, true)

	_, err := wrapped.Query("SELECT SUM(cost)\n  FROM billing_data\n  WHERE code = ?", "AmazonS3")
	require.NoError(t, err)
	_, err = wrapped.Exec("DROP TABLE IF EXISTS billing_data_staging")
	require.NoError(t, err)

	assert.Len(t, conn.queries, 1)
	assert.Len(t, conn.execs, 1)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, `QUERY: SELECT SUM(cost) FROM billing_data WHERE code = ? [1:"AmazonS3"]`, entries[0].Message)
	assert.Equal(t, "EXEC: DROP TABLE IF EXISTS billing_data_staging []", entries[1].Message)
}

func TestLoggingDisabled(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	conn := &fakeConn{}
	wrapped := NewLoggingExecQueryer(conn, logger, false)
	_, _ = wrapped.Query("SELECT 1")
	_, _ = wrapped.Exec("SELECT 1")

	assert.Empty(t, hook.AllEntries())
	assert.Len(t, conn.queries, 1)
	assert.Len(t, conn.execs, 1)
}
