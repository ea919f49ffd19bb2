package billing

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/operator-framework/cost-reporting/pkg/aws"
	"github.com/operator-framework/cost-reporting/pkg/db"
	"github.com/operator-framework/cost-reporting/pkg/duckdb"
)

type canonicalColumn struct {
	column  aws.Column
	name    string
	sqlType string
}

var canonicalColumns = []canonicalColumn{
	{column: aws.UnblendedCostColumn, name: UnblendedCostColumnName, sqlType: "DOUBLE"},
	{column: aws.ServiceCodeColumn, name: ServiceCodeColumnName, sqlType: "VARCHAR"},
	{column: aws.LineItemTypeColumn, name: LineItemTypeColumnName, sqlType: "VARCHAR"},
}

func requiredColumns() aws.Columns {
	cols := make(aws.Columns, len(canonicalColumns))
	for i, c := range canonicalColumns {
		cols[i] = c.column
	}
	return cols
}

// Ingest loads the billing export at path and replaces the canonical table
// with its usage line items. On failure the canonical table is unchanged.
func (s *DuckDBStore) Ingest(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.WithField("path", path)
	ingestsTotalCounter.Inc()
	start := time.Now()
	rows, err := s.ingest(logger, path)
	ingestDurationHistogram.Observe(time.Since(start).Seconds())
	if err != nil {
		ingestsFailedCounter.Inc()
		logger.WithError(err).Errorf("error ingesting billing export")
		return &IngestError{Path: path, Err: err}
	}

	billingRowsGauge.Set(float64(rows))
	logger.Infof("ingested %d usage line items in %s", rows, time.Since(start))
	return nil
}

func (s *DuckDBStore) ingest(logger log.FieldLogger, path string) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if path == "" {
		return 0, fmt.Errorf("path must not be empty")
	}
	if isLocalFile(path) {
		info, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		if info.IsDir() {
			return 0, fmt.Errorf("%s is a directory", path)
		}
	}

	s.dropScratchTables(logger)
	defer s.dropScratchTables(logger)

	logger.Debugf("loading billing export into %s", stagingTableName)
	err := duckdb.CreateTableAs(s.queryer, stagingTableName, "SELECT * FROM "+duckdb.ReadParquetSQL(path), true)
	if err != nil {
		return 0, fmt.Errorf("unable to read billing export: %v", err)
	}

	cols, err := duckdb.QueryMetadata(s.queryer, stagingTableName)
	if err != nil {
		return 0, err
	}
	query, err := usageProjectionQuery(logger, cols)
	if err != nil {
		return 0, err
	}
	if err := duckdb.CreateTableAs(s.queryer, nextTableName, query, true); err != nil {
		return 0, fmt.Errorf("unable to create table %s: %v", nextTableName, err)
	}
	if err := s.swapCanonicalTable(); err != nil {
		return 0, fmt.Errorf("unable to replace table %s: %v", TableName, err)
	}

	rows, err := s.rowCount()
	if err != nil {
		logger.WithError(err).Warnf("unable to count the rows of %s", TableName)
	}
	return rows, nil
}

// usageProjectionQuery returns the query selecting the usage line items of
// the staging table, with the required columns given their canonical names
// and types.
func usageProjectionQuery(logger log.FieldLogger, cols []duckdb.Column) (string, error) {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	found, missing := requiredColumns().Resolve(names)
	if len(missing) != 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingColumns, missing)
	}

	bySource := make(map[string]canonicalColumn, len(canonicalColumns))
	requiredKeys := make(map[string]struct{}, len(canonicalColumns))
	for _, c := range canonicalColumns {
		bySource[found[c.column.MatchKey()]] = c
		requiredKeys[c.column.MatchKey()] = struct{}{}
	}

	tmplCtx := &projectionTemplateContext{
		Table:              stagingTableName,
		LineItemTypeColumn: found[aws.LineItemTypeColumn.MatchKey()],
		LineItemType:       aws.LineItemTypeUsage,
	}
	for _, col := range cols {
		if c, ok := bySource[col.Name]; ok {
			tmplCtx.Columns = append(tmplCtx.Columns, projectedColumn{Source: col.Name, Target: c.name, Cast: c.sqlType})
			continue
		}
		if _, ok := requiredKeys[aws.MatchKey(col.Name)]; ok {
			logger.Warnf("ignoring column %q, it duplicates a required column", col.Name)
			continue
		}
		tmplCtx.Columns = append(tmplCtx.Columns, projectedColumn{Source: col.Name})
	}
	return renderUsageProjection(tmplCtx)
}

// swapCanonicalTable replaces the canonical table with the next table in a
// single transaction, so queries see either the old or the new table.
func (s *DuckDBStore) swapCanonicalTable() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	execer := db.NewLoggingExecer(tx, s.logger, s.logQueries)
	if err := duckdb.DropTable(execer, TableName, true); err != nil {
		tx.Rollback()
		return err
	}
	if err := duckdb.RenameTable(execer, nextTableName, TableName); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *DuckDBStore) dropScratchTables(logger log.FieldLogger) {
	for _, table := range []string{stagingTableName, nextTableName} {
		if err := duckdb.DropTable(s.queryer, table, true); err != nil {
			logger.WithError(err).Warnf("unable to drop table %s", table)
		}
	}
}

// isLocalFile reports whether path names a single local file, rather than a
// glob or a remote location DuckDB resolves itself.
func isLocalFile(path string) bool {
	return !strings.ContainsAny(path, "*?[") && !strings.Contains(path, "://")
}
