package duckdb

import (
	"fmt"
	"strings"

	"github.com/operator-framework/cost-reporting/pkg/db"
)

type Row map[string]interface{}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QuoteIdentifier quotes a table or column name for use in DuckDB SQL.
func QuoteIdentifier(name string) string {
	return `"` + strings.Replace(name, `"`, `""`, -1) + `"`
}

// QuoteString quotes a value as a SQL string literal. It is used where
// DuckDB does not accept a prepared parameter, such as table function
// arguments.
func QuoteString(s string) string {
	return "'" + strings.Replace(s, "'", "''", -1) + "'"
}

// ReadParquetSQL returns the table function call reading the Parquet file(s) at path.
func ReadParquetSQL(path string) string {
	return fmt.Sprintf("read_parquet(%s)", QuoteString(path))
}

func CreateTableAs(execer db.Execer, tableName, query string, replace bool) error {
	create := "CREATE TABLE"
	if replace {
		create = "CREATE OR REPLACE TABLE"
	}
	_, err := execer.Exec(fmt.Sprintf("%s %s AS %s", create, QuoteIdentifier(tableName), query))
	return err
}

func DropTable(execer db.Execer, tableName string, ignoreNotExists bool) error {
	ifExists := ""
	if ignoreNotExists {
		ifExists = "IF EXISTS "
	}
	_, err := execer.Exec(fmt.Sprintf("DROP TABLE %s%s", ifExists, QuoteIdentifier(tableName)))
	return err
}

func RenameTable(execer db.Execer, from, to string) error {
	_, err := execer.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", QuoteIdentifier(from), QuoteIdentifier(to)))
	return err
}

// TableExists reports whether a base table named tableName exists in the
// main schema.
func TableExists(queryer db.Queryer, tableName string) (bool, error) {
	rows, err := queryer.Query("SELECT count(*) FROM information_schema.tables WHERE table_schema = 'main' AND table_name = ?", tableName)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, err
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return count > 0, nil
}

// QueryMetadata executes a "DESCRIBE" query against an existing table to
// determine its column information, in table order.
func QueryMetadata(queryer db.Queryer, tableName string) ([]Column, error) {
	rows, err := ExecuteSelect(queryer, fmt.Sprintf("DESCRIBE %s", QuoteIdentifier(tableName)))
	if err != nil {
		return nil, fmt.Errorf("failed to query the %s table's metadata: %v", tableName, err)
	}

	var cols []Column
	for _, row := range rows {
		colName, ok := row["column_name"].(string)
		if !ok {
			return nil, fmt.Errorf("failed to convert the column name to a string")
		}
		colType, ok := row["column_type"].(string)
		if !ok {
			return nil, fmt.Errorf("failed to convert the column type to a string")
		}
		cols = append(cols, Column{
			Name: colName,
			Type: colType,
		})
	}

	return cols, nil
}

// ExecuteSelect performs the query and returns every row keyed by column name.
func ExecuteSelect(queryer db.Queryer, query string, args ...interface{}) ([]Row, error) {
	rows, err := queryer.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Row
	for rows.Next() {
		// Create a slice of interface{}'s to represent each column,
		// and a second slice to contain pointers to each item in the columns slice.
		columns := make([]interface{}, len(cols))
		columnPointers := make([]interface{}, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		m := make(map[string]interface{})
		for i, colName := range cols {
			val := columnPointers[i].(*interface{})
			m[colName] = *val
		}
		results = append(results, Row(m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
