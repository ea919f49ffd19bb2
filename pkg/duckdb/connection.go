package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"
)

// DriverName is the database/sql driver registered by go-duckdb.
const DriverName = "duckdb"

// NewDuckDBConnWithRetry opens the DuckDB database file at path, creating its
// parent directory if needed. An empty path opens an in-memory database.
// Opening is retried with exponential backoff because DuckDB holds an
// exclusive lock on the file while another process has it open.
func NewDuckDBConnWithRetry(ctx context.Context, logger log.FieldLogger, path string, connBackoff time.Duration, maxRetries int) (*sql.DB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("unable to create directory for database %s: %v", path, err)
		}
	}

	var db *sql.DB
	backoff := wait.Backoff{
		Duration: connBackoff,
		Factor:   1.25,
		Steps:    maxRetries,
	}
	cond := func() (bool, error) {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}
		var err error
		db, err = sql.Open(DriverName, path)
		if err == nil {
			err = db.Ping()
			if err == nil {
				return true, nil
			}
			db.Close()
		}
		logger.WithError(err).Debugf("error encountered opening %q, backing off and trying again: %v", path, err)
		return false, nil
	}
	err := wait.ExponentialBackoff(backoff, cond)
	if err != nil {
		if err == wait.ErrWaitTimeout {
			return nil, fmt.Errorf("timed out while waiting to open duckdb database %q", path)
		}
		return nil, err
	}

	return db, nil
}
