package billing

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/operator-framework/cost-reporting/pkg/db"
	"github.com/operator-framework/cost-reporting/pkg/discount"
	"github.com/operator-framework/cost-reporting/pkg/duckdb"
)

const (
	// TableName is the canonical table holding the usage line items of the
	// last ingested billing export.
	TableName = "billing_data"

	UnblendedCostColumnName = "Line_item_unblended_cost"
	ServiceCodeColumnName   = "Product_servicecode"
	LineItemTypeColumnName  = "Line_item_line_item_type"

	stagingTableName = "billing_data_staging"
	nextTableName    = "billing_data_next"
)

//go:generate mockgen -destination=mock/mock_store.go -package=mockbilling github.com/operator-framework/cost-reporting/pkg/billing Store

// Store ingests billing exports and answers cost aggregates over the
// usage line items of the most recent ingest.
type Store interface {
	// Ingest replaces the canonical table with the usage line items of the
	// Parquet file(s) at path.
	Ingest(path string) error
	UndiscountedCost(serviceCode string) (decimal.Decimal, error)
	// DiscountedCost applies rate to every line item of serviceCode. The
	// rate is not validated.
	DiscountedCost(serviceCode string, rate decimal.Decimal) (decimal.Decimal, error)
	BlendedDiscountRate() (decimal.Decimal, error)
	AllCosts() ([]ServiceCost, error)
	RowCount() (int64, error)
	Ping() error
	Close() error
}

// ServiceCost holds both aggregates of a single service.
type ServiceCost struct {
	ServiceCode      string          `json:"service_code"`
	UndiscountedCost decimal.Decimal `json:"undiscounted_cost"`
	DiscountedCost   decimal.Decimal `json:"discounted_cost"`
}

type Config struct {
	// DatabasePath is the DuckDB database file. Empty means in-memory.
	DatabasePath   string
	LogQueries     bool
	ConnBackoff    time.Duration
	MaxConnRetries int
}

// DuckDBStore is a Store backed by a single DuckDB database. Ingests hold
// an exclusive lock, queries share a read lock.
type DuckDBStore struct {
	logger     log.FieldLogger
	conn       *sql.DB
	queryer    db.ExecQueryer
	logQueries bool
	schedule   discount.Schedule
	queries    costQueries

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*DuckDBStore)(nil)

// Open connects to the database described by cfg and returns a store
// applying schedule to its discounted aggregates.
func Open(ctx context.Context, logger log.FieldLogger, cfg Config, schedule discount.Schedule) (*DuckDBStore, error) {
	conn, err := duckdb.NewDuckDBConnWithRetry(ctx, logger, cfg.DatabasePath, cfg.ConnBackoff, cfg.MaxConnRetries)
	if err != nil {
		return nil, err
	}
	store, err := NewDuckDBStore(logger, conn, schedule, cfg.LogQueries)
	if err != nil {
		conn.Close()
		return nil, err
	}
	// a previous process may have stopped during an ingest
	store.dropScratchTables(store.logger)
	return store, nil
}

// NewDuckDBStore returns a store using conn. The store owns conn and
// closes it on Close.
func NewDuckDBStore(logger log.FieldLogger, conn *sql.DB, schedule discount.Schedule, logQueries bool) (*DuckDBStore, error) {
	queries, err := renderCostQueries(schedule)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("component", "billingStore")
	return &DuckDBStore{
		logger:     logger,
		conn:       conn,
		queryer:    db.NewLoggingExecQueryer(conn, logger, logQueries),
		logQueries: logQueries,
		schedule:   schedule,
		queries:    queries,
	}, nil
}

// Schedule returns the discount schedule applied by the store.
func (s *DuckDBStore) Schedule() discount.Schedule {
	return s.schedule
}

// Ping checks the database is reachable.
func (s *DuckDBStore) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.conn.Ping()
}

// Close releases the database. Calling Close more than once is a no-op.
func (s *DuckDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debugf("closing billing store")
	return s.conn.Close()
}
