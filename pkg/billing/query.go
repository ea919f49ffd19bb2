package billing

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/operator-framework/cost-reporting/pkg/duckdb"
)

const (
	costPlaces = 2
	ratePlaces = 4
)

// UndiscountedCost returns the total unblended cost of serviceCode. Service
// codes are matched exactly. A service without line items costs 0.
func (s *DuckDBStore) UndiscountedCost(serviceCode string) (decimal.Decimal, error) {
	var cost sql.NullFloat64
	err := s.runQuery("undiscounted_cost", func() error {
		return s.queryRow([]interface{}{&cost}, s.queries.undiscountedCost, serviceCode)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return roundFloat(cost, costPlaces), nil
}

// DiscountedCost returns the total unblended cost of serviceCode with every
// line item multiplied by rate.
func (s *DuckDBStore) DiscountedCost(serviceCode string, rate decimal.Decimal) (decimal.Decimal, error) {
	var cost sql.NullFloat64
	err := s.runQuery("discounted_cost", func() error {
		return s.queryRow([]interface{}{&cost}, s.queries.discountedCost, rate.InexactFloat64(), serviceCode)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return roundFloat(cost, costPlaces), nil
}

// BlendedDiscountRate returns the ratio of the discounted cost of all line
// items, using the store's schedule, to their undiscounted cost. It is 0
// when the undiscounted cost is 0.
func (s *DuckDBStore) BlendedDiscountRate() (decimal.Decimal, error) {
	var undiscounted, discounted sql.NullFloat64
	err := s.runQuery("blended_discount_rate", func() error {
		return s.queryRow([]interface{}{&undiscounted, &discounted}, s.queries.blendedDiscountRate)
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !undiscounted.Valid || undiscounted.Float64 == 0 {
		return decimal.Zero, nil
	}
	rate := decimal.NewFromFloat(discounted.Float64).Div(decimal.NewFromFloat(undiscounted.Float64))
	return rate.Round(ratePlaces), nil
}

// AllCosts returns both aggregates of every service, ordered by service
// code.
func (s *DuckDBStore) AllCosts() ([]ServiceCost, error) {
	var costs []ServiceCost
	err := s.runQuery("all_costs", func() error {
		rows, err := s.queryer.Query(s.queries.allCosts)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				serviceCode              sql.NullString
				undiscounted, discounted sql.NullFloat64
			)
			if err := rows.Scan(&serviceCode, &undiscounted, &discounted); err != nil {
				return err
			}
			costs = append(costs, ServiceCost{
				ServiceCode:      serviceCode.String,
				UndiscountedCost: roundFloat(undiscounted, costPlaces),
				DiscountedCost:   roundFloat(discounted, costPlaces),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return costs, nil
}

// RowCount returns the number of line items in the canonical table.
func (s *DuckDBStore) RowCount() (int64, error) {
	var count int64
	err := s.runQuery("row_count", func() (err error) {
		count, err = s.rowCount()
		return err
	})
	return count, err
}

func (s *DuckDBStore) rowCount() (int64, error) {
	var count int64
	if err := s.queryRow([]interface{}{&count}, s.queries.rowCount); err != nil {
		return 0, err
	}
	return count, nil
}

// runQuery runs fn under the read lock once the canonical table is known
// to exist, recording the outcome in the query metrics.
func (s *DuckDBStore) runQuery(operation string, fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queriesTotalCounter.WithLabelValues(operation).Inc()
	err := func() error {
		if s.closed {
			return ErrClosed
		}
		exists, err := duckdb.TableExists(s.queryer, TableName)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNoBillingData
		}
		return fn()
	}()
	if err != nil {
		queriesFailedCounter.WithLabelValues(operation).Inc()
		s.logger.WithError(err).WithField("operation", operation).Errorf("error querying billing data")
		return &QueryError{Operation: operation, Err: err}
	}
	return nil
}

// queryRow scans the single row returned by query into dest.
func (s *DuckDBStore) queryRow(dest []interface{}, query string, args ...interface{}) error {
	rows, err := s.queryer.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	return rows.Err()
}

func roundFloat(v sql.NullFloat64, places int32) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v.Float64).Round(places)
}
