package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation of a closed Store.
	ErrClosed = errors.New("billing store is closed")

	// ErrNoBillingData is returned by queries made before any export was ingested.
	ErrNoBillingData = errors.New("no billing data has been ingested")

	// ErrMissingColumns is returned when an export lacks a required column.
	ErrMissingColumns = errors.New("billing export is missing required columns")
)

// IngestError is returned when a billing export cannot be loaded into the
// canonical table. The previous contents of the table are left in place.
type IngestError struct {
	Path string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("failed to ingest billing export %s: %v", e.Path, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// QueryError is returned when an aggregate cannot be computed.
type QueryError struct {
	Operation string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to query %s: %v", e.Operation, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func IsIngestError(err error) bool {
	var ingestErr *IngestError
	return errors.As(err, &ingestErr)
}

func IsQueryError(err error) bool {
	var queryErr *QueryError
	return errors.As(err, &queryErr)
}
