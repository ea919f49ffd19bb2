package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type ExecQueryer interface {
	Queryer
	Execer
}

type loggingQueryer struct {
	queryer    Queryer
	logger     log.FieldLogger
	logQueries bool
}

func NewLoggingQueryer(queryer Queryer, logger log.FieldLogger, logQueries bool) *loggingQueryer {
	return &loggingQueryer{
		queryer:    queryer,
		logger:     logger,
		logQueries: logQueries,
	}
}

func (loggingQueryer *loggingQueryer) Query(query string, args ...interface{}) (*sql.Rows, error) {
	if loggingQueryer.logQueries {
		loggingQueryer.logger.Debugf("QUERY: %s [%s]", compact(query), argsString(args...))
	}
	return loggingQueryer.queryer.Query(query, args...)
}

type loggingExecer struct {
	execer     Execer
	logger     log.FieldLogger
	logQueries bool
}

func NewLoggingExecer(execer Execer, logger log.FieldLogger, logQueries bool) *loggingExecer {
	return &loggingExecer{
		execer:     execer,
		logger:     logger,
		logQueries: logQueries,
	}
}

func (loggingExecer *loggingExecer) Exec(query string, args ...interface{}) (sql.Result, error) {
	if loggingExecer.logQueries {
		loggingExecer.logger.Debugf("EXEC: %s [%s]", compact(query), argsString(args...))
	}
	return loggingExecer.execer.Exec(query, args...)
}

type loggingExecQueryer struct {
	*loggingQueryer
	*loggingExecer
}

// NewLoggingExecQueryer wraps conn so both statement kinds are logged
// when logQueries is true.
func NewLoggingExecQueryer(conn ExecQueryer, logger log.FieldLogger, logQueries bool) ExecQueryer {
	return &loggingExecQueryer{
		loggingQueryer: NewLoggingQueryer(conn, logger, logQueries),
		loggingExecer:  NewLoggingExecer(conn, logger, logQueries),
	}
}

// compact collapses the whitespace of multi-line SQL so each statement is
// logged on a single line.
func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// argsString pretty prints arguments passed into it for logging query
// arguments
func argsString(args ...interface{}) string {
	var margs string
	for i, a := range args {
		var v interface{} = a
		if x, ok := v.(driver.Valuer); ok {
			y, err := x.Value()
			if err == nil {
				v = y
			}
		}
		switch v.(type) {
		case string, []byte:
			v = fmt.Sprintf("%q", v)
		default:
			v = fmt.Sprintf("%v", v)
		}
		margs += fmt.Sprintf("%d:%s", i+1, v)
		if i+1 < len(args) {
			margs += " "
		}
	}
	return margs
}
