package server

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/operator-framework/cost-reporting/pkg/billing"
)

type healthResponse struct {
	Status  string      `json:"status"`
	Details interface{} `json:"details,omitempty"`
}

type healthChecker struct {
	logger       logrus.FieldLogger
	store        billing.Store
	singleFlight singleflight.Group
}

func newHealthChecker(logger logrus.FieldLogger, store billing.Store) *healthChecker {
	return &healthChecker{
		logger: logger.WithField("component", "healthChecker"),
		store:  store,
	}
}

// testStorageSingleFlight pings the store, sharing the result between
// concurrent health checks.
func (hc *healthChecker) testStorageSingleFlight() bool {
	const key = "storage-ping"
	v, _, _ := hc.singleFlight.Do(key, func() (interface{}, error) {
		defer hc.singleFlight.Forget(key)
		return hc.testStorage(), nil
	})
	return v.(bool)
}

func (hc *healthChecker) testStorage() bool {
	if err := hc.store.Ping(); err != nil {
		hc.logger.WithError(err).Debugf("cannot ping billing store")
		return false
	}
	return true
}

// readinessHandler reports whether the API can serve requests.
func (srv *server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	if !srv.health.testStorageSingleFlight() {
		writeResponseAsJSON(logger, w, http.StatusInternalServerError,
			healthResponse{
				Status:  "not ready",
				Details: "cannot reach the billing database",
			})
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, healthResponse{Status: "ok"})
}

// healthinessHandler is the liveness check. If this fails, the process
// should be restarted.
func (srv *server) healthinessHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	if !srv.health.testStorageSingleFlight() {
		writeResponseAsJSON(logger, w, http.StatusInternalServerError,
			healthResponse{
				Status:  "not healthy",
				Details: "cannot reach the billing database",
			})
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, healthResponse{Status: "ok"})
}
