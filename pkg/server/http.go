package server

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/operator-framework/cost-reporting/pkg/billing"
	"github.com/operator-framework/cost-reporting/pkg/discount"
)

const (
	APIUploadEndpoint              = "/api/upload"
	APIUndiscountedCostEndpoint    = "/api/cost/undiscounted/{serviceCode}"
	APIDiscountedCostEndpoint      = "/api/cost/discounted/{serviceCode}"
	APIBlendedDiscountRateEndpoint = "/api/cost/blended-discount-rate"
	APIAllCostsEndpoint            = "/api/cost/all"
	APIDiscountsEndpoint           = "/api/discounts"
	APIStatusEndpoint              = "/api/status"

	uploadFormField       = "file"
	defaultMaxUploadBytes = 1 << 30
)

type server struct {
	logger log.FieldLogger

	randMu sync.Mutex
	rand   *rand.Rand

	store          billing.Store
	schedule       discount.Schedule
	dataDir        string
	maxUploadBytes int64
	health         *healthChecker
}

type requestLogger struct {
	log.FieldLogger
}

func (l *requestLogger) Print(v ...interface{}) {
	l.FieldLogger.Info(v...)
}

type routerConfig struct {
	store          billing.Store
	schedule       discount.Schedule
	dataDir        string
	maxUploadBytes int64
}

func newRouter(logger log.FieldLogger, rand *rand.Rand, cfg routerConfig) chi.Router {
	router := chi.NewRouter()
	logger = logger.WithField("component", "api")
	requestLogger := middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &requestLogger{logger}})
	router.Use(requestLogger)
	router.Use(prometheusMiddleware)

	if cfg.maxUploadBytes <= 0 {
		cfg.maxUploadBytes = defaultMaxUploadBytes
	}
	srv := &server{
		logger:         logger,
		rand:           rand,
		store:          cfg.store,
		schedule:       cfg.schedule,
		dataDir:        cfg.dataDir,
		maxUploadBytes: cfg.maxUploadBytes,
		health:         newHealthChecker(logger, cfg.store),
	}

	router.Post(APIUploadEndpoint, srv.uploadHandler)
	router.Get(APIUndiscountedCostEndpoint, srv.undiscountedCostHandler)
	router.Get(APIDiscountedCostEndpoint, srv.discountedCostHandler)
	router.Get(APIBlendedDiscountRateEndpoint, srv.blendedDiscountRateHandler)
	router.Get(APIAllCostsEndpoint, srv.allCostsHandler)
	router.Get(APIDiscountsEndpoint, srv.discountsHandler)
	router.Get(APIStatusEndpoint, srv.statusHandler)
	router.Get("/ready", srv.readinessHandler)
	router.Get("/healthy", srv.healthinessHandler)

	return router
}

func (srv *server) newLogger(r *http.Request) log.FieldLogger {
	srv.randMu.Lock()
	logID := newLogIdentifier(srv.rand)
	srv.randMu.Unlock()
	return srv.logger.WithFields(log.Fields{
		"method": r.Method,
		"url":    r.URL.String(),
	}).WithFields(logID)
}

func (srv *server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, srv.maxUploadBytes)
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		// a part without a filename is parsed as a plain form value
		if err == http.ErrMissingFile && r.MultipartForm != nil && len(r.MultipartForm.Value[uploadFormField]) != 0 {
			logger.Errorf("No selected file")
			writeErrorResponse(logger, w, r, http.StatusBadRequest, "No selected file")
			return
		}
		logger.WithError(err).Errorf("No file part")
		writeErrorResponse(logger, w, r, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "." || filename == ".." || filename == string(filepath.Separator) {
		logger.Errorf("No selected file")
		writeErrorResponse(logger, w, r, http.StatusBadRequest, "No selected file")
		return
	}

	path, err := srv.saveUpload(file, filename)
	if err != nil {
		logger.WithError(err).Errorf("error saving uploaded file %s", filename)
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Error uploading and ingesting file")
		return
	}
	logger.Infof("file saved to %s", path)

	if err := srv.store.Ingest(path); err != nil {
		logger.WithError(err).Errorf("error ingesting uploaded file %s", path)
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Error uploading and ingesting file")
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, messageResponse{Message: "File uploaded and ingested successfully"})
}

// saveUpload copies src into the data directory, replacing any previous
// upload of the same name.
func (srv *server) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(srv.dataDir, 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(srv.dataDir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := filepath.Join(srv.dataDir, filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("unable to move upload to %s: %v", path, err)
	}
	return path, nil
}

type undiscountedCostResponse struct {
	UndiscountedCost float64 `json:"undiscounted_cost"`
}

func (srv *server) undiscountedCostHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	serviceCode := chi.URLParam(r, "serviceCode")
	cost, err := srv.store.UndiscountedCost(serviceCode)
	if err != nil {
		logger.WithError(err).Errorf("error querying undiscounted cost of %s", serviceCode)
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Error querying undiscounted cost")
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, undiscountedCostResponse{UndiscountedCost: cost.InexactFloat64()})
}

type discountedCostResponse struct {
	DiscountedCost float64 `json:"discounted_cost"`
}

func (srv *server) discountedCostHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	serviceCode := chi.URLParam(r, "serviceCode")
	rate := srv.schedule.MultiplierFor(serviceCode)
	cost, err := srv.store.DiscountedCost(serviceCode, rate)
	if err != nil {
		logger.WithError(err).Errorf("error querying discounted cost of %s", serviceCode)
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Error querying discounted cost")
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, discountedCostResponse{DiscountedCost: cost.InexactFloat64()})
}

type blendedDiscountRateResponse struct {
	BlendedDiscountRate float64 `json:"blended_discount_rate"`
}

func (srv *server) blendedDiscountRateHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	rate, err := srv.store.BlendedDiscountRate()
	if err != nil {
		logger.WithError(err).Errorf("error querying blended discount rate")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Error querying blended discount rate")
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, blendedDiscountRateResponse{BlendedDiscountRate: rate.InexactFloat64()})
}

type serviceCost struct {
	ServiceCode      string  `json:"service_code"`
	UndiscountedCost float64 `json:"undiscounted_cost"`
	DiscountedCost   float64 `json:"discounted_cost"`
}

type allCostsResponse struct {
	Costs []serviceCost `json:"costs"`
}

func (srv *server) allCostsHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	costs, err := srv.store.AllCosts()
	if err != nil {
		logger.WithError(err).Errorf("error querying all costs")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Error querying all costs")
		return
	}
	resp := allCostsResponse{Costs: make([]serviceCost, len(costs))}
	for i, c := range costs {
		resp.Costs[i] = serviceCost{
			ServiceCode:      c.ServiceCode,
			UndiscountedCost: c.UndiscountedCost.InexactFloat64(),
			DiscountedCost:   c.DiscountedCost.InexactFloat64(),
		}
	}
	writeResponseAsJSON(logger, w, http.StatusOK, resp)
}

type discountsResponse struct {
	Discounts map[string]float64 `json:"discounts"`
}

func (srv *server) discountsHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	resp := discountsResponse{Discounts: make(map[string]float64, srv.schedule.Len())}
	for code, multiplier := range srv.schedule.Multipliers() {
		resp.Discounts[code] = multiplier.InexactFloat64()
	}
	writeResponseAsJSON(logger, w, http.StatusOK, resp)
}

type statusResponse struct {
	Rows int64 `json:"rows"`
}

func (srv *server) statusHandler(w http.ResponseWriter, r *http.Request) {
	logger := srv.newLogger(r)
	rows, err := srv.store.RowCount()
	if err != nil {
		logger.WithError(err).Errorf("error querying row count")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Error querying billing data status")
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, statusResponse{Rows: rows})
}
