package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/operator-framework/cost-reporting/pkg/aws"
	"github.com/operator-framework/cost-reporting/pkg/billing"
	"github.com/operator-framework/cost-reporting/pkg/discount"
)

const (
	DefaultAPIListenAddr     = ":8080"
	DefaultMetricsListenAddr = ":8082"
	DefaultPprofListenAddr   = "127.0.0.1:6060"
	DefaultDataDir           = "data"

	shutdownTimeout = 30 * time.Second
)

type TLSConfig struct {
	UseTLS  bool
	TLSCert string
	TLSKey  string
}

func (cfg *TLSConfig) Valid() error {
	if cfg.UseTLS {
		if cfg.TLSCert == "" {
			return fmt.Errorf("Must set TLS certificate if TLS is enabled")
		}
		if cfg.TLSKey == "" {
			return fmt.Errorf("Must set TLS private key if TLS is enabled")
		}
	}
	return nil
}

type Config struct {
	APIListenAddr     string
	MetricsListenAddr string
	PprofListenAddr   string

	// DataDir is where uploaded billing exports are saved.
	DataDir        string
	MaxUploadBytes int64

	// ReingestSource, if set, is fetched and ingested on ReingestSchedule.
	ReingestSource   string
	ReingestSchedule string

	APITLSConfig     TLSConfig
	MetricsTLSConfig TLSConfig
}

func (cfg *Config) Valid() error {
	if err := cfg.APITLSConfig.Valid(); err != nil {
		return err
	}
	if err := cfg.MetricsTLSConfig.Valid(); err != nil {
		return err
	}
	if cfg.ReingestSource != "" && cfg.ReingestSchedule == "" {
		return fmt.Errorf("Must set a re-ingest schedule if a re-ingest source is set")
	}
	return nil
}

// Server serves the cost API backed by a billing store. It does not own
// the store: closing it is left to the caller once Run returns.
type Server struct {
	cfg      Config
	logger   log.FieldLogger
	store    billing.Store
	schedule discount.Schedule
	fetcher  aws.ReportFetcher
	rand     *rand.Rand
}

// New validates cfg and returns a Server. fetcher may be nil when no
// re-ingest source is configured.
func New(logger log.FieldLogger, cfg Config, store billing.Store, schedule discount.Schedule, fetcher aws.ReportFetcher) (*Server, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	if cfg.ReingestSource != "" && fetcher == nil {
		return nil, fmt.Errorf("a report fetcher is required to re-ingest %s", cfg.ReingestSource)
	}
	if cfg.APIListenAddr == "" {
		cfg.APIListenAddr = DefaultAPIListenAddr
	}
	if cfg.MetricsListenAddr == "" {
		cfg.MetricsListenAddr = DefaultMetricsListenAddr
	}
	if cfg.PprofListenAddr == "" {
		cfg.PprofListenAddr = DefaultPprofListenAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}

	logger.Debugf("config: %s", spew.Sprintf("%+v", cfg))

	return &Server{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		schedule: schedule,
		fetcher:  fetcher,
		rand:     rand.New(rand.NewSource(time.Now().Unix())),
	}, nil
}

// Handler returns the HTTP API router.
func (s *Server) Handler() http.Handler {
	return newRouter(s.logger, s.rand, routerConfig{
		store:          s.store,
		schedule:       s.schedule,
		dataDir:        s.cfg.DataDir,
		maxUploadBytes: s.cfg.MaxUploadBytes,
	})
}

// Run serves the API, metrics and pprof endpoints until ctx is cancelled
// or one of the servers fails.
func (s *Server) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	// buffered big enough to hold the errs of each server we start.
	srvErrChan := make(chan error, 3)

	s.logger.Info("starting cost reporting server")

	promServer := &http.Server{
		Addr:    s.cfg.MetricsListenAddr,
		Handler: promhttp.Handler(),
	}
	pprofServer := newPprofServer(s.cfg.PprofListenAddr)
	httpServer := &http.Server{
		Addr:    s.cfg.APIListenAddr,
		Handler: s.Handler(),
	}

	var scheduler *cron.Cron
	if s.cfg.ReingestSource != "" {
		job := newReingestJob(s.logger, s.cfg.ReingestSource, s.fetcher, s.store)
		var err error
		scheduler, err = newReingestScheduler(s.cfg.ReingestSchedule, job)
		if err != nil {
			return err
		}
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		var srvErr error
		if s.cfg.MetricsTLSConfig.UseTLS {
			s.logger.Infof("Prometheus metrics server listening with TLS on %s", promServer.Addr)
			srvErr = promServer.ListenAndServeTLS(s.cfg.MetricsTLSConfig.TLSCert, s.cfg.MetricsTLSConfig.TLSKey)
		} else {
			s.logger.Infof("Prometheus metrics server listening on %s", promServer.Addr)
			srvErr = promServer.ListenAndServe()
		}
		s.logger.WithError(srvErr).Info("Prometheus metrics server exited")
		srvErrChan <- fmt.Errorf("Prometheus metrics server error: %v", srvErr)
	}()
	go func() {
		defer wg.Done()
		s.logger.Infof("pprof server listening on %s", pprofServer.Addr)
		srvErr := pprofServer.ListenAndServe()
		s.logger.WithError(srvErr).Info("pprof server exited")
		srvErrChan <- fmt.Errorf("pprof server error: %v", srvErr)
	}()
	go func() {
		defer wg.Done()
		var srvErr error
		if s.cfg.APITLSConfig.UseTLS {
			s.logger.Infof("HTTP API server listening with TLS on %s", httpServer.Addr)
			srvErr = httpServer.ListenAndServeTLS(s.cfg.APITLSConfig.TLSCert, s.cfg.APITLSConfig.TLSKey)
		} else {
			s.logger.Infof("HTTP API server listening on %s", httpServer.Addr)
			srvErr = httpServer.ListenAndServe()
		}
		s.logger.WithError(srvErr).Info("HTTP API server exited")
		srvErrChan <- fmt.Errorf("HTTP API server error: %v", srvErr)
	}()

	if scheduler != nil {
		s.logger.Infof("scheduling re-ingest of %s on %q", s.cfg.ReingestSource, s.cfg.ReingestSchedule)
		scheduler.Start()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("got stop signal, shutting down cost reporting server")
	case err := <-srvErrChan:
		s.logger.WithError(err).Error("server process failed, shutting down cost reporting server")
		runErr = fmt.Errorf("server process failed, err: %v", err)
	}

	if scheduler != nil {
		s.logger.Infof("stopping re-ingest scheduler")
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// stop our running http servers
	var g errgroup.Group
	for name, srv := range map[string]*http.Server{
		"HTTP API":           httpServer,
		"Prometheus metrics": promServer,
		"pprof":              pprofServer,
	} {
		name, srv := name, srv
		g.Go(func() error {
			s.logger.Infof("stopping %s server", name)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.WithError(err).Warnf("got an error shutting down %s server", name)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	wg.Wait()
	s.logger.Info("cost reporting server stopped")
	return runErr
}
