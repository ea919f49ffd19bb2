package main

import (
	"context"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/cost-reporting/pkg/aws"
	"github.com/operator-framework/cost-reporting/pkg/billing"
	"github.com/operator-framework/cost-reporting/pkg/server"
)

// reportsDir is where billing exports fetched from S3 are written, below
// the data directory.
const reportsDir = "reports"

// serverCfg is the config for the HTTP API server
var serverCfg server.Config

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts the cost reporting HTTP API",
	Run:   startServer,
}

func init() {
	startCmd.Flags().StringVar(&serverCfg.APIListenAddr, "api-listen-addr", server.DefaultAPIListenAddr, "the address the HTTP API listens on")
	startCmd.Flags().StringVar(&serverCfg.MetricsListenAddr, "metrics-listen-addr", server.DefaultMetricsListenAddr, "the address Prometheus metrics are served on")
	startCmd.Flags().StringVar(&serverCfg.PprofListenAddr, "pprof-listen-addr", server.DefaultPprofListenAddr, "the address the pprof endpoints are served on")
	startCmd.Flags().Int64Var(&serverCfg.MaxUploadBytes, "max-upload-bytes", 0, "If a non-zero positive value, specifies the largest billing export accepted by the upload endpoint.")

	startCmd.Flags().StringVar(&serverCfg.ReingestSource, "reingest-source", "", "If non-empty, a local path, glob or s3:// location that is fetched and ingested on the reingest-schedule.")
	startCmd.Flags().StringVar(&serverCfg.ReingestSchedule, "reingest-schedule", "", "a standard cron spec (or descriptor such as @daily) controlling how often reingest-source is ingested")

	startCmd.Flags().BoolVar(&serverCfg.APITLSConfig.UseTLS, "use-tls", false, "If true, uses TLS to secure HTTP API traffic")
	startCmd.Flags().StringVar(&serverCfg.APITLSConfig.TLSCert, "tls-cert", "", "If use-tls is true, specifies the path to the TLS certificate.")
	startCmd.Flags().StringVar(&serverCfg.APITLSConfig.TLSKey, "tls-key", "", "If use-tls is true, specifies the path to the TLS private key.")

	startCmd.Flags().BoolVar(&serverCfg.MetricsTLSConfig.UseTLS, "metrics-use-tls", false, "If true, uses TLS to secure Prometheus Metrics endpoint traffic")
	startCmd.Flags().StringVar(&serverCfg.MetricsTLSConfig.TLSCert, "metrics-tls-cert", "", "If metrics-use-tls is true, specifies the path to the TLS certificate to use for the Metrics endpoint.")
	startCmd.Flags().StringVar(&serverCfg.MetricsTLSConfig.TLSKey, "metrics-tls-key", "", "If metrics-use-tls is true, specifies the path to the TLS private key to use for the Metrics endpoint.")
}

func startServer(cmd *cobra.Command, args []string) {
	logger := newLogger()
	serverCfg.DataDir = dataDir

	signalStopCtx := setupSignals()
	runServer(logger, serverCfg, signalStopCtx)
}

func runServer(logger log.FieldLogger, cfg server.Config, ctx context.Context) {
	store, err := openStore(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("unable to open the billing store")
	}
	err = serve(logger, cfg, store, ctx)
	if closeErr := store.Close(); closeErr != nil {
		logger.WithError(closeErr).Error("error closing the billing store")
	}
	if err != nil {
		logger.WithError(err).Fatal("error occurred while the cost reporting server was running")
	}
	logger.Infof("cost reporting server has stopped")
}

func serve(logger log.FieldLogger, cfg server.Config, store *billing.DuckDBStore, ctx context.Context) error {
	var fetcher aws.ReportFetcher
	if cfg.ReingestSource != "" {
		fetcher = newReportFetcher(logger)
	}
	srv, err := server.New(logger, cfg, store, store.Schedule(), fetcher)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func newReportFetcher(logger log.FieldLogger) aws.ReportFetcher {
	return aws.NewReportFetcher(logger, awsRegion, filepath.Join(dataDir, reportsDir))
}
