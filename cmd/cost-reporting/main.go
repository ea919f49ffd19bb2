package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/operator-framework/cost-reporting/pkg/billing"
	"github.com/operator-framework/cost-reporting/pkg/discount"
	"github.com/operator-framework/cost-reporting/pkg/server"
)

const (
	envPrefix = "COST_REPORTING"

	defaultDatabasePath   = "data/billing.duckdb"
	defaultConnBackoff    = time.Second
	defaultMaxConnRetries = 5
)

var (
	storeCfg             billing.Config
	discountSchedulePath string
	dataDir              string
	awsRegion            string

	logLevelStr         string
	logFullTimestamp    bool
	logDisableTimestamp bool
)

var rootCmd = &cobra.Command{
	Use:           "cost-reporting",
	Short:         "ingests AWS billing exports and reports discounted costs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// flags given on the command line win over the environment
		if err := SetFlagsFromEnv(cmd.Flags(), envPrefix); err != nil {
			return fmt.Errorf("error setting flags from environment variables: %v", err)
		}
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:    logFullTimestamp,
			DisableTimestamp: logDisableTimestamp,
		})
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func AddCommands() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
}

func init() {
	// globally set time to UTC
	time.Local = time.UTC

	rootCmd.PersistentFlags().StringVar(&logLevelStr, "log-level", log.InfoLevel.String(), "log level")
	rootCmd.PersistentFlags().BoolVar(&logFullTimestamp, "log-timestamp", true, "log full timestamp if true, otherwise log time since startup")
	rootCmd.PersistentFlags().BoolVar(&logDisableTimestamp, "disable-timestamp", false, "disable timestamp logging")

	rootCmd.PersistentFlags().StringVar(&storeCfg.DatabasePath, "database-path", defaultDatabasePath, "the DuckDB database file holding the billing data. If empty, an in-memory database is used.")
	rootCmd.PersistentFlags().BoolVar(&storeCfg.LogQueries, "log-queries", false, "logQueries controls if we log the SQL statements made against DuckDB")
	rootCmd.PersistentFlags().DurationVar(&storeCfg.ConnBackoff, "db-conn-backoff", defaultConnBackoff, "the initial backoff between attempts to open the database")
	rootCmd.PersistentFlags().IntVar(&storeCfg.MaxConnRetries, "db-max-conn-retries", defaultMaxConnRetries, "how many times opening the database is attempted before giving up")
	rootCmd.PersistentFlags().StringVar(&discountSchedulePath, "discount-schedule", "", "path to a YAML or JSON file mapping service codes to discount multipliers. If empty, the built-in schedule is used.")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", server.DefaultDataDir, "directory uploaded and downloaded billing exports are written to")
	rootCmd.PersistentFlags().StringVar(&awsRegion, "aws-region", "", "the AWS region used when fetching billing exports from S3")
}

func main() {
	AddCommands()

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatalf("error executing command: %v", err)
	}
}

// SetFlagsFromEnv parses all registered flags in the given flagset,
// and if they are not already set it attempts to set their values from
// environment variables. Environment variables take the name of the flag but
// are UPPERCASE, and any dashes are replaced by underscores. Environment
// variables additionally are prefixed by the given string followed by
// and underscore. For example, if prefix=PREFIX: some-flag => PREFIX_SOME_FLAG
func SetFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if !alreadySet[f.Name] {
			key := prefix + "_" + strings.ToUpper(strings.Replace(f.Name, "-", "_", -1))
			val := os.Getenv(key)
			if val != "" {
				if serr := fs.Set(f.Name, val); serr != nil {
					err = fmt.Errorf("invalid value %q for %s: %v", val, key, serr)
				}
			}
		}
	})
	return err
}

func setupSignals() context.Context {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-sigs
		log.Infof("got signal %s, performing shutdown", sig)
		cancel()
	}()
	return ctx
}

func newLogger() log.FieldLogger {
	logger := log.WithFields(log.Fields{
		"app": "cost-reporting",
	})
	logLevel, err := log.ParseLevel(logLevelStr)
	if err != nil {
		logger.WithError(err).Fatalf("invalid log level: %s", logLevelStr)
	}
	logger.Debugf("setting log level to %s", logLevel.String())
	logger.Logger.Level = logLevel
	return logger
}

func loadSchedule(logger log.FieldLogger) (discount.Schedule, error) {
	if discountSchedulePath == "" {
		logger.Debugf("using the built-in discount schedule")
		return discount.Default(), nil
	}
	schedule, err := discount.Load(discountSchedulePath)
	if err != nil {
		return discount.Schedule{}, err
	}
	logger.Infof("loaded %d discount multipliers from %s", schedule.Len(), discountSchedulePath)
	return schedule, nil
}

// openStore loads the discount schedule and opens the billing store. The
// caller must close the store.
func openStore(ctx context.Context, logger log.FieldLogger) (*billing.DuckDBStore, error) {
	schedule, err := loadSchedule(logger)
	if err != nil {
		return nil, err
	}
	store, err := billing.Open(ctx, logger, storeCfg, schedule)
	if err != nil {
		return nil, fmt.Errorf("unable to open billing database %q: %v", storeCfg.DatabasePath, err)
	}
	return store, nil
}
