package server

import (
	"fmt"
	"sync"

	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"

	"github.com/operator-framework/cost-reporting/pkg/aws"
	"github.com/operator-framework/cost-reporting/pkg/billing"
)

// reingestJob must implement the Job interface.
var _ cron.Job = (*reingestJob)(nil)

// reingestJob fetches the billing export at source and replaces the
// canonical table with it. Runs never overlap.
type reingestJob struct {
	logger  log.FieldLogger
	source  string
	fetcher aws.ReportFetcher
	store   billing.Store

	mu sync.Mutex
}

func newReingestJob(logger log.FieldLogger, source string, fetcher aws.ReportFetcher, store billing.Store) *reingestJob {
	return &reingestJob{
		logger:  logger.WithFields(log.Fields{"component": "reingest", "source": source}),
		source:  source,
		fetcher: fetcher,
		store:   store,
	}
}

func (j *reingestJob) Run() {
	if err := j.run(); err != nil {
		j.logger.WithError(err).Errorf("scheduled re-ingest failed")
	}
}

func (j *reingestJob) run() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.logger.Infof("re-ingesting billing export")
	path, err := j.fetcher.Fetch(j.source)
	if err != nil {
		return fmt.Errorf("unable to fetch %s: %v", j.source, err)
	}
	return j.store.Ingest(path)
}

// newReingestScheduler returns a stopped scheduler running job on the
// standard cron spec.
func newReingestScheduler(spec string, job cron.Job) (*cron.Cron, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid re-ingest schedule %q: %v", spec, err)
	}
	c := cron.New()
	c.Schedule(schedule, job)
	return c, nil
}
