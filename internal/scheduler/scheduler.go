package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSpec fires the daily savings report at 21:00 UTC.
const DefaultSpec = "0 21 * * *"

// Scheduler runs the periodic savings report.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
	logger     *logrus.Logger
}

// New creates a scheduler for the given cron spec. An empty spec means
// DefaultSpec.
func New(spec string, logger *logrus.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   spec,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report job and starts the cron loop. Without a report
// function nothing is scheduled.
func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		s.logger.Warn("report function not set, scheduler will not generate reports")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("spec", s.spec).Info("scheduler started")
	return nil
}

func (s *Scheduler) run() {
	s.logger.WithField("spec", s.spec).Info("triggered savings report")
	if err := s.reportFunc(s.ctx); err != nil {
		s.logger.WithError(err).Error("savings report failed")
	}
}

// Stop waits for a running job to finish and cancels the job context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
