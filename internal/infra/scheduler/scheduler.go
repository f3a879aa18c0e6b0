package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"prayer_time_extractor/internal/app" // For the Job interface
	"prayer_time_extractor/internal/domain/calendar"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ExtractionScheduler triggers extraction runs on a cron schedule or on demand.
// At most one run is in flight at a time.
type ExtractionScheduler struct {
	cronEngine *cron.Cron
	job        app.Job
	logger     *logrus.Entry
	cronSpec   string              // e.g. "0 3 1 1 *" (03:00 on Jan 1st)
	fixedRange *calendar.DateRange // nil: each run covers the trigger's calendar year

	running    atomic.Bool
	mu         sync.Mutex
	lastReport *app.RunReport
	lastErr    error

	lifecycle sync.Mutex     // orders manual triggers against Stop
	manual    sync.WaitGroup // runs started by TriggerNow
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewExtractionScheduler(
	job app.Job,
	logger *logrus.Entry,
	cronSpec string,
	fixedRange *calendar.DateRange,
) *ExtractionScheduler {
	cronLogger := cron.PrintfLogger(logger.WithField("component", "cron"))
	return &ExtractionScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Use server's local time for cron
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		job:        job,
		logger:     logger.WithField("component", "scheduler"),
		cronSpec:   cronSpec,
		fixedRange: fixedRange,
	}
}

// RangeFor returns the date range a run triggered at t should cover.
func RangeFor(t time.Time, fixed *calendar.DateRange) calendar.DateRange {
	if fixed != nil {
		return *fixed
	}
	return calendar.Year(t.Year())
}

// Start registers the extraction job and starts the cron engine.
// Runs are cancelled when ctx is done or Stop is called.
func (s *ExtractionScheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting extraction scheduler...")
	s.lifecycle.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.lifecycle.Unlock()

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.executeRun(time.Now())
	})
	if err != nil {
		return fmt.Errorf("could not add extraction cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	for _, e := range s.cronEngine.Entries() {
		s.logger.WithField("next_run", e.Next.Format(time.RFC3339)).Info("Extraction scheduler started")
	}
	return nil
}

// TriggerNow starts a run in the background. It returns false when the
// scheduler is not started or a run is already in progress.
func (s *ExtractionScheduler) TriggerNow() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.manual.Add(1)
	go func() {
		defer s.manual.Done()
		defer s.running.Store(false)
		s.run(time.Now())
	}()
	return true
}

// Running reports whether a run is in progress.
func (s *ExtractionScheduler) Running() bool {
	return s.running.Load()
}

// LastReport returns the outcome of the most recent finished run, if any.
func (s *ExtractionScheduler) LastReport() (*app.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport, s.lastErr
}

func (s *ExtractionScheduler) executeRun(triggeredAt time.Time) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous extraction run still in progress, skipping trigger")
		return
	}
	defer s.running.Store(false)
	s.run(triggeredAt)
}

func (s *ExtractionScheduler) run(triggeredAt time.Time) {
	days := RangeFor(triggeredAt, s.fixedRange)
	log := s.logger.WithField("range", days.String())
	log.Info("Extraction run triggered.")

	report, err := s.job.Execute(s.ctx, days)

	s.mu.Lock()
	if report != nil {
		s.lastReport = report
	}
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		log.WithError(err).Error("Scheduled extraction run failed")
		return
	}
	log.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"records": report.Records,
	}).Info("Scheduled extraction run finished")
}

// Stop cancels an in-flight run and waits for it to return, whether cron or
// TriggerNow started it.
func (s *ExtractionScheduler) Stop() {
	s.logger.Info("Stopping extraction scheduler...")
	s.lifecycle.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.lifecycle.Unlock()
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.manual.Wait()
	s.logger.Info("Extraction scheduler gracefully stopped.")
}
