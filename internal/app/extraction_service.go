// internal/app/extraction_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/prayertime"
	"prayer_time_extractor/internal/domain/zone"
	"prayer_time_extractor/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

var ErrZonePanicked = errors.New("zone task panicked")

// ZoneResult is the outcome of one zone task. Records are date-ascending.
// Err is set when the task stopped early; Records then holds what was collected before.
type ZoneResult struct {
	Zone     zone.Zone
	Records  []prayertime.Record
	Skipped  []SkippedDay
	Duration time.Duration
	Err      error
}

// ExtractionService fans zone tasks out to a bounded pool and writes their records
// to a sink in catalog order.
type ExtractionService struct {
	extractor   *ZoneExtractor
	concurrency int
	metrics     *metrics.Metrics
	logger      *logrus.Entry
}

// NewExtractionService creates the service. concurrency <= 0 runs one worker per zone.
func NewExtractionService(extractor *ZoneExtractor, concurrency int, m *metrics.Metrics, logger *logrus.Entry) *ExtractionService {
	return &ExtractionService{
		extractor:   extractor,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger.WithField("component", "extraction-service"),
	}
}

// Run extracts every zone of cat over days and writes the results to sink.
//
// Zones run concurrently, but a zone's records reach the sink only after its task has
// finished, and zones are flushed in catalog order. Zone failures are collected in the
// report and do not stop the run. A sink error cancels the remaining tasks and is returned.
func (s *ExtractionService) Run(ctx context.Context, cat zone.Catalog, days calendar.DateRange, sink prayertime.Sink) (*RunReport, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := &RunReport{
		RunID:   uuid.NewString(),
		Range:   days,
		Started: time.Now(),
		Zones:   cat.Len(),
	}
	log := s.logger.WithField("run_id", report.RunID)
	log.WithFields(logrus.Fields{
		"zones": cat.Len(),
		"range": days.String(),
		"days":  days.Len(),
	}).Info("Starting extraction run")

	if err := sink.WriteHeader(prayertime.Header); err != nil {
		report.Finished = time.Now()
		return report, fmt.Errorf("failed to write header: %w", err)
	}

	n := cat.Len()
	results := make([]ZoneResult, n)
	done := make([]chan struct{}, n)
	for i := range done {
		done[i] = make(chan struct{})
	}

	workers := s.concurrency
	if workers <= 0 || workers > n {
		workers = n
	}
	if n > 0 {
		p := pool.New().WithMaxGoroutines(workers)
		// Submission blocks while the pool is full, so it runs beside the writer loop.
		go func() {
			for i, z := range cat.Zones {
				p.Go(func() {
					defer close(done[i])
					results[i] = s.runZone(runCtx, z, days, log)
				})
			}
			p.Wait()
		}()
	}

	var runErr error
	for i := range cat.Zones {
		<-done[i]
		res := results[i]
		results[i] = ZoneResult{} // release the buffer once flushed

		report.SkippedDays += len(res.Skipped)
		zoneLog := log.WithFields(logrus.Fields{"state": res.Zone.State, "zone": res.Zone.Code})
		if res.Err != nil {
			report.FailedZones = append(report.FailedZones, ZoneFailure{Zone: res.Zone, Err: res.Err})
			if !errors.Is(res.Err, context.Canceled) {
				zoneLog.WithError(res.Err).Warn("Zone task failed")
			}
		}
		if runErr != nil || len(res.Records) == 0 {
			continue
		}

		if err := sink.Write(runCtx, res.Records); err != nil {
			runErr = fmt.Errorf("failed to write records for zone %s: %w", res.Zone.Code, err)
			log.WithError(err).Error("Sink write failed, cancelling run")
			cancel()
			continue
		}
		report.Records += len(res.Records)
		s.metrics.RecordsWritten(len(res.Records))
		for _, rec := range res.Records {
			zoneLog.Debugf("Row written: %v", rec.Row())
		}
		zoneLog.WithFields(logrus.Fields{
			"records":  len(res.Records),
			"skipped":  len(res.Skipped),
			"duration": res.Duration.Round(time.Millisecond),
		}).Info("Zone written")
	}

	report.Finished = time.Now()
	if runErr != nil {
		return report, runErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (s *ExtractionService) runZone(ctx context.Context, z zone.Zone, days calendar.DateRange, log *logrus.Entry) (res ZoneResult) {
	res.Zone = z
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %v", ErrZonePanicked, r)
			log.WithFields(logrus.Fields{
				"zone":  z.Code,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Zone task panicked")
		}
		res.Duration = time.Since(start)
		s.metrics.ZoneFinished(res.Duration, res.Err)
	}()

	onSkip := func(sd SkippedDay) {
		res.Skipped = append(res.Skipped, sd)
		s.metrics.DaySkipped()
	}
	res.Records = make([]prayertime.Record, 0, days.Len())
	for rec := range s.extractor.Extract(ctx, z, days, onSkip) {
		res.Records = append(res.Records, rec)
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
	}
	return res
}
