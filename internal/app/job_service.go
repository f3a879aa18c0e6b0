// internal/app/job_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/prayertime"
	domainTelegram "prayer_time_extractor/internal/domain/telegram"
	"prayer_time_extractor/internal/domain/zone"

	"github.com/sirupsen/logrus"
)

// OpenSinkFunc opens the sink for a run that starts at runStarted.
// location describes where records end up (a file path, a table), for the report.
type OpenSinkFunc func(ctx context.Context, runStarted time.Time) (sink prayertime.Sink, location string, err error)

// Job runs one complete extraction over a date range.
type Job interface {
	Execute(ctx context.Context, days calendar.DateRange) (*RunReport, error)
}

// JobService wires a run together: open sinks, extract, close, report.
type JobService struct {
	extraction     *ExtractionService
	catalog        zone.Catalog
	openSink       OpenSinkFunc
	telegramClient domainTelegram.Client // optional
	adminChatID    int64
	logger         *logrus.Entry
}

func NewJobService(
	extraction *ExtractionService,
	catalog zone.Catalog,
	openSink OpenSinkFunc,
	tc domainTelegram.Client, // nil disables run reports
	adminChatID int64,
	logger *logrus.Entry,
) *JobService {
	return &JobService{
		extraction:     extraction,
		catalog:        catalog,
		openSink:       openSink,
		telegramClient: tc,
		adminChatID:    adminChatID,
		logger:         logger.WithField("component", "job-service"),
	}
}

// Execute runs the extraction. Skipped days and failed zones are not errors;
// only a sink failure or cancellation is.
func (s *JobService) Execute(ctx context.Context, days calendar.DateRange) (*RunReport, error) {
	started := time.Now()
	sink, location, err := s.openSink(ctx, started)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	s.logger.WithField("output", location).Info("Output opened")

	report, runErr := s.extraction.Run(ctx, s.catalog, days, sink)
	closeErr := sink.Close()
	if report != nil {
		report.Output = location
	}
	if err := errors.Join(runErr, closeErr); err != nil {
		s.logger.WithError(err).Error("Extraction run did not complete")
		s.notify(ctx, report, err)
		return report, err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":       report.RunID,
		"records":      report.Records,
		"skipped_days": report.SkippedDays,
		"failed_zones": len(report.FailedZones),
		"duration":     report.Duration().Round(time.Millisecond),
	}).Info("Data extraction process completed.")
	s.notify(ctx, report, nil)
	return report, nil
}

func (s *JobService) notify(ctx context.Context, report *RunReport, runErr error) {
	if s.telegramClient == nil || s.adminChatID == 0 || report == nil {
		return
	}
	text := report.Summary()
	if runErr != nil {
		text += fmt.Sprintf("\nError: %v", runErr)
	}
	// A cancelled run still gets its report out.
	if err := s.telegramClient.SendMessage(context.WithoutCancel(ctx), s.adminChatID, text); err != nil {
		s.logger.WithError(err).Warn("Failed to send run report to admin")
	}
}
