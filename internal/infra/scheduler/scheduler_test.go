package scheduler

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"prayer_time_extractor/internal/app"
	"prayer_time_extractor/internal/domain/calendar"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingJob struct {
	mu      sync.Mutex
	ranges  []calendar.DateRange
	ran     chan struct{}
	release chan struct{} // when set, Execute blocks until closed
}

func (j *recordingJob) Execute(ctx context.Context, days calendar.DateRange) (*app.RunReport, error) {
	j.mu.Lock()
	j.ranges = append(j.ranges, days)
	first := len(j.ranges) == 1
	j.mu.Unlock()
	if first {
		close(j.ran)
	}
	if j.release != nil {
		select {
		case <-j.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &app.RunReport{RunID: "test", Range: days, Records: 365}, nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRangeFor(t *testing.T) {
	trigger := time.Date(2025, 1, 1, 3, 0, 0, 0, time.Local)
	assert.Equal(t, "2025-01-01..2025-12-31", RangeFor(trigger, nil).String())

	fixed := calendar.NewDateRange(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, fixed, RangeFor(trigger, &fixed))
}

func TestStart_InvalidCronExpression(t *testing.T) {
	s := NewExtractionScheduler(&recordingJob{ran: make(chan struct{})}, testLogger(), "not a cron expression", nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestStart_TriggersJob(t *testing.T) {
	job := &recordingJob{ran: make(chan struct{})}
	fixed := calendar.Year(2024)
	s := NewExtractionScheduler(job, testLogger(), "@every 1s", &fixed)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-job.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not triggered")
	}
	job.mu.Lock()
	defer job.mu.Unlock()
	assert.Equal(t, fixed, job.ranges[0])
}

func TestTriggerNow_NotStarted(t *testing.T) {
	s := NewExtractionScheduler(&recordingJob{ran: make(chan struct{})}, testLogger(), "@yearly", nil)
	assert.False(t, s.TriggerNow())
}

func TestTriggerNow_StoresLastReport(t *testing.T) {
	job := &recordingJob{ran: make(chan struct{}), release: make(chan struct{})}
	fixed := calendar.Year(2024)
	s := NewExtractionScheduler(job, testLogger(), "@yearly", &fixed)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	report, err := s.LastReport()
	assert.Nil(t, report)
	assert.NoError(t, err)

	require.True(t, s.TriggerNow())
	<-job.ran
	assert.True(t, s.Running())
	assert.False(t, s.TriggerNow(), "second trigger while a run is in flight")

	close(job.release)
	require.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, 10*time.Millisecond)

	report, err = s.LastReport()
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 365, report.Records)
	assert.Equal(t, fixed, report.Range)
}

// cleanupJob blocks until its run is cancelled, then needs a moment to close its output.
type cleanupJob struct {
	started  chan struct{}
	finished atomic.Bool
}

func (j *cleanupJob) Execute(ctx context.Context, days calendar.DateRange) (*app.RunReport, error) {
	close(j.started)
	<-ctx.Done()
	time.Sleep(200 * time.Millisecond)
	j.finished.Store(true)
	return &app.RunReport{RunID: "cancelled", Range: days}, ctx.Err()
}

func TestStop_WaitsForManualRun(t *testing.T) {
	job := &cleanupJob{started: make(chan struct{})}
	s := NewExtractionScheduler(job, testLogger(), "@yearly", nil)
	require.NoError(t, s.Start(context.Background()))

	require.True(t, s.TriggerNow())
	<-job.started
	s.Stop()

	assert.True(t, job.finished.Load(), "manual run must finish its cleanup before Stop returns")
	assert.False(t, s.Running())
	assert.False(t, s.TriggerNow(), "no runs after Stop")

	report, err := s.LastReport()
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, "cancelled", report.RunID)
}
