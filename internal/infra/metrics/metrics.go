// internal/infra/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Fetch attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics holds the extractor's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchAttempts  *prometheus.CounterVec
	recordsWritten prometheus.Counter
	daysSkipped    prometheus.Counter
	zoneFailures   prometheus.Counter
	zoneDuration   prometheus.Histogram
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		fetchAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esolat_fetch_attempts_total",
				Help: "Total e-Solat lookup attempts by outcome",
			},
			[]string{"outcome"}, // success, timeout, error
		),
		recordsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "extractor_records_written_total",
			Help: "Total prayer-time records written to the sinks",
		}),
		daysSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "extractor_days_skipped_total",
			Help: "Total zone-days skipped because a lookup failed or returned no entry",
		}),
		zoneFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "extractor_zone_failures_total",
			Help: "Total zone tasks that ended with an unexpected error",
		}),
		zoneDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "extractor_zone_duration_seconds",
			Help:    "Wall time to extract one zone's full date range",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		}),
	}
}

func (m *Metrics) FetchAttempt(outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordsWritten(n int) {
	if m == nil {
		return
	}
	m.recordsWritten.Add(float64(n))
}

func (m *Metrics) DaySkipped() {
	if m == nil {
		return
	}
	m.daysSkipped.Inc()
}

func (m *Metrics) ZoneFinished(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.zoneDuration.Observe(d.Seconds())
	if err != nil {
		m.zoneFailures.Inc()
	}
}

// Handler routes GET /metrics to the collectors gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router
}

// Serve binds addr and exposes /metrics on it until ctx is cancelled.
// A bind failure is returned; errors after that are only logged.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *logrus.Entry) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on metrics address %s: %w", addr, err)
	}
	srv := &http.Server{Handler: Handler(g), ReadHeaderTimeout: 5 * time.Second}

	logger.WithField("addr", ln.Addr().String()).Info("Metrics endpoint listening")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics endpoint stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return ln.Addr(), nil
}
