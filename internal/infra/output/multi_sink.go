// internal/infra/output/multi_sink.go
package output

import (
	"context"
	"errors"

	"prayer_time_extractor/internal/domain/prayertime"
)

// MultiSink forwards everything to each sink in turn and stops at the first error.
type MultiSink []prayertime.Sink

func (m MultiSink) WriteHeader(header []string) error {
	for _, s := range m {
		if err := s.WriteHeader(header); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Write(ctx context.Context, records []prayertime.Record) error {
	for _, s := range m {
		if err := s.Write(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, even after a failure.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
