// internal/domain/prayertime/sink.go
package prayertime

import "context"

// Sink receives the header once, then batches of records in delivery order.
// Only one goroutine writes to a Sink at a time.
type Sink interface {
	WriteHeader(header []string) error
	Write(ctx context.Context, records []Record) error
	Close() error
}
