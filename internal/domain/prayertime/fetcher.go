// internal/domain/prayertime/fetcher.go
package prayertime

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Fetcher performs a single remote lookup for one (date, zone) pair.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, date time.Time, zoneCode string) (*Response, error)
}

// FetchErrorKind classifies a terminal lookup failure.
type FetchErrorKind string

const (
	FetchTimeout FetchErrorKind = "TIMEOUT_EXHAUSTED" // every attempt timed out
	FetchRequest FetchErrorKind = "REQUEST"           // non-timeout failure, not retried
)

var (
	ErrTimeoutExhausted = errors.New("request timed out on every attempt")
	ErrRequestFailed    = errors.New("request failed")
)

// FetchError is the failure side of a lookup.
type FetchError struct {
	Kind     FetchErrorKind
	Zone     string
	Date     time.Time
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %s after %d attempt(s): %v", e.Zone, e.Date.Format("2006-01-02"), e.Kind, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind via errors.Is(err, ErrTimeoutExhausted) / ErrRequestFailed.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTimeoutExhausted:
		return e.Kind == FetchTimeout
	case ErrRequestFailed:
		return e.Kind == FetchRequest
	}
	return false
}
