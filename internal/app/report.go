// internal/app/report.go
package app

import (
	"fmt"
	"strings"
	"time"

	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/zone"
)

// ZoneFailure is a zone task that ended with an error. The run carries on without it.
type ZoneFailure struct {
	Zone zone.Zone
	Err  error
}

// RunReport summarizes one extraction run.
type RunReport struct {
	RunID       string
	Range       calendar.DateRange
	Started     time.Time
	Finished    time.Time
	Zones       int
	Records     int
	SkippedDays int
	FailedZones []ZoneFailure
	Output      string // where the records went, e.g. the CSV path
}

func (r *RunReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Summary renders a short human-readable report, used for the admin message.
func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prayer time extraction %s\n", r.RunID)
	fmt.Fprintf(&b, "Range: %s\n", r.Range)
	fmt.Fprintf(&b, "Zones: %d, records: %d, skipped days: %d\n", r.Zones, r.Records, r.SkippedDays)
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration().Round(time.Second))
	if r.Output != "" {
		fmt.Fprintf(&b, "Output: %s\n", r.Output)
	}
	if len(r.FailedZones) > 0 {
		fmt.Fprintf(&b, "Failed zones (%d):\n", len(r.FailedZones))
		for _, f := range r.FailedZones {
			fmt.Fprintf(&b, "- %s: %v\n", f.Zone.Code, f.Err)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
