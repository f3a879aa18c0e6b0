// internal/app/zone_extractor.go
package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/prayertime"
	"prayer_time_extractor/internal/domain/zone"

	"github.com/sirupsen/logrus"
)

// ErrNoPrayerTimeEntry is the skip reason when a lookup succeeds but carries no entry.
var ErrNoPrayerTimeEntry = errors.New("response contains no prayerTime entry")

// SkippedDay describes a zone-day for which no record was produced.
type SkippedDay struct {
	Zone   string
	Date   time.Time
	Reason error
}

// ZoneExtractor turns one zone's date range into records, two lookups per day.
type ZoneExtractor struct {
	fetcher prayertime.Fetcher
	logger  *logrus.Entry
}

func NewZoneExtractor(fetcher prayertime.Fetcher, logger *logrus.Entry) *ZoneExtractor {
	return &ZoneExtractor{
		fetcher: fetcher,
		logger:  logger.WithField("component", "zone-extractor"),
	}
}

// Extract yields a record for every day whose current-day and next-day lookups both
// succeed with at least one entry. Other days are reported to onSkip (which may be nil)
// and skipped. Iteration ends early when ctx is done.
func (e *ZoneExtractor) Extract(ctx context.Context, z zone.Zone, days calendar.DateRange, onSkip func(SkippedDay)) iter.Seq[prayertime.Record] {
	log := e.logger.WithFields(logrus.Fields{"state": z.State, "zone": z.Code})

	return func(yield func(prayertime.Record) bool) {
		for d := range days.Days() {
			if ctx.Err() != nil {
				return
			}

			rec, err := e.extractDay(ctx, z, d)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithField("date", d.Format(calendar.DateLayout)).WithError(err).Warn("Skipping day")
				if onSkip != nil {
					onSkip(SkippedDay{Zone: z.Code, Date: d, Reason: err})
				}
				continue
			}

			log.WithField("date", d.Format(calendar.DateLayout)).Debug("Processing data")
			if !yield(rec) {
				return
			}
		}
	}
}

func (e *ZoneExtractor) extractDay(ctx context.Context, z zone.Zone, d time.Time) (prayertime.Record, error) {
	// Both lookups are always issued; the next day's Hijri date needs its own call.
	am, amErr := e.fetcher.Fetch(ctx, d, z.Code)
	pm, pmErr := e.fetcher.Fetch(ctx, calendar.NextDay(d), z.Code)

	if amErr != nil {
		return prayertime.Record{}, fmt.Errorf("current-day lookup: %w", amErr)
	}
	if pmErr != nil {
		return prayertime.Record{}, fmt.Errorf("next-day lookup: %w", pmErr)
	}

	current, ok := am.First()
	if !ok {
		return prayertime.Record{}, fmt.Errorf("current-day lookup: %w", ErrNoPrayerTimeEntry)
	}
	next, ok := pm.First()
	if !ok {
		return prayertime.Record{}, fmt.Errorf("next-day lookup: %w", ErrNoPrayerTimeEntry)
	}
	return prayertime.NewRecord(z, d, current, next), nil
}
