package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/prayertime"
	"prayer_time_extractor/internal/domain/zone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sgr01 = zone.Zone{Code: "SGR01", Name: "Gombak, Petaling, Sepang", State: "Selangor"}

func extractAll(e *ZoneExtractor, ctx context.Context, z zone.Zone, r calendar.DateRange) ([]prayertime.Record, []SkippedDay) {
	var skipped []SkippedDay
	var recs []prayertime.Record
	for rec := range e.Extract(ctx, z, r, func(sd SkippedDay) { skipped = append(skipped, sd) }) {
		recs = append(recs, rec)
	}
	return recs, skipped
}

func TestExtract_AllLookupsSucceed(t *testing.T) {
	f := newFakeFetcher(nil)
	r := calendar.NewDateRange(date("2024-02-27"), date("2024-03-02"))

	recs, skipped := extractAll(NewZoneExtractor(f, testLogger()), context.Background(), sgr01, r)

	require.Len(t, recs, r.Len())
	assert.Empty(t, skipped)
	i := 0
	for d := range r.Days() {
		assert.Equal(t, d, recs[i].Date)
		assert.Equal(t, hijriFor(d), recs[i].HijriAM)
		assert.Equal(t, hijriFor(d.AddDate(0, 0, 1)), recs[i].HijriPM)
		assert.Equal(t, "Selangor", recs[i].State)
		assert.Equal(t, "SGR01", recs[i].Zone)
		assert.Equal(t, sgr01.Name, recs[i].Name)
		i++
	}
	// two lookups per day
	assert.Equal(t, 2*r.Len(), f.callCount())
}

func TestExtract_CurrentDayFailureSkipsOnlyThatDay(t *testing.T) {
	f := newFakeFetcher(func(_ string, d time.Time, nth int) (*prayertime.Response, error) {
		// 2024-01-02 is first asked for as the next day of 01-01, then as the current day.
		if d.Equal(date("2024-01-02")) && nth == 2 {
			return nil, errLookup
		}
		return okResponse(d), nil
	})
	r := calendar.NewDateRange(date("2024-01-01"), date("2024-01-03"))

	recs, skipped := extractAll(NewZoneExtractor(f, testLogger()), context.Background(), sgr01, r)

	require.Len(t, recs, 2)
	assert.Equal(t, date("2024-01-01"), recs[0].Date)
	assert.Equal(t, date("2024-01-03"), recs[1].Date)
	require.Len(t, skipped, 1)
	assert.Equal(t, date("2024-01-02"), skipped[0].Date)
	assert.ErrorIs(t, skipped[0].Reason, prayertime.ErrRequestFailed)
}

func TestExtract_NextDayFailureAlsoSkipsTheDay(t *testing.T) {
	f := newFakeFetcher(func(_ string, d time.Time, nth int) (*prayertime.Response, error) {
		if d.Equal(date("2024-01-02")) && nth == 1 {
			return nil, &prayertime.FetchError{Kind: prayertime.FetchTimeout, Attempts: 5, Err: context.DeadlineExceeded}
		}
		return okResponse(d), nil
	})
	r := calendar.NewDateRange(date("2024-01-01"), date("2024-01-02"))

	recs, skipped := extractAll(NewZoneExtractor(f, testLogger()), context.Background(), sgr01, r)

	require.Len(t, recs, 1)
	assert.Equal(t, date("2024-01-02"), recs[0].Date)
	require.Len(t, skipped, 1)
	assert.Equal(t, date("2024-01-01"), skipped[0].Date)
	assert.ErrorIs(t, skipped[0].Reason, prayertime.ErrTimeoutExhausted)
}

func TestExtract_EmptyResultSkipsBothNeighbours(t *testing.T) {
	f := newFakeFetcher(func(_ string, d time.Time, _ int) (*prayertime.Response, error) {
		if d.Equal(date("2024-01-02")) {
			return &prayertime.Response{PrayerTime: []prayertime.Entry{}}, nil
		}
		return okResponse(d), nil
	})
	r := calendar.NewDateRange(date("2024-01-01"), date("2024-01-02"))

	recs, skipped := extractAll(NewZoneExtractor(f, testLogger()), context.Background(), sgr01, r)

	assert.Empty(t, recs)
	require.Len(t, skipped, 2)
	for _, sd := range skipped {
		assert.True(t, errors.Is(sd.Reason, ErrNoPrayerTimeEntry))
	}
}

func TestExtract_NilSkipCallbackIsAllowed(t *testing.T) {
	f := newFakeFetcher(func(_ string, _ time.Time, _ int) (*prayertime.Response, error) {
		return nil, errLookup
	})
	r := calendar.NewDateRange(date("2024-01-01"), date("2024-01-05"))

	n := 0
	for range NewZoneExtractor(f, testLogger()).Extract(context.Background(), sgr01, r, nil) {
		n++
	}
	assert.Zero(t, n)
	assert.Equal(t, 10, f.callCount())
}

func TestExtract_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFakeFetcher(func(_ string, d time.Time, _ int) (*prayertime.Response, error) {
		if d.Equal(date("2024-01-03")) {
			cancel()
		}
		return okResponse(d), nil
	})
	r := calendar.NewDateRange(date("2024-01-01"), date("2024-12-31"))

	recs, skipped := extractAll(NewZoneExtractor(f, testLogger()), ctx, sgr01, r)

	// 01-02 completes because its lookups returned before the cancel took effect.
	assert.Len(t, recs, 2)
	assert.Empty(t, skipped, "cancellation is not a skipped day")
	assert.Equal(t, 4, f.callCount())
}

func TestExtract_IsRestartable(t *testing.T) {
	f := newFakeFetcher(nil)
	e := NewZoneExtractor(f, testLogger())
	r := calendar.NewDateRange(date("2024-01-01"), date("2024-01-03"))

	first, _ := extractAll(e, context.Background(), sgr01, r)
	second, _ := extractAll(e, context.Background(), sgr01, r)
	assert.Equal(t, first, second)
}
