package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"prayer_time_extractor/internal/domain/calendar"
	"prayer_time_extractor/internal/domain/prayertime"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func date(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func hijriFor(d time.Time) string {
	return "H" + d.Format(calendar.DateLayout)
}

func okResponse(d time.Time) *prayertime.Response {
	return &prayertime.Response{PrayerTime: []prayertime.Entry{{
		Hijri:   hijriFor(d),
		Date:    d.Format("02-Jan-2006"),
		Day:     d.Weekday().String(),
		Imsak:   "05:56:00",
		Fajr:    "06:06:00",
		Syuruk:  "07:17:00",
		Dhuhr:   "13:20:00",
		Asr:     "16:43:00",
		Maghrib: "19:17:00",
		Isha:    "20:32:00",
	}}}
}

var errLookup = &prayertime.FetchError{Kind: prayertime.FetchRequest, Attempts: 1, Err: errors.New("status 500")}

// fakeFetcher answers every lookup through respond and records the calls it saw.
// nth is 1 for the first time a (zone, date) pair is requested, 2 for the second, and so on.
type fakeFetcher struct {
	mu      sync.Mutex
	seen    map[string]int
	calls   []string
	respond func(zoneCode string, d time.Time, nth int) (*prayertime.Response, error)
}

func newFakeFetcher(respond func(zoneCode string, d time.Time, nth int) (*prayertime.Response, error)) *fakeFetcher {
	if respond == nil {
		respond = func(_ string, d time.Time, _ int) (*prayertime.Response, error) {
			return okResponse(d), nil
		}
	}
	return &fakeFetcher{seen: make(map[string]int), respond: respond}
}

func (f *fakeFetcher) Fetch(ctx context.Context, d time.Time, zoneCode string) (*prayertime.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s %s", zoneCode, d.Format(calendar.DateLayout))
	f.mu.Lock()
	f.seen[key]++
	nth := f.seen[key]
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	return f.respond(zoneCode, d, nth)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memorySink keeps everything it is given.
type memorySink struct {
	mu        sync.Mutex
	header    []string
	batches   [][]prayertime.Record
	closed    bool
	failAfter int // fail the write after this many successful batches; 0 never fails
}

func (s *memorySink) WriteHeader(header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = append([]string(nil), header...)
	return nil
}

func (s *memorySink) Write(_ context.Context, records []prayertime.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.batches) >= s.failAfter {
		return errors.New("disk full")
	}
	s.batches = append(s.batches, append([]prayertime.Record(nil), records...))
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) records() []prayertime.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []prayertime.Record
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}
