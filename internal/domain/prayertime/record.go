// internal/domain/prayertime/record.go
package prayertime

import (
	"time"

	"prayer_time_extractor/internal/domain/zone"
)

// Header is the fixed column layout of the tabular output.
var Header = []string{
	"date",
	"hijri_am",
	"hijri_pm",
	"day",
	"imsak",
	"subuh",
	"syuruk",
	"zohor",
	"asar",
	"maghrib",
	"isyak",
	"state",
	"zone",
	"name",
}

// Record is one output row: a zone's prayer times for one Gregorian date.
// HijriPM is the Hijri date of the following day, which starts at maghrib.
type Record struct {
	Date    time.Time `db:"date"`
	HijriAM string    `db:"hijri_am"`
	HijriPM string    `db:"hijri_pm"`
	Day     string    `db:"day"`
	Imsak   string    `db:"imsak"`
	Fajr    string    `db:"subuh"`
	Syuruk  string    `db:"syuruk"`
	Dhuhr   string    `db:"zohor"`
	Asr     string    `db:"asar"`
	Maghrib string    `db:"maghrib"`
	Isha    string    `db:"isyak"`
	State   string    `db:"state"`
	Zone    string    `db:"zone"`
	Name    string    `db:"name"`
}

// NewRecord combines the current-day and next-day entries for a zone.
func NewRecord(z zone.Zone, date time.Time, current, next Entry) Record {
	return Record{
		Date:    date,
		HijriAM: current.Hijri,
		HijriPM: next.Hijri,
		Day:     current.Day,
		Imsak:   current.Imsak,
		Fajr:    current.Fajr,
		Syuruk:  current.Syuruk,
		Dhuhr:   current.Dhuhr,
		Asr:     current.Asr,
		Maghrib: current.Maghrib,
		Isha:    current.Isha,
		State:   z.State,
		Zone:    z.Code,
		Name:    z.Name,
	}
}

// Row renders the record in Header column order.
func (r Record) Row() []string {
	return []string{
		r.Date.Format("2006-01-02"),
		r.HijriAM,
		r.HijriPM,
		r.Day,
		r.Imsak,
		r.Fajr,
		r.Syuruk,
		r.Dhuhr,
		r.Asr,
		r.Maghrib,
		r.Isha,
		r.State,
		r.Zone,
		r.Name,
	}
}
