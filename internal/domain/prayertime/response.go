// internal/domain/prayertime/response.go
package prayertime

// Response is the decoded body of one e-Solat TakwimSolat lookup.
// The API returns at most one PrayerTime entry for a (date, zone) query.
type Response struct {
	PrayerTime []Entry `json:"prayerTime"`
	Status     string  `json:"status"`
	ServerTime string  `json:"serverTime"`
	PeriodType string  `json:"periodType"`
	Lang       string  `json:"lang"`
	Zone       string  `json:"zone"`
	Bearing    string  `json:"bearing"`
}

// Entry is one day of prayer times as reported by the API.
type Entry struct {
	Hijri   string `json:"hijri"`
	Date    string `json:"date"` // e.g. "01-Jan-2024"
	Day     string `json:"day"`
	Imsak   string `json:"imsak"`
	Fajr    string `json:"fajr"`
	Syuruk  string `json:"syuruk"`
	Dhuhr   string `json:"dhuhr"`
	Asr     string `json:"asr"`
	Maghrib string `json:"maghrib"`
	Isha    string `json:"isha"`
}

// First returns the first entry, if any.
func (r *Response) First() (Entry, bool) {
	if r == nil || len(r.PrayerTime) == 0 {
		return Entry{}, false
	}
	return r.PrayerTime[0], true
}
