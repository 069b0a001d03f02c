package domain

import "time"

// RecordSource indicates how a health record was produced
type RecordSource string

const (
	RecordSourceSync   RecordSource = "sync"
	RecordSourceManual RecordSource = "manual"
)

// HealthRecord is one calendar day of activity aggregates.
// Date is normalized to deployment-local midnight and is unique per day.
type HealthRecord struct {
	ID        string       `json:"id"`
	Date      time.Time    `json:"date"`
	Steps     int          `json:"steps"`
	Calories  int          `json:"calories"`
	Source    RecordSource `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DailyActivity is the provider's aggregate answer for one day.
// The Recorded flags distinguish "no data points for the window" from a
// genuine zero; the original conflated the two.
type DailyActivity struct {
	Steps            int  `json:"steps"`
	Calories         int  `json:"calories"`
	StepsRecorded    bool `json:"steps_recorded"`
	CaloriesRecorded bool `json:"calories_recorded"`
}

// NoData reports whether the provider had nothing recorded for the day.
func (a DailyActivity) NoData() bool {
	return !a.StepsRecorded && !a.CaloriesRecorded
}

// DayOf normalizes a timestamp to local midnight. Record keys and provider
// query windows are both derived from this, so a record and the data it holds
// always agree on which day they describe. Deployment-local time defines the
// day boundary; users whose activity spans a timezone change may see a day
// split across two records.
func DayOf(t time.Time) time.Time {
	year, month, day := t.Local().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}
