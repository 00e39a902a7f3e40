package models

import "time"

// Reading types reported by Smart Meter Texas exports
const (
	ReadingConsumption = "C"
	ReadingGeneration  = "G"
)

// Reading quality flags
const (
	QualityActual    = "A"
	QualityEstimated = "E"
)

// UsageObservation represents one service point's consumption on one day
type UsageObservation struct {
	ID              int       `json:"id"`
	ServiceID       string    `json:"esiid"`
	Date            time.Time `json:"date"` // Midnight UTC, the time part is ignored
	KWh             float64   `json:"usage_kwh"`
	ReadingType     string    `json:"reading_type"`     // "C" or "G"
	ActualEstimated string    `json:"actual_estimated"` // "A" or "E"
}

// DateRange holds optional inclusive date bounds
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether the day falls within the range
func (r DateRange) Contains(day time.Time) bool {
	if r.Start != nil && day.Before(*r.Start) {
		return false
	}
	if r.End != nil && day.After(*r.End) {
		return false
	}
	return true
}

// ImportRecord is one ingestion call, kept as history
type ImportRecord struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"` // "daily" or "interval"
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}

// UsageSummary holds dashboard figures across all stored usage
type UsageSummary struct {
	TotalRecords int
	FirstDate    time.Time
	LastDate     time.Time
	AvgDailyKWh  float64 // Rounded to 1 digit
	PlanCount    int
}
