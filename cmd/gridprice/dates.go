package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/gridprice/pkg/models"
)

// parseDate accepts YYYY-MM-DD or a relative "Nd" meaning N days before now
func parseDate(dateStr string, now time.Time) (time.Time, error) {
	// Try absolute date format first
	t, err := time.Parse("2006-01-02", dateStr)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil && days >= 0 {
			day := now.AddDate(0, 0, -days)
			return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}

// parseRange builds an inclusive range from optional --start/--end values
func parseRange(start, end string, now time.Time) (models.DateRange, error) {
	var rng models.DateRange
	if start != "" {
		t, err := parseDate(start, now)
		if err != nil {
			return rng, fmt.Errorf("parsing --start date: %w", err)
		}
		rng.Start = &t
	}
	if end != "" {
		t, err := parseDate(end, now)
		if err != nil {
			return rng, fmt.Errorf("parsing --end date: %w", err)
		}
		rng.End = &t
	}
	if rng.Start != nil && rng.End != nil && rng.End.Before(*rng.Start) {
		return rng, fmt.Errorf("--end %s is before --start %s", end, start)
	}
	return rng, nil
}
