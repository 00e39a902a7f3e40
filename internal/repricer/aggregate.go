package repricer

import (
	"fmt"
	"sort"

	"github.com/jgoulah/gridprice/pkg/models"
)

type monthKey struct {
	year  int
	month int
}

// AggregateMonthly groups daily observations into calendar months, ascending.
// Days missing from the input simply do not contribute.
func AggregateMonthly(observations []models.UsageObservation) []models.MonthlyUsage {
	buckets := make(map[monthKey]*models.MonthlyUsage)
	for _, o := range observations {
		key := monthKey{year: o.Date.Year(), month: int(o.Date.Month())}
		b, ok := buckets[key]
		if !ok {
			b = &models.MonthlyUsage{Year: key.year, Month: key.month}
			buckets[key] = b
		}
		b.TotalKWh += o.KWh
		b.Days++
	}

	result := make([]models.MonthlyUsage, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return result
}

// MonthlyTotals sums observations per "YYYY-MM" label for the dashboard,
// rounded to one digit. Service points are not separated.
func MonthlyTotals(observations []models.UsageObservation) []models.MonthlyTotal {
	months := AggregateMonthly(observations)
	totals := make([]models.MonthlyTotal, len(months))
	for i, m := range months {
		totals[i] = models.MonthlyTotal{
			Label: fmt.Sprintf("%04d-%02d", m.Year, m.Month),
			KWh:   round(m.TotalKWh, 1),
		}
	}
	return totals
}
