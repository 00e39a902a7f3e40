// Package repricer estimates what historical usage would have cost under
// each stored electricity plan.
package repricer

import (
	"math"

	"github.com/jgoulah/gridprice/pkg/models"
)

// EstimateMonthlyCost estimates one month's bill for monthlyKWh of usage.
//
// When the plan publishes an energy charge, the itemized formula is used:
// base + energy*kWh + delivery + deliveryPerKWh*kWh, all in dollars.
// Otherwise the all-in tier price is applied (cents/kWh): usage up to 500
// kWh uses the 500 tier, up to 1000 the 1000 tier, anything else the 2000
// tier. An absent tier falls through to the next one. Returns false when no
// applicable price exists.
func EstimateMonthlyCost(plan models.RateStructure, monthlyKWh float64) (float64, bool) {
	if plan.EnergyCharge != nil {
		energy := *plan.EnergyCharge * monthlyKWh
		delivery := value(plan.DeliveryCharge) + value(plan.DeliveryPerKWh)*monthlyKWh
		return value(plan.BaseCharge) + energy + delivery, true
	}

	switch {
	case monthlyKWh <= 500 && published(plan.PriceKWh500):
		return *plan.PriceKWh500 * monthlyKWh / 100, true
	case monthlyKWh <= 1000 && published(plan.PriceKWh1000):
		return *plan.PriceKWh1000 * monthlyKWh / 100, true
	case published(plan.PriceKWh2000):
		return *plan.PriceKWh2000 * monthlyKWh / 100, true
	}
	return 0, false
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// The catalog lists unpublished tiers as 0
func published(price *float64) bool {
	return price != nil && *price != 0
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
