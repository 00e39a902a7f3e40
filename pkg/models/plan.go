package models

import "time"

// Plan kinds published by the catalog
const (
	PlanFixed    = "Fixed"
	PlanVariable = "Variable"
	PlanIndexed  = "Indexed"
)

// RateStructure is one electricity plan's pricing terms.
// Nil pointer fields are unknown.
type RateStructure struct {
	ID             int    `json:"id"`
	PlanID         string `json:"plan_id"`
	ProviderName   string `json:"company_name"`
	PlanName       string `json:"plan_name"`
	PlanKind       string `json:"plan_type"` // Fixed, Variable, Indexed or empty
	ContractMonths *int   `json:"contract_length"`

	// All-in prices at standard usage tiers, cents/kWh
	PriceKWh500  *float64 `json:"price_kwh_500"`
	PriceKWh1000 *float64 `json:"price_kwh_1000"`
	PriceKWh2000 *float64 `json:"price_kwh_2000"`

	// Rate components, whole currency units
	BaseCharge     *float64 `json:"base_charge"`         // $/month
	EnergyCharge   *float64 `json:"energy_charge"`       // $/kWh
	DeliveryCharge *float64 `json:"tdu_delivery_charge"` // $/month
	DeliveryPerKWh *float64 `json:"tdu_per_kwh"`         // $/kWh

	CancellationFee *float64  `json:"cancellation_fee"`
	RenewablePct    *float64  `json:"renewable_pct"`
	TimeOfUse       bool      `json:"is_time_of_use"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// DisplayName returns "Provider - Plan"
func (p RateStructure) DisplayName() string {
	if p.ProviderName == "" {
		return p.PlanName
	}
	return p.ProviderName + " - " + p.PlanName
}
