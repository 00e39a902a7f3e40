package models

// MonthlyUsage aggregates one service point's observations in one calendar month
type MonthlyUsage struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	TotalKWh float64 `json:"total_kwh"`
	Days     int     `json:"days"`
}

// MonthlyTotal is a dashboard bucket across all service points
type MonthlyTotal struct {
	Label string  `json:"label"` // "2006-01"
	KWh   float64 `json:"kwh"`   // Rounded to 1 digit
}

// MonthlyCost is one priced month of a repricing run
type MonthlyCost struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	KWh           float64 `json:"kwh"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// PlanCostEstimate is the result of applying one plan to a usage history
type PlanCostEstimate struct {
	Plan           RateStructure `json:"plan"`
	MonthlyCosts   []MonthlyCost `json:"monthly_costs"`
	TotalCost      float64       `json:"total_cost"`
	AvgMonthlyCost float64       `json:"avg_monthly_cost"`
	AvgPricePerKWh float64       `json:"avg_price_per_kwh"` // cents
}
