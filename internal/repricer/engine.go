package repricer

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/jgoulah/gridprice/pkg/models"
)

// Store is the read side of storage the engine needs
type Store interface {
	ListUsage(ctx context.Context, serviceID string, rng models.DateRange) ([]models.UsageObservation, error)
	ListPlans(ctx context.Context) ([]models.RateStructure, error)
	ListPlansByID(ctx context.Context, ids []string) ([]models.RateStructure, error)
}

// Request selects the usage history and plans to reprice
type Request struct {
	ServiceID string
	PlanIDs   []string // Empty means every stored plan
	Range     models.DateRange
}

// Engine reprices stored usage against stored plans
type Engine struct {
	store Store
	log   zerolog.Logger
}

// NewEngine creates a repricing engine over store
func NewEngine(store Store, log zerolog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log.With().Str("component", "repricer").Logger(),
	}
}

// MonthlyUsage aggregates one service point's stored usage into calendar months
func (e *Engine) MonthlyUsage(ctx context.Context, serviceID string, rng models.DateRange) ([]models.MonthlyUsage, error) {
	observations, err := e.store.ListUsage(ctx, serviceID, rng)
	if err != nil {
		return nil, fmt.Errorf("loading usage for %s: %w", serviceID, err)
	}

	inRange := make([]models.UsageObservation, 0, len(observations))
	for _, o := range observations {
		if rng.Contains(o.Date) {
			inRange = append(inRange, o)
		}
	}
	return AggregateMonthly(inRange), nil
}

// Reprice estimates the cost of the usage history under each candidate plan,
// cheapest first. No usage history yields an empty result.
func (e *Engine) Reprice(ctx context.Context, req Request) ([]models.PlanCostEstimate, error) {
	months, err := e.MonthlyUsage(ctx, req.ServiceID, req.Range)
	if err != nil {
		return nil, err
	}
	if len(months) == 0 {
		e.log.Debug().Str("esiid", req.ServiceID).Msg("no usage history, nothing to reprice")
		return []models.PlanCostEstimate{}, nil
	}

	var plans []models.RateStructure
	if len(req.PlanIDs) > 0 {
		plans, err = e.store.ListPlansByID(ctx, req.PlanIDs)
	} else {
		plans, err = e.store.ListPlans(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading plans: %w", err)
	}

	results := make([]models.PlanCostEstimate, 0, len(plans))
	for _, plan := range plans {
		results = append(results, PricePlan(plan, months))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalCost < results[j].TotalCost
	})

	e.log.Info().
		Str("esiid", req.ServiceID).
		Int("months", len(months)).
		Int("plans", len(results)).
		Msg("repriced usage")

	return results, nil
}

// PricePlan applies one plan to monthly usage. Months the plan cannot price
// are left out of the totals.
func PricePlan(plan models.RateStructure, months []models.MonthlyUsage) models.PlanCostEstimate {
	costs := []models.MonthlyCost{}
	var total, totalKWh float64

	for _, m := range months {
		cost, ok := EstimateMonthlyCost(plan, m.TotalKWh)
		if !ok {
			continue
		}
		costs = append(costs, models.MonthlyCost{
			Year:          m.Year,
			Month:         m.Month,
			KWh:           round(m.TotalKWh, 2),
			EstimatedCost: round(cost, 2),
		})
		total += cost
		totalKWh += m.TotalKWh
	}

	// A plan priced in no month still reports a zero average
	pricedMonths := max(len(costs), 1)
	var avgPrice float64
	if totalKWh > 0 {
		avgPrice = total / totalKWh * 100
	}

	return models.PlanCostEstimate{
		Plan:           plan,
		MonthlyCosts:   costs,
		TotalCost:      round(total, 2),
		AvgMonthlyCost: round(total/float64(pricedMonths), 2),
		AvgPricePerKWh: round(avgPrice, 2),
	}
}
