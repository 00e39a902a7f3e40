package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jgoulah/gridprice/pkg/models"
)

// PlanStore persists plans keyed by plan id
type PlanStore interface {
	UpsertPlans(ctx context.Context, plans []models.RateStructure) (int, error)
}

// Fetcher returns raw catalog records for a set of zip codes
type Fetcher interface {
	FetchAll(ctx context.Context, zipCodes []string) ([]map[string]any, error)
}

// Sync fetches every zip code and saves the result in one batch.
// Nothing is saved when any fetch fails.
func Sync(ctx context.Context, fetcher Fetcher, store PlanStore, zipCodes []string, now time.Time) (int, error) {
	raw, err := fetcher.FetchAll(ctx, zipCodes)
	if err != nil {
		return 0, err
	}
	return Save(ctx, store, raw, now)
}

// Save normalizes raw records and upserts them, returning the number saved.
// Records without a plan id are dropped and not counted. A plan listed more
// than once in the batch is saved once, with its last listing winning.
func Save(ctx context.Context, store PlanStore, raw []map[string]any, now time.Time) (int, error) {
	plans := make([]models.RateStructure, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for _, record := range raw {
		plan, ok := Normalize(record, now)
		if !ok {
			continue
		}
		if i, dup := seen[plan.PlanID]; dup {
			plans[i] = plan
			continue
		}
		seen[plan.PlanID] = len(plans)
		plans = append(plans, plan)
	}

	if len(plans) == 0 {
		return 0, nil
	}

	count, err := store.UpsertPlans(ctx, plans)
	if err != nil {
		return 0, fmt.Errorf("saving plans: %w", err)
	}
	return count, nil
}
