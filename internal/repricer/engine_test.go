package repricer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridprice/internal/database"
	"github.com/jgoulah/gridprice/pkg/models"
)

const esiid = "1234567890123"

type memoryStore struct {
	usage    []models.UsageObservation
	plans    []models.RateStructure
	usageErr error
}

func (s *memoryStore) ListUsage(ctx context.Context, serviceID string, rng models.DateRange) ([]models.UsageObservation, error) {
	if s.usageErr != nil {
		return nil, s.usageErr
	}
	var out []models.UsageObservation
	for _, o := range s.usage {
		if o.ServiceID == serviceID && rng.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memoryStore) ListPlans(ctx context.Context) ([]models.RateStructure, error) {
	return s.plans, nil
}

func (s *memoryStore) ListPlansByID(ctx context.Context, ids []string) ([]models.RateStructure, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.RateStructure
	for _, p := range s.plans {
		if want[p.PlanID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func tieredPlan(id string, p500, p1000, p2000 float64) models.RateStructure {
	return models.RateStructure{
		PlanID:       id,
		ProviderName: "Test Energy Co",
		PlanName:     id,
		PlanKind:     models.PlanFixed,
		PriceKWh500:  fptr(p500),
		PriceKWh1000: fptr(p1000),
		PriceKWh2000: fptr(p2000),
	}
}

func TestReprice_ThreeMonths(t *testing.T) {
	store := &memoryStore{
		usage: flatUsage(esiid, 2025, 40.0, time.January, time.February, time.March),
		plans: []models.RateStructure{tieredPlan("test-plan-1", 12.0, 10.0, 9.0)},
	}
	engine := NewEngine(store, zerolog.Nop())

	results, err := engine.Reprice(context.Background(), Request{ServiceID: esiid})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "test-plan-1", r.Plan.PlanID)
	require.Len(t, r.MonthlyCosts, 3)

	// 1240 and 1120 kWh months are above 1000, so the 2000 tier applies
	assert.Equal(t, models.MonthlyCost{Year: 2025, Month: 1, KWh: 1240, EstimatedCost: 111.6}, r.MonthlyCosts[0])
	assert.Equal(t, models.MonthlyCost{Year: 2025, Month: 2, KWh: 1120, EstimatedCost: 100.8}, r.MonthlyCosts[1])
	assert.Equal(t, 324.0, r.TotalCost)
	assert.Equal(t, 108.0, r.AvgMonthlyCost)
	assert.Equal(t, 9.0, r.AvgPricePerKWh)
}

func TestReprice_FlatThousandTier(t *testing.T) {
	store := &memoryStore{
		usage: flatUsage(esiid, 2025, 30.0, time.January, time.February, time.March),
		plans: []models.RateStructure{{PlanID: "flat", PriceKWh1000: fptr(10.0)}},
	}
	engine := NewEngine(store, zerolog.Nop())

	results, err := engine.Reprice(context.Background(), Request{ServiceID: esiid})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].MonthlyCosts, 3)

	want := 10.0/100*930 + 10.0/100*840 + 10.0/100*930
	assert.InDelta(t, want, results[0].TotalCost, 1e-9)
	assert.Equal(t, 10.0, results[0].AvgPricePerKWh)
}

func TestReprice_SortsCheapestFirst(t *testing.T) {
	store := &memoryStore{
		usage: flatUsage(esiid, 2025, 20.0, time.April),
		plans: []models.RateStructure{
			tieredPlan("pricey", 20, 20, 20),
			{PlanID: "components", BaseCharge: fptr(5), EnergyCharge: fptr(0.08)},
			tieredPlan("cheap", 9, 9, 9),
		},
	}
	engine := NewEngine(store, zerolog.Nop())

	results, err := engine.Reprice(context.Background(), Request{ServiceID: esiid})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 600 kWh: cheap 54.00, components 53.00, pricey 120.00
	assert.Equal(t, "components", results[0].Plan.PlanID)
	assert.Equal(t, 53.0, results[0].TotalCost)
	assert.Equal(t, "cheap", results[1].Plan.PlanID)
	assert.Equal(t, "pricey", results[2].Plan.PlanID)
}

func TestReprice_UnpricedMonthsExcluded(t *testing.T) {
	// 300 kWh in June, 1550 kWh in July
	usage := flatUsage(esiid, 2025, 10.0, time.June)
	usage = append(usage, flatUsage(esiid, 2025, 50.0, time.July)...)
	store := &memoryStore{
		usage: usage,
		plans: []models.RateStructure{
			{PlanID: "half", PriceKWh500: fptr(10)},
			{PlanID: "none"},
		},
	}
	engine := NewEngine(store, zerolog.Nop())

	results, err := engine.Reprice(context.Background(), Request{ServiceID: esiid})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The plan with no prices stays in the output with zeroed figures
	assert.Equal(t, "none", results[0].Plan.PlanID)
	assert.Empty(t, results[0].MonthlyCosts)
	assert.Zero(t, results[0].TotalCost)
	assert.Zero(t, results[0].AvgMonthlyCost)
	assert.Zero(t, results[0].AvgPricePerKWh)

	half := results[1]
	require.Len(t, half.MonthlyCosts, 1)
	assert.Equal(t, 6, half.MonthlyCosts[0].Month)
	assert.Equal(t, 30.0, half.TotalCost)
	assert.Equal(t, 30.0, half.AvgMonthlyCost)
	assert.Equal(t, 10.0, half.AvgPricePerKWh)
}

func TestReprice_NoUsage(t *testing.T) {
	store := &memoryStore{
		usage: flatUsage("other", 2025, 40.0, time.January),
		plans: []models.RateStructure{tieredPlan("a", 1, 1, 1), tieredPlan("b", 2, 2, 2)},
	}
	engine := NewEngine(store, zerolog.Nop())

	results, err := engine.Reprice(context.Background(), Request{ServiceID: esiid})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestReprice_PlanSubsetAndDateRange(t *testing.T) {
	store := &memoryStore{
		usage: flatUsage(esiid, 2025, 10.0, time.January, time.February, time.March),
		plans: []models.RateStructure{tieredPlan("a", 10, 10, 10), tieredPlan("b", 20, 20, 20)},
	}
	engine := NewEngine(store, zerolog.Nop())

	start, end := day(2025, 2, 1), day(2025, 2, 28)
	results, err := engine.Reprice(context.Background(), Request{
		ServiceID: esiid,
		PlanIDs:   []string{"b", "missing"},
		Range:     models.DateRange{Start: &start, End: &end},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Plan.PlanID)
	require.Len(t, results[0].MonthlyCosts, 1)
	assert.Equal(t, 56.0, results[0].TotalCost)
}

func TestReprice_StoreError(t *testing.T) {
	boom := errors.New("disk gone")
	engine := NewEngine(&memoryStore{usageErr: boom}, zerolog.Nop())

	_, err := engine.Reprice(context.Background(), Request{ServiceID: esiid})
	assert.ErrorIs(t, err, boom)
}

func TestReprice_SQLiteStore(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "reprice.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	rec, err := db.ImportUsage(ctx, flatUsage(esiid, 2025, 40.0, time.January, time.February, time.March),
		models.ImportRecord{ID: "seed", Kind: "daily"})
	require.NoError(t, err)
	require.Equal(t, 90, rec.Imported)

	_, err = db.UpsertPlans(ctx, []models.RateStructure{tieredPlan("test-plan-1", 12.0, 10.0, 9.0)})
	require.NoError(t, err)

	engine := NewEngine(db, zerolog.Nop())
	results, err := engine.Reprice(ctx, Request{ServiceID: esiid})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].MonthlyCosts, 3)
	assert.Equal(t, 324.0, results[0].TotalCost)

	months, err := engine.MonthlyUsage(ctx, esiid, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, 28, months[1].Days)
}

// unfilteredStore returns every observation regardless of the requested range
type unfilteredStore struct {
	memoryStore
}

func (s *unfilteredStore) ListUsage(ctx context.Context, serviceID string, rng models.DateRange) ([]models.UsageObservation, error) {
	return s.usage, nil
}

func TestMonthlyUsage_KeepsRequestedRange(t *testing.T) {
	store := &unfilteredStore{memoryStore{
		usage: flatUsage(esiid, 2025, 10.0, time.January, time.February, time.March),
	}}
	engine := NewEngine(store, zerolog.Nop())

	start, end := day(2025, 2, 1), day(2025, 2, 28)
	months, err := engine.MonthlyUsage(context.Background(), esiid, models.DateRange{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, models.MonthlyUsage{Year: 2025, Month: 2, TotalKWh: 280, Days: 28}, months[0])
	assert.Len(t, store.usage, 90)
}
