package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridprice/pkg/models"
)

var syncTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_APIRecord(t *testing.T) {
	raw := map[string]any{
		"plan_id":          float64(18234),
		"company_name":     "Test Energy Co",
		"plan_name":        "Simple Fixed 12",
		"plan_type":        "fixed",
		"contract_length":  "12.0",
		"price_kwh500":     "$0.142",
		"price_kwh1000":    float64(11.2),
		"price_kwh2000":    "10.9¢",
		"base_charge":      "9.95",
		"cancellation_fee": "$1,150",
		"renewable_pct":    "100%",
		"timeofuse":        "False",
	}

	plan, ok := Normalize(raw, syncTime)
	require.True(t, ok)

	assert.Equal(t, "18234", plan.PlanID)
	assert.Equal(t, "Test Energy Co", plan.ProviderName)
	assert.Equal(t, "Simple Fixed 12", plan.PlanName)
	assert.Equal(t, models.PlanFixed, plan.PlanKind)
	require.NotNil(t, plan.ContractMonths)
	assert.Equal(t, 12, *plan.ContractMonths)
	assert.Equal(t, 0.142, *plan.PriceKWh500)
	assert.Equal(t, 11.2, *plan.PriceKWh1000)
	assert.Equal(t, 10.9, *plan.PriceKWh2000)
	assert.Equal(t, 9.95, *plan.BaseCharge)
	assert.Equal(t, 1150.0, *plan.CancellationFee)
	assert.Equal(t, 100.0, *plan.RenewablePct)
	assert.Nil(t, plan.EnergyCharge)
	assert.False(t, plan.TimeOfUse)
	assert.Equal(t, syncTime, plan.FetchedAt)
}

func TestNormalize_BracketedLabels(t *testing.T) {
	raw := map[string]any{
		"[idKey]":                        "A-77",
		"[Company Name]":                 "Bracket Power",
		"[Plan Name]":                    "Indexed Saver",
		"[Plan Type]":                    "Indexed",
		"[Term Value]":                   "24",
		"[Price/kWh 1000]":               "13.5",
		"[Early Termination/Cancel Fee]": "Â¢150",
		"[Time of Use]":                  "TRUE",
	}

	plan, ok := Normalize(raw, syncTime)
	require.True(t, ok)
	assert.Equal(t, "A-77", plan.PlanID)
	assert.Equal(t, "Bracket Power", plan.ProviderName)
	assert.Equal(t, models.PlanIndexed, plan.PlanKind)
	assert.Equal(t, 24, *plan.ContractMonths)
	assert.Equal(t, 13.5, *plan.PriceKWh1000)
	assert.Equal(t, 150.0, *plan.CancellationFee)
	assert.True(t, plan.TimeOfUse)
	assert.Nil(t, plan.PriceKWh500)
}

func TestNormalize_APIKeyWinsOverLabel(t *testing.T) {
	raw := map[string]any{
		"plan_id":       "api",
		"[idKey]":       "label",
		"price_kwh1000": "",
		"[kwh1000]":     "12.1",
	}

	plan, ok := Normalize(raw, syncTime)
	require.True(t, ok)
	assert.Equal(t, "api", plan.PlanID)
	// A blank API value falls through to the label
	assert.Equal(t, 12.1, *plan.PriceKWh1000)
}

func TestNormalize_MissingIdentifier(t *testing.T) {
	for _, raw := range []map[string]any{
		{},
		{"company_name": "No Id"},
		{"plan_id": "  ", "[idKey]": nil},
	} {
		_, ok := Normalize(raw, syncTime)
		assert.False(t, ok)
	}
}

func TestNormalize_MalformedNumbersBecomeUnknown(t *testing.T) {
	raw := map[string]any{
		"plan_id":         "x",
		"price_kwh500":    "call us",
		"base_charge":     []any{1},
		"contract_length": "twelve",
		"energy_charge":   "0.089",
	}

	plan, ok := Normalize(raw, syncTime)
	require.True(t, ok)
	assert.Nil(t, plan.PriceKWh500)
	assert.Nil(t, plan.BaseCharge)
	assert.Nil(t, plan.ContractMonths)
	assert.Equal(t, 0.089, *plan.EnergyCharge)
	assert.Equal(t, "", plan.PlanKind)
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{nil, 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"$9.95", 9.95, true},
		{"1,234.5", 1234.5, true},
		{" 11.2¢ ", 11.2, true},
		{float64(3), 3, true},
		{7, 7, true},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseFloat(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %#v", tt.in)
		assert.Equal(t, tt.want, got, "input %#v", tt.in)
	}
}

func TestParseInt(t *testing.T) {
	v, ok := ParseInt("12.9")
	assert.True(t, ok)
	assert.Equal(t, 12, v)

	v, ok = ParseInt(float64(36))
	assert.True(t, ok)
	assert.Equal(t, 36, v)

	_, ok = ParseInt("n/a")
	assert.False(t, ok)
}

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool(true))
	assert.True(t, ParseBool("Yes"))
	assert.True(t, ParseBool("1"))
	assert.True(t, ParseBool(float64(1)))
	assert.False(t, ParseBool(nil))
	assert.False(t, ParseBool("false"))
	assert.False(t, ParseBool(""))
	assert.False(t, ParseBool(float64(0)))
}

type recordingStore struct {
	plans []models.RateStructure
}

func (s *recordingStore) UpsertPlans(ctx context.Context, plans []models.RateStructure) (int, error) {
	s.plans = append(s.plans, plans...)
	return len(plans), nil
}

func TestSave_DropsRecordsWithoutID(t *testing.T) {
	store := &recordingStore{}
	raw := []map[string]any{
		{"plan_id": "a", "plan_name": "first"},
		{"plan_name": "no id"},
		{"plan_id": "b"},
		{"plan_id": "a", "plan_name": "relisted"},
	}

	count, err := Save(context.Background(), store, raw, syncTime)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, store.plans, 2)
	assert.Equal(t, "a", store.plans[0].PlanID)
	assert.Equal(t, "relisted", store.plans[0].PlanName)
	assert.Equal(t, "b", store.plans[1].PlanID)
}

func TestSave_NothingToSave(t *testing.T) {
	store := &recordingStore{}
	count, err := Save(context.Background(), store, []map[string]any{{"plan_name": "x"}}, syncTime)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, store.plans)
}

type stubFetcher struct {
	records []map[string]any
	err     error
}

func (f stubFetcher) FetchAll(ctx context.Context, zipCodes []string) ([]map[string]any, error) {
	return f.records, f.err
}

func TestSync(t *testing.T) {
	store := &recordingStore{}
	fetcher := stubFetcher{records: []map[string]any{{"plan_id": "a"}, {"plan_id": "b"}}}

	count, err := Sync(context.Background(), fetcher, store, []string{"75001"}, syncTime)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSync_FetchFailureSavesNothing(t *testing.T) {
	store := &recordingStore{}
	fetcher := stubFetcher{err: errors.New("boom")}

	_, err := Sync(context.Background(), fetcher, store, []string{"75001"}, syncTime)
	assert.Error(t, err)
	assert.Empty(t, store.plans)
}
