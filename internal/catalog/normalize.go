// Package catalog fetches electricity plans from Power to Choose and maps
// provider records onto models.RateStructure.
package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridprice/pkg/models"
)

// Keys per logical field, API name first and display labels after.
// The labels cover both the old bracketed export and the current CSV export.
var (
	planIDKeys         = []string{"plan_id", "idKey", "[idKey]"}
	providerKeys       = []string{"company_name", "[Company Name]", "[RepCompany]"}
	planNameKeys       = []string{"plan_name", "[Plan Name]", "[Product]"}
	planTypeKeys       = []string{"plan_type", "[Plan Type]", "[RateType]"}
	contractKeys       = []string{"contract_length", "[Term Value]", "[TermValue]"}
	price500Keys       = []string{"price_kwh500", "[Price/kWh 500]", "[kwh500]"}
	price1000Keys      = []string{"price_kwh1000", "[Price/kWh 1000]", "[kwh1000]"}
	price2000Keys      = []string{"price_kwh2000", "[Price/kWh 2000]", "[kwh2000]"}
	baseChargeKeys     = []string{"base_charge", "[Base Charge]"}
	energyChargeKeys   = []string{"energy_charge", "[Energy Charge]"}
	deliveryChargeKeys = []string{"tdu_delivery_charge", "[TDU Delivery Charge]"}
	deliveryPerKWhKeys = []string{"tdu_per_kwh", "[TDU Per kWh]"}
	cancelFeeKeys      = []string{"cancellation_fee", "[Early Termination/Cancel Fee]", "[CancelFee]"}
	renewableKeys      = []string{"renewable_pct", "[Renewable %]", "[Renewable]"}
	timeOfUseKeys      = []string{"timeofuse", "[Time of Use]", "[TimeOfUse]"}
)

var numberCleaner = strings.NewReplacer("Â¢", "", "¢", "", "$", "", ",", "", "%", "")

// Normalize maps one raw catalog record onto a RateStructure stamped with now.
// It returns false when the record carries no usable plan identifier.
func Normalize(raw map[string]any, now time.Time) (models.RateStructure, bool) {
	planID := lookupString(raw, planIDKeys)
	if planID == "" {
		return models.RateStructure{}, false
	}

	var contract *int
	if v, ok := ParseInt(lookup(raw, contractKeys)); ok {
		contract = &v
	}

	return models.RateStructure{
		PlanID:          planID,
		ProviderName:    lookupString(raw, providerKeys),
		PlanName:        lookupString(raw, planNameKeys),
		PlanKind:        planKind(lookupString(raw, planTypeKeys)),
		ContractMonths:  contract,
		PriceKWh500:     lookupFloat(raw, price500Keys),
		PriceKWh1000:    lookupFloat(raw, price1000Keys),
		PriceKWh2000:    lookupFloat(raw, price2000Keys),
		BaseCharge:      lookupFloat(raw, baseChargeKeys),
		EnergyCharge:    lookupFloat(raw, energyChargeKeys),
		DeliveryCharge:  lookupFloat(raw, deliveryChargeKeys),
		DeliveryPerKWh:  lookupFloat(raw, deliveryPerKWhKeys),
		CancellationFee: lookupFloat(raw, cancelFeeKeys),
		RenewablePct:    lookupFloat(raw, renewableKeys),
		TimeOfUse:       ParseBool(lookup(raw, timeOfUseKeys)),
		FetchedAt:       now,
	}, true
}

// lookup returns the first value among keys that is present and not blank
func lookup(raw map[string]any, keys []string) any {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func lookupString(raw map[string]any, keys []string) string {
	return toString(lookup(raw, keys))
}

func lookupFloat(raw map[string]any, keys []string) *float64 {
	v, ok := ParseFloat(lookup(raw, keys))
	if !ok {
		return nil
	}
	return &v
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// ParseFloat coerces catalog values like "$9.95", "1,200" or "11.2¢".
// Anything unconvertible is reported as unknown rather than an error.
func ParseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(numberCleaner.Replace(x))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ParseInt accepts integers and numeric strings, truncating any fraction ("12.0" -> 12)
func ParseInt(v any) (int, bool) {
	f, ok := ParseFloat(v)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseBool treats true/yes/y/on/1 and non-zero numbers as true
func ParseBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "y", "on", "1":
			return true
		}
		return false
	default:
		f, ok := ParseFloat(v)
		return ok && f != 0
	}
}

func planKind(s string) string {
	for _, kind := range []string{models.PlanFixed, models.PlanVariable, models.PlanIndexed} {
		if strings.EqualFold(s, kind) {
			return kind
		}
	}
	return ""
}
