package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jgoulah/gridprice/pkg/models"
)

const planColumns = `id, plan_id, company_name, plan_name, plan_type, contract_length,
	price_kwh_500, price_kwh_1000, price_kwh_2000,
	base_charge, energy_charge, tdu_delivery_charge, tdu_per_kwh,
	cancellation_fee, renewable_pct, is_time_of_use, fetched_at`

// UpsertPlans inserts new plans and overwrites existing ones in place, keyed by plan_id.
// Every mapped field is replaced, including fields that became unknown.
func (db *DB) UpsertPlans(ctx context.Context, plans []models.RateStructure) (int, error) {
	count := 0
	err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO electricity_plans (
			plan_id, company_name, plan_name, plan_type, contract_length,
			price_kwh_500, price_kwh_1000, price_kwh_2000,
			base_charge, energy_charge, tdu_delivery_charge, tdu_per_kwh,
			cancellation_fee, renewable_pct, is_time_of_use, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			company_name = excluded.company_name,
			plan_name = excluded.plan_name,
			plan_type = excluded.plan_type,
			contract_length = excluded.contract_length,
			price_kwh_500 = excluded.price_kwh_500,
			price_kwh_1000 = excluded.price_kwh_1000,
			price_kwh_2000 = excluded.price_kwh_2000,
			base_charge = excluded.base_charge,
			energy_charge = excluded.energy_charge,
			tdu_delivery_charge = excluded.tdu_delivery_charge,
			tdu_per_kwh = excluded.tdu_per_kwh,
			cancellation_fee = excluded.cancellation_fee,
			renewable_pct = excluded.renewable_pct,
			is_time_of_use = excluded.is_time_of_use,
			fetched_at = excluded.fetched_at
		`)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range plans {
			var fetchedAt any
			if !p.FetchedAt.IsZero() {
				fetchedAt = p.FetchedAt.UTC().Format(timestampLayout)
			}
			_, err := stmt.ExecContext(ctx,
				p.PlanID, p.ProviderName, p.PlanName, p.PlanKind, nullInt(p.ContractMonths),
				nullFloat(p.PriceKWh500), nullFloat(p.PriceKWh1000), nullFloat(p.PriceKWh2000),
				nullFloat(p.BaseCharge), nullFloat(p.EnergyCharge), nullFloat(p.DeliveryCharge), nullFloat(p.DeliveryPerKWh),
				nullFloat(p.CancellationFee), nullFloat(p.RenewablePct), p.TimeOfUse, fetchedAt,
			)
			if err != nil {
				return fmt.Errorf("upserting plan %s: %w", p.PlanID, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListPlans returns every stored plan, cheapest 1000 kWh price first
func (db *DB) ListPlans(ctx context.Context) ([]models.RateStructure, error) {
	return db.queryPlans(ctx, `SELECT `+planColumns+` FROM electricity_plans
	ORDER BY price_kwh_1000 IS NULL, price_kwh_1000, plan_id`)
}

// ListPlansByID returns the stored plans among ids; unknown ids are ignored
func (db *DB) ListPlansByID(ctx context.Context, ids []string) ([]models.RateStructure, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return db.queryPlans(ctx, `SELECT `+planColumns+` FROM electricity_plans
	WHERE plan_id IN (`+placeholders+`)
	ORDER BY price_kwh_1000 IS NULL, price_kwh_1000, plan_id`, args...)
}

// GetPlan retrieves one plan by plan id, or nil if it is not stored
func (db *DB) GetPlan(ctx context.Context, planID string) (*models.RateStructure, error) {
	plans, err := db.ListPlansByID(ctx, []string{planID})
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return &plans[0], nil
}

func (db *DB) queryPlans(ctx context.Context, query string, args ...any) ([]models.RateStructure, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var results []models.RateStructure
	for rows.Next() {
		var p models.RateStructure
		var contract sql.NullInt64
		var p500, p1000, p2000, base, energy, delivery, deliveryKWh, cancel, renewable sql.NullFloat64
		var fetchedAt sql.NullString

		if err := rows.Scan(&p.ID, &p.PlanID, &p.ProviderName, &p.PlanName, &p.PlanKind, &contract,
			&p500, &p1000, &p2000, &base, &energy, &delivery, &deliveryKWh,
			&cancel, &renewable, &p.TimeOfUse, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if contract.Valid {
			v := int(contract.Int64)
			p.ContractMonths = &v
		}
		p.PriceKWh500 = floatPtr(p500)
		p.PriceKWh1000 = floatPtr(p1000)
		p.PriceKWh2000 = floatPtr(p2000)
		p.BaseCharge = floatPtr(base)
		p.EnergyCharge = floatPtr(energy)
		p.DeliveryCharge = floatPtr(delivery)
		p.DeliveryPerKWh = floatPtr(deliveryKWh)
		p.CancellationFee = floatPtr(cancel)
		p.RenewablePct = floatPtr(renewable)

		if fetchedAt.Valid && fetchedAt.String != "" {
			p.FetchedAt, err = time.Parse(timestampLayout, fetchedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing fetched_at: %w", err)
			}
		}

		results = append(results, p)
	}

	return results, rows.Err()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
