package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jgoulah/gridprice/pkg/models"
	_ "modernc.org/sqlite"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions serialized
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// dsn appends the connection pragmas, keeping any query the path already has
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		esiid TEXT NOT NULL,
		date TEXT NOT NULL,
		usage_kwh REAL NOT NULL,
		reading_type TEXT NOT NULL DEFAULT 'C',
		actual_estimated TEXT NOT NULL DEFAULT 'A',
		created_at TEXT NOT NULL,
		UNIQUE(esiid, date)
	);
	CREATE INDEX IF NOT EXISTS idx_usage_esiid ON usage_records(esiid);
	CREATE INDEX IF NOT EXISTS idx_usage_date ON usage_records(date);

	CREATE TABLE IF NOT EXISTS electricity_plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plan_id TEXT NOT NULL UNIQUE,
		company_name TEXT NOT NULL DEFAULT '',
		plan_name TEXT NOT NULL DEFAULT '',
		plan_type TEXT NOT NULL DEFAULT '',
		contract_length INTEGER,
		price_kwh_500 REAL,
		price_kwh_1000 REAL,
		price_kwh_2000 REAL,
		base_charge REAL,
		energy_charge REAL,
		tdu_delivery_charge REAL,
		tdu_per_kwh REAL,
		cancellation_fee REAL,
		renewable_pct REAL,
		is_time_of_use INTEGER NOT NULL DEFAULT 0,
		fetched_at TEXT
	);

	CREATE TABLE IF NOT EXISTS imports (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		imported INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_imports_created ON imports(created_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// WithTransaction runs fn inside a transaction, committing only if fn succeeds
func (db *DB) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("committing transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

// ImportUsage inserts a batch of observations in one transaction, skipping
// rows whose (esiid, date) already exists, and records the import in history.
// The returned record carries the imported and skipped counts.
func (db *DB) ImportUsage(ctx context.Context, rows []models.UsageObservation, record models.ImportRecord) (models.ImportRecord, error) {
	record.Imported, record.Skipped = 0, 0
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO usage_records (esiid, date, usage_kwh, reading_type, actual_estimated, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		createdAt := record.CreatedAt.UTC().Format(timestampLayout)
		for _, row := range rows {
			res, err := stmt.ExecContext(ctx, row.ServiceID, row.Date.Format(dateLayout), row.KWh, row.ReadingType, row.ActualEstimated, createdAt)
			if err != nil {
				return fmt.Errorf("inserting usage for %s on %s: %w", row.ServiceID, row.Date.Format(dateLayout), err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("reading rows affected: %w", err)
			}
			if n == 0 {
				record.Skipped++
			} else {
				record.Imported++
			}
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO imports (id, source, kind, imported, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		`, record.ID, record.Source, record.Kind, record.Imported, record.Skipped, createdAt)
		if err != nil {
			return fmt.Errorf("recording import: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.ImportRecord{}, err
	}

	return record, nil
}

// ListUsage retrieves one service point's usage within the range, ordered by date
func (db *DB) ListUsage(ctx context.Context, serviceID string, rng models.DateRange) ([]models.UsageObservation, error) {
	where, args := rangeClause(rng)
	where = append([]string{"esiid = ?"}, where...)
	args = append([]any{serviceID}, args...)
	return db.queryUsage(ctx, where, args)
}

// ListAllUsage retrieves usage for every service point within the range, ordered by date
func (db *DB) ListAllUsage(ctx context.Context, rng models.DateRange) ([]models.UsageObservation, error) {
	where, args := rangeClause(rng)
	return db.queryUsage(ctx, where, args)
}

func rangeClause(rng models.DateRange) ([]string, []any) {
	var where []string
	var args []any
	if rng.Start != nil {
		where = append(where, "date >= ?")
		args = append(args, rng.Start.Format(dateLayout))
	}
	if rng.End != nil {
		where = append(where, "date <= ?")
		args = append(args, rng.End.Format(dateLayout))
	}
	return where, args
}

func (db *DB) queryUsage(ctx context.Context, where []string, args []any) ([]models.UsageObservation, error) {
	query := `SELECT id, esiid, date, usage_kwh, reading_type, actual_estimated FROM usage_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, esiid ASC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage data: %w", err)
	}
	defer rows.Close()

	var results []models.UsageObservation
	for rows.Next() {
		var obs models.UsageObservation
		var dateStr string
		if err := rows.Scan(&obs.ID, &obs.ServiceID, &dateStr, &obs.KWh, &obs.ReadingType, &obs.ActualEstimated); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		obs.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}
		results = append(results, obs)
	}

	return results, rows.Err()
}

// DistinctServiceIDs lists every service point with stored usage
func (db *DB) DistinctServiceIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT esiid FROM usage_records ORDER BY esiid`)
	if err != nil {
		return nil, fmt.Errorf("querying service ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Summary returns dashboard figures across all stored usage
func (db *DB) Summary(ctx context.Context) (models.UsageSummary, error) {
	var summary models.UsageSummary
	var first, last sql.NullString
	var avg sql.NullFloat64

	row := db.conn.QueryRowContext(ctx, `SELECT COUNT(*), MIN(date), MAX(date), AVG(usage_kwh) FROM usage_records`)
	if err := row.Scan(&summary.TotalRecords, &first, &last, &avg); err != nil {
		return summary, fmt.Errorf("querying usage summary: %w", err)
	}

	if first.Valid && last.Valid {
		var err error
		if summary.FirstDate, err = time.Parse(dateLayout, first.String); err != nil {
			return summary, fmt.Errorf("parsing date: %w", err)
		}
		if summary.LastDate, err = time.Parse(dateLayout, last.String); err != nil {
			return summary, fmt.Errorf("parsing date: %w", err)
		}
	}
	if avg.Valid {
		summary.AvgDailyKWh = roundTo1(avg.Float64)
	}

	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM electricity_plans`).Scan(&summary.PlanCount); err != nil {
		return summary, fmt.Errorf("counting plans: %w", err)
	}

	return summary, nil
}

// ListImports returns the most recent imports, newest first
func (db *DB) ListImports(ctx context.Context, limit int) ([]models.ImportRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx, `
	SELECT id, source, kind, imported, skipped, created_at
	FROM imports
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying imports: %w", err)
	}
	defer rows.Close()

	var results []models.ImportRecord
	for rows.Next() {
		var rec models.ImportRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Kind, &rec.Imported, &rec.Skipped, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
