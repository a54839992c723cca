package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"rigwatch/pkg/agents"
	"rigwatch/pkg/orchestrator"
	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Repository persists readings, predictions, and alerts to Postgres.
type Repository struct {
	db *sql.DB
}

// OpenRepository connects, tunes the pool, and runs pending migrations.
func OpenRepository(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[store] postgres repository ready")
	return &Repository{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: run migrations: %w", err)
	}
	return nil
}

// SaveCycle writes one processing cycle atomically: the derived reading,
// every non-nil prediction, and the alerts it raised.
func (r *Repository) SaveCycle(ctx context.Context, reading telemetry.Reading, p orchestrator.Predictions, alerts []orchestrator.Alert) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO drilling_data
			(ts, depth, wob, rop, rpm, torque, spp, flow_rate, ecd, hook_load,
			 mse, hole_cleaning_index, differential_pressure, drag_factor)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		reading.Timestamp, reading.Depth, reading.WOB, reading.ROP, reading.RPM,
		reading.Torque, reading.SPP, reading.FlowRate, reading.ECD, reading.HookLoad,
		reading.MSE, reading.HoleCleaningIndex, reading.DifferentialPressure, reading.DragFactor)
	if err != nil {
		return fmt.Errorf("store: insert reading: %w", err)
	}

	results := map[string]*agents.Result{
		agents.KindMechanicalSticking:   p.MechanicalSticking,
		agents.KindDifferentialSticking: p.DifferentialSticking,
		agents.KindHoleCleaning:         p.HoleCleaning,
		agents.KindWashoutMudLosses:     p.WashoutMudLosses,
		agents.KindROPOptimization:      p.ROPOptimization,
	}
	for kind, res := range results {
		if res == nil {
			continue
		}
		payload, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("store: marshal %s result: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO predictions (ts, agent, probability, payload)
			VALUES ($1,$2,$3,$4)`,
			reading.Timestamp, kind, res.Probability, payload); err != nil {
			return fmt.Errorf("store: insert %s prediction: %w", kind, err)
		}
	}

	for _, a := range alerts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (id, ts, alert_type, severity, probability, message, recommendation, acknowledged)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			a.ID, a.Timestamp, a.Type, a.Severity, a.Probability, a.Message, a.Recommendation, a.Acknowledged); err != nil {
			return fmt.Errorf("store: insert alert %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit cycle: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (r *Repository) RecentAlerts(ctx context.Context, limit int) ([]orchestrator.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ts, alert_type, severity, probability, message, recommendation, acknowledged
		FROM alerts ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query alerts: %w", err)
	}
	defer rows.Close()

	var out []orchestrator.Alert
	for rows.Next() {
		var a orchestrator.Alert
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Type, &a.Severity, &a.Probability,
			&a.Message, &a.Recommendation, &a.Acknowledged); err != nil {
			return nil, fmt.Errorf("store: scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcknowledgeAlert marks an alert acknowledged by ID.
func (r *Repository) AcknowledgeAlert(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET acknowledged = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: acknowledge alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: alert %s not found", id)
	}
	return nil
}

// paramColumns whitelists the queryable drilling_data columns; the
// parameter name is interpolated into SQL, so only mapped names pass.
var paramColumns = map[telemetry.Param]string{
	telemetry.ParamDepth:    "depth",
	telemetry.ParamWOB:      "wob",
	telemetry.ParamROP:      "rop",
	telemetry.ParamRPM:      "rpm",
	telemetry.ParamTorque:   "torque",
	telemetry.ParamSPP:      "spp",
	telemetry.ParamFlowRate: "flow_rate",
	telemetry.ParamECD:      "ecd",
	telemetry.ParamHookLoad: "hook_load",
}

// ParameterStatistics aggregates one parameter over the lookback window.
func (r *Repository) ParameterStatistics(ctx context.Context, param telemetry.Param, since time.Duration) (stats.Summary, error) {
	col, ok := paramColumns[param]
	if !ok {
		return stats.Summary{}, fmt.Errorf("store: unknown parameter %q", param)
	}
	q := fmt.Sprintf(`
		SELECT COALESCE(MIN(%[1]s),0), COALESCE(MAX(%[1]s),0),
		       COALESCE(AVG(%[1]s),0), COALESCE(STDDEV_POP(%[1]s),0), COUNT(*)
		FROM drilling_data WHERE ts >= $1`, col)

	var s stats.Summary
	err := r.db.QueryRowContext(ctx, q, time.Now().Add(-since)).
		Scan(&s.Min, &s.Max, &s.Avg, &s.Std, &s.Count)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("store: %s statistics: %w", col, err)
	}
	return s, nil
}

// AlertSummary counts alerts by severity over the lookback window.
func (r *Repository) AlertSummary(ctx context.Context, since time.Duration) (map[orchestrator.Severity]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM alerts
		WHERE ts >= $1 GROUP BY severity`, time.Now().Add(-since))
	if err != nil {
		return nil, fmt.Errorf("store: alert summary: %w", err)
	}
	defer rows.Close()

	out := make(map[orchestrator.Severity]int)
	for rows.Next() {
		var sev orchestrator.Severity
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, fmt.Errorf("store: scan summary: %w", err)
		}
		out[sev] = n
	}
	return out, rows.Err()
}

// Purge deletes readings, predictions, and alerts older than the
// retention horizon. Returns the number of reading rows removed.
func (r *Repository) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := r.db.ExecContext(ctx, `DELETE FROM drilling_data WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge readings: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM predictions WHERE ts < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("store: purge predictions: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE ts < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("store: purge alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}
