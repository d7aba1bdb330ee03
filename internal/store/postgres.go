package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transitops/fleet-occupancy-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

var _ Store = (*PostgresStore)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every query
// method works identically inside and outside Transact.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable Store variant. The pipeline contract is the
// same as MemStore's; Transact gives the ingestion sequence its all-or-nothing
// guarantee on top of fallible persistence.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, db: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.db.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Transact runs fn against a transaction-bound view of the store.
func (p *PostgresStore) Transact(ctx context.Context, fn func(Store) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PostgresStore{pool: p.pool, db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Vehicles

const vehicleColumns = `id, number, route, capacity, occupancy, alert_threshold, status, location, last_update, active`

func scanVehicle(row pgx.Row) (models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.ID, &v.Number, &v.Route, &v.Capacity, &v.Occupancy,
		&v.AlertThreshold, &v.Status, &v.Location, &v.LastUpdate, &v.Active)
	return v, err
}

func (p *PostgresStore) GetVehicle(ctx context.Context, id string) (models.Vehicle, error) {
	v, err := scanVehicle(p.db.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Vehicle{}, ErrNotFound
	}
	return v, err
}

func (p *PostgresStore) listVehicles(ctx context.Context, query string) ([]models.Vehicle, error) {
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return p.listVehicles(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY id`)
}

func (p *PostgresStore) ListActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return p.listVehicles(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE active ORDER BY id`)
}

func (p *PostgresStore) CreateVehicle(ctx context.Context, v models.Vehicle) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO vehicles(id, number, route, capacity, occupancy, alert_threshold, status, location, last_update, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, v.ID, v.Number, v.Route, v.Capacity, v.Occupancy, v.AlertThreshold, v.Status, v.Location, v.LastUpdate, v.Active)
	return err
}

func (p *PostgresStore) PutVehicle(ctx context.Context, v models.Vehicle) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE vehicles
		SET number=$2, route=$3, capacity=$4, occupancy=$5, alert_threshold=$6,
		    status=$7, location=$8, last_update=$9, active=$10
		WHERE id=$1
	`, v.ID, v.Number, v.Route, v.Capacity, v.Occupancy, v.AlertThreshold, v.Status, v.Location, v.LastUpdate, v.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVehicle removes the vehicle record only. Sample, alert and activity
// rows keep their weak reference and are expected to dangle afterwards.
func (p *PostgresStore) DeleteVehicle(ctx context.Context, id string) (bool, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM vehicles WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Stops

const stopColumns = `id, name, location, waiting, active, last_update`

func scanStop(row pgx.Row) (models.Stop, error) {
	var s models.Stop
	err := row.Scan(&s.ID, &s.Name, &s.Location, &s.Waiting, &s.Active, &s.LastUpdate)
	return s, err
}

func (p *PostgresStore) GetStop(ctx context.Context, id string) (models.Stop, error) {
	s, err := scanStop(p.db.QueryRow(ctx,
		`SELECT `+stopColumns+` FROM stops WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Stop{}, ErrNotFound
	}
	return s, err
}

func (p *PostgresStore) listStops(ctx context.Context, query string) ([]models.Stop, error) {
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListStops(ctx context.Context) ([]models.Stop, error) {
	return p.listStops(ctx, `SELECT `+stopColumns+` FROM stops ORDER BY id`)
}

func (p *PostgresStore) ListActiveStops(ctx context.Context) ([]models.Stop, error) {
	return p.listStops(ctx, `SELECT `+stopColumns+` FROM stops WHERE active ORDER BY id`)
}

func (p *PostgresStore) CreateStop(ctx context.Context, s models.Stop) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO stops(id, name, location, waiting, active, last_update)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, s.ID, s.Name, s.Location, s.Waiting, s.Active, s.LastUpdate)
	return err
}

func (p *PostgresStore) PutStop(ctx context.Context, s models.Stop) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE stops SET name=$2, location=$3, waiting=$4, active=$5, last_update=$6
		WHERE id=$1
	`, s.ID, s.Name, s.Location, s.Waiting, s.Active, s.LastUpdate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Samples

const sampleColumns = `id, vehicle_id, stop_id, boarded, alighted, ts`

func (p *PostgresStore) AppendSample(ctx context.Context, s models.OccupancySample) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO occupancy_samples(id, vehicle_id, stop_id, boarded, alighted, ts)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, s.ID, s.VehicleID, s.StopID, s.Boarded, s.Alighted, s.Timestamp)
	return err
}

func (p *PostgresStore) querySamples(ctx context.Context, query string, args ...any) ([]models.OccupancySample, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OccupancySample
	for rows.Next() {
		var s models.OccupancySample
		if err := rows.Scan(&s.ID, &s.VehicleID, &s.StopID, &s.Boarded, &s.Alighted, &s.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SamplesForVehicle(ctx context.Context, vehicleID string) ([]models.OccupancySample, error) {
	return p.querySamples(ctx,
		`SELECT `+sampleColumns+` FROM occupancy_samples WHERE vehicle_id=$1 ORDER BY ts`, vehicleID)
}

func (p *PostgresStore) SamplesSince(ctx context.Context, cutoff time.Time) ([]models.OccupancySample, error) {
	return p.querySamples(ctx,
		`SELECT `+sampleColumns+` FROM occupancy_samples WHERE ts > $1 ORDER BY ts`, cutoff)
}

// Alerts

const alertColumns = `id, vehicle_id, category, message, severity, read, created_at`

func (p *PostgresStore) CreateAlert(ctx context.Context, a models.Alert) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO alerts(id, vehicle_id, category, message, severity, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, a.VehicleID, a.Category, a.Message, a.Severity, a.Read, a.CreatedAt)
	return err
}

func (p *PostgresStore) queryAlerts(ctx context.Context, query string) ([]models.Alert, error) {
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.VehicleID, &a.Category, &a.Message, &a.Severity, &a.Read, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	return p.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC, id`)
}

func (p *PostgresStore) ListUnreadAlerts(ctx context.Context) ([]models.Alert, error) {
	return p.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE NOT read ORDER BY created_at DESC, id`)
}

func (p *PostgresStore) MarkAlertRead(ctx context.Context, id string) (bool, error) {
	tag, err := p.db.Exec(ctx, `UPDATE alerts SET read=TRUE WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresStore) DeleteAlert(ctx context.Context, id string) (bool, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM alerts WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Activity

const activityColumns = `id, vehicle_id, kind, description, ts`

func (p *PostgresStore) AppendActivity(ctx context.Context, r models.ActivityRecord) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO activity_records(id, vehicle_id, kind, description, ts)
		VALUES ($1,$2,$3,$4,$5)
	`, r.ID, r.VehicleID, r.Kind, r.Description, r.Timestamp)
	return err
}

func (p *PostgresStore) queryActivity(ctx context.Context, query string, args ...any) ([]models.ActivityRecord, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		var r models.ActivityRecord
		if err := rows.Scan(&r.ID, &r.VehicleID, &r.Kind, &r.Description, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) RecentActivity(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	return p.queryActivity(ctx,
		`SELECT `+activityColumns+` FROM activity_records ORDER BY ts DESC LIMIT $1`, limit)
}

func (p *PostgresStore) ActivityForVehicle(ctx context.Context, vehicleID string) ([]models.ActivityRecord, error) {
	return p.queryActivity(ctx,
		`SELECT `+activityColumns+` FROM activity_records WHERE vehicle_id=$1 ORDER BY ts`, vehicleID)
}
