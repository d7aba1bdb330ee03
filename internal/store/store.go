package store

import (
	"context"
	"errors"
	"time"

	"github.com/transitops/fleet-occupancy-service/internal/models"
)

// ErrNotFound is returned when a vehicle or stop identifier is unknown.
// Handlers map it to a 404.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface consumed by the pipeline and the CRUD
// handlers. It holds no business logic: status derivation and the alert
// decision live in the occupancy service, which drives these primitives.
//
// Sample, alert and activity rows hold weak vehicle references: deleting a
// vehicle never touches them, and their VehicleID may dangle afterwards.
type Store interface {
	// Vehicles
	GetVehicle(ctx context.Context, id string) (models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	ListActiveVehicles(ctx context.Context) ([]models.Vehicle, error)
	CreateVehicle(ctx context.Context, v models.Vehicle) error
	// PutVehicle replaces the stored record; ErrNotFound if absent.
	PutVehicle(ctx context.Context, v models.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) (bool, error)

	// Stops
	GetStop(ctx context.Context, id string) (models.Stop, error)
	ListStops(ctx context.Context) ([]models.Stop, error)
	ListActiveStops(ctx context.Context) ([]models.Stop, error)
	CreateStop(ctx context.Context, s models.Stop) error
	PutStop(ctx context.Context, s models.Stop) error

	// Occupancy samples (append-only)
	AppendSample(ctx context.Context, s models.OccupancySample) error
	SamplesForVehicle(ctx context.Context, vehicleID string) ([]models.OccupancySample, error)
	SamplesSince(ctx context.Context, cutoff time.Time) ([]models.OccupancySample, error)

	// Alerts
	CreateAlert(ctx context.Context, a models.Alert) error
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	ListUnreadAlerts(ctx context.Context) ([]models.Alert, error)
	// MarkAlertRead reports false, without error, for an unknown id.
	MarkAlertRead(ctx context.Context, id string) (bool, error)
	DeleteAlert(ctx context.Context, id string) (bool, error)

	// Activity records (append-only)
	AppendActivity(ctx context.Context, r models.ActivityRecord) error
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityRecord, error)
	ActivityForVehicle(ctx context.Context, vehicleID string) ([]models.ActivityRecord, error)

	// Transact runs fn against a view of the store in which all writes commit
	// or none do. The in-memory store is non-failing and runs fn directly; the
	// Postgres store wraps fn in a transaction.
	Transact(ctx context.Context, fn func(Store) error) error

	// Ping backs the readiness endpoint.
	Ping(ctx context.Context) error
	Close()
}
