// Package occupancy implements the ingestion pipeline's state machine: given
// a validated occupancy sample it derives the vehicle's operational status,
// decides whether an alert fires, appends the audit rows and emits the
// resulting events.
package occupancy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/transitops/fleet-occupancy-service/internal/metrics"
	"github.com/transitops/fleet-occupancy-service/internal/models"
	"github.com/transitops/fleet-occupancy-service/internal/store"
	"github.com/transitops/fleet-occupancy-service/internal/ws"
)

// ActivityOccupancyUpdate is the activity kind appended once per ingestion.
const ActivityOccupancyUpdate = "occupancy_update"

// Broadcaster is the slice of the fan-out hub the pipeline needs.
type Broadcaster interface {
	Broadcast(ev ws.Event)
}

// UpdateEvent is the occupancy_updated payload.
type UpdateEvent struct {
	Vehicle models.Vehicle         `json:"vehicle"`
	Sample  models.OccupancySample `json:"sample"`
}

// Service drives one ingestion through mutation, sample, activity, conditional
// alert and broadcast. The whole sequence runs under a per-vehicle lock:
// concurrent samples for the same vehicle are serialized, different vehicles
// proceed in parallel.
type Service struct {
	store   store.Store
	hub     Broadcaster
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(st store.Store, hub Broadcaster, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		hub:     hub,
		logger:  logger,
		metrics: m,
		locks:   make(map[string]*sync.Mutex),
	}
}

// DeriveStatus computes operational status purely from the occupancy triple.
// Pre-existing maintenance/offline status is not consulted: any sample resets
// the vehicle to a derived value. That matches the administrative-override
// semantics of the live system, where marking a vehicle offline only holds
// until its counter reports again.
func DeriveStatus(occupancy, capacity, threshold int) models.VehicleStatus {
	switch {
	case occupancy > capacity:
		return models.StatusOverCapacity
	case occupancy >= threshold:
		return models.StatusNearCapacity
	default:
		return models.StatusActive
	}
}

// Apply runs the state machine for one validated sample.
//
// Returns store.ErrNotFound, with zero side effects, when the vehicle is
// unknown. On success exactly one sample and one activity row have been
// appended, plus one alert row when occupancy reached the vehicle's
// threshold. Alerts are intentionally not deduplicated: every qualifying
// sample appends a fresh row, even while an identical unread alert exists.
func (s *Service) Apply(ctx context.Context, upd models.OccupancyUpdate) (models.Vehicle, error) {
	lock := s.vehicleLock(upd.VehicleID)
	lock.Lock()
	defer lock.Unlock()

	var (
		vehicle models.Vehicle
		sample  models.OccupancySample
		alert   *models.Alert
	)

	err := s.store.Transact(ctx, func(st store.Store) error {
		v, err := st.GetVehicle(ctx, upd.VehicleID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		occ := *upd.Occupancy

		v.Occupancy = occ
		v.Status = DeriveStatus(occ, v.Capacity, v.AlertThreshold)
		v.LastUpdate = now
		if upd.Location != "" {
			v.Location = upd.Location
		}
		if err := st.PutVehicle(ctx, v); err != nil {
			return err
		}

		sample = models.OccupancySample{
			ID:        uuid.New().String(),
			VehicleID: v.ID,
			Boarded:   *upd.Boarded,
			Alighted:  *upd.Alighted,
			Timestamp: now,
		}
		if err := st.AppendSample(ctx, sample); err != nil {
			return err
		}

		if err := st.AppendActivity(ctx, models.ActivityRecord{
			ID:          uuid.New().String(),
			VehicleID:   v.ID,
			Kind:        ActivityOccupancyUpdate,
			Description: fmt.Sprintf("Occupancy updated: %d/%d", occ, v.Capacity),
			Timestamp:   now,
		}); err != nil {
			return err
		}

		if occ >= v.AlertThreshold {
			a := buildAlert(v, occ, now)
			if err := st.CreateAlert(ctx, a); err != nil {
				return err
			}
			alert = &a
		}

		vehicle = v
		return nil
	})
	if err != nil {
		return models.Vehicle{}, err
	}

	s.metrics.SamplesIngested.Inc()
	s.logger.Info("occupancy sample applied",
		"vehicle", vehicle.ID,
		"occupancy", vehicle.Occupancy,
		"capacity", vehicle.Capacity,
		"status", vehicle.Status,
		"alert", alert != nil,
	)

	s.hub.Broadcast(ws.Event{
		Type: ws.EventOccupancyUpdated,
		Data: UpdateEvent{Vehicle: vehicle, Sample: sample},
	})
	if alert != nil {
		s.metrics.AlertsRaised.WithLabelValues(string(alert.Severity)).Inc()
		s.hub.Broadcast(ws.Event{Type: ws.EventAlertRaised, Data: *alert})
	}

	return vehicle, nil
}

func buildAlert(v models.Vehicle, occ int, now time.Time) models.Alert {
	category := models.AlertNearCapacity
	severity := models.SeverityHigh
	verb := "near capacity"
	if occ > v.Capacity {
		category = models.AlertOverCapacity
		severity = models.SeverityCritical
		verb = "exceeded capacity"
	}
	return models.Alert{
		ID:        uuid.New().String(),
		VehicleID: v.ID,
		Category:  category,
		Message:   fmt.Sprintf("Vehicle %s %s (%d/%d)", v.ID, verb, occ, v.Capacity),
		Severity:  severity,
		CreatedAt: now,
	}
}

// vehicleLock returns the mutex serializing updates for one vehicle ID.
// Locks are never reclaimed; the fleet is small and bounded.
func (s *Service) vehicleLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}
