package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/transitops/fleet-occupancy-service/internal/models"
)

var _ Store = (*MemStore)(nil)

// MemStore is the reference in-memory implementation. All state lives in
// process; a restart loses everything, which is acceptable for the live
// dashboard this backs (subscribers resynchronize by re-fetching anyway).
type MemStore struct {
	mu       sync.RWMutex
	vehicles map[string]models.Vehicle
	stops    map[string]models.Stop
	alerts   map[string]models.Alert
	samples  []models.OccupancySample
	activity []models.ActivityRecord
}

func NewMemStore() *MemStore {
	return &MemStore{
		vehicles: make(map[string]models.Vehicle),
		stops:    make(map[string]models.Stop),
		alerts:   make(map[string]models.Alert),
	}
}

// Vehicles

func (m *MemStore) GetVehicle(_ context.Context, id string) (models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return models.Vehicle{}, ErrNotFound
	}
	return v, nil
}

func (m *MemStore) ListVehicles(_ context.Context) ([]models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) ListActiveVehicles(_ context.Context) ([]models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Vehicle
	for _, v := range m.vehicles {
		if v.Active {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) CreateVehicle(_ context.Context, v models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
	return nil
}

func (m *MemStore) PutVehicle(_ context.Context, v models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[v.ID]; !ok {
		return ErrNotFound
	}
	m.vehicles[v.ID] = v
	return nil
}

func (m *MemStore) DeleteVehicle(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[id]; !ok {
		return false, nil
	}
	// Historical sample/alert/activity rows keep their (now dangling)
	// vehicle reference on purpose.
	delete(m.vehicles, id)
	return true, nil
}

// Stops

func (m *MemStore) GetStop(_ context.Context, id string) (models.Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stops[id]
	if !ok {
		return models.Stop{}, ErrNotFound
	}
	return s, nil
}

func (m *MemStore) ListStops(_ context.Context) ([]models.Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Stop, 0, len(m.stops))
	for _, s := range m.stops {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) ListActiveStops(_ context.Context) ([]models.Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Stop
	for _, s := range m.stops {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) CreateStop(_ context.Context, s models.Stop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops[s.ID] = s
	return nil
}

func (m *MemStore) PutStop(_ context.Context, s models.Stop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stops[s.ID]; !ok {
		return ErrNotFound
	}
	m.stops[s.ID] = s
	return nil
}

// Samples

func (m *MemStore) AppendSample(_ context.Context, s models.OccupancySample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

func (m *MemStore) SamplesForVehicle(_ context.Context, vehicleID string) ([]models.OccupancySample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.OccupancySample
	for _, s := range m.samples {
		if s.VehicleID == vehicleID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemStore) SamplesSince(_ context.Context, cutoff time.Time) ([]models.OccupancySample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.OccupancySample
	for _, s := range m.samples {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Alerts

func (m *MemStore) CreateAlert(_ context.Context, a models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
	return nil
}

func (m *MemStore) ListAlerts(_ context.Context) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, a)
	}
	sortAlertsByCreationDesc(out)
	return out, nil
}

func (m *MemStore) ListUnreadAlerts(_ context.Context) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if !a.Read {
			out = append(out, a)
		}
	}
	sortAlertsByCreationDesc(out)
	return out, nil
}

func (m *MemStore) MarkAlertRead(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return false, nil
	}
	a.Read = true
	m.alerts[id] = a
	return true, nil
}

func (m *MemStore) DeleteAlert(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[id]; !ok {
		return false, nil
	}
	delete(m.alerts, id)
	return true, nil
}

// Activity

func (m *MemStore) AppendActivity(_ context.Context, r models.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, r)
	return nil
}

func (m *MemStore) RecentActivity(_ context.Context, limit int) ([]models.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ActivityRecord, len(m.activity))
	copy(out, m.activity)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) ActivityForVehicle(_ context.Context, vehicleID string) ([]models.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ActivityRecord
	for _, r := range m.activity {
		if r.VehicleID == vehicleID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Transact runs fn directly: in-memory writes cannot fail halfway, and the
// occupancy service already serializes the sequence per vehicle.
func (m *MemStore) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) Close() {}

func sortAlertsByCreationDesc(alerts []models.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].ID < alerts[j].ID
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
