package models

import "time"

// VehicleStatus is the operational state of a vehicle. The three derived
// values are recomputed from occupancy on every ingested sample; maintenance
// and offline are set administratively and survive only until the next sample.
type VehicleStatus string

const (
	StatusActive       VehicleStatus = "active"
	StatusNearCapacity VehicleStatus = "near_capacity"
	StatusOverCapacity VehicleStatus = "over_capacity"
	StatusMaintenance  VehicleStatus = "maintenance"
	StatusOffline      VehicleStatus = "offline"
)

// AlertSeverity values, lowest to highest.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertCategory mirrors the statuses that can raise an alert.
type AlertCategory string

const (
	AlertOverCapacity AlertCategory = "over_capacity"
	AlertNearCapacity AlertCategory = "near_capacity"
	AlertMaintenance  AlertCategory = "maintenance"
	AlertOffline      AlertCategory = "offline"
)

// Vehicle is the current-state record for one fleet vehicle.
type Vehicle struct {
	ID             string        `json:"id"`
	Number         string        `json:"number"`
	Route          string        `json:"route"`
	Capacity       int           `json:"capacity"`
	Occupancy      int           `json:"occupancy"`
	AlertThreshold int           `json:"alert_threshold"`
	Status         VehicleStatus `json:"status"`
	Location       string        `json:"location,omitempty"`
	LastUpdate     time.Time     `json:"last_update"`
	Active         bool          `json:"active"`
}

// Stop is a boarding point with a live waiting-passenger count. Its lifecycle
// is independent of any vehicle.
type Stop struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Waiting    int       `json:"waiting"`
	Active     bool      `json:"active"`
	LastUpdate time.Time `json:"last_update"`
}

// OccupancySample is one immutable reported observation. VehicleID and StopID
// are weak references: empty means absent, and a non-empty value may point at
// an entity that has since been deleted.
type OccupancySample struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	StopID    string    `json:"stop_id,omitempty"`
	Boarded   int       `json:"boarded"`
	Alighted  int       `json:"alighted"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert is raised by the occupancy state machine. Only the Read flag is ever
// mutated after creation.
type Alert struct {
	ID        string        `json:"id"`
	VehicleID string        `json:"vehicle_id,omitempty"`
	Category  AlertCategory `json:"category"`
	Message   string        `json:"message"`
	Severity  AlertSeverity `json:"severity"`
	Read      bool          `json:"read"`
	CreatedAt time.Time     `json:"created_at"`
}

// ActivityRecord is one immutable audit row; exactly one is appended per
// successful ingestion.
type ActivityRecord struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// OccupancyUpdate is the POST /api/occupancy payload. Counts are pointers so
// that an absent field is distinguishable from an explicit zero and rejected.
type OccupancyUpdate struct {
	VehicleID string `json:"vehicle_id" binding:"required"`
	Occupancy *int   `json:"current_occupancy" binding:"required"`
	Boarded   *int   `json:"boarded" binding:"required"`
	Alighted  *int   `json:"alighted" binding:"required"`
	Location  string `json:"location,omitempty"`
}

// CreateVehicle is the POST /api/vehicles payload. Capacity and AlertThreshold
// fall back to the deployment defaults (40/35) when omitted.
type CreateVehicle struct {
	ID             string `json:"id" binding:"required"`
	Number         string `json:"number" binding:"required"`
	Route          string `json:"route" binding:"required"`
	Capacity       *int   `json:"capacity,omitempty"`
	AlertThreshold *int   `json:"alert_threshold,omitempty"`
	Location       string `json:"location,omitempty"`
}

// UpdateVehicle is the PATCH /api/vehicles/:id payload; nil fields are left
// untouched. Status here is the administrative, non-derived path that can set
// maintenance/offline.
type UpdateVehicle struct {
	Number         *string        `json:"number,omitempty"`
	Route          *string        `json:"route,omitempty"`
	Capacity       *int           `json:"capacity,omitempty"`
	AlertThreshold *int           `json:"alert_threshold,omitempty"`
	Location       *string        `json:"location,omitempty"`
	Status         *VehicleStatus `json:"status,omitempty"`
	Active         *bool          `json:"active,omitempty"`
}

// CreateStop is the POST /api/stops payload.
type CreateStop struct {
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
	Waiting  *int   `json:"waiting,omitempty"`
}

// UpdateStop is the PATCH /api/stops/:id payload.
type UpdateStop struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
	Waiting  *int    `json:"waiting,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// DashboardStats is the GET /api/dashboard/stats response.
type DashboardStats struct {
	TotalPassengers  int `json:"total_passengers"`
	ActiveVehicles   int `json:"active_vehicles"`
	VehiclesRunning  int `json:"vehicles_running"`
	AverageOccupancy int `json:"average_occupancy"`
	CriticalAlerts   int `json:"critical_alerts"`
	UnreadAlerts     int `json:"unread_alerts"`
	ActiveStops      int `json:"active_stops"`
}
