package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/transitops/fleet-occupancy-service/internal/metrics"
	"github.com/transitops/fleet-occupancy-service/internal/models"
	"github.com/transitops/fleet-occupancy-service/internal/occupancy"
	"github.com/transitops/fleet-occupancy-service/internal/store"
	"github.com/transitops/fleet-occupancy-service/internal/ws"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.MemStore) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	st := store.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	hub := ws.NewHub(logger, m, 8, time.Second)
	go hub.Run()
	t.Cleanup(hub.Stop)
	svc := occupancy.NewService(st, hub, logger, m)

	r := gin.New()
	RegisterOccupancyRoutes(r, svc, m)
	RegisterVehicleRoutes(r, st, hub)
	RegisterStopRoutes(r, st, hub)
	RegisterAlertRoutes(r, st, hub)
	RegisterHistoryRoutes(r, st)
	RegisterDashboardRoutes(r, st)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seed(t *testing.T, st *store.MemStore, id string) {
	t.Helper()
	err := st.CreateVehicle(context.Background(), models.Vehicle{
		ID: id, Number: id, Route: "r", Capacity: 40, AlertThreshold: 35,
		Status: models.StatusActive, LastUpdate: time.Now().UTC(), Active: true,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestOccupancy_ValidationRejectsBeforeMutation(t *testing.T) {
	r, st := newTestRouter(t)
	seed(t, st, "V-1")

	cases := []struct {
		name    string
		payload any
	}{
		{"missing occupancy", map[string]any{"vehicle_id": "V-1", "boarded": 1, "alighted": 0}},
		{"missing vehicle id", map[string]any{"current_occupancy": 5, "boarded": 1, "alighted": 0}},
		{"negative occupancy", map[string]any{"vehicle_id": "V-1", "current_occupancy": -1, "boarded": 0, "alighted": 0}},
		{"negative boarded", map[string]any{"vehicle_id": "V-1", "current_occupancy": 5, "boarded": -2, "alighted": 0}},
		{"not json", "plain text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/occupancy", tc.payload)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}

	// Zero side effects across all rejections.
	samples, _ := st.SamplesForVehicle(context.Background(), "V-1")
	if len(samples) != 0 {
		t.Errorf("samples = %d, want 0 after rejected payloads", len(samples))
	}
}

func TestOccupancy_UnknownVehicleIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/occupancy", map[string]any{
		"vehicle_id": "V-999", "current_occupancy": 50, "boarded": 50, "alighted": 0,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestOccupancy_SuccessReturnsUpdatedVehicle(t *testing.T) {
	r, st := newTestRouter(t)
	seed(t, st, "V-1")

	w := doJSON(t, r, http.MethodPost, "/api/occupancy", map[string]any{
		"vehicle_id": "V-1", "current_occupancy": 37, "boarded": 37, "alighted": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var resp struct {
		Vehicle models.Vehicle `json:"vehicle"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Vehicle.Status != models.StatusNearCapacity {
		t.Errorf("status = %s, want near_capacity", resp.Vehicle.Status)
	}
	if resp.Vehicle.Occupancy != 37 {
		t.Errorf("occupancy = %d, want 37", resp.Vehicle.Occupancy)
	}
}

func TestVehicles_CreateAppliesDefaults(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/vehicles", map[string]any{
		"id": "V-9", "number": "9", "route": "Route X",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}

	var v models.Vehicle
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Capacity != DefaultCapacity || v.AlertThreshold != DefaultAlertThreshold {
		t.Errorf("defaults = %d/%d, want %d/%d", v.Capacity, v.AlertThreshold, DefaultCapacity, DefaultAlertThreshold)
	}
	if v.Status != models.StatusActive || !v.Active {
		t.Errorf("new vehicle = %+v, want active", v)
	}
}

func TestVehicles_AdministrativeStatusUpdate(t *testing.T) {
	r, st := newTestRouter(t)
	seed(t, st, "V-1")

	w := doJSON(t, r, http.MethodPatch, "/api/vehicles/V-1", map[string]any{"status": "maintenance"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	v, err := st.GetVehicle(context.Background(), "V-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Status != models.StatusMaintenance {
		t.Errorf("status = %s, want maintenance", v.Status)
	}
}

// The administrative path must enforce the same ranges as creation, and may
// only assign the administrative statuses; the derived ones come from
// occupancy alone. A negative capacity slipping through here would make the
// next ingested sample derive over_capacity at occupancy zero.
func TestVehicles_AdministrativeUpdateValidation(t *testing.T) {
	r, st := newTestRouter(t)
	seed(t, st, "V-1")

	cases := []struct {
		name    string
		payload any
	}{
		{"zero capacity", map[string]any{"capacity": 0}},
		{"negative capacity", map[string]any{"capacity": -5}},
		{"negative threshold", map[string]any{"alert_threshold": -3}},
		{"unknown status", map[string]any{"status": "banana"}},
		{"derived status near_capacity", map[string]any{"status": "near_capacity"}},
		{"derived status over_capacity", map[string]any{"status": "over_capacity"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPatch, "/api/vehicles/V-1", tc.payload)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}

	// Nothing persisted from the rejected payloads.
	v, err := st.GetVehicle(context.Background(), "V-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Capacity != 40 || v.AlertThreshold != 35 || v.Status != models.StatusActive {
		t.Errorf("vehicle mutated by rejected patch: %+v", v)
	}

	// A sample ingested afterwards still derives a sane status.
	w := doJSON(t, r, http.MethodPost, "/api/occupancy", map[string]any{
		"vehicle_id": "V-1", "current_occupancy": 0, "boarded": 0, "alighted": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest: status = %d", w.Code)
	}
	v, _ = st.GetVehicle(context.Background(), "V-1")
	if v.Status != models.StatusActive {
		t.Errorf("status after empty sample = %s, want active", v.Status)
	}
	if alerts, _ := st.ListAlerts(context.Background()); len(alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(alerts))
	}
}

func TestVehicles_GetUnknownIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/vehicles/V-404", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAlerts_MarkReadMapsFalseTo404(t *testing.T) {
	r, st := newTestRouter(t)

	_ = st.CreateAlert(context.Background(), models.Alert{
		ID: "a1", Category: models.AlertNearCapacity, Severity: models.SeverityHigh,
		CreatedAt: time.Now().UTC(),
	})

	if w := doJSON(t, r, http.MethodPatch, "/api/alerts/a1/read", nil); w.Code != http.StatusOK {
		t.Errorf("known alert: status = %d, want 200", w.Code)
	}
	if w := doJSON(t, r, http.MethodPatch, "/api/alerts/nope/read", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown alert: status = %d, want 404", w.Code)
	}
}

func TestHistory_BadWindowParams(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/samples/recent?hours=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("hours=abc: status = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/activity?limit=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("limit=-1: status = %d, want 400", w.Code)
	}
}

func TestDashboard_Stats(t *testing.T) {
	r, st := newTestRouter(t)
	seed(t, st, "V-1")
	seed(t, st, "V-2")

	// Push V-1 over capacity so there is a critical unread alert and a
	// non-active status in the mix.
	w := doJSON(t, r, http.MethodPost, "/api/occupancy", map[string]any{
		"vehicle_id": "V-1", "current_occupancy": 45, "boarded": 45, "alighted": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest: status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/dashboard/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status = %d", w.Code)
	}

	var stats models.DashboardStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.TotalPassengers != 45 {
		t.Errorf("total passengers = %d, want 45", stats.TotalPassengers)
	}
	if stats.ActiveVehicles != 2 || stats.VehiclesRunning != 1 {
		t.Errorf("vehicles = %d running %d, want 2/1", stats.ActiveVehicles, stats.VehiclesRunning)
	}
	if stats.UnreadAlerts != 1 || stats.CriticalAlerts != 1 {
		t.Errorf("alerts = %d unread %d critical, want 1/1", stats.UnreadAlerts, stats.CriticalAlerts)
	}
}

func TestStops_CreateAndList(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/stops", map[string]any{
		"id": "S-1", "name": "Downtown Terminal", "location": "Main St & 5th Ave",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d (body %s)", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/stops", nil)
	var stops []models.Stop
	if err := json.Unmarshal(w.Body.Bytes(), &stops); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(stops) != 1 || stops[0].ID != "S-1" {
		t.Errorf("stops = %+v, want just S-1", stops)
	}

	if w := doJSON(t, r, http.MethodPost, "/api/stops", map[string]any{"id": "S-2"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status = %d, want 400", w.Code)
	}
}
