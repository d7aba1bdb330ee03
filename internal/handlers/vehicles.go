package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/transitops/fleet-occupancy-service/internal/models"
	"github.com/transitops/fleet-occupancy-service/internal/store"
	"github.com/transitops/fleet-occupancy-service/internal/ws"
)

// Deployment defaults applied when a vehicle is created without explicit
// capacity or threshold.
const (
	DefaultCapacity       = 40
	DefaultAlertThreshold = 35
)

// RegisterVehicleRoutes registers the vehicle CRUD surface. These endpoints
// perform no derived computation; status changes made here are the
// administrative path that can set maintenance/offline (and hold only until
// the next occupancy sample rederives status).
func RegisterVehicleRoutes(r gin.IRoutes, st store.Store, hub *ws.Hub) {
	r.GET("/api/vehicles", func(c *gin.Context) {
		vehicles, err := st.ListVehicles(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list vehicles"})
			return
		}
		c.JSON(http.StatusOK, vehicles)
	})

	r.GET("/api/vehicles/active", func(c *gin.Context) {
		vehicles, err := st.ListActiveVehicles(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list vehicles"})
			return
		}
		c.JSON(http.StatusOK, vehicles)
	})

	r.GET("/api/vehicles/:id", func(c *gin.Context) {
		v, err := st.GetVehicle(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get vehicle"})
			return
		}
		c.JSON(http.StatusOK, v)
	})

	r.POST("/api/vehicles", func(c *gin.Context) {
		var req models.CreateVehicle
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle payload"})
			return
		}

		v := models.Vehicle{
			ID:             req.ID,
			Number:         req.Number,
			Route:          req.Route,
			Capacity:       DefaultCapacity,
			AlertThreshold: DefaultAlertThreshold,
			Status:         models.StatusActive,
			Location:       req.Location,
			LastUpdate:     time.Now().UTC(),
			Active:         true,
		}
		if req.Capacity != nil {
			v.Capacity = *req.Capacity
		}
		if req.AlertThreshold != nil {
			v.AlertThreshold = *req.AlertThreshold
		}
		if v.Capacity <= 0 || v.AlertThreshold < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must be positive, threshold non-negative"})
			return
		}

		if err := st.CreateVehicle(c.Request.Context(), v); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create vehicle"})
			return
		}

		hub.Broadcast(ws.Event{Type: ws.EventVehicleCreated, Data: v})
		c.JSON(http.StatusCreated, v)
	})

	r.PATCH("/api/vehicles/:id", func(c *gin.Context) {
		var req models.UpdateVehicle
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle payload"})
			return
		}
		if req.Capacity != nil && *req.Capacity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must be positive"})
			return
		}
		if req.AlertThreshold != nil && *req.AlertThreshold < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be non-negative"})
			return
		}
		// Only the administrative statuses can be set here; near_capacity and
		// over_capacity are derived from occupancy, never assigned directly.
		if req.Status != nil && !settableStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active, maintenance or offline"})
			return
		}

		ctx := c.Request.Context()
		v, err := st.GetVehicle(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get vehicle"})
			return
		}

		statusChanged := false
		if req.Number != nil {
			v.Number = *req.Number
		}
		if req.Route != nil {
			v.Route = *req.Route
		}
		if req.Capacity != nil {
			v.Capacity = *req.Capacity
		}
		if req.AlertThreshold != nil {
			v.AlertThreshold = *req.AlertThreshold
		}
		if req.Location != nil {
			v.Location = *req.Location
		}
		if req.Status != nil && *req.Status != v.Status {
			v.Status = *req.Status
			statusChanged = true
		}
		if req.Active != nil {
			v.Active = *req.Active
		}
		v.LastUpdate = time.Now().UTC()

		if err := st.PutVehicle(ctx, v); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update vehicle"})
			return
		}

		if statusChanged {
			hub.Broadcast(ws.Event{Type: ws.EventVehicleStatusChanged, Data: v})
		}
		c.JSON(http.StatusOK, v)
	})

	r.DELETE("/api/vehicles/:id", func(c *gin.Context) {
		deleted, err := st.DeleteVehicle(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete vehicle"})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
}

func settableStatus(s models.VehicleStatus) bool {
	switch s {
	case models.StatusActive, models.StatusMaintenance, models.StatusOffline:
		return true
	}
	return false
}
