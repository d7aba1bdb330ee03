package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transitops/fleet-occupancy-service/internal/models"
	"github.com/transitops/fleet-occupancy-service/internal/store"
)

// RegisterDashboardRoutes registers the aggregate stats endpoint backing the
// dashboard header cards.
func RegisterDashboardRoutes(r gin.IRoutes, st store.Store) {
	r.GET("/api/dashboard/stats", func(c *gin.Context) {
		ctx := c.Request.Context()

		vehicles, err := st.ListActiveVehicles(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
			return
		}
		stops, err := st.ListActiveStops(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
			return
		}
		unread, err := st.ListUnreadAlerts(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
			return
		}

		stats := models.DashboardStats{
			ActiveVehicles: len(vehicles),
			ActiveStops:    len(stops),
			UnreadAlerts:   len(unread),
		}

		totalCapacity := 0
		for _, v := range vehicles {
			stats.TotalPassengers += v.Occupancy
			totalCapacity += v.Capacity
			if v.Status == models.StatusActive {
				stats.VehiclesRunning++
			}
		}
		if totalCapacity > 0 {
			stats.AverageOccupancy = (stats.TotalPassengers*100 + totalCapacity/2) / totalCapacity
		}
		for _, a := range unread {
			if a.Severity == models.SeverityCritical {
				stats.CriticalAlerts++
			}
		}

		c.JSON(http.StatusOK, stats)
	})
}
