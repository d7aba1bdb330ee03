package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/transitops/fleet-occupancy-service/internal/store"
)

// RegisterHistoryRoutes registers the event-log read surface: occupancy
// samples and activity records. These queries tolerate dangling vehicle
// references: rows for a deleted vehicle are still returned.
func RegisterHistoryRoutes(r gin.IRoutes, st store.Store) {
	r.GET("/api/samples/vehicle/:id", func(c *gin.Context) {
		samples, err := st.SamplesForVehicle(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get samples"})
			return
		}
		c.JSON(http.StatusOK, samples)
	})

	r.GET("/api/samples/recent", func(c *gin.Context) {
		hours := 24
		if raw := c.Query("hours"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
				return
			}
			hours = n
		}

		cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		samples, err := st.SamplesSince(c.Request.Context(), cutoff)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get samples"})
			return
		}
		c.JSON(http.StatusOK, samples)
	})

	r.GET("/api/activity", func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		activity, err := st.RecentActivity(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get activity"})
			return
		}
		c.JSON(http.StatusOK, activity)
	})

	r.GET("/api/activity/vehicle/:id", func(c *gin.Context) {
		activity, err := st.ActivityForVehicle(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get activity"})
			return
		}
		c.JSON(http.StatusOK, activity)
	})
}
