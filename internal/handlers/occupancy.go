package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transitops/fleet-occupancy-service/internal/metrics"
	"github.com/transitops/fleet-occupancy-service/internal/models"
	"github.com/transitops/fleet-occupancy-service/internal/occupancy"
	"github.com/transitops/fleet-occupancy-service/internal/store"
)

// RegisterOccupancyRoutes registers the ingestion-path endpoint.
//
// POST /api/occupancy
// - Validates shape and ranges before the state machine runs: a rejected
//   sample leaves the store untouched.
// - 404 for an unknown vehicle, also with zero side effects.
// - 200 returns the updated vehicle after the full mutate/sample/activity/
//   alert/broadcast sequence completed.
func RegisterOccupancyRoutes(r gin.IRoutes, svc *occupancy.Service, m *metrics.Metrics) {
	r.POST("/api/occupancy", func(c *gin.Context) {
		var req models.OccupancyUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			m.SamplesRejected.Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid occupancy payload"})
			return
		}
		if *req.Occupancy < 0 || *req.Boarded < 0 || *req.Alighted < 0 {
			m.SamplesRejected.Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "counts must be non-negative"})
			return
		}

		vehicle, err := svc.Apply(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.SamplesRejected.Inc()
				c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply occupancy sample"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "vehicle": vehicle})
	})
}
