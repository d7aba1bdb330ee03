package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transitops/fleet-occupancy-service/internal/store"
	"github.com/transitops/fleet-occupancy-service/internal/ws"
)

// RegisterAlertRoutes registers the alert register's read surface plus the
// two mutations it allows: flipping the read flag and administrative delete.
// The pipeline itself never deletes alerts.
func RegisterAlertRoutes(r gin.IRoutes, st store.Store, hub *ws.Hub) {
	r.GET("/api/alerts", func(c *gin.Context) {
		alerts, err := st.ListAlerts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
			return
		}
		c.JSON(http.StatusOK, alerts)
	})

	r.GET("/api/alerts/unread", func(c *gin.Context) {
		alerts, err := st.ListUnreadAlerts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
			return
		}
		c.JSON(http.StatusOK, alerts)
	})

	r.PATCH("/api/alerts/:id/read", func(c *gin.Context) {
		id := c.Param("id")
		ok, err := st.MarkAlertRead(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark alert read"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}

		hub.Broadcast(ws.Event{Type: ws.EventAlertMarkedRead, Data: gin.H{"alert_id": id}})
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	r.DELETE("/api/alerts/:id", func(c *gin.Context) {
		deleted, err := st.DeleteAlert(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete alert"})
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
}
