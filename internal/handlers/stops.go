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

// RegisterStopRoutes registers stop CRUD. Stops have an independent lifecycle
// from vehicles; nothing here touches the occupancy pipeline.
func RegisterStopRoutes(r gin.IRoutes, st store.Store, hub *ws.Hub) {
	r.GET("/api/stops", func(c *gin.Context) {
		stops, err := st.ListStops(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stops"})
			return
		}
		c.JSON(http.StatusOK, stops)
	})

	r.GET("/api/stops/active", func(c *gin.Context) {
		stops, err := st.ListActiveStops(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stops"})
			return
		}
		c.JSON(http.StatusOK, stops)
	})

	r.GET("/api/stops/:id", func(c *gin.Context) {
		s, err := st.GetStop(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "stop not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stop"})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	r.POST("/api/stops", func(c *gin.Context) {
		var req models.CreateStop
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stop payload"})
			return
		}

		s := models.Stop{
			ID:         req.ID,
			Name:       req.Name,
			Location:   req.Location,
			Active:     true,
			LastUpdate: time.Now().UTC(),
		}
		if req.Waiting != nil {
			if *req.Waiting < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "waiting must be non-negative"})
				return
			}
			s.Waiting = *req.Waiting
		}

		if err := st.CreateStop(c.Request.Context(), s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create stop"})
			return
		}

		hub.Broadcast(ws.Event{Type: ws.EventStopCreated, Data: s})
		c.JSON(http.StatusCreated, s)
	})

	r.PATCH("/api/stops/:id", func(c *gin.Context) {
		var req models.UpdateStop
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stop payload"})
			return
		}

		ctx := c.Request.Context()
		s, err := st.GetStop(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "stop not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stop"})
			return
		}

		if req.Name != nil {
			s.Name = *req.Name
		}
		if req.Location != nil {
			s.Location = *req.Location
		}
		if req.Waiting != nil {
			if *req.Waiting < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "waiting must be non-negative"})
				return
			}
			s.Waiting = *req.Waiting
		}
		if req.Active != nil {
			s.Active = *req.Active
		}
		s.LastUpdate = time.Now().UTC()

		if err := st.PutStop(ctx, s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update stop"})
			return
		}
		c.JSON(http.StatusOK, s)
	})
}
